// Package poller implements the update consumer: a single long-poll loop
// that feeds in-scope events to the game engine one at a time.
package poller

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"

	"telegram-quiz-bot/internal/engine"
)

// Fetcher long-polls the platform for updates at or above offset.
type Fetcher interface {
	FetchUpdates(ctx context.Context, offset int64) ([]tele.Update, error)
}

// Handler consumes one normalized event.
type Handler interface {
	HandleEvent(ctx context.Context, ev engine.Event) error
}

// defaultRetryDelay is the pause before re-polling after a fetch error.
const defaultRetryDelay = 3 * time.Second

// Poller owns the offset cursor. Updates are processed strictly in
// received order with no concurrency, so all game-state mutation happens
// on this single logical thread of control.
type Poller struct {
	fetcher    Fetcher
	handler    Handler
	offset     int64
	retryDelay time.Duration
}

// New creates a Poller starting at offset 0.
func New(fetcher Fetcher, handler Handler) *Poller {
	return &Poller{
		fetcher:    fetcher,
		handler:    handler,
		retryDelay: defaultRetryDelay,
	}
}

// Offset returns the current cursor: the smallest update ID not yet
// fetched and acknowledged.
func (p *Poller) Offset() int64 {
	return p.offset
}

// Run consumes updates until the context is cancelled. No processing
// error stops the loop; fetch errors are retried after a short pause.
// The offset advances to update_id+1 after every update, whether it was
// handled or filtered out, which guarantees forward progress for
// unsupported event types.
func (p *Poller) Run(ctx context.Context) error {
	log.Info().Msg("Update consumer started")
	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Update consumer stopped")
			return err
		}

		updates, err := p.fetcher.FetchUpdates(ctx, p.offset)
		if err != nil {
			if ctx.Err() != nil {
				log.Info().Msg("Update consumer stopped")
				return ctx.Err()
			}
			log.Error().Err(err).Int64("offset", p.offset).Msg("Fetch updates failed")
			if err := sleepCtx(ctx, p.retryDelay); err != nil {
				return err
			}
			continue
		}

		for i := range updates {
			u := &updates[i]
			if ev, ok := Convert(u); ok {
				if err := p.handler.HandleEvent(ctx, ev); err != nil {
					if ctx.Err() != nil {
						// Shutdown mid-update: do not advance past it, the
						// next start refetches and processes it.
						return ctx.Err()
					}
					log.Error().Err(err).Int("update_id", u.ID).Msg("Handle update failed")
				}
			} else {
				log.Debug().Int("update_id", u.ID).Msg("Update filtered out")
			}
			p.offset = int64(u.ID) + 1
		}
	}
}

// Convert filters and normalizes one raw update. It returns false for
// out-of-scope updates: chat-membership changes, non-group messages and
// messages without a text body.
func Convert(u *tele.Update) (engine.Event, bool) {
	switch {
	case u.MyChatMember != nil || u.ChatMember != nil:
		return nil, false

	case u.Callback != nil:
		cb := u.Callback
		if cb.Sender == nil || cb.Message == nil || cb.Message.Chat == nil {
			return nil, false
		}
		// Telebot may prefix callback data with \f.
		data := strings.TrimPrefix(cb.Data, "\f")
		return &engine.CallbackEvent{
			ID:          cb.ID,
			ChatID:      cb.Message.Chat.ID,
			UserID:      cb.Sender.ID,
			FirstName:   cb.Sender.FirstName,
			Username:    cb.Sender.Username,
			Data:        data,
			MessageDate: cb.Message.Unixtime,
		}, true

	case u.Message != nil:
		msg := u.Message
		if msg.Chat == nil || msg.Sender == nil {
			return nil, false
		}
		if msg.Chat.Type != tele.ChatGroup && msg.Chat.Type != tele.ChatSuperGroup {
			return nil, false
		}
		if msg.Text == "" {
			return nil, false
		}
		return &engine.MessageEvent{
			ChatID:    msg.Chat.ID,
			UserID:    msg.Sender.ID,
			FirstName: msg.Sender.FirstName,
			Username:  msg.Sender.Username,
			Text:      msg.Text,
			Date:      msg.Unixtime,
		}, true

	default:
		return nil, false
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
