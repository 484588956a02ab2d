// Package telegram adapts the telebot client to the engine's outbound
// channel and the poller's update fetcher.
package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	tele "gopkg.in/telebot.v3"

	"telegram-quiz-bot/internal/engine"
)

// Client wraps a telebot instance. It implements engine.Channel and the
// poller's Fetcher.
type Client struct {
	bot         *tele.Bot
	pollTimeout time.Duration
}

// NewClient creates a Telegram client. pollTimeout is the long-poll
// timeout passed to getUpdates; the HTTP client waits a bit longer so the
// long poll is never cut short locally.
func NewClient(token string, pollTimeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("bot token is required")
	}
	if pollTimeout <= 0 {
		pollTimeout = 60 * time.Second
	}

	bot, err := tele.NewBot(tele.Settings{
		Token:  token,
		Client: &http.Client{Timeout: pollTimeout + 30*time.Second},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &Client{bot: bot, pollTimeout: pollTimeout}, nil
}

// FetchUpdates long-polls getUpdates starting at offset. Passing the
// offset acknowledges everything below it server-side, so the caller must
// only advance the offset after an update was processed or filtered.
func (c *Client) FetchUpdates(ctx context.Context, offset int64) ([]tele.Update, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	params := struct {
		Offset         int64    `json:"offset,omitempty"`
		Timeout        int      `json:"timeout"`
		AllowedUpdates []string `json:"allowed_updates"`
	}{
		Offset:         offset,
		Timeout:        int(c.pollTimeout.Seconds()),
		AllowedUpdates: []string{"message", "callback_query"},
	}

	data, err := c.bot.Raw("getUpdates", params)
	if err != nil {
		return nil, fmt.Errorf("getUpdates: %w", err)
	}

	var resp struct {
		Result []tele.Update `json:"result"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("decode getUpdates response: %w", err)
	}
	return resp.Result, nil
}

// SetCommands registers the host's command menu for group chats.
func (c *Client) SetCommands() error {
	commands := []tele.Command{
		{Text: "about", Description: "Info"},
		{Text: "rules", Description: "Game rules"},
		{Text: "team_up", Description: "Gather the team"},
		{Text: "start_game", Description: "Start game"},
		{Text: "end_game", Description: "End game"},
		{Text: "group_stats", Description: "Group game stats"},
		{Text: "player_stats", Description: "Personal game stats"},
	}
	scope := tele.CommandScope{Type: tele.CommandScopeAllGroupChats}
	if err := c.bot.SetCommands(commands, scope); err != nil {
		return fmt.Errorf("set commands: %w", err)
	}
	return nil
}

// SendText sends a plain message and returns its server timestamp.
func (c *Client) SendText(_ context.Context, chatID int64, text string) (int64, error) {
	msg, err := c.bot.Send(tele.ChatID(chatID), text)
	if err != nil {
		return 0, fmt.Errorf("send message: %w", err)
	}
	return msg.Unixtime, nil
}

// SendInlineKeyboard sends a message with a one-row inline keyboard.
func (c *Client) SendInlineKeyboard(_ context.Context, chatID int64, text string, buttons []engine.Button) (int64, error) {
	row := make([]tele.InlineButton, 0, len(buttons))
	for _, b := range buttons {
		row = append(row, tele.InlineButton{Text: b.Label, Data: b.Data})
	}
	markup := &tele.ReplyMarkup{
		InlineKeyboard:  [][]tele.InlineButton{row},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
	msg, err := c.bot.Send(tele.ChatID(chatID), text, markup)
	if err != nil {
		return 0, fmt.Errorf("send inline keyboard: %w", err)
	}
	return msg.Unixtime, nil
}

// SendReplyKeyboard sends a message with a one-row reply keyboard, one
// button per label.
func (c *Client) SendReplyKeyboard(_ context.Context, chatID int64, text string, buttons []string) (int64, error) {
	row := make([]tele.ReplyButton, 0, len(buttons))
	for _, label := range buttons {
		row = append(row, tele.ReplyButton{Text: label})
	}
	markup := &tele.ReplyMarkup{
		ReplyKeyboard:   [][]tele.ReplyButton{row},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
		Selective:       true,
	}
	msg, err := c.bot.Send(tele.ChatID(chatID), text, markup)
	if err != nil {
		return 0, fmt.Errorf("send reply keyboard: %w", err)
	}
	return msg.Unixtime, nil
}

// RemoveKeyboard sends a message that drops any active reply keyboard.
func (c *Client) RemoveKeyboard(_ context.Context, chatID int64, text string) (int64, error) {
	markup := &tele.ReplyMarkup{RemoveKeyboard: true}
	msg, err := c.bot.Send(tele.ChatID(chatID), text, markup)
	if err != nil {
		return 0, fmt.Errorf("remove keyboard: %w", err)
	}
	return msg.Unixtime, nil
}

// AnswerCallback acknowledges an inline-button press.
func (c *Client) AnswerCallback(_ context.Context, callbackID, text string) error {
	err := c.bot.Respond(&tele.Callback{ID: callbackID}, &tele.CallbackResponse{Text: text})
	if err != nil {
		return fmt.Errorf("answer callback: %w", err)
	}
	return nil
}
