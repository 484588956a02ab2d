// Package engine implements the per-chat game state machine of the quiz
// host. One controller interprets one inbound event against one game,
// computes the transition and score changes, drives the outbound
// announcements and writes the aggregates back through the stores.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"telegram-quiz-bot/internal/model"
	"telegram-quiz-bot/internal/quiz"
	"telegram-quiz-bot/internal/repository"
)

// Chat commands understood by the host.
const (
	cmdTeamUp      = "team_up"
	cmdStartGame   = "start_game"
	cmdEndGame     = "end_game"
	cmdAbout       = "about"
	cmdRules       = "rules"
	cmdGroupStats  = "group_stats"
	cmdPlayerStats = "player_stats"
)

// callbackJoin is the callback payload of the team-join button.
const callbackJoin = "join"

// Config holds the immutable tuning of the controller. Limits for the
// CAPITAN and ANSWER phases are enforced lazily against message timestamps.
type Config struct {
	DiscussionMain  time.Duration
	DiscussionExtra time.Duration
	CapitanLimit    time.Duration
	AnswerLimit     time.Duration
	MaxTeamSize     int
	AboutText       string
	RulesText       string
}

// Deps holds the collaborators of the controller.
type Deps struct {
	Games     GameStore
	Players   PlayerStore
	Questions QuestionSource
	Channel   Channel
	// Clock defaults to LazyClock.
	Clock DeadlineClock
}

// Controller is the game state machine. It is not safe for concurrent use;
// the update consumer feeds it one event at a time.
type Controller struct {
	cfg       Config
	games     GameStore
	players   PlayerStore
	questions QuestionSource
	ch        Channel
	clock     DeadlineClock
}

// New creates a Controller with the given configuration and collaborators.
func New(cfg Config, deps Deps) *Controller {
	if cfg.MaxTeamSize <= 0 {
		cfg.MaxTeamSize = 6
	}
	clock := deps.Clock
	if clock == nil {
		clock = LazyClock{}
	}
	return &Controller{
		cfg:       cfg,
		games:     deps.Games,
		players:   deps.Players,
		questions: deps.Questions,
		ch:        deps.Channel,
		clock:     clock,
	}
}

// HandleEvent processes one inbound event against the game of its chat.
func (c *Controller) HandleEvent(ctx context.Context, ev Event) error {
	switch e := ev.(type) {
	case *MessageEvent:
		return c.handleMessage(ctx, e)
	case *CallbackEvent:
		return c.handleCallback(ctx, e)
	default:
		return fmt.Errorf("engine: unknown event type %T", ev)
	}
}

func (c *Controller) handleMessage(ctx context.Context, m *MessageEvent) error {
	game, err := c.loadOrCreateGame(ctx, m.ChatID, m.Date)
	if err != nil {
		return err
	}

	cmd := command(m.Text)

	// Messages are dropped while a discussion is open so the host cannot
	// leak hints; only /end_game breaks through.
	if game.Status == model.StatusDiscussion && cmd != cmdEndGame {
		return nil
	}

	if handled, err := c.handleMenuCommand(ctx, game, m, cmd); handled {
		return err
	}

	switch {
	case game.Status == model.StatusOff && cmd == cmdTeamUp:
		game.Status = model.StatusTeamUp
		buttons := []Button{{Label: "Join the team", Data: callbackJoin}}
		if _, err := c.ch.SendInlineKeyboard(ctx, game.ChatID, "Press the button to join THE TEAM", buttons); err != nil {
			c.logSendErr(err, game.ChatID)
		}

	case game.Status == model.StatusTeamUp && cmd == cmdStartGame && game.TeamSize() > 0:
		game.ShuffleTeam()
		capitan, err := c.players.Get(ctx, game.CaptainID())
		if err != nil {
			return fmt.Errorf("load capitan %d: %w", game.CaptainID(), err)
		}
		c.send(ctx, game.ChatID, fmt.Sprintf("%s is a capitan of the team", capitan.FirstName))
		if err := c.askQuestion(ctx, game); err != nil {
			return err
		}

	case cmd == cmdEndGame:
		game.Canceled++
		if _, err := c.ch.RemoveKeyboard(ctx, game.ChatID, fmt.Sprintf("Game ended by %s", m.FirstName)); err != nil {
			c.logSendErr(err, game.ChatID)
		}
		game.ClearRound()

	case game.Status == model.StatusCapitan:
		if err := c.handleCapitanPhase(ctx, game, m); err != nil {
			return err
		}

	case game.Status == model.StatusAnswer:
		if err := c.handleAnswerPhase(ctx, game, m); err != nil {
			return err
		}
	}

	c.resolveRound(ctx, game)
	if err := c.games.Save(ctx, game); err != nil {
		return fmt.Errorf("save game %d: %w", game.ChatID, err)
	}
	if game.Status == model.StatusWait {
		return c.askQuestion(ctx, game)
	}
	return nil
}

// handleCapitanPhase waits for the captain to name the responder. Any
// message past the limit loses the round; a message from anyone else, or
// an unresolvable name, changes nothing.
func (c *Controller) handleCapitanPhase(ctx context.Context, game *model.Game, m *MessageEvent) error {
	if c.clock.Expired(game.UpdateTime, m.Date, c.cfg.CapitanLimit) {
		game.ScoreHost++
		game.Status = model.StatusWait
		if _, err := c.ch.RemoveKeyboard(ctx, game.ChatID, "Player select is late! Round lost\n"+game.Score()); err != nil {
			c.logSendErr(err, game.ChatID)
		}
		return nil
	}
	if m.UserID != game.CaptainID() {
		return nil
	}

	responder, err := c.players.GetByNameInTeam(ctx, m.Text, game.Team)
	if errors.Is(err, repository.ErrPlayerNotFound) {
		// Not a team member name, keep waiting for a valid one.
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve responder name: %w", err)
	}

	game.ResponderID = responder.ID
	game.Status = model.StatusAnswer
	text := fmt.Sprintf("%s, send your answer in %d sec!!!", responder.FirstName, int(c.cfg.AnswerLimit.Seconds()))
	if ts, err := c.ch.RemoveKeyboard(ctx, game.ChatID, text); err != nil {
		c.logSendErr(err, game.ChatID)
	} else {
		game.UpdateTime = ts
	}
	return nil
}

// handleAnswerPhase grades the responder's answer, or loses the round when
// the limit has passed. Messages from anyone but the responder within the
// limit are ignored.
func (c *Controller) handleAnswerPhase(ctx context.Context, game *model.Game, m *MessageEvent) error {
	if c.clock.Expired(game.UpdateTime, m.Date, c.cfg.AnswerLimit) {
		game.ScoreHost++
		game.Status = model.StatusWait
		if responder, err := c.players.Get(ctx, game.ResponderID); err == nil {
			responder.AnsLate++
			if err := c.players.Save(ctx, responder); err != nil {
				return fmt.Errorf("save responder %d: %w", responder.ID, err)
			}
		} else {
			log.Error().Err(err).Int64("player_id", game.ResponderID).Msg("load responder for late answer")
		}
		c.send(ctx, game.ChatID, "Answer is late! Round lost\n"+game.Score())
		return nil
	}
	if m.UserID != game.ResponderID {
		return nil
	}

	question, err := c.questions.GetByID(ctx, game.LastQuestionID())
	if err != nil {
		return fmt.Errorf("load question %d: %w", game.LastQuestionID(), err)
	}
	responder, err := c.players.Get(ctx, m.UserID)
	if err != nil {
		return fmt.Errorf("load responder %d: %w", m.UserID, err)
	}

	if question.CheckAnswer(m.Text) {
		game.ScoreTeam++
		responder.AnsCorrect++
		c.send(ctx, game.ChatID, "Correct!!!\n"+game.Score())
	} else {
		game.ScoreHost++
		responder.AnsWrong++
		c.send(ctx, game.ChatID, fmt.Sprintf("Wrong!!! Correct answer: %s\n%s", question.Answer, game.Score()))
	}
	game.Status = model.StatusWait
	if err := c.players.Save(ctx, responder); err != nil {
		return fmt.Errorf("save responder %d: %w", responder.ID, err)
	}
	return nil
}

func (c *Controller) handleCallback(ctx context.Context, cb *CallbackEvent) error {
	game, err := c.loadOrCreateGame(ctx, cb.ChatID, cb.MessageDate)
	if err != nil {
		return err
	}

	// Every callback gets acknowledged, even out-of-phase ones, so the
	// client stops its spinner.
	if game.Status != model.StatusTeamUp || cb.Data != callbackJoin {
		c.answerCallback(ctx, cb.ID, "")
		return nil
	}
	if game.TeamSize() >= c.cfg.MaxTeamSize {
		c.answerCallback(ctx, cb.ID, "Team is full :(")
		return nil
	}
	if game.InTeam(cb.UserID) {
		c.answerCallback(ctx, cb.ID, "You already in the team")
		return nil
	}

	player := &model.Player{ID: cb.UserID, FirstName: cb.FirstName, Username: cb.Username}
	if err := c.players.Upsert(ctx, player); err != nil {
		return fmt.Errorf("upsert player %d: %w", cb.UserID, err)
	}

	game.AddToTeam(cb.UserID)
	c.answerCallback(ctx, cb.ID, "You are in the team")
	c.send(ctx, game.ChatID, player.DisplayName()+" joined the team!")
	if game.TeamSize() == c.cfg.MaxTeamSize {
		c.send(ctx, game.ChatID, "Team is full")
	}
	if err := c.games.Save(ctx, game); err != nil {
		return fmt.Errorf("save game %d: %w", game.ChatID, err)
	}
	return nil
}

// askQuestion opens the next round: it picks an unseen question, announces
// it, holds the discussion pauses and hands the keyboard to the captain.
// The pauses block the consumer on purpose; while a discussion is open no
// chat gets its messages interpreted, which is what keeps hints out.
func (c *Controller) askQuestion(ctx context.Context, game *model.Game) error {
	game.Status = model.StatusDiscussion
	question, err := c.questions.PickForGame(ctx, game)
	if errors.Is(err, quiz.ErrNoQuestions) {
		c.send(ctx, game.ChatID, "No questions configured. Ask the admin to load the question bank.")
		game.ClearRound()
		if saveErr := c.games.Save(ctx, game); saveErr != nil {
			log.Error().Err(saveErr).Int64("chat_id", game.ChatID).Msg("save game after empty pool")
		}
		return fmt.Errorf("pick question for chat %d: %w", game.ChatID, err)
	}
	if err != nil {
		return fmt.Errorf("pick question for chat %d: %w", game.ChatID, err)
	}

	game.AddQuestionToHistory(question.ID)
	c.send(ctx, game.ChatID, question.Title)
	// Persist the open discussion before the pause so a restart keeps
	// dropping chatter until the captain prompt goes out.
	if err := c.games.Save(ctx, game); err != nil {
		return fmt.Errorf("save game %d: %w", game.ChatID, err)
	}

	if err := sleepCtx(ctx, c.cfg.DiscussionMain); err != nil {
		return err
	}
	c.send(ctx, game.ChatID, fmt.Sprintf("%d seconds remaining", int(c.cfg.DiscussionExtra.Seconds())))
	if err := sleepCtx(ctx, c.cfg.DiscussionExtra); err != nil {
		return err
	}

	game.Status = model.StatusCapitan
	capitan, err := c.players.Get(ctx, game.CaptainID())
	if err != nil {
		return fmt.Errorf("load capitan %d: %w", game.CaptainID(), err)
	}
	team, err := c.players.GetTeam(ctx, game.Team)
	if err != nil {
		return fmt.Errorf("load team: %w", err)
	}
	names := make([]string, 0, len(team))
	for _, p := range team {
		names = append(names, p.FirstName)
	}
	text := fmt.Sprintf("%s, who will answer?\n%d sec to choose", capitan.FirstName, int(c.cfg.CapitanLimit.Seconds()))
	if ts, err := c.ch.SendReplyKeyboard(ctx, game.ChatID, text, names); err != nil {
		c.logSendErr(err, game.ChatID)
	} else {
		game.UpdateTime = ts
	}
	if err := c.games.Save(ctx, game); err != nil {
		return fmt.Errorf("save game %d: %w", game.ChatID, err)
	}
	return nil
}

// resolveRound closes the round once either side reaches the winning
// score. Exactly one lifetime counter moves; the check runs once per
// processed event, after any score change and before the save.
func (c *Controller) resolveRound(ctx context.Context, game *model.Game) {
	if game.ScoreTeam != model.WinningScore && game.ScoreHost != model.WinningScore {
		return
	}
	if game.ScoreHost == model.WinningScore {
		game.Loses++
		c.send(ctx, game.ChatID, "Host won.\n"+game.Score())
	} else {
		game.Wins++
		c.send(ctx, game.ChatID, "Team won. Congrats!\n"+game.Score())
	}
	game.ClearRound()
}

// handleMenuCommand answers the static menu and statistics commands. They
// never consume or alter game state.
func (c *Controller) handleMenuCommand(ctx context.Context, game *model.Game, m *MessageEvent, cmd string) (bool, error) {
	switch cmd {
	case cmdAbout:
		c.send(ctx, game.ChatID, c.cfg.AboutText)
	case cmdRules:
		c.send(ctx, game.ChatID, c.cfg.RulesText)
	case cmdGroupStats:
		c.send(ctx, game.ChatID, game.Statistic())
	case cmdPlayerStats:
		player, err := c.players.Get(ctx, m.UserID)
		if errors.Is(err, repository.ErrPlayerNotFound) {
			c.send(ctx, game.ChatID, "No stats for you yet. Join a team first!")
			return true, nil
		}
		if err != nil {
			return true, fmt.Errorf("load player %d: %w", m.UserID, err)
		}
		c.send(ctx, game.ChatID, player.Statistic())
	default:
		return false, nil
	}
	return true, nil
}

// loadOrCreateGame returns the chat's game, creating a fresh OFF game on
// the first event ever seen for the chat.
func (c *Controller) loadOrCreateGame(ctx context.Context, chatID, eventTime int64) (*model.Game, error) {
	game, err := c.games.GetByChat(ctx, chatID)
	if errors.Is(err, repository.ErrGameNotFound) {
		game, err = c.games.Create(ctx, chatID, eventTime)
	}
	if err != nil {
		return nil, fmt.Errorf("load game for chat %d: %w", chatID, err)
	}
	return game, nil
}

// send delivers a plain text announcement. Failures are logged and
// swallowed: bot replies are at-most-once and never block the game.
func (c *Controller) send(ctx context.Context, chatID int64, text string) {
	if _, err := c.ch.SendText(ctx, chatID, text); err != nil {
		c.logSendErr(err, chatID)
	}
}

func (c *Controller) answerCallback(ctx context.Context, callbackID, text string) {
	if err := c.ch.AnswerCallback(ctx, callbackID, text); err != nil {
		log.Error().Err(err).Str("callback_id", callbackID).Msg("answer callback failed")
	}
}

func (c *Controller) logSendErr(err error, chatID int64) {
	log.Error().Err(err).Int64("chat_id", chatID).Msg("outbound send failed")
}

// command extracts the slash command from a message text, dropping the
// "@BotName" suffix Telegram appends in groups. Non-command text maps to "".
func command(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(text[1:], "@")
	return cmd
}

// sleepCtx pauses for d unless the context is cancelled first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
