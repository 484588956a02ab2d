package engine

import (
	"context"

	"telegram-quiz-bot/internal/model"
)

// GameStore is the persistence boundary for Game aggregates. Every call is
// one short transaction; the controller loads a working copy, mutates it
// and writes it back at the end of event processing.
type GameStore interface {
	// GetByChat returns repository.ErrGameNotFound for unknown chats.
	GetByChat(ctx context.Context, chatID int64) (*model.Game, error)
	// Create inserts a fresh OFF game anchored at the given unix timestamp.
	Create(ctx context.Context, chatID, updateTime int64) (*model.Game, error)
	Save(ctx context.Context, g *model.Game) error
}

// PlayerStore is the persistence boundary for Player aggregates.
type PlayerStore interface {
	// Get returns repository.ErrPlayerNotFound for unknown players.
	Get(ctx context.Context, id int64) (*model.Player, error)
	// Upsert creates the player or refreshes the name columns. A repeat
	// upsert for a known ID is a no-op for the counters.
	Upsert(ctx context.Context, p *model.Player) error
	Save(ctx context.Context, p *model.Player) error
	// GetByNameInTeam resolves a first name against the given team members.
	GetByNameInTeam(ctx context.Context, name string, team []int64) (*model.Player, error)
	// GetTeam returns the players in the order of the team slice.
	GetTeam(ctx context.Context, team []int64) ([]*model.Player, error)
}

// QuestionSource picks and resolves questions for a game.
type QuestionSource interface {
	// PickForGame selects a question unseen in the game's current history
	// cycle, clearing the history to start a new cycle when exhausted.
	// Returns quiz.ErrNoQuestions when the global pool is empty.
	PickForGame(ctx context.Context, g *model.Game) (*model.Question, error)
	GetByID(ctx context.Context, id int64) (*model.Question, error)
}

// Button is one inline-keyboard button.
type Button struct {
	Label string
	Data  string
}

// Channel sends outbound messages for the host. Every send returns the
// server-assigned unix timestamp of the sent message, used as the deadline
// anchor for timed phases. Delivery is at-most-once: the controller never
// retries a failed send.
type Channel interface {
	SendText(ctx context.Context, chatID int64, text string) (int64, error)
	SendInlineKeyboard(ctx context.Context, chatID int64, text string, buttons []Button) (int64, error)
	SendReplyKeyboard(ctx context.Context, chatID int64, text string, buttons []string) (int64, error)
	RemoveKeyboard(ctx context.Context, chatID int64, text string) (int64, error)
	AnswerCallback(ctx context.Context, callbackID, text string) error
}
