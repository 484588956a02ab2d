// Package repository provides data access layer implementations. Every
// operation is one short transaction against the pool; the single-writer
// consumer loop makes optimistic concurrency control unnecessary.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-quiz-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrGameNotFound     = errors.New("game not found")
	ErrPlayerNotFound   = errors.New("player not found")
	ErrQuestionNotFound = errors.New("question not found")
)

// GameRepository handles game persistence, keyed by chat ID.
type GameRepository struct {
	pool *pgxpool.Pool
}

// NewGameRepository creates a new GameRepository instance.
func NewGameRepository(pool *pgxpool.Pool) *GameRepository {
	return &GameRepository{pool: pool}
}

const gameColumns = `
	chat_id, status, score_team, score_host, team, responder_id,
	question_history, update_time, wins, loses, canceled, created_at, updated_at`

func scanGame(row pgx.Row) (*model.Game, error) {
	var game model.Game
	err := row.Scan(
		&game.ChatID,
		&game.Status,
		&game.ScoreTeam,
		&game.ScoreHost,
		&game.Team,
		&game.ResponderID,
		&game.QuestionHistory,
		&game.UpdateTime,
		&game.Wins,
		&game.Loses,
		&game.Canceled,
		&game.CreatedAt,
		&game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}

// GetByChat retrieves the game of a chat.
// Returns ErrGameNotFound if no game exists for the chat.
func (r *GameRepository) GetByChat(ctx context.Context, chatID int64) (*model.Game, error) {
	query := `SELECT` + gameColumns + ` FROM games WHERE chat_id = $1`

	game, err := scanGame(r.pool.QueryRow(ctx, query, chatID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// Create inserts a fresh OFF game for the chat, anchored at the given
// server timestamp.
func (r *GameRepository) Create(ctx context.Context, chatID, updateTime int64) (*model.Game, error) {
	query := `
		INSERT INTO games (chat_id, status, team, question_history, update_time, created_at, updated_at)
		VALUES ($1, $2, '{}', '{}', $3, NOW(), NOW())
		RETURNING` + gameColumns

	game, err := scanGame(r.pool.QueryRow(ctx, query, chatID, model.StatusOff, updateTime))
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// Save writes the mutable game state back.
func (r *GameRepository) Save(ctx context.Context, g *model.Game) error {
	const query = `
		UPDATE games
		SET status = $2, score_team = $3, score_host = $4, team = $5,
			responder_id = $6, question_history = $7, update_time = $8,
			wins = $9, loses = $10, canceled = $11, updated_at = NOW()
		WHERE chat_id = $1
	`

	team := g.Team
	if team == nil {
		team = []int64{}
	}
	history := g.QuestionHistory
	if history == nil {
		history = []int64{}
	}

	result, err := r.pool.Exec(ctx, query,
		g.ChatID, g.Status, g.ScoreTeam, g.ScoreHost, team,
		g.ResponderID, history, g.UpdateTime,
		g.Wins, g.Loses, g.Canceled,
	)
	if err != nil {
		return fmt.Errorf("failed to save game: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}
