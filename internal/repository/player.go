package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-quiz-bot/internal/model"
)

// PlayerRepository handles player persistence, keyed by Telegram user ID.
// Players are global across chats.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

const playerColumns = `id, first_name, username, ans_correct, ans_wrong, ans_late, created_at`

func scanPlayer(row pgx.Row) (*model.Player, error) {
	var p model.Player
	err := row.Scan(
		&p.ID,
		&p.FirstName,
		&p.Username,
		&p.AnsCorrect,
		&p.AnsWrong,
		&p.AnsLate,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Get retrieves a player by Telegram user ID.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) Get(ctx context.Context, id int64) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = $1`

	player, err := scanPlayer(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}
	return player, nil
}

// Upsert creates the player or refreshes the name columns. A duplicate
// join attempt is therefore a no-op for the answer counters, never an
// error surfaced to the chat.
func (r *PlayerRepository) Upsert(ctx context.Context, p *model.Player) error {
	const query = `
		INSERT INTO players (id, first_name, username, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET first_name = EXCLUDED.first_name, username = EXCLUDED.username
	`

	if _, err := r.pool.Exec(ctx, query, p.ID, p.FirstName, p.Username); err != nil {
		return fmt.Errorf("failed to upsert player: %w", err)
	}
	return nil
}

// Save writes the player's answer counters back.
func (r *PlayerRepository) Save(ctx context.Context, p *model.Player) error {
	const query = `
		UPDATE players
		SET ans_correct = $2, ans_wrong = $3, ans_late = $4
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, p.ID, p.AnsCorrect, p.AnsWrong, p.AnsLate)
	if err != nil {
		return fmt.Errorf("failed to save player: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrPlayerNotFound
	}
	return nil
}

// GetByNameInTeam resolves a first name against the given team member IDs.
// Used when the captain picks the responder via the reply keyboard.
// Returns ErrPlayerNotFound when the name matches no team member.
func (r *PlayerRepository) GetByNameInTeam(ctx context.Context, name string, team []int64) (*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE first_name = $1 AND id = ANY($2) LIMIT 1`

	if team == nil {
		team = []int64{}
	}
	player, err := scanPlayer(r.pool.QueryRow(ctx, query, name, team))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player by name: %w", err)
	}
	return player, nil
}

// GetTeam retrieves the players of a team, preserving the join/shuffle
// order of the id slice.
func (r *PlayerRepository) GetTeam(ctx context.Context, team []int64) ([]*model.Player, error) {
	query := `SELECT ` + playerColumns + ` FROM players WHERE id = ANY($1)`

	if team == nil {
		team = []int64{}
	}
	rows, err := r.pool.Query(ctx, query, team)
	if err != nil {
		return nil, fmt.Errorf("failed to get team players: %w", err)
	}
	defer rows.Close()

	byID := make(map[int64]*model.Player, len(team))
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		byID[player.ID] = player
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	players := make([]*model.Player, 0, len(team))
	for _, id := range team {
		if p, ok := byID[id]; ok {
			players = append(players, p)
		}
	}
	return players, nil
}
