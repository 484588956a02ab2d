// Package repository tests use testcontainers-go to spin up a PostgreSQL
// container; they are skipped when Docker is not available.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"telegram-quiz-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the same schema the bot bootstraps at startup.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS games (
			chat_id BIGINT PRIMARY KEY,
			status TEXT NOT NULL DEFAULT 'off',
			score_team INT NOT NULL DEFAULT 0,
			score_host INT NOT NULL DEFAULT 0,
			team BIGINT[] NOT NULL DEFAULT '{}',
			responder_id BIGINT NOT NULL DEFAULT 0,
			question_history BIGINT[] NOT NULL DEFAULT '{}',
			update_time BIGINT NOT NULL DEFAULT 0,
			wins INT NOT NULL DEFAULT 0,
			loses INT NOT NULL DEFAULT 0,
			canceled INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			ans_correct INT NOT NULL DEFAULT 0,
			ans_wrong INT NOT NULL DEFAULT 0,
			ans_late INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	if err != nil {
		return err
	}

	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			answer TEXT NOT NULL
		)
	`)
	return err
}

// ============================================================================
// GameRepository Tests
// ============================================================================

func TestGameRepository_Create(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.Create(ctx, -100, 1234)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), game.ChatID)
	assert.Equal(t, model.StatusOff, game.Status)
	assert.Equal(t, int64(1234), game.UpdateTime)
	assert.Equal(t, 0, game.ScoreTeam)
	assert.Equal(t, 0, game.ScoreHost)
	assert.Empty(t, game.Team)
	assert.Empty(t, game.QuestionHistory)
	assert.False(t, game.CreatedAt.IsZero())
}

func TestGameRepository_GetByChat(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, -100, 1234)
	require.NoError(t, err)

	game, err := repo.GetByChat(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, int64(-100), game.ChatID)

	_, err = repo.GetByChat(ctx, -999)
	assert.ErrorIs(t, err, ErrGameNotFound)
}

func TestGameRepository_SaveRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.Create(ctx, -100, 1234)
	require.NoError(t, err)

	game.Status = model.StatusAnswer
	game.ScoreTeam = 3
	game.ScoreHost = 5
	game.Team = []int64{7, 1, 9}
	game.ResponderID = 1
	game.QuestionHistory = []int64{11, 12, 13}
	game.UpdateTime = 5678
	game.Wins = 2
	game.Loses = 4
	game.Canceled = 1

	require.NoError(t, repo.Save(ctx, game))

	loaded, err := repo.GetByChat(ctx, -100)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAnswer, loaded.Status)
	assert.Equal(t, 3, loaded.ScoreTeam)
	assert.Equal(t, 5, loaded.ScoreHost)
	// Array columns keep their element order.
	assert.Equal(t, []int64{7, 1, 9}, loaded.Team)
	assert.Equal(t, int64(1), loaded.ResponderID)
	assert.Equal(t, []int64{11, 12, 13}, loaded.QuestionHistory)
	assert.Equal(t, int64(5678), loaded.UpdateTime)
	assert.Equal(t, 2, loaded.Wins)
	assert.Equal(t, 4, loaded.Loses)
	assert.Equal(t, 1, loaded.Canceled)
}

func TestGameRepository_SaveNilSlices(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	game, err := repo.Create(ctx, -100, 1234)
	require.NoError(t, err)

	game.Team = nil
	game.QuestionHistory = nil
	require.NoError(t, repo.Save(ctx, game))

	loaded, err := repo.GetByChat(ctx, -100)
	require.NoError(t, err)
	assert.Empty(t, loaded.Team)
	assert.Empty(t, loaded.QuestionHistory)
}

func TestGameRepository_SaveUnknownChat(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewGameRepository(pool)
	ctx := context.Background()

	err := repo.Save(ctx, &model.Game{ChatID: -999, Status: model.StatusOff})
	assert.ErrorIs(t, err, ErrGameNotFound)
}

// ============================================================================
// PlayerRepository Tests
// ============================================================================

func TestPlayerRepository_UpsertAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	err := repo.Upsert(ctx, &model.Player{ID: 1, FirstName: "Alice", Username: "alice42"})
	require.NoError(t, err)

	player, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alice", player.FirstName)
	assert.Equal(t, "alice42", player.Username)
	assert.Equal(t, 0, player.AnsCorrect)

	_, err = repo.Get(ctx, 99999)
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_UpsertKeepsCounters(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 1, FirstName: "Alice"}))

	player, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	player.AnsCorrect = 3
	player.AnsWrong = 1
	require.NoError(t, repo.Save(ctx, player))

	// A rejoin with a changed name refreshes the names only.
	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 1, FirstName: "Alicia", Username: "al"}))

	player, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Alicia", player.FirstName)
	assert.Equal(t, "al", player.Username)
	assert.Equal(t, 3, player.AnsCorrect)
	assert.Equal(t, 1, player.AnsWrong)
}

func TestPlayerRepository_SaveUnknownPlayer(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	err := repo.Save(ctx, &model.Player{ID: 99999, AnsCorrect: 1})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_GetByNameInTeam(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 1, FirstName: "Alice"}))
	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 2, FirstName: "Bob"}))
	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 3, FirstName: "Bob"}))

	player, err := repo.GetByNameInTeam(ctx, "Bob", []int64{1, 2})
	require.NoError(t, err)
	assert.Equal(t, int64(2), player.ID)

	// Same name outside the team does not resolve.
	_, err = repo.GetByNameInTeam(ctx, "Bob", []int64{1})
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	_, err = repo.GetByNameInTeam(ctx, "Nobody", []int64{1, 2, 3})
	assert.ErrorIs(t, err, ErrPlayerNotFound)
}

func TestPlayerRepository_GetTeamPreservesOrder(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewPlayerRepository(pool)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 1, FirstName: "Alice"}))
	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 2, FirstName: "Bob"}))
	require.NoError(t, repo.Upsert(ctx, &model.Player{ID: 3, FirstName: "Carol"}))

	players, err := repo.GetTeam(ctx, []int64{3, 1, 2})
	require.NoError(t, err)
	require.Len(t, players, 3)
	assert.Equal(t, "Carol", players[0].FirstName)
	assert.Equal(t, "Alice", players[1].FirstName)
	assert.Equal(t, "Bob", players[2].FirstName)

	// Unknown ids are silently skipped.
	players, err = repo.GetTeam(ctx, []int64{1, 42})
	require.NoError(t, err)
	require.Len(t, players, 1)
	assert.Equal(t, "Alice", players[0].FirstName)
}

// ============================================================================
// QuestionRepository Tests
// ============================================================================

func TestQuestionRepository_CreateAndGet(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewQuestionRepository(pool)
	ctx := context.Background()

	q, err := repo.Create(ctx, "What orbits the Earth?", "The Moon")
	require.NoError(t, err)
	assert.NotZero(t, q.ID)

	loaded, err := repo.GetByID(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "What orbits the Earth?", loaded.Title)
	assert.Equal(t, "The Moon", loaded.Answer)

	_, err = repo.GetByID(ctx, 99999)
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	// Titles are unique across the bank.
	_, err = repo.Create(ctx, "What orbits the Earth?", "Luna")
	assert.Error(t, err)
}

func TestQuestionRepository_FirstUnseen(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewQuestionRepository(pool)
	ctx := context.Background()

	q1, err := repo.Create(ctx, "Q1?", "A1")
	require.NoError(t, err)
	q2, err := repo.Create(ctx, "Q2?", "A2")
	require.NoError(t, err)

	q, err := repo.FirstUnseen(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, q1.ID, q.ID)

	q, err = repo.FirstUnseen(ctx, []int64{q1.ID})
	require.NoError(t, err)
	assert.Equal(t, q2.ID, q.ID)

	_, err = repo.FirstUnseen(ctx, []int64{q1.ID, q2.ID})
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionRepository_FirstUnseenEmptyBank(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewQuestionRepository(pool)
	ctx := context.Background()

	_, err := repo.FirstUnseen(ctx, nil)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestQuestionRepository_List(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewQuestionRepository(pool)
	ctx := context.Background()

	_, err := repo.Create(ctx, "Q1?", "A1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "Q2?", "A2")
	require.NoError(t, err)

	questions, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "Q1?", questions[0].Title)
	assert.Equal(t, "Q2?", questions[1].Title)
}
