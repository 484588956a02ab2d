// Package main is the entry point for the quiz host bot.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"telegram-quiz-bot/internal/config"
	"telegram-quiz-bot/internal/engine"
	"telegram-quiz-bot/internal/pkg/db"
	"telegram-quiz-bot/internal/poller"
	"telegram-quiz-bot/internal/quiz"
	"telegram-quiz-bot/internal/repository"
	"telegram-quiz-bot/internal/telegram"
)

// questionCacheSize bounds the in-memory cache of immutable questions.
const questionCacheSize = 512

func main() {
	// .env is a local dev convenience; production relies on real env vars.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	log.Info().Msg("Configuration loaded successfully")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer dbPool.Close()

	if err := runMigrations(ctx, dbPool); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	gameRepo := repository.NewGameRepository(dbPool.Pool)
	playerRepo := repository.NewPlayerRepository(dbPool.Pool)
	questionRepo := repository.NewQuestionRepository(dbPool.Pool)

	questionStore, err := quiz.NewCachedStore(questionRepo, questionCacheSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create question cache")
	}
	selector := quiz.NewSelector(questionStore)

	client, err := telegram.NewClient(cfg.Bot.Token, cfg.Bot.PollTimeout)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Telegram client")
	}
	if err := client.SetCommands(); err != nil {
		log.Warn().Err(err).Msg("Failed to register bot commands")
	}

	controller := engine.New(engine.Config{
		DiscussionMain:  time.Duration(cfg.Game.DiscussionMainSeconds) * time.Second,
		DiscussionExtra: time.Duration(cfg.Game.DiscussionExtraSeconds) * time.Second,
		CapitanLimit:    time.Duration(cfg.Game.CapitanSeconds) * time.Second,
		AnswerLimit:     time.Duration(cfg.Game.AnswerSeconds) * time.Second,
		MaxTeamSize:     cfg.Game.MaxTeamSize,
		AboutText:       cfg.Game.AboutText,
		RulesText:       cfg.Game.RulesText,
	}, engine.Deps{
		Games:     gameRepo,
		Players:   playerRepo,
		Questions: selector,
		Channel:   client,
	})

	consumer := poller.New(client, controller)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return consumer.Run(gctx)
	})

	log.Info().Msg("Bot is running")
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("Consumer loop terminated")
	}
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes the idempotent schema bootstrap.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: games table, one row per chat.
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
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: games table created")

	// Migration 2: players table, global across chats.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			id BIGINT PRIMARY KEY,
			first_name TEXT NOT NULL,
			username TEXT NOT NULL DEFAULT '',
			ans_correct INT NOT NULL DEFAULT 0,
			ans_wrong INT NOT NULL DEFAULT 0,
			ans_late INT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: players table created")

	// Migration 3: questions table, the shared question bank.
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS questions (
			id BIGSERIAL PRIMARY KEY,
			title TEXT NOT NULL UNIQUE,
			answer TEXT NOT NULL
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: questions table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
