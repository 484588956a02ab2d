// Package main is a maintenance CLI for the question bank. The bot cannot
// host a game with an empty bank, so questions are seeded out-of-band:
//
//	questionctl load questions.yaml   # insert questions from a YAML file
//	questionctl list                  # print the current bank
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"

	"telegram-quiz-bot/internal/config"
	"telegram-quiz-bot/internal/pkg/db"
	"telegram-quiz-bot/internal/repository"
)

type questionFile struct {
	Questions []struct {
		Title  string `mapstructure:"title"`
		Answer string `mapstructure:"answer"`
	} `mapstructure:"questions"`
}

func main() {
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if len(os.Args) < 2 {
		usage()
	}

	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer pool.Close()

	repo := repository.NewQuestionRepository(pool.Pool)

	switch os.Args[1] {
	case "load":
		if len(os.Args) < 3 {
			usage()
		}
		if err := load(ctx, repo, os.Args[2]); err != nil {
			log.Fatal().Err(err).Msg("Load failed")
		}
	case "list":
		if err := list(ctx, repo); err != nil {
			log.Fatal().Err(err).Msg("List failed")
		}
	default:
		usage()
	}
}

func load(ctx context.Context, repo *repository.QuestionRepository, path string) error {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read question file: %w", err)
	}

	var file questionFile
	if err := v.Unmarshal(&file); err != nil {
		return fmt.Errorf("unmarshal question file: %w", err)
	}

	created := 0
	for _, q := range file.Questions {
		title := strings.TrimSpace(q.Title)
		answer := strings.TrimSpace(q.Answer)
		if title == "" || answer == "" {
			log.Warn().Str("title", q.Title).Msg("Skipping question without title or answer")
			continue
		}
		if _, err := repo.Create(ctx, title, answer); err != nil {
			// Duplicate titles are expected on re-runs of the same file.
			log.Warn().Err(err).Str("title", title).Msg("Skipping question")
			continue
		}
		created++
	}
	log.Info().Int("created", created).Int("total", len(file.Questions)).Msg("Questions loaded")
	return nil
}

func list(ctx context.Context, repo *repository.QuestionRepository) error {
	questions, err := repo.List(ctx)
	if err != nil {
		return err
	}
	for _, q := range questions {
		fmt.Printf("%d\t%s\t%s\n", q.ID, q.Title, q.Answer)
	}
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: questionctl load <file.yaml> | list")
	os.Exit(2)
}
