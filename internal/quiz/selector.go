// Package quiz selects questions for games. Questions are globally shared
// and immutable; a game never repeats a question within one history cycle.
package quiz

import (
	"context"
	"errors"
	"fmt"

	"telegram-quiz-bot/internal/model"
	"telegram-quiz-bot/internal/repository"
)

// ErrNoQuestions means the global question pool is empty. This is a
// configuration problem for the game, not something to retry.
var ErrNoQuestions = errors.New("quiz: no questions available")

// Store is the slice of persistence the selector needs.
type Store interface {
	// FirstUnseen returns a question whose ID is not in exclude, or
	// repository.ErrQuestionNotFound when every question is excluded.
	FirstUnseen(ctx context.Context, exclude []int64) (*model.Question, error)
	GetByID(ctx context.Context, id int64) (*model.Question, error)
}

// Selector picks unseen questions for a game, recycling the pool when a
// cycle is exhausted.
type Selector struct {
	store Store
}

// NewSelector creates a Selector backed by the given store.
func NewSelector(store Store) *Selector {
	return &Selector{store: store}
}

// PickForGame selects a question outside the game's current history cycle.
// When the cycle is exhausted it clears the history once and retries; if
// the pool is empty even then it returns ErrNoQuestions instead of looping.
// Appending the pick to the history is the caller's job.
func (s *Selector) PickForGame(ctx context.Context, game *model.Game) (*model.Question, error) {
	question, err := s.store.FirstUnseen(ctx, game.QuestionHistory)
	if errors.Is(err, repository.ErrQuestionNotFound) {
		game.ClearHistory()
		question, err = s.store.FirstUnseen(ctx, nil)
		if errors.Is(err, repository.ErrQuestionNotFound) {
			return nil, ErrNoQuestions
		}
	}
	if err != nil {
		return nil, fmt.Errorf("pick question: %w", err)
	}
	return question, nil
}

// GetByID resolves a question by its identifier.
func (s *Selector) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	return s.store.GetByID(ctx, id)
}
