package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"telegram-quiz-bot/internal/model"
)

// QuestionRepository handles the read-mostly question bank.
type QuestionRepository struct {
	pool *pgxpool.Pool
}

// NewQuestionRepository creates a new QuestionRepository instance.
func NewQuestionRepository(pool *pgxpool.Pool) *QuestionRepository {
	return &QuestionRepository{pool: pool}
}

// Create inserts a question. Titles are unique across the bank.
func (r *QuestionRepository) Create(ctx context.Context, title, answer string) (*model.Question, error) {
	const query = `
		INSERT INTO questions (title, answer)
		VALUES ($1, $2)
		RETURNING id, title, answer
	`

	var q model.Question
	err := r.pool.QueryRow(ctx, query, title, answer).Scan(&q.ID, &q.Title, &q.Answer)
	if err != nil {
		return nil, fmt.Errorf("failed to create question: %w", err)
	}
	return &q, nil
}

// GetByID retrieves a question by its identifier.
// Returns ErrQuestionNotFound if the question does not exist.
func (r *QuestionRepository) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	const query = `SELECT id, title, answer FROM questions WHERE id = $1`

	var q model.Question
	err := r.pool.QueryRow(ctx, query, id).Scan(&q.ID, &q.Title, &q.Answer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get question: %w", err)
	}
	return &q, nil
}

// FirstUnseen returns the first question whose ID is not in exclude.
// Returns ErrQuestionNotFound when every question is excluded, including
// the case of an empty bank.
func (r *QuestionRepository) FirstUnseen(ctx context.Context, exclude []int64) (*model.Question, error) {
	const query = `
		SELECT id, title, answer
		FROM questions
		WHERE NOT (id = ANY($1))
		ORDER BY id
		LIMIT 1
	`

	if exclude == nil {
		exclude = []int64{}
	}
	var q model.Question
	err := r.pool.QueryRow(ctx, query, exclude).Scan(&q.ID, &q.Title, &q.Answer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrQuestionNotFound
		}
		return nil, fmt.Errorf("failed to get unseen question: %w", err)
	}
	return &q, nil
}

// List returns the whole question bank ordered by ID.
func (r *QuestionRepository) List(ctx context.Context) ([]*model.Question, error) {
	const query = `SELECT id, title, answer FROM questions ORDER BY id`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []*model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(&q.ID, &q.Title, &q.Answer); err != nil {
			return nil, fmt.Errorf("failed to scan question: %w", err)
		}
		questions = append(questions, &q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating questions: %w", err)
	}
	return questions, nil
}
