package quiz

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru"

	"telegram-quiz-bot/internal/model"
)

// CachedStore wraps a Store with an ARC cache for GetByID lookups.
// Questions are immutable, so cached entries never go stale.
type CachedStore struct {
	Store
	cache *lru.ARCCache
}

// NewCachedStore creates a CachedStore holding up to size questions.
func NewCachedStore(store Store, size int) (*CachedStore, error) {
	c, err := lru.NewARC(size)
	if err != nil {
		return nil, fmt.Errorf("new question cache: %w", err)
	}
	return &CachedStore{Store: store, cache: c}, nil
}

// GetByID returns the cached question or falls through to the store.
func (c *CachedStore) GetByID(ctx context.Context, id int64) (*model.Question, error) {
	if v, ok := c.cache.Get(id); ok {
		return v.(*model.Question), nil
	}
	question, err := c.Store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.cache.Add(id, question)
	return question, nil
}
