package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/tutorfinder/tutorfinder-api/internal/models"
)

var errNoRows = sql.ErrNoRows

// memoryCache mimics CacheService semantics on top of a map.
type memoryCache struct {
	mu      sync.Mutex
	items   map[string][]byte
	deleted []string
	getErr  error
	setErr  error
}

func newMemoryCache() *memoryCache {
	return &memoryCache{items: make(map[string][]byte)}
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return false, c.getErr
	}
	raw, ok := c.items[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.setErr != nil {
		return c.setErr
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.items[key] = raw
	c.mu.Unlock()
	return nil
}

func (c *memoryCache) Delete(ctx context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.items, k)
		c.deleted = append(c.deleted, k)
	}
	return nil
}

func (c *memoryCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.items[key]
	return ok
}

type fakeTutorDocs struct {
	mu    sync.Mutex
	docs  []models.TutorDocument
	err   error
	calls int
}

func (f *fakeTutorDocs) ListDocuments(ctx context.Context) ([]models.TutorDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return append([]models.TutorDocument(nil), f.docs...), nil
}

func (f *fakeTutorDocs) FindDocument(ctx context.Context, id string) (*models.TutorDocument, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.docs {
		if d.ID == id {
			doc := d
			return &doc, nil
		}
	}
	return nil, errNoRows
}

type fakeUsers struct {
	users map[string]*models.User
	err   error
	calls int
}

func (f *fakeUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[id]
	if !ok {
		return nil, errNoRows
	}
	copied := *u
	return &copied, nil
}

type fakeTokens struct{}

func (fakeTokens) ValidateToken(token string) (*models.JWTClaims, error) {
	if token == "bad" {
		return nil, errors.New("invalid token")
	}
	return &models.JWTClaims{UserID: token}, nil
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }
