package services

import (
	"context"
	"errors"
	"sort"
	"sync"

	"line-register-bot/models"
)

// ErrStoreUnavailable wraps every backend failure of a UserStore or
// ReportStore, so the boundary can tell storage trouble from bugs
var ErrStoreUnavailable = errors.New("store unavailable")

// UserStore persists one record per user
type UserStore interface {
	// Get returns nil, nil when the user has no record yet
	Get(ctx context.Context, userID string) (*models.UserRecord, error)
	Put(ctx context.Context, rec *models.UserRecord) error
	Delete(ctx context.Context, userID string) error
	List(ctx context.Context) ([]*models.UserRecord, error)
}

// MemoryUserStore keeps records in process memory
type MemoryUserStore struct {
	mu    sync.RWMutex
	users map[string]*models.UserRecord
}

// NewMemoryUserStore creates an empty store
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{users: make(map[string]*models.UserRecord)}
}

func (s *MemoryUserStore) Get(_ context.Context, userID string) (*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return rec.Clone(), nil
}

func (s *MemoryUserStore) Put(_ context.Context, rec *models.UserRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[rec.UserID] = rec.Clone()
	return nil
}

func (s *MemoryUserStore) Delete(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.users, userID)
	return nil
}

func (s *MemoryUserStore) List(_ context.Context) ([]*models.UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedRecords(s.users), nil
}

func sortedRecords(users map[string]*models.UserRecord) []*models.UserRecord {
	out := make([]*models.UserRecord, 0, len(users))
	for _, rec := range users {
		out = append(out, rec.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}
