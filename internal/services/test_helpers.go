package services

import (
	"context"
	"sync"
	"time"

	"github.com/lulusspp/lulus-api/internal/models"
)

// MockAdminRepository implements AdminRepository and AdminCredentialRepository for testing
type MockAdminRepository struct {
	GetByUsernameFunc  func(ctx context.Context, username string) (*models.AdminCredential, error)
	UpsertFunc         func(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error)
	CreateFunc         func(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error)
	UpdatePasswordFunc func(ctx context.Context, username, passwordHash string) error
	CountFunc          func(ctx context.Context) (int, error)
}

func (m *MockAdminRepository) GetByUsername(ctx context.Context, username string) (*models.AdminCredential, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminRepository) Upsert(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error) {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, username, passwordHash)
	}
	return &models.AdminCredential{Username: username, PasswordHash: passwordHash}, nil
}

func (m *MockAdminRepository) Create(ctx context.Context, username, passwordHash string) (*models.AdminCredential, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, username, passwordHash)
	}
	return &models.AdminCredential{Username: username, PasswordHash: passwordHash}, nil
}

func (m *MockAdminRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, username, passwordHash)
	}
	return models.ErrNotFound
}

func (m *MockAdminRepository) Count(ctx context.Context) (int, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx)
	}
	return 0, nil
}

// MemoryLoginAttemptStore is a mutex-guarded LoginAttemptStore for testing
type MemoryLoginAttemptStore struct {
	mu      sync.Mutex
	records map[string]models.LoginAttemptRecord

	// MutateErr, when set, is returned by Mutate without touching state
	MutateErr error
	// DeleteErr, when set, is returned by Delete without touching state
	DeleteErr error
}

// NewMemoryLoginAttemptStore creates an empty store
func NewMemoryLoginAttemptStore() *MemoryLoginAttemptStore {
	return &MemoryLoginAttemptStore{records: make(map[string]models.LoginAttemptRecord)}
}

func (s *MemoryLoginAttemptStore) Mutate(
	ctx context.Context,
	key string,
	now time.Time,
	fn func(rec *models.LoginAttemptRecord) (models.LedgerAction, error),
) (*models.LoginAttemptRecord, error) {
	if s.MutateErr != nil {
		return nil, s.MutateErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[key]
	if !ok {
		rec = models.LoginAttemptRecord{Key: key, WindowStartedAt: now, UpdatedAt: now}
	}

	action, err := fn(&rec)
	if err != nil {
		return nil, err
	}

	if action == models.LedgerDelete {
		delete(s.records, key)
		return nil, nil
	}

	s.records[key] = rec
	out := rec
	return &out, nil
}

func (s *MemoryLoginAttemptStore) Delete(ctx context.Context, key string) error {
	if s.DeleteErr != nil {
		return s.DeleteErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *MemoryLoginAttemptStore) DeleteStale(ctx context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, rec := range s.records {
		if rec.UpdatedAt.Before(before) {
			delete(s.records, key)
			n++
		}
	}
	return n, nil
}

// Get returns a copy of the record for key
func (s *MemoryLoginAttemptStore) Get(key string) (models.LoginAttemptRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[key]
	return rec, ok
}

// Put stores rec directly
func (s *MemoryLoginAttemptStore) Put(rec models.LoginAttemptRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[rec.Key] = rec
}
