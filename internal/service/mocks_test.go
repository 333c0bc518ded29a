package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"luckysix/internal/crypto"
	"luckysix/internal/model"
	"luckysix/internal/repository"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := crypto.NewKey()
	require.NoError(t, err)
	return key
}

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) ListByRole(ctx context.Context, role string) ([]model.User, error) {
	args := m.Called(ctx, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

// MockDrawRepository is a mock implementation of DrawRepository.
// WithTransaction runs the callback against the mock itself so transactional
// flows can be exercised without a database; commitErr simulates a commit
// that fails after the callback succeeded.
type MockDrawRepository struct {
	mock.Mock
	commitErr error
}

func (m *MockDrawRepository) Create(ctx context.Context, draw *model.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) Update(ctx context.Context, draw *model.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) Delete(ctx context.Context, draw *model.Draw) error {
	args := m.Called(ctx, draw)
	return args.Error(0)
}

func (m *MockDrawRepository) FindUnplayedByUser(ctx context.Context, userID uint) ([]model.Draw, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Draw), args.Error(1)
}

func (m *MockDrawRepository) FindPlayedByUser(ctx context.Context, userID uint) ([]model.Draw, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Draw), args.Error(1)
}

func (m *MockDrawRepository) FindUnplayedMasterDraw(ctx context.Context) (*model.Draw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Draw), args.Error(1)
}

func (m *MockDrawRepository) FindMasterDrawForUpdate(ctx context.Context) (*model.Draw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Draw), args.Error(1)
}

func (m *MockDrawRepository) FindUnplayedMasterDrawForUpdate(ctx context.Context) (*model.Draw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Draw), args.Error(1)
}

func (m *MockDrawRepository) FindUnplayedUserDrawsForUpdate(ctx context.Context) ([]model.Draw, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Draw), args.Error(1)
}

func (m *MockDrawRepository) DeletePlayedByUser(ctx context.Context, userID uint) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *MockDrawRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context, repo repository.DrawRepository) error) error {
	if err := fn(ctx, m); err != nil {
		return err
	}
	return m.commitErr
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, userID uint, email string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, userID, email, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (uint, string, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(uint), args.String(1), args.Error(2)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

// fakeAttemptStore is an in-memory attempt counter with the same atomicity
// contract as the Redis-backed store.
type fakeAttemptStore struct {
	mu     sync.Mutex
	counts map[string]int64
}

func newFakeAttemptStore() *fakeAttemptStore {
	return &fakeAttemptStore{counts: map[string]int64{}}
}

func (s *fakeAttemptStore) Increment(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[email]++
	return s.counts[email], nil
}

func (s *fakeAttemptStore) Count(_ context.Context, email string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[email], nil
}

func (s *fakeAttemptStore) Reset(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counts, email)
	return nil
}
