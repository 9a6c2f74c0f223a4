// internal/mocks/mocks.go
package mocks

import (
	"context"
	"sync"

	"github.com/damon-houk/coin-exchange-widget/internal/domain/entity"
	"github.com/stretchr/testify/mock"
)

// MockCoinAPI mocks the CoinAPI interface
type MockCoinAPI struct {
	mock.Mock
}

func (m *MockCoinAPI) ListCoins(ctx context.Context) ([]entity.Coin, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entity.Coin), args.Error(1)
}

func (m *MockCoinAPI) GetConversionRate(ctx context.Context, params entity.ConversionParams) (float64, error) {
	args := m.Called(ctx, params)
	return args.Get(0).(float64), args.Error(1)
}

// MockSessionRepository mocks the SessionRepository interface.
// Saved sessions are also recorded under its own lock so tests can read them
// while the code under test is still saving from another goroutine.
type MockSessionRepository struct {
	mock.Mock

	savedMu sync.Mutex
	saved   []*entity.Session
}

func (m *MockSessionRepository) Load(ctx context.Context) (*entity.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Session), args.Error(1)
}

func (m *MockSessionRepository) Save(ctx context.Context, session *entity.Session) error {
	args := m.Called(ctx, session)

	m.savedMu.Lock()
	m.saved = append(m.saved, session)
	m.savedMu.Unlock()

	return args.Error(0)
}

// Saved returns every session passed to Save, oldest first
func (m *MockSessionRepository) Saved() []*entity.Session {
	m.savedMu.Lock()
	defer m.savedMu.Unlock()

	out := make([]*entity.Session, len(m.saved))
	copy(out, m.saved)
	return out
}

// LastSaved returns the session passed to the most recent Save call
func (m *MockSessionRepository) LastSaved() *entity.Session {
	m.savedMu.Lock()
	defer m.savedMu.Unlock()

	if len(m.saved) == 0 {
		return nil
	}
	return m.saved[len(m.saved)-1]
}
