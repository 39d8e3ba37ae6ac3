package mocks

import (
	"context"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/stretchr/testify/mock"
)

// MockSessionPool is a mock implementation of the browser session pool.
type MockSessionPool struct {
	mock.Mock
}

func (m *MockSessionPool) CreateSession(ctx context.Context) (string, error) {
	args := m.Called(ctx)

	return args.String(0), args.Error(1)
}

func (m *MockSessionPool) CloseSession(ctx context.Context, sessionID string) bool {
	args := m.Called(ctx, sessionID)

	return args.Bool(0)
}

func (m *MockSessionPool) Navigate(ctx context.Context, sessionID, url string, timeout time.Duration) models.NavigationResult {
	args := m.Called(ctx, sessionID, url, timeout)

	return args.Get(0).(models.NavigationResult)
}

func (m *MockSessionPool) Interact(
	ctx context.Context,
	sessionID, selector string,
	selectorType models.SelectorType,
	action models.Action,
	text string,
	timeout time.Duration,
) models.InteractionResult {
	args := m.Called(ctx, sessionID, selector, selectorType, action, text, timeout)

	return args.Get(0).(models.InteractionResult)
}

func (m *MockSessionPool) Screenshot(ctx context.Context, sessionID, tag string) (string, error) {
	args := m.Called(ctx, sessionID, tag)

	return args.String(0), args.Error(1)
}

func (m *MockSessionPool) SessionInfo(sessionID string) (models.SessionInfo, bool) {
	args := m.Called(sessionID)

	return args.Get(0).(models.SessionInfo), args.Bool(1)
}

func (m *MockSessionPool) ListSessions() []models.SessionInfo {
	args := m.Called()
	if args.Get(0) == nil {
		return nil
	}

	return args.Get(0).([]models.SessionInfo)
}

func (m *MockSessionPool) Health(ctx context.Context) models.PoolHealth {
	args := m.Called(ctx)

	return args.Get(0).(models.PoolHealth)
}
