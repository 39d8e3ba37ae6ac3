package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/models"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

func newTestPool(t *testing.T, cfg Config, factory DriverFactory) (*Pool, *fakeClock) {
	t.Helper()

	if cfg.ScreenshotsDir == "" {
		cfg.ScreenshotsDir = t.TempDir()
	}

	pool, err := NewPool(cfg, factory, slog.New(slog.NewTextHandler(os.Stderr, nil)), metrics.NewUnregistered())
	require.NoError(t, err)

	clock := &fakeClock{now: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)}
	pool.now = clock.Now

	return pool, clock
}

func TestPool_CreateSession_ExhaustedAfterMax(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(t, Config{MaxSessions: 2}, &fakeFactory{})
	ctx := context.Background()

	first, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	second, err := pool.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = pool.CreateSession(ctx)
	require.Error(t, err)
	assert.True(t, IsPoolExhausted(err))
	assert.Equal(t, "Maximum number of WebDriver sessions (2) reached", err.Error())
	assert.Equal(t, float64(1), testutil.ToFloat64(pool.metrics.SessionCreateFailures))
	assert.Equal(t, float64(2), testutil.ToFloat64(pool.metrics.SessionsActive))
}

func TestPool_CreateSession_ReapsBeforeFailing(t *testing.T) {
	t.Parallel()

	pool, clock := newTestPool(t, Config{MaxSessions: 1, SessionTimeout: time.Minute}, &fakeFactory{})
	ctx := context.Background()

	old, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	clock.Advance(2 * time.Minute)

	fresh, err := pool.CreateSession(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, old, fresh)

	_, ok := pool.SessionInfo(old)
	assert.False(t, ok)
}

func TestPool_CreateSession_FactoryError(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(t, Config{MaxSessions: 1}, &fakeFactory{err: errBoom})

	_, err := pool.CreateSession(context.Background())
	require.ErrorIs(t, err, errBoom)
	assert.False(t, IsPoolExhausted(err))

	// the failed attempt must not hold a slot
	assert.True(t, pool.reserve())
}

func TestPool_CloseSession_Idempotent(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{}
	pool, _ := newTestPool(t, Config{}, factory)
	ctx := context.Background()

	id, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	assert.True(t, pool.CloseSession(ctx, id))
	assert.True(t, factory.last().isQuit())
	assert.False(t, pool.CloseSession(ctx, id))
	assert.False(t, pool.CloseSession(ctx, "missing"))
}

func TestPool_CloseSession_QuitFailureStillRemoves(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{next: func() *fakeDriver { return &fakeDriver{quitErr: errBoom} }}
	pool, _ := newTestPool(t, Config{}, factory)
	ctx := context.Background()

	id, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	assert.False(t, pool.CloseSession(ctx, id))

	_, ok := pool.SessionInfo(id)
	assert.False(t, ok)
}

func TestPool_Navigate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		pool, _ := newTestPool(t, Config{}, &fakeFactory{})
		id, err := pool.CreateSession(ctx)
		require.NoError(t, err)

		result := pool.Navigate(ctx, id, "https://example.com", 10*time.Second)

		assert.True(t, result.Success)
		assert.Equal(t, "https://example.com", result.FinalURL)
		assert.Contains(t, result.ScreenshotPath, "_navigation_")
		assert.FileExists(t, result.ScreenshotPath)

		info, ok := pool.SessionInfo(id)
		require.True(t, ok)
		assert.Equal(t, "https://example.com", info.CurrentURL)
		assert.Equal(t, 1, info.ScreenshotCount)
		assert.False(t, info.Busy)
	})

	t.Run("timeout", func(t *testing.T) {
		t.Parallel()

		factory := &fakeFactory{next: func() *fakeDriver { return &fakeDriver{navigateErr: ErrTimeout} }}
		pool, _ := newTestPool(t, Config{}, factory)
		id, err := pool.CreateSession(ctx)
		require.NoError(t, err)

		result := pool.Navigate(ctx, id, "https://slow.example.com", 30*time.Second)

		assert.False(t, result.Success)
		assert.Equal(t, "Page load timeout after 30 seconds", result.Message)
		assert.NotEmpty(t, result.ScreenshotPath)
	})

	t.Run("driver error", func(t *testing.T) {
		t.Parallel()

		factory := &fakeFactory{next: func() *fakeDriver { return &fakeDriver{navigateErr: errBoom} }}
		pool, _ := newTestPool(t, Config{}, factory)
		id, err := pool.CreateSession(ctx)
		require.NoError(t, err)

		result := pool.Navigate(ctx, id, "https://example.com", time.Second)

		assert.False(t, result.Success)
		assert.Equal(t, "WebDriver error during navigation: boom", result.Message)
	})

	t.Run("unknown session", func(t *testing.T) {
		t.Parallel()

		pool, _ := newTestPool(t, Config{}, &fakeFactory{})

		result := pool.Navigate(ctx, "nope", "https://example.com", time.Second)

		assert.False(t, result.Success)
		assert.Equal(t, "Session nope not found", result.Message)
	})
}

func TestPool_Interact(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	tests := []struct {
		name         string
		driver       *fakeDriver
		selectorType models.SelectorType
		action       models.Action
		text         string
		wantSuccess  bool
		wantFound    bool
		wantMessage  string
		wantValue    string
		wantTag      string
	}{
		{
			name:        "click",
			driver:      &fakeDriver{},
			action:      models.ActionClick,
			wantSuccess: true,
			wantFound:   true,
			wantMessage: "Successfully clicked element: #submit",
			wantTag:     "_interaction_click_",
		},
		{
			name:        "input",
			driver:      &fakeDriver{},
			action:      models.ActionInput,
			text:        "hello",
			wantSuccess: true,
			wantFound:   true,
			wantMessage: "Successfully input text into element: #submit",
			wantTag:     "_interaction_input_",
		},
		{
			name:        "get text",
			driver:      &fakeDriver{element: &fakeElement{text: "Welcome"}},
			action:      models.ActionGetText,
			wantSuccess: true,
			wantFound:   true,
			wantMessage: "Successfully retrieved text from element: #submit - Text: 'Welcome'",
			wantValue:   "Welcome",
			wantTag:     "_interaction_get_text_",
		},
		{
			name:        "get attribute defaults to value",
			driver:      &fakeDriver{element: &fakeElement{attrs: map[string]string{"value": "42"}}},
			action:      models.ActionGetAttribute,
			wantSuccess: true,
			wantFound:   true,
			wantMessage: "Successfully retrieved attribute 'value' from element: #submit - Value: '42'",
			wantValue:   "42",
			wantTag:     "_interaction_get_attribute_",
		},
		{
			name:        "wait timeout",
			driver:      &fakeDriver{waitErr: ErrTimeout},
			action:      models.ActionClick,
			wantMessage: "Element not found or not interactable within 5 seconds: #submit",
			wantTag:     "_timeout_error_",
		},
		{
			name:        "not interactable",
			driver:      &fakeDriver{element: &fakeElement{clickErr: ErrNotInteractable}},
			action:      models.ActionClick,
			wantFound:   true,
			wantMessage: "Element found but not interactable: #submit",
			wantTag:     "_not_interactable_error_",
		},
		{
			name:        "other driver error",
			driver:      &fakeDriver{waitErr: errBoom},
			action:      models.ActionClick,
			wantMessage: "Error during element interaction: boom",
			wantTag:     "_interaction_error_",
		},
		{
			name:        "input without text",
			driver:      &fakeDriver{},
			action:      models.ActionInput,
			wantMessage: "Text input is required for 'input' action",
		},
		{
			name:        "unsupported action",
			driver:      &fakeDriver{},
			action:      models.Action("hover"),
			wantMessage: "Unsupported action: hover",
		},
		{
			name:         "invalid selector type",
			driver:       &fakeDriver{},
			selectorType: models.SelectorType("jquery"),
			action:       models.ActionClick,
			wantMessage:  "Invalid selector type: jquery",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			factory := &fakeFactory{next: func() *fakeDriver { return tt.driver }}
			pool, _ := newTestPool(t, Config{}, factory)
			id, err := pool.CreateSession(ctx)
			require.NoError(t, err)

			result := pool.Interact(ctx, id, "#submit", tt.selectorType, tt.action, tt.text, 5*time.Second)

			assert.Equal(t, tt.wantSuccess, result.Success)
			assert.Equal(t, tt.wantFound, result.ElementFound)
			assert.Equal(t, tt.wantMessage, result.Message)
			assert.Equal(t, tt.wantValue, result.Value)

			if tt.wantTag == "" {
				assert.Empty(t, result.ScreenshotPath)
			} else {
				assert.Contains(t, result.ScreenshotPath, tt.wantTag)
			}
		})
	}
}

func TestPool_Interact_InputClearsThenTypes(t *testing.T) {
	t.Parallel()

	element := &fakeElement{}
	factory := &fakeFactory{next: func() *fakeDriver { return &fakeDriver{element: element} }}
	pool, _ := newTestPool(t, Config{}, factory)
	ctx := context.Background()

	id, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	result := pool.Interact(ctx, id, "input[name=q]", models.SelectorCSS, models.ActionInput, "golang", time.Second)
	require.True(t, result.Success)

	assert.Equal(t, 1, element.cleared)
	assert.Equal(t, []string{"golang"}, element.sent)
}

func TestPool_Screenshot_UniqueNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	pool, _ := newTestPool(t, Config{MaxSessions: 2, ScreenshotsDir: dir}, &fakeFactory{})
	ctx := context.Background()

	a, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	b, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	// the fake clock never moves, so only the counter and session id differ
	seen := make(map[string]struct{})

	for i := range 500 {
		for _, id := range []string{a, b} {
			path, err := pool.Screenshot(ctx, id, fmt.Sprintf("step_%d", i%3))
			require.NoError(t, err)

			_, dup := seen[path]
			require.False(t, dup, "duplicate screenshot path %s", path)

			seen[path] = struct{}{}
		}
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1000)
}

func TestPool_Screenshot_Errors(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{next: func() *fakeDriver { return &fakeDriver{screenshotErr: errBoom} }}
	pool, _ := newTestPool(t, Config{}, factory)
	ctx := context.Background()

	_, err := pool.Screenshot(ctx, "missing", "x")
	require.ErrorIs(t, err, ErrSessionNotFound)

	id, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	_, err = pool.Screenshot(ctx, id, "x")
	require.Error(t, err)
}

func TestPool_ReapExpired(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{}
	pool, clock := newTestPool(t, Config{MaxSessions: 3, SessionTimeout: 10 * time.Minute}, factory)
	ctx := context.Background()

	stale, err := pool.CreateSession(ctx)
	require.NoError(t, err)
	staleDriver := factory.last()

	clock.Advance(6 * time.Minute)

	active, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	assert.Equal(t, 1, pool.ReapExpired(ctx))
	assert.True(t, staleDriver.isQuit())

	_, ok := pool.SessionInfo(stale)
	assert.False(t, ok)

	_, ok = pool.SessionInfo(active)
	assert.True(t, ok)

	assert.Equal(t, float64(1), testutil.ToFloat64(pool.metrics.SessionsReaped))
}

func TestPool_ReapExpired_SkipsBusySessions(t *testing.T) {
	t.Parallel()

	pool, clock := newTestPool(t, Config{SessionTimeout: time.Minute}, &fakeFactory{})
	ctx := context.Background()

	id, err := pool.CreateSession(ctx)
	require.NoError(t, err)

	s, ok := pool.acquire(id)
	require.True(t, ok)

	clock.Advance(time.Hour)
	assert.Equal(t, 0, pool.ReapExpired(ctx))

	info, ok := pool.SessionInfo(id)
	require.True(t, ok)
	assert.True(t, info.Busy)

	pool.release(s)
}

func TestPool_HealthAndShutdown(t *testing.T) {
	t.Parallel()

	factory := &fakeFactory{}
	pool, _ := newTestPool(t, Config{MaxSessions: 4, SessionTimeout: 30 * time.Minute}, factory)
	ctx := context.Background()

	for range 3 {
		_, err := pool.CreateSession(ctx)
		require.NoError(t, err)
	}

	health := pool.Health(ctx)
	assert.Equal(t, 3, health.ActiveSessions)
	assert.Equal(t, 4, health.MaxSessions)
	assert.Equal(t, "http://selenium-hub:4444/wd/hub", health.HubURL)
	assert.InDelta(t, 30.0, health.SessionTimeoutMinutes, 0.001)
	assert.Len(t, pool.ListSessions(), 3)

	pool.Shutdown(ctx)

	assert.Empty(t, pool.ListSessions())

	for _, d := range factory.drivers {
		assert.True(t, d.isQuit())
	}
}

func TestPool_ConcurrentCreateNeverExceedsMax(t *testing.T) {
	t.Parallel()

	pool, _ := newTestPool(t, Config{MaxSessions: 3}, &fakeFactory{})
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		created   int
		exhausted int
	)

	for range 20 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := pool.CreateSession(ctx)

			mu.Lock()
			defer mu.Unlock()

			if err == nil {
				created++
			} else if IsPoolExhausted(err) {
				exhausted++
			}
		}()
	}

	wg.Wait()

	assert.Equal(t, 3, created)
	assert.Equal(t, 17, exhausted)
}
