package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jbtestsuite/jbtest/pkg/metrics"
	"github.com/jbtestsuite/jbtest/pkg/models"
)

const (
	DefaultMaxSessions    = 5
	DefaultSessionTimeout = 30 * time.Minute
	DefaultScreenshotsDir = "artifacts/screenshots"
)

type Config struct {
	MaxSessions    int
	SessionTimeout time.Duration
	ScreenshotsDir string
}

func (c Config) withDefaults() Config {
	if c.MaxSessions <= 0 {
		c.MaxSessions = DefaultMaxSessions
	}

	if c.SessionTimeout <= 0 {
		c.SessionTimeout = DefaultSessionTimeout
	}

	if c.ScreenshotsDir == "" {
		c.ScreenshotsDir = DefaultScreenshotsDir
	}

	return c
}

type session struct {
	id        string
	driver    Driver
	createdAt time.Time

	// op serializes driver calls; the reaper skips sessions it cannot lock.
	op     sync.Mutex
	closed atomic.Bool

	state           sync.Mutex
	lastUsed        time.Time
	busy            bool
	currentURL      string
	screenshotCount int
}

func (s *session) info() models.SessionInfo {
	s.state.Lock()
	defer s.state.Unlock()

	return models.SessionInfo{
		SessionID:       s.id,
		CreatedAt:       s.createdAt,
		LastUsed:        s.lastUsed,
		Busy:            s.busy,
		CurrentURL:      s.currentURL,
		ScreenshotCount: s.screenshotCount,
	}
}

// Pool owns every open session. Operations never return errors for driver
// failures; they report them in the result.
type Pool struct {
	cfg     Config
	factory DriverFactory
	logger  *slog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*session
	pending  int
}

func NewPool(cfg Config, factory DriverFactory, logger *slog.Logger, m *metrics.Metrics) (*Pool, error) {
	cfg = cfg.withDefaults()

	err := os.MkdirAll(cfg.ScreenshotsDir, 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create screenshots directory: %w", err)
	}

	return &Pool{
		cfg:      cfg,
		factory:  factory,
		logger:   logger.With("module", "session_pool"),
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*session),
	}, nil
}

// CreateSession opens a new remote browser. When the pool is full expired
// sessions are reaped first; if it is still full the error matches ErrPoolExhausted.
func (p *Pool) CreateSession(ctx context.Context) (string, error) {
	if !p.reserve() {
		p.ReapExpired(ctx)

		if !p.reserve() {
			p.metrics.SessionCreateFailures.Inc()

			return "", &PoolExhaustedError{MaxSessions: p.cfg.MaxSessions}
		}
	}

	driver, err := p.factory.NewDriver(ctx)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.pending--

	if err != nil {
		p.metrics.SessionCreateFailures.Inc()
		p.logger.ErrorContext(ctx, "Failed to create WebDriver session", "error", err)

		return "", fmt.Errorf("Failed to create WebDriver session: %w", err)
	}

	now := p.now()
	s := &session{
		id:        uuid.New().String(),
		driver:    driver,
		createdAt: now,
		lastUsed:  now,
	}

	p.sessions[s.id] = s
	p.metrics.SessionsCreated.Inc()
	p.metrics.SessionsActive.Set(float64(len(p.sessions)))
	p.logger.InfoContext(ctx, "Created WebDriver session", "session_id", s.id)

	return s.id, nil
}

func (p *Pool) reserve() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.sessions)+p.pending >= p.cfg.MaxSessions {
		return false
	}

	p.pending++

	return true
}

// CloseSession quits and forgets the session. It returns false when the
// session is unknown or the driver failed to quit.
func (p *Pool) CloseSession(ctx context.Context, sessionID string) bool {
	s := p.remove(sessionID)
	if s == nil {
		return false
	}

	err := s.driver.Quit()
	if err != nil {
		p.logger.ErrorContext(ctx, "Error closing WebDriver session", "session_id", sessionID, "error", err)

		return false
	}

	p.logger.InfoContext(ctx, "Closed WebDriver session", "session_id", sessionID)

	return true
}

func (p *Pool) remove(sessionID string) *session {
	p.mu.Lock()
	defer p.mu.Unlock()

	s, ok := p.sessions[sessionID]
	if !ok {
		return nil
	}

	delete(p.sessions, sessionID)
	s.closed.Store(true)
	p.metrics.SessionsActive.Set(float64(len(p.sessions)))

	return s
}

// acquire locks the session for a driver operation.
func (p *Pool) acquire(sessionID string) (*session, bool) {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	p.mu.Unlock()

	if !ok {
		return nil, false
	}

	s.op.Lock()

	if s.closed.Load() {
		s.op.Unlock()

		return nil, false
	}

	s.state.Lock()
	s.busy = true
	s.state.Unlock()

	return s, true
}

func (p *Pool) release(s *session) {
	s.state.Lock()
	s.busy = false
	s.lastUsed = p.now()
	s.state.Unlock()

	s.op.Unlock()
}

func sessionNotFound(sessionID string) string {
	return fmt.Sprintf("Session %s not found", sessionID)
}

func seconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}

func (p *Pool) Navigate(ctx context.Context, sessionID, url string, timeout time.Duration) models.NavigationResult {
	s, ok := p.acquire(sessionID)
	if !ok {
		return models.NavigationResult{Success: false, Message: sessionNotFound(sessionID)}
	}
	defer p.release(s)

	if err := ctx.Err(); err != nil {
		return models.NavigationResult{Success: false, Message: "Navigation cancelled: " + err.Error()}
	}

	start := p.now()

	err := s.driver.Navigate(url, timeout)
	if err != nil {
		if errors.Is(err, ErrTimeout) {
			return models.NavigationResult{
				Success:        false,
				Message:        fmt.Sprintf("Page load timeout after %s seconds", seconds(timeout)),
				ScreenshotPath: p.takeScreenshot(ctx, s, "navigation_timeout"),
			}
		}

		return models.NavigationResult{
			Success:        false,
			Message:        fmt.Sprintf("WebDriver error during navigation: %v", err),
			ScreenshotPath: p.takeScreenshot(ctx, s, "navigation_error"),
		}
	}

	loadTime := p.now().Sub(start)

	finalURL, err := s.driver.CurrentURL()
	if err != nil {
		p.logger.WarnContext(ctx, "Failed to read current url", "session_id", sessionID, "error", err)

		finalURL = url
	}

	s.state.Lock()
	s.currentURL = finalURL
	s.state.Unlock()

	return models.NavigationResult{
		Success:        true,
		Message:        "Successfully navigated to " + url,
		FinalURL:       finalURL,
		LoadTimeMS:     loadTime.Milliseconds(),
		ScreenshotPath: p.takeScreenshot(ctx, s, "navigation"),
	}
}

// Interact locates an element and performs action on it. For get_attribute
// text names the attribute, defaulting to "value".
func (p *Pool) Interact(
	ctx context.Context,
	sessionID, selector string,
	selectorType models.SelectorType,
	action models.Action,
	text string,
	timeout time.Duration,
) models.InteractionResult {
	s, ok := p.acquire(sessionID)
	if !ok {
		return models.InteractionResult{Success: false, Message: sessionNotFound(sessionID)}
	}
	defer p.release(s)

	if selectorType == "" {
		selectorType = models.SelectorCSS
	}

	if !selectorType.Valid() {
		return models.InteractionResult{Success: false, Message: fmt.Sprintf("Invalid selector type: %s", selectorType)}
	}

	var interactable bool

	switch action {
	case models.ActionClick, models.ActionClear:
		interactable = true
	case models.ActionInput:
		if text == "" {
			return models.InteractionResult{Success: false, Message: "Text input is required for 'input' action"}
		}

		interactable = true
	case models.ActionGetText, models.ActionGetAttribute:
	default:
		return models.InteractionResult{Success: false, Message: fmt.Sprintf("Unsupported action: %s", action)}
	}

	if err := ctx.Err(); err != nil {
		return models.InteractionResult{Success: false, Message: "Interaction cancelled: " + err.Error()}
	}

	start := p.now()

	element, err := s.driver.WaitForElement(selectorType, selector, interactable, timeout)
	if err != nil {
		return p.interactionFailure(ctx, s, selector, timeout, err)
	}

	var (
		message string
		value   string
	)

	switch action {
	case models.ActionClick:
		err = element.Click()
		message = "Successfully clicked element: " + selector
	case models.ActionInput:
		err = element.Clear()
		if err == nil {
			err = element.SendKeys(text)
		}

		message = "Successfully input text into element: " + selector
	case models.ActionClear:
		err = element.Clear()
		message = "Successfully cleared element: " + selector
	case models.ActionGetText:
		value, err = element.Text()
		message = fmt.Sprintf("Successfully retrieved text from element: %s - Text: '%s'", selector, value)
	case models.ActionGetAttribute:
		name := text
		if name == "" {
			name = "value"
		}

		value, err = element.GetAttribute(name)
		message = fmt.Sprintf("Successfully retrieved attribute '%s' from element: %s - Value: '%s'", name, selector, value)
	}

	if err != nil {
		result := p.interactionFailure(ctx, s, selector, timeout, err)
		result.ElementFound = true

		return result
	}

	return models.InteractionResult{
		Success:         true,
		Message:         message,
		ElementFound:    true,
		Value:           value,
		ScreenshotPath:  p.takeScreenshot(ctx, s, "interaction_"+string(action)),
		ExecutionTimeMS: p.now().Sub(start).Milliseconds(),
	}
}

func (p *Pool) interactionFailure(ctx context.Context, s *session, selector string, timeout time.Duration, err error) models.InteractionResult {
	switch {
	case errors.Is(err, ErrTimeout):
		return models.InteractionResult{
			Success:        false,
			Message:        fmt.Sprintf("Element not found or not interactable within %s seconds: %s", seconds(timeout), selector),
			ElementFound:   false,
			ScreenshotPath: p.takeScreenshot(ctx, s, "timeout_error"),
		}
	case errors.Is(err, ErrNotInteractable):
		return models.InteractionResult{
			Success:        false,
			Message:        "Element found but not interactable: " + selector,
			ElementFound:   true,
			ScreenshotPath: p.takeScreenshot(ctx, s, "not_interactable_error"),
		}
	default:
		p.logger.ErrorContext(ctx, "Error during element interaction", "session_id", s.id, "selector", selector, "error", err)

		return models.InteractionResult{
			Success:        false,
			Message:        fmt.Sprintf("Error during element interaction: %v", err),
			ScreenshotPath: p.takeScreenshot(ctx, s, "interaction_error"),
		}
	}
}

// Screenshot captures the current page of the session.
func (p *Pool) Screenshot(ctx context.Context, sessionID, tag string) (string, error) {
	s, ok := p.acquire(sessionID)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	defer p.release(s)

	path := p.takeScreenshot(ctx, s, tag)
	if path == "" {
		return "", fmt.Errorf("failed to take screenshot for session %s", sessionID)
	}

	return path, nil
}

// takeScreenshot must be called with s.op held. Failures are logged and
// reported as an empty path.
func (p *Pool) takeScreenshot(ctx context.Context, s *session, tag string) string {
	s.state.Lock()
	s.screenshotCount++
	count := s.screenshotCount
	s.state.Unlock()

	data, err := s.driver.Screenshot()
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to take screenshot", "session_id", s.id, "error", err)

		return ""
	}

	path := filepath.Join(p.cfg.ScreenshotsDir, screenshotFilename(s.id, count, tag, p.now()))

	err = os.WriteFile(path, data, 0600)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to write screenshot", "session_id", s.id, "path", path, "error", err)

		return ""
	}

	p.metrics.Screenshots.Inc()

	return path
}

func (p *Pool) SessionInfo(sessionID string) (models.SessionInfo, bool) {
	p.mu.Lock()
	s, ok := p.sessions[sessionID]
	p.mu.Unlock()

	if !ok {
		return models.SessionInfo{}, false
	}

	return s.info(), true
}

// ListSessions returns every open session, oldest first.
func (p *Pool) ListSessions() []models.SessionInfo {
	p.mu.Lock()
	sessions := make([]*session, 0, len(p.sessions))
	for _, s := range p.sessions {
		sessions = append(sessions, s)
	}
	p.mu.Unlock()

	infos := make([]models.SessionInfo, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.info())
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].CreatedAt.Before(infos[j].CreatedAt)
	})

	return infos
}

// ReapExpired closes sessions idle longer than the configured timeout.
// Sessions with an operation in flight are skipped.
func (p *Pool) ReapExpired(ctx context.Context) int {
	now := p.now()

	p.mu.Lock()

	var expired []*session

	for id, s := range p.sessions {
		if !s.op.TryLock() {
			continue
		}

		s.state.Lock()
		idle := now.Sub(s.lastUsed)
		s.state.Unlock()

		if idle > p.cfg.SessionTimeout {
			delete(p.sessions, id)
			s.closed.Store(true)
			expired = append(expired, s)
		}

		s.op.Unlock()
	}

	p.metrics.SessionsActive.Set(float64(len(p.sessions)))
	p.mu.Unlock()

	for _, s := range expired {
		if err := s.driver.Quit(); err != nil {
			p.logger.WarnContext(ctx, "Error closing expired session", "session_id", s.id, "error", err)
		}

		p.metrics.SessionsReaped.Inc()
		p.logger.InfoContext(ctx, "Cleaned up expired session", "session_id", s.id)
	}

	return len(expired)
}

// Health reaps expired sessions and reports pool occupancy.
func (p *Pool) Health(ctx context.Context) models.PoolHealth {
	p.ReapExpired(ctx)

	p.mu.Lock()
	active := len(p.sessions)
	p.mu.Unlock()

	return models.PoolHealth{
		ActiveSessions:        active,
		MaxSessions:           p.cfg.MaxSessions,
		HubURL:                p.factory.Endpoint(),
		ScreenshotsDirectory:  p.cfg.ScreenshotsDir,
		SessionTimeoutMinutes: p.cfg.SessionTimeout.Minutes(),
	}
}

// Shutdown closes every session.
func (p *Pool) Shutdown(ctx context.Context) {
	p.logger.InfoContext(ctx, "Shutting down session pool")

	p.mu.Lock()
	ids := make([]string, 0, len(p.sessions))
	for id := range p.sessions {
		ids = append(ids, id)
	}
	p.mu.Unlock()

	for _, id := range ids {
		p.CloseSession(ctx, id)
	}
}
