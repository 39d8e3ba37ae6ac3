package models

import "time"

type ExecutionStatus string

const (
	ExecutionStatusQueued    ExecutionStatus = "queued"
	ExecutionStatusRunning   ExecutionStatus = "running"
	ExecutionStatusCompleted ExecutionStatus = "completed"
	ExecutionStatusFailed    ExecutionStatus = "failed"
	ExecutionStatusCancelled ExecutionStatus = "cancelled"
)

// IsTerminal reports whether no further transition may leave s.
func (s ExecutionStatus) IsTerminal() bool {
	return s == ExecutionStatusCompleted || s == ExecutionStatusFailed || s == ExecutionStatusCancelled
}

// ErrorKind classifies why an execution did not complete.
type ErrorKind string

const (
	ErrorKindNone          ErrorKind = ""
	ErrorKindStepFailure   ErrorKind = "step_failure"
	ErrorKindPoolExhausted ErrorKind = "pool_exhausted"
	ErrorKindCancelled     ErrorKind = "cancelled"
	ErrorKindInternal      ErrorKind = "internal"
)

// AIAnalysis is a vision insight attached to an execution. ScreenshotPath is
// empty for the whole-execution analysis.
type AIAnalysis struct {
	ScreenshotPath  string         `json:"screenshot_path,omitempty"`
	StepDescription string         `json:"step_description,omitempty"`
	Analysis        map[string]any `json:"analysis"`
	Usage           *Usage         `json:"usage,omitempty"`
	Timestamp       time.Time      `json:"timestamp"`
}

// Usage is the token accounting reported by a language model.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ExecutionContext is the mutable state of one run of a test case.
type ExecutionContext struct {
	ExecutionID     string
	TestCaseID      string
	TestCaseName    string
	SessionID       string
	UserID          string
	Status          ExecutionStatus
	Steps           []TestStep
	CurrentStep     int
	StartedAt       *time.Time
	CompletedAt     *time.Time
	ErrorMessage    string
	ErrorKind       ErrorKind
	Screenshots     []string
	AIAnalyses      []AIAnalysis
	FinalAIAnalysis *AIAnalysis
}

// ExecutionSnapshot is a read-only projection of an ExecutionContext.
type ExecutionSnapshot struct {
	ExecutionID     string          `json:"execution_id"`
	TestCaseID      string          `json:"test_case_id"`
	TestCaseName    string          `json:"test_case_name,omitempty"`
	UserID          string          `json:"user_id,omitempty"`
	SessionID       string          `json:"session_id,omitempty"`
	Status          ExecutionStatus `json:"status"`
	CurrentStep     int             `json:"current_step"`
	TotalSteps      int             `json:"total_steps"`
	Steps           []TestStep      `json:"steps,omitempty"`
	StartedAt       *time.Time      `json:"started_at"`
	CompletedAt     *time.Time      `json:"completed_at"`
	ErrorMessage    string          `json:"error_message,omitempty"`
	ErrorKind       ErrorKind       `json:"error_kind,omitempty"`
	Screenshots     []string        `json:"screenshots"`
	AIAnalyses      []AIAnalysis    `json:"ai_analyses"`
	FinalAIAnalysis *AIAnalysis     `json:"final_ai_analysis"`
}

// Snapshot copies the context so the result can be read without holding
// the owner's lock.
func (c *ExecutionContext) Snapshot() *ExecutionSnapshot {
	snap := &ExecutionSnapshot{
		ExecutionID:  c.ExecutionID,
		TestCaseID:   c.TestCaseID,
		TestCaseName: c.TestCaseName,
		UserID:       c.UserID,
		SessionID:    c.SessionID,
		Status:       c.Status,
		CurrentStep:  c.CurrentStep,
		TotalSteps:   len(c.Steps),
		Steps:        append([]TestStep(nil), c.Steps...),
		ErrorMessage: c.ErrorMessage,
		ErrorKind:    c.ErrorKind,
		Screenshots:  append([]string{}, c.Screenshots...),
		AIAnalyses:   append([]AIAnalysis{}, c.AIAnalyses...),
	}

	if c.StartedAt != nil {
		t := *c.StartedAt
		snap.StartedAt = &t
	}

	if c.CompletedAt != nil {
		t := *c.CompletedAt
		snap.CompletedAt = &t
	}

	if c.FinalAIAnalysis != nil {
		a := *c.FinalAIAnalysis
		snap.FinalAIAnalysis = &a
	}

	return snap
}

// Duration is the wall time between start and completion, zero while running.
func (s *ExecutionSnapshot) Duration() time.Duration {
	if s.StartedAt == nil || s.CompletedAt == nil {
		return 0
	}

	return s.CompletedAt.Sub(*s.StartedAt)
}
