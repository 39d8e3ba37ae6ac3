package models

import "time"

// NavigationResult is the structured outcome of loading a URL in a session.
type NavigationResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	FinalURL       string `json:"final_url,omitempty"`
	LoadTimeMS     int64  `json:"load_time_ms"`
	ScreenshotPath string `json:"screenshot_path,omitempty"`
}

// InteractionResult is the structured outcome of an element interaction.
// Value carries the text or attribute read by get_text and get_attribute.
type InteractionResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message"`
	ElementFound    bool   `json:"element_found"`
	Value           string `json:"value,omitempty"`
	ScreenshotPath  string `json:"screenshot_path,omitempty"`
	ExecutionTimeMS int64  `json:"execution_time_ms"`
}

type SessionInfo struct {
	SessionID       string    `json:"session_id"`
	CreatedAt       time.Time `json:"created_at"`
	LastUsed        time.Time `json:"last_used"`
	Busy            bool      `json:"is_busy"`
	CurrentURL      string    `json:"current_url,omitempty"`
	ScreenshotCount int       `json:"screenshot_count"`
}

type PoolHealth struct {
	ActiveSessions        int     `json:"active_sessions"`
	MaxSessions           int     `json:"max_sessions"`
	HubURL                string  `json:"selenium_hub_url"`
	ScreenshotsDirectory  string  `json:"screenshots_directory"`
	SessionTimeoutMinutes float64 `json:"session_timeout_minutes"`
}
