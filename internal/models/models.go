package models

import "time"

// Session is a signed-in team stored between runs
type Session struct {
	ID            string    `json:"id"`
	TeamName      string    `json:"team_name"`
	Password      string    `json:"-"`
	Region        string    `json:"region"`
	CurrentStage  int       `json:"current_stage"`
	ChallengeOpen bool      `json:"challenge_open"`
	StartTime     string    `json:"start_time"`
	TotalTime     float64   `json:"total_time"`
	Stage1PDFURL  string    `json:"stage1_pdf_url,omitempty"`
	TimerStarted  bool      `json:"timer_started"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Download is one opened stage file or dataset
type Download struct {
	ID             int64     `json:"id"`
	SessionID      string    `json:"session_id"`
	URL            string    `json:"url"`
	Location       string    `json:"location"`
	Stage          int       `json:"stage,omitempty"`
	TimerRequested bool      `json:"timer_requested"`
	TimerError     string    `json:"timer_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// WSMessage represents a WebSocket message
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}
