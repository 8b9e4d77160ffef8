package domain

import "time"

// Status is the connection/health surface exposed to the caller.
type Status struct {
	Connected      bool      `json:"connected"`
	LastError      string    `json:"last_error,omitempty"`
	LastUpdate     time.Time `json:"last_update"`
	MessagesPerSec float64   `json:"messages_per_sec"`
	Reconnects     int64     `json:"reconnects"`
	PendingBuffer  int       `json:"pending_buffer"`
	Generation     int64     `json:"generation"`
}
