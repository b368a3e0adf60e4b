package ipc

import (
	"time"

	"mirror/internal/dispatch"
	"mirror/internal/pipeline"
)

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// DependencyStatus describes availability of an external program.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail"`
}

// StatusResponse represents daemon runtime information.
type StatusResponse struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	SessionID    string             `json:"session_id"`
	StartedAt    time.Time          `json:"started_at"`
	StateKind    string             `json:"state_kind"`
	PersonID     string             `json:"person_id,omitempty"`
	StateSince   time.Time          `json:"state_since"`
	People       int                `json:"people"`
	Encodings    int                `json:"encodings"`
	CameraSource string             `json:"camera_source"`
	Pipeline     pipeline.Stats     `json:"pipeline"`
	Dispatch     dispatch.Stats     `json:"dispatch"`
	DatabasePath string             `json:"database_path"`
	LockPath     string             `json:"lock_path"`
	Dependencies []DependencyStatus `json:"dependencies,omitempty"`
}

// ProfileListRequest lists enrolled profiles.
type ProfileListRequest struct{}

// PersonSummary is the wire representation of an enrolled profile.
type PersonSummary struct {
	ID           string   `json:"id"`
	DisplayName  string   `json:"display_name"`
	Relationship string   `json:"relationship"`
	Language     string   `json:"language"`
	Languages    []string `json:"languages,omitempty"`
}

// ProfileListResponse contains enrolled profiles sorted by ID.
type ProfileListResponse struct {
	People []PersonSummary `json:"people"`
}

// HistoryRequest fetches recent recognition events.
type HistoryRequest struct {
	Limit int `json:"limit"`
}

// HistoryEvent is the wire representation of one recognition event.
type HistoryEvent struct {
	EventID    string    `json:"event_id"`
	PersonID   string    `json:"person_id"`
	Distance   float64   `json:"distance"`
	FrameSeq   uint64    `json:"frame_seq"`
	Announced  bool      `json:"announced"`
	OccurredAt time.Time `json:"occurred_at"`
}

// HistoryResponse returns recognition events, newest first.
type HistoryResponse struct {
	Events []HistoryEvent `json:"events"`
}

// AnnounceRequest triggers a greeting for a person by ID.
type AnnounceRequest struct {
	PersonID string `json:"person_id"`
}

// AnnounceResponse reports whether the greeting was triggered.
type AnnounceResponse struct {
	Announced bool   `json:"announced"`
	Message   string `json:"message"`
}

// LogTailRequest fetches log lines based on offset and follow semantics.
type LogTailRequest struct {
	Offset     int64  `json:"offset"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
	Level      string `json:"level,omitempty"`
}

// LogTailResponse returns log lines and the next offset.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports notification test outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
