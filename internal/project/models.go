// Package project persists projects, their timelines and export jobs in
// sqlite.
package project

import (
	"time"

	"github.com/google/uuid"
)

type Project struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	TimelineJSON string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const (
	ExportStatusPending   = "pending"
	ExportStatusRunning   = "running"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
	ExportStatusCancelled = "cancelled"

	FormatMP4 = "mp4"
	FormatEDL = "edl"
)

type Export struct {
	ID           string    `json:"id"`
	ProjectID    string    `json:"project_id"`
	SessionID    string    `json:"session_id,omitempty"`
	Format       string    `json:"format"`
	Status       string    `json:"status"`
	Progress     int       `json:"progress"`
	Error        string    `json:"error,omitempty"`
	Diagnostics  string    `json:"diagnostics,omitempty"`
	SnapshotJSON string    `json:"-"`
	OutputPath   string    `json:"output_path,omitempty"`
	Location     string    `json:"location,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsTerminal reports whether the export will not change again.
func (e *Export) IsTerminal() bool {
	switch e.Status {
	case ExportStatusCompleted, ExportStatusFailed, ExportStatusCancelled:
		return true
	}
	return false
}

type ConfigEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

func NewID() string {
	return uuid.NewString()
}
