// Package catalog records batch runs and their per-video outcomes in the
// SQLite catalog, so operators can query history without trawling logs or
// output directories.
package catalog

import (
	"time"

	"github.com/google/uuid"
)

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"

	VideoStatusSucceeded = "succeeded"
	VideoStatusFailed    = "failed"
)

// Run is one batch invocation over an input path.
type Run struct {
	ID         string    `json:"id"`
	InputPath  string    `json:"input_path"`
	Status     string    `json:"status"`
	Total      int       `json:"total"`
	Succeeded  int       `json:"succeeded"`
	Failed     int       `json:"failed"`
	Error      string    `json:"error,omitempty"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty"`
}

// VideoResult is the per-video outcome of a run. VideoID is the stable
// identifier derived from the filename; ID is unique per attempt, so the
// same video can appear across runs.
type VideoResult struct {
	ID          string    `json:"id"`
	RunID       string    `json:"run_id"`
	VideoID     string    `json:"video_id"`
	Path        string    `json:"path"`
	Status      string    `json:"status"`
	FailureKind string    `json:"failure_kind,omitempty"`
	Error       string    `json:"error,omitempty"`
	OutputPath  string    `json:"output_path,omitempty"`
	DurationS   float64   `json:"duration_s"`
	Shots       int       `json:"shots"`
	Words       int       `json:"words"`
	ProcessedAt time.Time `json:"processed_at"`
}

func NewID() string {
	return uuid.NewString()
}
