package domain

import (
	"time"
)

// SkipEntry records one instrument that was attempted but produced no row.
type SkipEntry struct {
	ISIN   string `json:"isin"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}

// RunSummary describes the outcome of one complete scraping run. It is
// persisted next to the results table so operators and the results server
// can observe how many instruments were skipped without parsing logs.
type RunSummary struct {
	RunID      string      `json:"run_id" validate:"required,uuid"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
	Attempted  int         `json:"attempted" validate:"min=0"`
	Succeeded  int         `json:"succeeded" validate:"min=0"`
	Skipped    int         `json:"skipped" validate:"min=0"`
	Skips      []SkipEntry `json:"skips,omitempty"`
}

// Duration returns the wall-clock duration of the run.
func (s *RunSummary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}
