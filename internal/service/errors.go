package service

import (
	"fmt"

	"github.com/thisisnajafi/sarvcast-backend-sub015/internal/timeline"
)

// ValidationFailedError is returned by Save when the submitted timeline has
// violations. Nothing was persisted.
type ValidationFailedError struct {
	EpisodeID int64
	Result    timeline.ValidationResult
}

func (e *ValidationFailedError) Error() string {
	return fmt.Sprintf("timeline for episode %d has %d violation(s)", e.EpisodeID, len(e.Result.Violations))
}

// PersistenceError wraps a store failure during Save or Clear.
type PersistenceError struct {
	EpisodeID int64
	Op        string
	Err       error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failed: %s timeline for episode %d: %v", e.Op, e.EpisodeID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
