// Package revision implements rollback-target selection over a release's
// revision history. The history itself is always fetched fresh from the
// platform; nothing here is cached.
package revision

import (
	"errors"
	"fmt"
	"time"
)

// Status is the platform-reported state of a historical revision.
type Status string

const (
	// StatusDeployed indicates the revision is (or was) live.
	StatusDeployed Status = "deployed"

	// StatusSuperseded indicates the revision was live and has since been
	// replaced by a newer one.
	StatusSuperseded Status = "superseded"

	// StatusFailed indicates the revision never reached a healthy state.
	StatusFailed Status = "failed"

	// StatusPending indicates the revision is still being rolled out.
	StatusPending Status = "pending"

	// StatusUnknown indicates the platform could not report a state.
	StatusUnknown Status = "unknown"
)

// Entry is one revision in a release's history.
type Entry struct {
	// Sequence is the monotonically increasing revision number within the
	// release line.
	Sequence int `json:"sequence"`

	// Status is the platform-reported state of this revision.
	Status Status `json:"status"`

	// Updated is when the revision last changed state.
	Updated time.Time `json:"updated"`

	// Description is the platform's free-text note for the revision.
	Description string `json:"description,omitempty"`
}

// NoTargetError is returned when no revision in the history is eligible as
// a rollback target.
type NoTargetError struct {
	// Reason explains why no target could be determined.
	Reason string
}

// Error implements the error interface.
func (e *NoTargetError) Error() string {
	return fmt.Sprintf("no rollback target: %s", e.Reason)
}

// IsNoTarget reports whether err indicates an empty or ineligible history.
func IsNoTarget(err error) bool {
	var nte *NoTargetError
	return errors.As(err, &nte)
}

// SelectRollbackTarget picks the revision to roll back to:
//
//  1. The currently deployed revision is the "deployed" entry with the
//     highest sequence number, if any.
//  2. Candidates are all entries older than the currently deployed one,
//     or the whole history when nothing is currently deployed.
//  3. Among the candidates, entries that once ran successfully
//     (superseded or deployed) are preferred over failed or pending ones,
//     even when a failed entry is numerically closer.
//  4. The highest-sequence preferred candidate wins; without preferred
//     candidates, the highest-sequence candidate of any status wins.
//
// A *NoTargetError is returned when the history yields no candidate.
func SelectRollbackTarget(history []Entry) (Entry, error) {
	if len(history) == 0 {
		return Entry{}, &NoTargetError{Reason: "revision history is empty"}
	}

	current, hasCurrent := currentDeployed(history)

	var candidates []Entry
	for _, e := range history {
		if !hasCurrent || e.Sequence < current.Sequence {
			candidates = append(candidates, e)
		}
	}
	if len(candidates) == 0 {
		return Entry{}, &NoTargetError{
			Reason: fmt.Sprintf("no revision older than currently deployed revision %d", current.Sequence),
		}
	}

	var preferred []Entry
	for _, e := range candidates {
		if e.Status == StatusSuperseded || e.Status == StatusDeployed {
			preferred = append(preferred, e)
		}
	}

	pool := preferred
	if len(pool) == 0 {
		pool = candidates
	}
	return maxBySequence(pool), nil
}

// currentDeployed returns the deployed entry with the highest sequence
// number, if one exists.
func currentDeployed(history []Entry) (Entry, bool) {
	var current Entry
	found := false
	for _, e := range history {
		if e.Status != StatusDeployed {
			continue
		}
		if !found || e.Sequence > current.Sequence {
			current = e
			found = true
		}
	}
	return current, found
}

func maxBySequence(entries []Entry) Entry {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Sequence > best.Sequence {
			best = e
		}
	}
	return best
}
