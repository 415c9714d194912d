package revision

import (
	"errors"
	"testing"
)

func TestSelectRollbackTargetPrefersSupersededBelowDeployed(t *testing.T) {
	history := []Entry{
		{Sequence: 1, Status: StatusDeployed},
		{Sequence: 2, Status: StatusSuperseded},
		{Sequence: 3, Status: StatusDeployed},
	}

	target, err := SelectRollbackTarget(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Sequence != 2 {
		t.Errorf("target = %d, want 2 (highest candidate below the current deployed 3)", target.Sequence)
	}
}

func TestSelectRollbackTargetSkipsFailedAndPending(t *testing.T) {
	history := []Entry{
		{Sequence: 1, Status: StatusSuperseded},
		{Sequence: 2, Status: StatusFailed},
		{Sequence: 3, Status: StatusPending},
		{Sequence: 4, Status: StatusDeployed},
	}

	target, err := SelectRollbackTarget(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Sequence != 1 {
		t.Errorf("target = %d, want 1; failed and pending revisions are never valid targets", target.Sequence)
	}
}

func TestSelectRollbackTargetNoDeployedEntry(t *testing.T) {
	history := []Entry{
		{Sequence: 1, Status: StatusFailed},
		{Sequence: 2, Status: StatusPending},
	}

	target, err := SelectRollbackTarget(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Sequence != 2 {
		t.Errorf("target = %d, want max candidate 2 when nothing preferred exists", target.Sequence)
	}
}

func TestSelectRollbackTargetUnordered(t *testing.T) {
	history := []Entry{
		{Sequence: 3, Status: StatusDeployed},
		{Sequence: 1, Status: StatusDeployed},
		{Sequence: 2, Status: StatusSuperseded},
	}

	target, err := SelectRollbackTarget(history)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.Sequence != 2 {
		t.Errorf("target = %d, want 2 regardless of input order", target.Sequence)
	}
}

func TestSelectRollbackTargetEmptyHistory(t *testing.T) {
	_, err := SelectRollbackTarget(nil)
	if !IsNoTarget(err) {
		t.Errorf("err = %v, want a no-target error", err)
	}
}

func TestSelectRollbackTargetNothingOlderThanDeployed(t *testing.T) {
	history := []Entry{{Sequence: 1, Status: StatusDeployed}}

	_, err := SelectRollbackTarget(history)
	var nte *NoTargetError
	if !errors.As(err, &nte) {
		t.Fatalf("err = %v, want *NoTargetError", err)
	}
	if nte.Reason == "" {
		t.Error("no-target error carries no reason")
	}
}
