package stores

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mvvbapiraju/deployctl/pkg/telemetry"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(Config{Path: filepath.Join(t.TempDir(), "history.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}

	ctx := context.Background()
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return store
}

func TestNewSQLiteStoreRequiresPath(t *testing.T) {
	if _, err := NewSQLiteStore(Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestDeploymentRunLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := &DeploymentRun{
		ID:           "run-1",
		DeploymentID: "d-AAAA1111",
		Application:  "orders",
		Group:        "orders-prod",
		Image:        "registry.example.com/orders:1.4.2",
		Transport:    "reference",
		Status:       "InProgress",
		StartedAt:    time.Now().UTC(),
	}
	if err := store.CreateDeploymentRun(ctx, run); err != nil {
		t.Fatalf("CreateDeploymentRun: %v", err)
	}

	got, err := store.GetDeploymentRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetDeploymentRun: %v", err)
	}
	if got.DeploymentID != "d-AAAA1111" || got.Group != "orders-prod" {
		t.Fatalf("unexpected run: %+v", got)
	}
	if got.FinishedAt != nil {
		t.Fatalf("expected nil FinishedAt, got %v", got.FinishedAt)
	}

	msg := "deployment d-AAAA1111 finished with status Failed"
	if err := store.FinishDeploymentRun(ctx, "run-1", "Failed", &msg); err != nil {
		t.Fatalf("FinishDeploymentRun: %v", err)
	}

	got, err = store.GetDeploymentRun(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetDeploymentRun after finish: %v", err)
	}
	if got.Status != "Failed" {
		t.Fatalf("expected status Failed, got %s", got.Status)
	}
	if got.Error == nil || *got.Error != msg {
		t.Fatalf("expected error message %q, got %v", msg, got.Error)
	}
	if got.FinishedAt == nil {
		t.Fatal("expected FinishedAt to be set")
	}
}

func TestFinishDeploymentRunNotFound(t *testing.T) {
	store := newTestStore(t)

	if err := store.FinishDeploymentRun(context.Background(), "missing", "Succeeded", nil); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestGetDeploymentRunNotFound(t *testing.T) {
	store := newTestStore(t)

	if _, err := store.GetDeploymentRun(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for unknown run")
	}
}

func TestListDeploymentRunsNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	for i, id := range []string{"run-old", "run-mid", "run-new"} {
		run := &DeploymentRun{
			ID:           id,
			DeploymentID: "d-" + id,
			Application:  "orders",
			Group:        "orders-prod",
			Transport:    "inline",
			Status:       "Succeeded",
			StartedAt:    base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.CreateDeploymentRun(ctx, run); err != nil {
			t.Fatalf("CreateDeploymentRun %s: %v", id, err)
		}
	}

	runs, err := store.ListDeploymentRuns(ctx, 2, 0)
	if err != nil {
		t.Fatalf("ListDeploymentRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].ID != "run-new" || runs[1].ID != "run-mid" {
		t.Fatalf("unexpected order: %s, %s", runs[0].ID, runs[1].ID)
	}

	runs, err = store.ListDeploymentRuns(ctx, 10, 2)
	if err != nil {
		t.Fatalf("ListDeploymentRuns with offset: %v", err)
	}
	if len(runs) != 1 || runs[0].ID != "run-old" {
		t.Fatalf("unexpected offset page: %+v", runs)
	}
}

func TestRollbackActions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	stopErr := "stop-deployment exited with status 254"
	actions := []*RollbackAction{
		{
			ID:           "rb-1",
			DeploymentID: "d-AAAA1111",
			Mode:         "stopAndAutoRollback",
			StatusBefore: "InProgress",
			StatusAfter:  "Stopped",
			StopError:    &stopErr,
			ExecutedAt:   time.Now().UTC().Add(-time.Minute),
		},
		{
			ID:           "rb-2",
			DeploymentID: "d-AAAA1111",
			Mode:         "manualRedeploy",
			StatusBefore: "Stopped",
			StatusAfter:  "Succeeded",
			ExecutedAt:   time.Now().UTC(),
		},
	}
	for _, action := range actions {
		if err := store.CreateRollbackAction(ctx, action); err != nil {
			t.Fatalf("CreateRollbackAction %s: %v", action.ID, err)
		}
	}

	got, err := store.ListRollbackActions(ctx, "d-AAAA1111")
	if err != nil {
		t.Fatalf("ListRollbackActions: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 actions, got %d", len(got))
	}
	if got[0].ID != "rb-2" {
		t.Fatalf("expected newest first, got %s", got[0].ID)
	}
	if got[1].StopError == nil || *got[1].StopError != stopErr {
		t.Fatalf("expected stop error %q, got %v", stopErr, got[1].StopError)
	}

	other, err := store.ListRollbackActions(ctx, "d-BBBB2222")
	if err != nil {
		t.Fatalf("ListRollbackActions for other deployment: %v", err)
	}
	if len(other) != 0 {
		t.Fatalf("expected no actions, got %d", len(other))
	}
}

func TestRecordAndListEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Minute)
	events := []telemetry.Event{
		{
			ID:           "ev-1",
			Timestamp:    base,
			Type:         telemetry.EventTypeDeploymentSubmitted,
			DeploymentID: "d-AAAA1111",
			Target:       "orders/orders-prod",
			Message:      "deployment submitted",
			Level:        "info",
		},
		{
			ID:           "ev-2",
			Timestamp:    base.Add(30 * time.Second),
			Type:         telemetry.EventTypeDeploymentFailed,
			DeploymentID: "d-AAAA1111",
			Target:       "orders/orders-prod",
			Message:      "deployment failed",
			Level:        "error",
		},
	}
	for _, event := range events {
		if err := store.Record(event); err != nil {
			t.Fatalf("Record %s: %v", event.ID, err)
		}
	}

	got, err := store.ListEvents(ctx, "d-AAAA1111")
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %d", len(got))
	}
	if got[0].ID != "ev-1" || got[1].ID != "ev-2" {
		t.Fatalf("expected oldest first, got %s, %s", got[0].ID, got[1].ID)
	}
	if got[1].Type != telemetry.EventTypeDeploymentFailed {
		t.Fatalf("unexpected type: %s", got[1].Type)
	}
}
