package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

// Mock implementations for testing

type mockDeploymentService struct {
	createErr error
	stopErr   error

	// firstGetErr fails the first GetDeployment call only.
	firstGetErr error

	// statuses is consumed one per GetDeployment call; the last entry
	// repeats once exhausted.
	statuses []DeploymentStatus
	record   DeploymentRecord

	created     []Revision
	stops       []bool
	statusCalls int
}

func (m *mockDeploymentService) CreateDeployment(ctx context.Context, application, group string, rev Revision) (string, error) {
	if m.createErr != nil {
		return "", m.createErr
	}
	m.created = append(m.created, rev)
	return "d-123", nil
}

func (m *mockDeploymentService) GetDeployment(ctx context.Context, id string) (DeploymentRecord, error) {
	if m.statusCalls == 0 && m.firstGetErr != nil {
		m.statusCalls++
		return DeploymentRecord{}, m.firstGetErr
	}
	record := m.record
	record.ID = id
	if len(m.statuses) > 0 {
		i := m.statusCalls
		if i >= len(m.statuses) {
			i = len(m.statuses) - 1
		}
		record.Status = m.statuses[i]
	}
	m.statusCalls++
	return record, nil
}

func (m *mockDeploymentService) StopDeployment(ctx context.Context, id string, autoRollback bool) error {
	m.stops = append(m.stops, autoRollback)
	return m.stopErr
}

func (m *mockDeploymentService) ListTargets(ctx context.Context, id string) ([]string, error) {
	return nil, nil
}

func (m *mockDeploymentService) TargetEvents(ctx context.Context, id, targetID string) (string, error) {
	return "", nil
}

type mockObjectStore struct {
	putErr    error
	locations []StoreLocation
}

func (m *mockObjectStore) Put(ctx context.Context, localPath string, location StoreLocation) error {
	if m.putErr != nil {
		return m.putErr
	}
	m.locations = append(m.locations, location)
	return nil
}

func fastRequest() DeploymentRequest {
	return DeploymentRequest{
		Application:  "payments",
		Group:        "payments-dg",
		Timeout:      time.Second,
		PollInterval: time.Millisecond,
	}
}

func TestDriverDeploySucceeds(t *testing.T) {
	svc := &mockDeploymentService{
		statuses: []DeploymentStatus{StatusCreated, StatusInProgress, StatusInProgress, StatusSucceeded},
	}
	driver := NewDriver(svc, nil)

	record, err := driver.Deploy(context.Background(), fastRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if record.Status != StatusSucceeded {
		t.Errorf("status = %s, want Succeeded", record.Status)
	}
	if svc.statusCalls != 4 {
		t.Errorf("status polled %d times, want 4", svc.statusCalls)
	}

	if len(svc.created) != 1 {
		t.Fatalf("expected one submission, got %d", len(svc.created))
	}
	rev := svc.created[0]
	if rev.Transport != TransportInline {
		t.Errorf("transport = %s, want inline without a store location", rev.Transport)
	}
	if rev.SHA256 == "" || rev.Content == "" {
		t.Errorf("inline revision missing content or digest: %+v", rev)
	}
}

func TestDriverDeployFailedCarriesPlatformMessage(t *testing.T) {
	svc := &mockDeploymentService{
		statuses: []DeploymentStatus{StatusInProgress, StatusFailed},
		record:   DeploymentRecord{ErrorMessage: "health check failed"},
	}
	driver := NewDriver(svc, nil)

	record, err := driver.Deploy(context.Background(), fastRequest())
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "health check failed") {
		t.Errorf("error %q does not carry the platform message", err)
	}
	if record.Status != StatusFailed {
		t.Errorf("status = %s, want Failed", record.Status)
	}

	var classified *Error
	if !errors.As(err, &classified) || classified.Code != ErrCodeDeploymentFailed {
		t.Errorf("expected deployment-failed classification, got %v", err)
	}
}

func TestDriverReferenceTransportUploadsBundle(t *testing.T) {
	svc := &mockDeploymentService{statuses: []DeploymentStatus{StatusSucceeded}}
	store := &mockObjectStore{}
	driver := NewDriver(svc, store)

	req := fastRequest()
	req.Store = &StoreLocation{Bucket: "deploy-artifacts", Key: "payments/revision.zip"}

	if _, err := driver.Deploy(context.Background(), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.locations) != 1 {
		t.Fatalf("expected one upload, got %d", len(store.locations))
	}
	if store.locations[0].Bucket != "deploy-artifacts" {
		t.Errorf("uploaded to %+v", store.locations[0])
	}

	rev := svc.created[0]
	if rev.Transport != TransportReference {
		t.Errorf("transport = %s, want reference when a store is configured", rev.Transport)
	}
	if rev.Store == nil || rev.Store.Key != "payments/revision.zip" {
		t.Errorf("revision store coordinates = %+v", rev.Store)
	}
	if rev.SHA256 == "" {
		t.Error("reference revision missing bundle digest")
	}
}

func TestDriverTimeout(t *testing.T) {
	svc := &mockDeploymentService{statuses: []DeploymentStatus{StatusInProgress}}
	driver := NewDriver(svc, nil)

	req := fastRequest()
	req.Timeout = 30 * time.Millisecond
	req.PollInterval = 10 * time.Millisecond

	record, err := driver.Deploy(context.Background(), req)
	if !IsTimeout(err) {
		t.Fatalf("expected timeout classification, got %v", err)
	}
	if record.Status != StatusInProgress {
		t.Errorf("last observed status = %s, want InProgress", record.Status)
	}
}

func TestDriverValidation(t *testing.T) {
	driver := NewDriver(&mockDeploymentService{}, nil)

	tests := []struct {
		name string
		req  DeploymentRequest
	}{
		{"missing application", DeploymentRequest{Group: "dg"}},
		{"missing group", DeploymentRequest{Application: "payments"}},
		{"reference without store", DeploymentRequest{
			Application: "payments", Group: "dg", Transport: TransportReference,
		}},
		{"store missing key", DeploymentRequest{
			Application: "payments", Group: "dg",
			Store: &StoreLocation{Bucket: "deploy-artifacts"},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := driver.Deploy(context.Background(), tt.req); !IsValidation(err) {
				t.Errorf("expected validation error, got %v", err)
			}
		})
	}
}

func TestUnsetTransportAutoSelects(t *testing.T) {
	tests := []struct {
		name string
		req  DeploymentRequest
		want RevisionTransport
	}{
		{"unset without store", DeploymentRequest{
			Application: "payments", Group: "dg",
		}, TransportInline},
		{"unset with store", DeploymentRequest{
			Application: "payments", Group: "dg",
			Store: &StoreLocation{Bucket: "deploy-artifacts", Key: "payments.zip"},
		}, TransportReference},
		{"auto without store", DeploymentRequest{
			Application: "payments", Group: "dg", Transport: TransportAuto,
		}, TransportInline},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); err != nil {
				t.Fatalf("zero-value transport rejected: %v", err)
			}
			if got := tt.req.transport(); got != tt.want {
				t.Errorf("transport = %q, want %q", got, tt.want)
			}
		})
	}
}
