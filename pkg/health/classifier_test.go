package health

import "testing"

func TestIsUnhealthy(t *testing.T) {
	tests := []struct {
		name      string
		instance  Instance
		unhealthy bool
	}{
		{"running and ready", Instance{Phase: PhaseRunning, Ready: true}, false},
		{"running not ready", Instance{Phase: PhaseRunning, Ready: false}, true},
		{"pending", Instance{Phase: PhasePending, Ready: false}, true},
		{"succeeded not ready", Instance{Phase: PhaseSucceeded, Ready: false}, false},
		{"failed", Instance{Phase: PhaseFailed, Ready: false}, true},
		{"unknown", Instance{Phase: PhaseUnknown, Ready: true}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUnhealthy(tt.instance); got != tt.unhealthy {
				t.Errorf("IsUnhealthy(%+v) = %v, want %v", tt.instance, got, tt.unhealthy)
			}
		})
	}
}

func TestUnhealthyPreservesListingOrder(t *testing.T) {
	instances := []Instance{
		{Name: "api-0", Phase: PhaseRunning, Ready: true},
		{Name: "api-1", Phase: PhaseFailed},
		{Name: "api-2", Phase: PhaseRunning, Ready: false},
		{Name: "api-3", Phase: PhasePending},
	}

	got := Unhealthy(instances, 0)
	want := []string{"api-1", "api-2", "api-3"}
	if len(got) != len(want) {
		t.Fatalf("got %d unhealthy instances, want %d", len(got), len(want))
	}
	for i, name := range want {
		if got[i].Name != name {
			t.Errorf("unhealthy[%d] = %s, want %s", i, got[i].Name, name)
		}
	}
}

func TestUnhealthyCapped(t *testing.T) {
	instances := []Instance{
		{Name: "api-0", Phase: PhaseFailed},
		{Name: "api-1", Phase: PhaseFailed},
		{Name: "api-2", Phase: PhaseFailed},
	}

	got := Unhealthy(instances, 2)
	if len(got) != 2 {
		t.Fatalf("got %d instances, want cap of 2", len(got))
	}
	if got[0].Name != "api-0" || got[1].Name != "api-1" {
		t.Errorf("cap must keep the first entries in order, got %+v", got)
	}
}

func TestUnhealthyEmpty(t *testing.T) {
	if got := Unhealthy(nil, 5); len(got) != 0 {
		t.Errorf("got %v, want none", got)
	}
}
