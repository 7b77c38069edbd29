package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRegistryRegisterAndCheck(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewChecker("traces", func(context.Context) Result {
		return Healthy("ok")
	}))

	result, err := reg.Check(context.Background(), "traces")
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if result.Status != StatusHealthy {
		t.Errorf("status = %v", result.Status)
	}

	if _, err := reg.Check(context.Background(), "missing"); !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("err = %v, want ErrCheckerNotFound", err)
	}
}

func TestRegistryCheckAll(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewChecker("a", func(context.Context) Result { return Healthy("fine") }))
	reg.Register(NewChecker("b", func(context.Context) Result { return Degraded("wobbly") }))
	reg.Register(NewChecker("c", func(context.Context) Result { return Unhealthy("down", nil) }))

	results := reg.CheckAll(context.Background())
	if len(results) != 3 {
		t.Fatalf("got %d results", len(results))
	}
	if results["a"].Status != StatusHealthy || results["b"].Status != StatusDegraded || results["c"].Status != StatusUnhealthy {
		t.Errorf("results = %v", results)
	}
	if OverallStatus(results) != StatusUnhealthy {
		t.Errorf("overall = %v", OverallStatus(results))
	}
}

func TestOverallStatus(t *testing.T) {
	if got := OverallStatus(nil); got != StatusHealthy {
		t.Errorf("empty = %v", got)
	}
	degradedOnly := map[string]Result{
		"a": {Status: StatusHealthy},
		"b": {Status: StatusDegraded},
	}
	if got := OverallStatus(degradedOnly); got != StatusDegraded {
		t.Errorf("degraded set = %v", got)
	}
}

func TestRegistryTimeout(t *testing.T) {
	reg := NewRegistry(WithCheckTimeout(50 * time.Millisecond))
	reg.Register(NewChecker("stuck", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(time.Hour) // never returns in time
		return Healthy("too late")
	}))

	start := time.Now()
	results := reg.CheckAll(context.Background())
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("CheckAll blocked for %v", elapsed)
	}

	result := results["stuck"]
	if result.Status != StatusUnhealthy {
		t.Errorf("status = %v", result.Status)
	}
	if !errors.Is(result.Error, ErrCheckTimeout) {
		t.Errorf("error = %v", result.Error)
	}
}

func TestRegistryUnregister(t *testing.T) {
	reg := NewRegistry()
	reg.Register(NewChecker("a", func(context.Context) Result { return Healthy("") }))
	reg.Register(NewChecker("b", func(context.Context) Result { return Healthy("") }))
	reg.Unregister("a")

	names := reg.Names()
	if len(names) != 1 || names[0] != "b" {
		t.Errorf("names = %v", names)
	}
}

func TestRegistryNamesOrdered(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"z", "a", "m"} {
		reg.Register(NewChecker(name, func(context.Context) Result { return Healthy("") }))
	}
	names := reg.Names()
	if len(names) != 3 || names[0] != "z" || names[1] != "a" || names[2] != "m" {
		t.Errorf("names = %v, want registration order", names)
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}
