// Package base provides base components for all services.
package base

import (
	"context"
	"errors"
	"testing"

	"github.com/stablevault/vault_service/internal/logging"
)

func newTestService() *BaseService {
	return NewBaseService("test", "Test Service", "1.0.0", logging.Nop())
}

func TestBaseService_Identity(t *testing.T) {
	svc := newTestService()
	if svc.ID() != "test" {
		t.Errorf("ID() = %s, want test", svc.ID())
	}
	if svc.Name() != "Test Service" {
		t.Errorf("Name() = %s, want Test Service", svc.Name())
	}
	if svc.Version() != "1.0.0" {
		t.Errorf("Version() = %s, want 1.0.0", svc.Version())
	}
	if svc.State() != StateCreated {
		t.Errorf("State() = %s, want %s", svc.State(), StateCreated)
	}
}

func TestBaseService_Lifecycle(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	store := NewMemoryStore[*testEntity]()
	svc.SetStore(store)

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if svc.State() != StateRunning {
		t.Errorf("State() after Start = %s, want %s", svc.State(), StateRunning)
	}
	if err := svc.Health(ctx); err != nil {
		t.Errorf("Health() while running error = %v", err)
	}
	if err := store.Health(ctx); err != nil {
		t.Errorf("store should be initialized by Start: %v", err)
	}

	if err := svc.Stop(ctx); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if svc.State() != StateStopped {
		t.Errorf("State() after Stop = %s, want %s", svc.State(), StateStopped)
	}
	if err := svc.Health(ctx); err == nil {
		t.Error("Health() should fail when stopped")
	}
}

func TestBaseService_HookOrderAndFailure(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	var order []string
	svc.SetHooks(LifecycleHooks{
		OnBeforeStart: func(ctx context.Context) error {
			order = append(order, "before")
			return nil
		},
		OnAfterStart: func(ctx context.Context) error {
			order = append(order, "after")
			return nil
		},
	})

	if err := svc.Start(ctx); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if len(order) != 2 || order[0] != "before" || order[1] != "after" {
		t.Errorf("hook order = %v, want [before after]", order)
	}

	failing := newTestService()
	hookErr := errors.New("boom")
	failing.SetHooks(LifecycleHooks{
		OnAfterStart: func(ctx context.Context) error { return hookErr },
	})
	if err := failing.Start(ctx); !errors.Is(err, hookErr) {
		t.Errorf("Start() error = %v, want wrapped %v", err, hookErr)
	}
	if failing.State() != StateFailed {
		t.Errorf("State() after hook failure = %s, want %s", failing.State(), StateFailed)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	svc := newTestService()

	if err := reg.Register(svc); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := reg.Register(svc); err == nil {
		t.Error("Register() should reject duplicate ID")
	}

	got, ok := reg.Get("test")
	if !ok || got.ID() != "test" {
		t.Errorf("Get() = %v, %v", got, ok)
	}
	if len(reg.List()) != 1 {
		t.Errorf("List() len = %d, want 1", len(reg.List()))
	}

	if err := reg.StartAll(context.Background()); err != nil {
		t.Fatalf("StartAll() error = %v", err)
	}
	if svc.State() != StateRunning {
		t.Errorf("service not running after StartAll: %s", svc.State())
	}
	if err := reg.StopAll(context.Background()); err != nil {
		t.Fatalf("StopAll() error = %v", err)
	}

	if err := reg.Unregister("test"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if _, ok := reg.Get("test"); ok {
		t.Error("Get() should miss after Unregister")
	}
}
