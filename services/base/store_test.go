// Package base provides base components for all services.
package base

import (
	"context"
	"testing"
	"time"
)

// =============================================================================
// BaseEntity Tests
// =============================================================================

func TestBaseEntity_SetTimestamps(t *testing.T) {
	entity := &BaseEntity{}

	// First call sets both
	entity.SetTimestamps()
	if entity.CreatedAt.IsZero() {
		t.Error("SetTimestamps() should set CreatedAt")
	}
	if entity.UpdatedAt.IsZero() {
		t.Error("SetTimestamps() should set UpdatedAt")
	}

	createdAt := entity.CreatedAt
	time.Sleep(1 * time.Millisecond)

	// Second call only updates UpdatedAt
	entity.SetTimestamps()
	if !entity.CreatedAt.Equal(createdAt) {
		t.Error("SetTimestamps() should not change CreatedAt on second call")
	}
	if entity.UpdatedAt.Equal(createdAt) {
		t.Error("SetTimestamps() should update UpdatedAt on second call")
	}
}

func TestBaseEntity_GenerateID(t *testing.T) {
	entity := &BaseEntity{}

	entity.GenerateID()
	if entity.ID == "" {
		t.Error("GenerateID() should set ID")
	}

	firstID := entity.ID

	// Should not change existing ID
	entity.GenerateID()
	if entity.ID != firstID {
		t.Error("GenerateID() should not change existing ID")
	}
}

// =============================================================================
// MemoryStore Tests
// =============================================================================

// testEntity implements Entity for testing.
type testEntity struct {
	BaseEntity
	Name string `json:"name"`
}

func newTestStore(t *testing.T) *MemoryStore[*testEntity] {
	t.Helper()
	store := NewMemoryStore[*testEntity]()
	if err := store.Initialize(context.Background()); err != nil {
		t.Fatalf("initialize store: %v", err)
	}
	return store
}

func TestMemoryStore_NotReady(t *testing.T) {
	store := NewMemoryStore[*testEntity]()
	ctx := context.Background()

	if err := store.Health(ctx); err == nil {
		t.Error("Health() should fail before Initialize")
	}
	if _, err := store.Get(ctx, "x"); err == nil {
		t.Error("Get() should fail before Initialize")
	}
	if err := store.Create(ctx, &testEntity{}); err == nil {
		t.Error("Create() should fail before Initialize")
	}
}

func TestMemoryStore_CreateGetUpdate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := &testEntity{Name: "first"}
	entity.GenerateID()
	entity.SetTimestamps()

	if err := store.Create(ctx, entity); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := store.Create(ctx, entity); err == nil {
		t.Error("Create() should reject duplicate ID")
	}

	got, err := store.Get(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got.Name != "first" {
		t.Errorf("Get() Name = %s, want first", got.Name)
	}

	got.Name = "second"
	if err := store.Update(ctx, got); err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	got, err = store.Get(ctx, entity.ID)
	if err != nil {
		t.Fatalf("Get() after update error = %v", err)
	}
	if got.Name != "second" {
		t.Errorf("Name after update = %s, want second", got.Name)
	}
}

func TestMemoryStore_UpdateMissing(t *testing.T) {
	store := newTestStore(t)

	entity := &testEntity{Name: "ghost"}
	entity.GenerateID()
	if err := store.Update(context.Background(), entity); err == nil {
		t.Error("Update() should fail for unknown entity")
	}
}

func TestMemoryStore_ListAndCount(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		entity := &testEntity{Name: "e"}
		entity.GenerateID()
		if err := store.Create(ctx, entity); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	entities, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entities) != 3 {
		t.Errorf("List() len = %d, want 3", len(entities))
	}

	n, err := store.Count(ctx)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if n != 3 {
		t.Errorf("Count() = %d, want 3", n)
	}
}

func TestMemoryStore_Shutdown(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	entity := &testEntity{}
	entity.GenerateID()
	if err := store.Create(ctx, entity); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := store.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := store.Health(ctx); err == nil {
		t.Error("Health() should fail after Shutdown")
	}
}
