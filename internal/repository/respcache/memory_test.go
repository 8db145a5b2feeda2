package respcache

import (
	"context"
	"testing"
	"time"
)

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(time.Hour)
	ctx := context.Background()

	if _, ok, err := m.Get(ctx, "k"); ok || err != nil {
		t.Fatalf("empty cache Get = %v, %v", ok, err)
	}

	payload := []byte(`{"jobs":[]}`)
	if err := m.Set(ctx, "k", payload); err != nil {
		t.Fatalf("Set: %v", err)
	}
	payload[0] = 'X'

	got, ok, err := m.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v", ok, err)
	}
	if string(got) != `{"jobs":[]}` {
		t.Errorf("payload = %q, caller mutation leaked into cache", got)
	}
}

func TestMemory_LazyTTL(t *testing.T) {
	c := &clock{t: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(24 * time.Hour)
	m.now = c.Now
	ctx := context.Background()

	_ = m.Set(ctx, "k", []byte("v"))

	c.t = c.t.Add(24*time.Hour - time.Second)
	if _, ok, _ := m.Get(ctx, "k"); !ok {
		t.Fatal("entry expired early")
	}

	c.t = c.t.Add(time.Second)
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Fatal("entry served at TTL")
	}
	if m.size() != 0 {
		t.Errorf("expired entry not evicted on lookup, size() = %d", m.size())
	}
}

func TestMemory_Delete(t *testing.T) {
	m := NewMemory(0)
	ctx := context.Background()
	_ = m.Set(ctx, "k", []byte("v"))
	_ = m.Delete(ctx, "k")
	if _, ok, _ := m.Get(ctx, "k"); ok {
		t.Error("deleted entry returned")
	}
}
