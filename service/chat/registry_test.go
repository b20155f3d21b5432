package chat

import (
	"testing"
	"time"
)

func activeClient(connID, userID string, queue int) *Client {
	c := NewClient(connID, nil, queue)
	c.Bind(userID)
	return c
}

func TestRegistryRegisterAndGet(t *testing.T) {
	reg := NewRegistry()

	c1 := activeClient("c1", "u1", 4)
	if prev := reg.Register("u1", c1); prev != nil {
		t.Fatalf("expected no previous handle, got %s", prev.ConnID)
	}

	got, ok := reg.Get("u1")
	if !ok || got != c1 {
		t.Fatalf("Get(u1) = %v, %v; want c1, true", got, ok)
	}
	if reg.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", reg.Len())
	}
}

func TestRegistryLastWriterWins(t *testing.T) {
	reg := NewRegistry()

	c1 := activeClient("c1", "u1", 4)
	c2 := activeClient("c2", "u1", 4)
	reg.Register("u1", c1)

	prev := reg.Register("u1", c2)
	if prev != c1 {
		t.Fatalf("Register returned %v, want the replaced handle c1", prev)
	}
	got, _ := reg.Get("u1")
	if got != c2 {
		t.Fatalf("Get(u1) = %v, want c2", got)
	}

	// the replaced handle's own disconnect must not evict the replacement
	if reg.Unregister("u1", c1) {
		t.Fatal("Unregister with stale handle should be a no-op")
	}
	if got, ok := reg.Get("u1"); !ok || got != c2 {
		t.Fatalf("replacement evicted by stale unregister")
	}

	if !reg.Unregister("u1", c2) {
		t.Fatal("Unregister with current handle should succeed")
	}
	if _, ok := reg.Get("u1"); ok {
		t.Fatal("u1 still resolvable after unregister")
	}
}

func TestRegistryRegisterSameClientTwice(t *testing.T) {
	reg := NewRegistry()
	c1 := activeClient("c1", "u1", 4)
	reg.Register("u1", c1)
	if prev := reg.Register("u1", c1); prev != nil {
		t.Fatalf("re-registering the same handle returned prev=%v", prev)
	}
}

func TestRegistryResolve(t *testing.T) {
	reg := NewRegistry()

	a := activeClient("ca", "a", 4)
	b := activeClient("cb", "b", 4)
	closed := activeClient("cc", "c", 4)
	closed.Close("test")

	reg.Register("a", a)
	reg.Register("b", b)
	reg.Register("c", closed)

	got := reg.Resolve([]string{"a", "b", "c", "a", "nobody"})
	if len(got) != 2 {
		t.Fatalf("Resolve returned %d handles, want 2", len(got))
	}
	seen := map[string]bool{}
	for _, c := range got {
		seen[c.UserID] = true
	}
	if !seen["a"] || !seen["b"] {
		t.Fatalf("Resolve missed a live handle: %v", seen)
	}
}

func TestClientEnqueueStates(t *testing.T) {
	c := NewClient("c1", nil, 1)
	if err := c.Enqueue([]byte("x"), 0); err == nil {
		t.Fatal("Enqueue on a connecting handle should fail")
	}

	c.Bind("u1")
	if err := c.Enqueue([]byte("x"), time.Second); err != nil {
		t.Fatalf("Enqueue on an active handle failed: %v", err)
	}

	c.Close("test")
	if err := c.Enqueue([]byte("x"), 0); err == nil {
		t.Fatal("Enqueue on a closed handle should fail")
	}
	if c.State() != StateClosed {
		t.Fatalf("State() = %v, want closed", c.State())
	}
}
