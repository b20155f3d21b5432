package chat

import (
	"reflect"
	"sort"
	"testing"
)

func TestPresenceMarkOnlineIdempotent(t *testing.T) {
	p := NewPresence()

	if !p.MarkOnline("conv", "u1") {
		t.Fatal("first MarkOnline should change the set")
	}
	if p.MarkOnline("conv", "u1") {
		t.Fatal("second MarkOnline should be a no-op")
	}
	if got := p.Snapshot("conv"); !reflect.DeepEqual(got, []string{"u1"}) {
		t.Fatalf("Snapshot = %v, want [u1]", got)
	}
}

func TestPresenceSnapshotOrder(t *testing.T) {
	p := NewPresence()
	p.MarkOnline("conv", "u1")
	p.MarkOnline("conv", "u2")
	p.MarkOnline("conv", "u3")

	if got := p.Snapshot("conv"); !reflect.DeepEqual(got, []string{"u1", "u2", "u3"}) {
		t.Fatalf("Snapshot = %v, want join order", got)
	}

	p.MarkOffline("conv", "u2")
	if got := p.Snapshot("conv"); !reflect.DeepEqual(got, []string{"u1", "u3"}) {
		t.Fatalf("Snapshot after offline = %v, want [u1 u3]", got)
	}
}

func TestPresenceMarkOfflineUnknown(t *testing.T) {
	p := NewPresence()
	if p.MarkOffline("conv", "ghost") {
		t.Fatal("MarkOffline for an unknown user should be a no-op")
	}
	p.MarkOnline("conv", "u1")
	if p.MarkOffline("other", "u1") {
		t.Fatal("MarkOffline in the wrong conversation should be a no-op")
	}
}

func TestPresenceExactRestore(t *testing.T) {
	p := NewPresence()
	p.MarkOnline("conv", "u1")
	p.MarkOnline("conv", "u2")

	p.MarkOffline("conv", "u2")
	p.MarkOnline("conv", "u2")

	if got := p.Snapshot("conv"); !reflect.DeepEqual(got, []string{"u1", "u2"}) {
		t.Fatalf("Snapshot = %v, want the set restored exactly", got)
	}
}

func TestPresenceDropUser(t *testing.T) {
	p := NewPresence()
	p.MarkOnline("c1", "u1")
	p.MarkOnline("c2", "u1")
	p.MarkOnline("c1", "u2")

	affected := p.DropUser("u1")
	sort.Strings(affected)
	if !reflect.DeepEqual(affected, []string{"c1", "c2"}) {
		t.Fatalf("DropUser affected %v, want [c1 c2]", affected)
	}
	if got := p.Snapshot("c1"); !reflect.DeepEqual(got, []string{"u2"}) {
		t.Fatalf("Snapshot(c1) = %v, want [u2]", got)
	}
	if got := p.Snapshot("c2"); len(got) != 0 {
		t.Fatalf("Snapshot(c2) = %v, want empty", got)
	}
	if again := p.DropUser("u1"); len(again) != 0 {
		t.Fatalf("second DropUser affected %v, want nothing", again)
	}
}
