package chat

import (
	"context"
	"reflect"
	"testing"
	"time"
)

type staticMembers map[string][]string

func (m staticMembers) Members(_ context.Context, conversationID string) ([]string, error) {
	return m[conversationID], nil
}

type staticAuth struct{}

func (staticAuth) Authenticate(_ context.Context, token string) (string, error) {
	return token, nil
}

func newTestServer(t *testing.T, members staticMembers) (*Server, *Registry, *Presence, func()) {
	t.Helper()
	reg := NewRegistry()
	presence := NewPresence()
	fanout := NewFanout(reg, 2, 16, time.Second)
	s := NewServer(Config{}, reg, presence, fanout, staticAuth{}, members)
	return s, reg, presence, fanout.Close
}

func TestBroadcastPresenceReachesMembers(t *testing.T) {
	s, reg, presence, stop := newTestServer(t, staticMembers{"trip": {"u1", "u2", "u3"}})
	defer stop()

	u1 := activeClient("c1", "u1", 4)
	u3 := activeClient("c3", "u3", 4)
	reg.Register("u1", u1)
	reg.Register("u3", u3)

	presence.MarkOnline("trip", "u1")
	presence.MarkOnline("trip", "u3")

	s.BroadcastPresence(context.Background(), "trip")

	for _, c := range []*Client{u1, u3} {
		ev := recvFrame(t, c)
		if ev.Kind != KindPresenceUpdate {
			t.Fatalf("got %s, want presence-update", ev.Kind)
		}
		online, _ := ev.Body["online_user_ids"].([]any)
		got := make([]string, 0, len(online))
		for _, v := range online {
			got = append(got, v.(string))
		}
		if !reflect.DeepEqual(got, []string{"u1", "u3"}) {
			t.Fatalf("online set = %v, want [u1 u3]", got)
		}
	}
}

// A member disconnecting mid-conversation: its handle leaves the registry,
// its presence is dropped everywhere, and the remaining viewers get the new
// snapshot.
func TestDisconnectFlow(t *testing.T) {
	s, reg, presence, stop := newTestServer(t, staticMembers{"trip": {"u1", "u2", "u3"}})
	defer stop()

	u1 := activeClient("c1", "u1", 4)
	u2 := activeClient("c2", "u2", 4)
	u3 := activeClient("c3", "u3", 4)
	for _, c := range []*Client{u1, u2, u3} {
		reg.Register(c.UserID, c)
		presence.MarkOnline("trip", c.UserID)
	}

	// u2 drops
	reg.Unregister("u2", u2)
	u2.Close("connection closed")
	for _, conv := range presence.DropUser("u2") {
		s.BroadcastPresence(context.Background(), conv)
	}

	handles := reg.Resolve([]string{"u1", "u2", "u3"})
	users := make([]string, 0, len(handles))
	for _, h := range handles {
		users = append(users, h.UserID)
	}
	if !reflect.DeepEqual(users, []string{"u1", "u3"}) {
		t.Fatalf("Resolve = %v, want [u1 u3]", users)
	}

	for _, c := range []*Client{u1, u3} {
		ev := recvFrame(t, c)
		if ev.Kind != KindPresenceUpdate {
			t.Fatalf("got %s, want presence-update", ev.Kind)
		}
	}
	if got := presence.Snapshot("trip"); !reflect.DeepEqual(got, []string{"u1", "u3"}) {
		t.Fatalf("Snapshot = %v, want [u1 u3]", got)
	}
}

func TestDispatcherRoutesByKind(t *testing.T) {
	d := NewDispatcher()
	var seen Kind
	d.Register(handlerFunc{kind: KindTypingStart, fn: func(ev *Event) { seen = ev.Kind }})

	ev := &Event{Kind: KindTypingStart, ConversationID: "conv"}
	if err := d.Dispatch(&Context{}, ev, nil); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if seen != KindTypingStart {
		t.Fatalf("handler saw %q", seen)
	}

	if err := d.Dispatch(&Context{}, &Event{Kind: "nope"}, nil); err == nil {
		t.Fatal("unknown kind should fail")
	}
}

type handlerFunc struct {
	kind Kind
	fn   func(ev *Event)
}

func (h handlerFunc) Kind() Kind { return h.kind }

func (h handlerFunc) Handle(_ *Context, ev *Event, _ *Client) error {
	h.fn(ev)
	return nil
}
