package chat

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func recvFrame(t *testing.T, c *Client) *Event {
	t.Helper()
	select {
	case raw := <-c.send:
		ev, err := ParseEvent(raw)
		if err != nil {
			t.Fatalf("delivered frame does not parse: %v", err)
		}
		return ev
	case <-time.After(time.Second):
		t.Fatalf("no frame delivered to %s", c.UserID)
		return nil
	}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.send:
		t.Fatalf("unexpected frame for %s: %s", c.UserID, raw)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFanoutDeliversToLiveSubset(t *testing.T) {
	reg := NewRegistry()
	f := NewFanout(reg, 2, 16, time.Second)
	defer f.Close()

	a := activeClient("ca", "a", 4)
	b := activeClient("cb", "b", 4)
	c := activeClient("cc", "c", 4)
	reg.Register("a", a)
	reg.Register("b", b)
	// c stays unregistered: no live connection

	ev := BuildAlert("conv", "hello")
	f.Dispatch(ev, []string{"a", "b", "c"})

	for _, cl := range []*Client{a, b} {
		got := recvFrame(t, cl)
		if got.Kind != KindAlert || got.ConversationID != "conv" {
			t.Fatalf("delivered %+v, want alert for conv", got)
		}
	}
	expectNothing(t, c)
}

func TestFanoutDeliversOncePerRecipient(t *testing.T) {
	reg := NewRegistry()
	f := NewFanout(reg, 1, 16, time.Second)
	defer f.Close()

	a := activeClient("ca", "a", 4)
	reg.Register("a", a)

	f.Dispatch(BuildMessageAlert("conv"), []string{"a", "a", "a"})

	recvFrame(t, a)
	expectNothing(t, a)
}

func TestFanoutReapsStaleHandle(t *testing.T) {
	reg := NewRegistry()
	f := NewFanout(reg, 1, 16, 30*time.Millisecond)
	defer f.Close()

	// stale first in the recipient list, healthy second: the failure must
	// not block the rest of the delivery
	stale := activeClient("cs", "stale", 0) // zero queue, never drained
	ok := activeClient("co", "ok", 4)
	reg.Register("stale", stale)
	reg.Register("ok", ok)

	f.Dispatch(BuildAlert("conv", "x"), []string{"stale", "ok"})

	recvFrame(t, ok)

	deadline := time.Now().Add(time.Second)
	for {
		if _, live := reg.Get("stale"); !live && stale.State() == StateClosed {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("stale handle was not reaped")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestFanoutEmptyRecipients(t *testing.T) {
	reg := NewRegistry()
	f := NewFanout(reg, 1, 16, time.Second)
	defer f.Close()

	// must not panic or block
	f.Dispatch(BuildMessageAlert("conv"), nil)
	f.Dispatch(nil, []string{"a"})
}

func TestExclude(t *testing.T) {
	members := []string{"a", "b", "c"}
	if got := Exclude(members, "b"); !reflect.DeepEqual(got, []string{"a", "c"}) {
		t.Fatalf("Exclude = %v, want [a c]", got)
	}
	if got := Exclude(members, "zz"); !reflect.DeepEqual(got, members) {
		t.Fatalf("Exclude of a non-member changed the list: %v", got)
	}
}

func TestEventEncodeParse(t *testing.T) {
	ev := BuildRefetchChats("conv", "Trip", []string{"a", "b"})
	raw, err := ev.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	back, err := ParseEvent(raw)
	if err != nil {
		t.Fatalf("ParseEvent: %v", err)
	}
	if back.Kind != KindRefetchChats || back.ConversationID != "conv" {
		t.Fatalf("round trip lost fields: %+v", back)
	}
	if back.Ts == 0 {
		t.Fatal("Encode should stamp Ts")
	}

	if _, err := ParseEvent([]byte(`{"body":{}}`)); err == nil {
		t.Fatal("frame without kind should be rejected")
	}
	if _, err := ParseEvent([]byte(`not json`)); err == nil {
		t.Fatal("malformed frame should be rejected")
	}
}

func TestRealtimeMessageShape(t *testing.T) {
	msg := &RealtimeMessage{
		ID:             "m1",
		ConversationID: "conv",
		SenderID:       "u1",
		SenderName:     "Ann",
		Text:           "hi",
		CreatedAt:      time.Now().UTC(),
	}
	raw, err := BuildMessageEvent("conv", msg).Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	var frame struct {
		Kind string `json:"kind"`
		Body struct {
			Message RealtimeMessage `json:"message"`
		} `json:"body"`
	}
	if err := json.Unmarshal(raw, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Kind != string(KindMessage) || frame.Body.Message.Text != "hi" {
		t.Fatalf("wire shape off: %+v", frame)
	}
}
