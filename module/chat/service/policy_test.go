package service

import (
	"fmt"
	"testing"

	"PulseChat/module/chat/model"
	errs "PulseChat/tools/errs"
)

func group(creator string, members ...string) *model.Chat {
	return &model.Chat{
		ChatID:    "g1",
		Name:      "Trip",
		GroupChat: true,
		CreatorID: creator,
		Members:   members,
	}
}

func direct(a, b string) *model.Chat {
	return &model.Chat{ChatID: "d1", Members: []string{a, b}, CreatorID: a}
}

func wantCode(t *testing.T, err error, want *errs.CodeError) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error")
	}
	if !want.Is(err) {
		t.Fatalf("got %v, want code %d", err, want.Code)
	}
}

func TestCanAddMembers(t *testing.T) {
	g := group("u1", "u1", "u2", "u3")

	if err := CanAddMembers(g, "u1", []string{"u4", "u5"}); err != nil {
		t.Fatalf("creator add rejected: %v", err)
	}
	wantCode(t, CanAddMembers(g, "u2", []string{"u4"}), errs.ErrPermissionDenied)
	wantCode(t, CanAddMembers(g, "u1", []string{"u2"}), errs.ErrPolicyViolation)
	wantCode(t, CanAddMembers(g, "u1", []string{"u4", "u4"}), errs.ErrBadRequest)
	wantCode(t, CanAddMembers(g, "u1", nil), errs.ErrBadRequest)
	wantCode(t, CanAddMembers(direct("u1", "u2"), "u1", []string{"u3"}), errs.ErrPolicyViolation)
}

func TestCanAddMembersCap(t *testing.T) {
	members := make([]string, model.MaxChatMembers-1)
	for i := range members {
		members[i] = fmt.Sprintf("m%d", i)
	}
	members[0] = "u1"
	g := group("u1", members...)

	if err := CanAddMembers(g, "u1", []string{"x1"}); err != nil {
		t.Fatalf("add up to the cap rejected: %v", err)
	}
	wantCode(t, CanAddMembers(g, "u1", []string{"x1", "x2"}), errs.ErrPolicyViolation)
}

func TestCanRemoveMember(t *testing.T) {
	four := group("u1", "u1", "u2", "u3", "u4")

	if err := CanRemoveMember(four, "u1", "u4"); err != nil {
		t.Fatalf("removal from a 4-member group rejected: %v", err)
	}
	// removal would drop the group below the floor
	three := group("u1", "u1", "u2", "u3")
	wantCode(t, CanRemoveMember(three, "u1", "u3"), errs.ErrPolicyViolation)

	wantCode(t, CanRemoveMember(four, "u2", "u3"), errs.ErrPermissionDenied)
	wantCode(t, CanRemoveMember(four, "u1", "u1"), errs.ErrPolicyViolation)
	wantCode(t, CanRemoveMember(four, "u1", "ghost"), errs.ErrInvalidMembershipRef)
}

func TestCanLeave(t *testing.T) {
	four := group("u1", "u1", "u2", "u3", "u4")
	if err := CanLeave(four, "u2"); err != nil {
		t.Fatalf("member leave rejected: %v", err)
	}

	wantCode(t, CanLeave(four, "u1"), errs.ErrPolicyViolation)
	wantCode(t, CanLeave(four, "ghost"), errs.ErrInvalidMembershipRef)

	three := group("u1", "u1", "u2", "u3")
	wantCode(t, CanLeave(three, "u2"), errs.ErrPolicyViolation)
}

func TestCreatorOnlyAdministration(t *testing.T) {
	g := group("u1", "u1", "u2", "u3")

	if err := CanRename(g, "u1"); err != nil {
		t.Fatalf("creator rename rejected: %v", err)
	}
	wantCode(t, CanRename(g, "u2"), errs.ErrPermissionDenied)

	if err := CanDelete(g, "u1"); err != nil {
		t.Fatalf("creator delete rejected: %v", err)
	}
	wantCode(t, CanDelete(g, "u2"), errs.ErrPermissionDenied)
	wantCode(t, CanDelete(direct("u1", "u2"), "u1"), errs.ErrPolicyViolation)
}

func TestValidateNewGroup(t *testing.T) {
	if err := ValidateNewGroup("Trip", []string{"u1", "u2", "u3"}); err != nil {
		t.Fatalf("valid group rejected: %v", err)
	}
	wantCode(t, ValidateNewGroup("", []string{"u1", "u2", "u3"}), errs.ErrBadRequest)
	wantCode(t, ValidateNewGroup("Trip", []string{"u1", "u2"}), errs.ErrPolicyViolation)
	wantCode(t, ValidateNewGroup("Trip", []string{"u1", "u2", "u2"}), errs.ErrBadRequest)
}
