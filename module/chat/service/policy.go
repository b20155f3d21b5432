package service

import (
	"PulseChat/module/chat/model"
	errs "PulseChat/tools/errs"
)

// Group administration policy. All checks are pure over the loaded chat so
// they run before any write.

func CanAddMembers(c *model.Chat, actorID string, newMembers []string) error {
	if !c.GroupChat {
		return errs.ErrPolicyViolation.WithDetail("cannot add members to a direct chat")
	}
	if c.CreatorID != actorID {
		return errs.ErrPermissionDenied.WithDetail("only the group creator can add members")
	}
	if len(newMembers) == 0 {
		return errs.ErrBadRequest.WithDetail("no members to add")
	}
	seen := make(map[string]bool, len(newMembers))
	for _, id := range newMembers {
		if c.HasMember(id) {
			return errs.ErrPolicyViolation.WithDetail("user already in chat")
		}
		if seen[id] {
			return errs.ErrBadRequest.WithDetail("duplicate member in request")
		}
		seen[id] = true
	}
	if len(c.Members)+len(newMembers) > model.MaxChatMembers {
		return errs.ErrPolicyViolation.WithDetail("group member limit reached")
	}
	return nil
}

func CanRemoveMember(c *model.Chat, actorID, targetID string) error {
	if !c.GroupChat {
		return errs.ErrPolicyViolation.WithDetail("cannot remove members from a direct chat")
	}
	if c.CreatorID != actorID {
		return errs.ErrPermissionDenied.WithDetail("only the group creator can remove members")
	}
	if targetID == c.CreatorID {
		return errs.ErrPolicyViolation.WithDetail("creator cannot remove themselves")
	}
	if !c.HasMember(targetID) {
		return errs.ErrInvalidMembershipRef.WithDetail("user is not a member of this chat")
	}
	if len(c.Members)-1 < model.MinGroupMembers {
		return errs.ErrPolicyViolation.WithDetail("group must keep at least 3 members")
	}
	return nil
}

func CanLeave(c *model.Chat, actorID string) error {
	if !c.GroupChat {
		return errs.ErrPolicyViolation.WithDetail("cannot leave a direct chat")
	}
	if !c.HasMember(actorID) {
		return errs.ErrInvalidMembershipRef.WithDetail("user is not a member of this chat")
	}
	if actorID == c.CreatorID {
		return errs.ErrPolicyViolation.WithDetail("creator cannot leave the group")
	}
	if len(c.Members)-1 < model.MinGroupMembers {
		return errs.ErrPolicyViolation.WithDetail("group must keep at least 3 members")
	}
	return nil
}

func CanRename(c *model.Chat, actorID string) error {
	if !c.GroupChat {
		return errs.ErrPolicyViolation.WithDetail("cannot rename a direct chat")
	}
	if c.CreatorID != actorID {
		return errs.ErrPermissionDenied.WithDetail("only the group creator can rename the group")
	}
	return nil
}

func CanDelete(c *model.Chat, actorID string) error {
	if !c.GroupChat {
		return errs.ErrPolicyViolation.WithDetail("cannot delete a direct chat")
	}
	if c.CreatorID != actorID {
		return errs.ErrPermissionDenied.WithDetail("only the group creator can delete the group")
	}
	return nil
}

func ValidateNewGroup(name string, members []string) error {
	if name == "" {
		return errs.ErrBadRequest.WithDetail("group name is required")
	}
	if len(members) < model.MinGroupMembers {
		return errs.ErrPolicyViolation.WithDetail("a group needs at least 3 members")
	}
	if len(members) > model.MaxChatMembers {
		return errs.ErrPolicyViolation.WithDetail("group member limit reached")
	}
	seen := make(map[string]bool, len(members))
	for _, id := range members {
		if seen[id] {
			return errs.ErrBadRequest.WithDetail("duplicate member in request")
		}
		seen[id] = true
	}
	return nil
}
