package service

import (
	"fmt"
	"strings"

	"PulseChat/module/chat/model"
	"PulseChat/service/chat"
)

// Orchestrator turns committed membership and message changes into live
// events. Every call here runs after the store write succeeded; a recipient
// without a live connection simply misses the push and catches up over REST.
type Orchestrator struct {
	fanout *chat.Fanout
}

func NewOrchestrator(f *chat.Fanout) *Orchestrator { return &Orchestrator{fanout: f} }

func (o *Orchestrator) ChatCreated(c *model.Chat) {
	if c.GroupChat {
		o.fanout.Dispatch(chat.BuildAlert(c.ChatID, fmt.Sprintf("Welcome to %s group", c.Name)), c.Members)
	}
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, c.Name, c.Members), c.Members)
}

// MembersAdded notifies the post-change member set. addedNames are display
// names of the joiners, for the announcement text.
func (o *Orchestrator) MembersAdded(c *model.Chat, addedNames []string) {
	text := fmt.Sprintf("%s has been added to %s group", strings.Join(addedNames, ", "), c.Name)
	o.fanout.Dispatch(chat.BuildAlert(c.ChatID, text), c.Members)
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, c.Name, c.Members), c.Members)
}

// MemberRemoved goes to the remaining members plus the removed user, so the
// removed client can drop the chat from its list.
func (o *Orchestrator) MemberRemoved(c *model.Chat, removedID, removedName string) {
	audience := append(append([]string{}, c.Members...), removedID)
	text := fmt.Sprintf("%s has been removed from %s group", removedName, c.Name)
	o.fanout.Dispatch(chat.BuildAlert(c.ChatID, text), audience)
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, c.Name, c.Members), audience)
}

func (o *Orchestrator) MemberLeft(c *model.Chat, leftID, leftName string) {
	audience := append(append([]string{}, c.Members...), leftID)
	text := fmt.Sprintf("%s has left %s group", leftName, c.Name)
	o.fanout.Dispatch(chat.BuildAlert(c.ChatID, text), audience)
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, c.Name, c.Members), audience)
}

func (o *Orchestrator) ChatRenamed(c *model.Chat) {
	o.fanout.Dispatch(chat.BuildAlert(c.ChatID, fmt.Sprintf("Group renamed to %s", c.Name)), c.Members)
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, c.Name, c.Members), c.Members)
}

func (o *Orchestrator) ChatDeleted(c *model.Chat) {
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, "", nil), c.Members)
}

// MessageSent covers REST-originated messages (attachment uploads); live
// messages go straight through the message handler.
func (o *Orchestrator) MessageSent(c *model.Chat, msg *chat.RealtimeMessage) {
	o.fanout.Dispatch(chat.BuildMessageEvent(c.ChatID, msg), c.Members)
	o.fanout.Dispatch(chat.BuildMessageAlert(c.ChatID), c.Members)
}

func (o *Orchestrator) FriendRequestSent(fromUserID, toUserID string) {
	o.fanout.Dispatch(chat.BuildNewFriendRequest(fromUserID), []string{toUserID})
}

// FriendAccepted refreshes both sides so the new direct chat shows up.
func (o *Orchestrator) FriendAccepted(c *model.Chat) {
	o.fanout.Dispatch(chat.BuildRefetchChats(c.ChatID, c.Name, c.Members), c.Members)
}
