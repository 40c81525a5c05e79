// Package lineutil builds LINE messages for the studio assistant.
package lineutil

import (
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"github.com/garyellow/ptc-frontdesk/internal/reply"
	"github.com/garyellow/ptc-frontdesk/internal/stringutil"
)

// Action is an alias for the LINE SDK action interface for convenience.
type Action = messaging_api.ActionInterface

// NewTextMessage creates a text message, truncated to the LINE limit.
func NewTextMessage(text string) *messaging_api.TextMessage {
	if len([]rune(text)) > MaxTextMessageLength {
		text = stringutil.Truncate(text, MaxTextMessageLength-1) + "…"
	}
	return &messaging_api.TextMessage{Text: text}
}

// NewMessageAction creates an action that sends text when tapped.
// Labels longer than the LINE limit are cut.
func NewMessageAction(label, text string) Action {
	return &messaging_api.MessageAction{
		Label: stringutil.Truncate(label, MaxQuickReplyLabel),
		Text:  text,
	}
}

// NewQuickReply wraps actions as quick reply buttons, at most 13.
func NewQuickReply(actions ...Action) *messaging_api.QuickReply {
	if len(actions) > MaxQuickReplyItemCount {
		actions = actions[:MaxQuickReplyItemCount]
	}
	items := make([]messaging_api.QuickReplyItem, len(actions))
	for i, a := range actions {
		items[i] = messaging_api.QuickReplyItem{Action: a}
	}
	return &messaging_api.QuickReply{Items: items}
}

// QuickReplyTopics offers the topics the assistant can answer plus a reset.
func QuickReplyTopics() *messaging_api.QuickReply {
	topics := reply.Topics()
	actions := make([]Action, 0, len(topics))
	for _, t := range topics {
		actions = append(actions, NewMessageAction(t.Label, t.Text))
	}
	return NewQuickReply(actions...)
}

// NewReply builds the text message for an answer with topic buttons attached.
func NewReply(text string) *messaging_api.TextMessage {
	msg := NewTextMessage(text)
	msg.QuickReply = QuickReplyTopics()
	return msg
}
