package webhook

import "github.com/line/line-bot-sdk-go/v8/linebot/webhook"

// sessionID keys the conversation: the group or room for shared chats, the
// user otherwise. Empty for unknown sources.
func sessionID(source webhook.SourceInterface) string {
	switch s := source.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	}
	return ""
}

// isPersonalChat reports whether the source is a 1-on-1 chat.
func isPersonalChat(source webhook.SourceInterface) bool {
	_, ok := source.(webhook.UserSource)
	return ok
}
