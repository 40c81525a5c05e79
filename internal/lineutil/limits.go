package lineutil

// LINE API limits (rune count)
// References: https://developers.line.biz/en/reference/messaging-api/
const (
	MaxTextMessageLength   = 5000 // Text message max content length
	MaxMessagesPerReply    = 5    // Messages in one reply request
	MaxQuickReplyItemCount = 13   // Max items in a quick reply
	MaxQuickReplyLabel     = 20   // Max label length for quick reply item
	MinReplyTokenLength    = 10   // Shorter tokens are never valid
)
