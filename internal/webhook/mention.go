package webhook

import (
	"slices"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/ptc-frontdesk/internal/stringutil"
)

// isBotMentioned reports whether a UserMentionee with IsSelf is present.
func isBotMentioned(textMsg webhook.TextMessageContent) bool {
	if textMsg.Mention == nil {
		return false
	}
	return slices.ContainsFunc(textMsg.Mention.Mentionees, func(m webhook.MentioneeInterface) bool {
		u, ok := m.(webhook.UserMentionee)
		return ok && u.IsSelf
	})
}

type mentionSpan struct {
	index  int
	length int
}

// removeBotMentions cuts every self mention out of text. LINE indexes are
// rune offsets, so spans are removed back to front on a rune slice.
func removeBotMentions(text string, mention *webhook.Mention) string {
	if mention == nil {
		return text
	}

	var spans []mentionSpan
	for _, m := range mention.Mentionees {
		if u, ok := m.(webhook.UserMentionee); ok && u.IsSelf {
			spans = append(spans, mentionSpan{index: int(u.Index), length: int(u.Length)})
		}
	}
	if len(spans) == 0 {
		return text
	}

	slices.SortFunc(spans, func(a, b mentionSpan) int { return b.index - a.index })

	runes := []rune(text)
	for _, s := range spans {
		start := max(s.index, 0)
		end := min(s.index+s.length, len(runes))
		if start >= end {
			continue
		}
		runes = append(runes[:start], runes[end:]...)
	}

	return stringutil.CollapseWhitespace(string(runes))
}
