package webhook

import (
	"testing"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

func self(index, length int32) webhook.UserMentionee {
	return webhook.UserMentionee{Index: index, Length: length, IsSelf: true}
}

func TestIsBotMentioned(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		msg      webhook.TextMessageContent
		expected bool
	}{
		{"No mention", webhook.TextMessageContent{Text: "Hallo"}, false},
		{
			"Self mention",
			webhook.TextMessageContent{
				Text:    "@PTC Kurse?",
				Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4)}},
			},
			true,
		},
		{
			"Other user only",
			webhook.TextMessageContent{
				Text: "@Anna Kurse?",
				Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{
					webhook.UserMentionee{Index: 0, Length: 5, UserId: "U1"},
				}},
			},
			false,
		},
		{
			"All mention",
			webhook.TextMessageContent{
				Text:    "@All Kurse?",
				Mention: &webhook.Mention{Mentionees: []webhook.MentioneeInterface{webhook.AllMentionee{Index: 0, Length: 4}}},
			},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := isBotMentioned(tt.msg); got != tt.expected {
				t.Errorf("isBotMentioned() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestRemoveBotMentions(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		text    string
		mention *webhook.Mention
		want    string
	}{
		{"Nil mention", "Kurse am Montag", nil, "Kurse am Montag"},
		{
			"Leading mention",
			"@PTC Kurse am Montag",
			&webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4)}},
			"Kurse am Montag",
		},
		{
			"Middle mention with umlauts",
			"Öffnungszeiten @PTC bitte",
			&webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(15, 4)}},
			"Öffnungszeiten bitte",
		},
		{
			"Two self mentions",
			"@PTC Preise @PTC",
			&webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(0, 4), self(12, 4)}},
			"Preise",
		},
		{
			"Other user kept",
			"@Anna @PTC Sauna?",
			&webhook.Mention{Mentionees: []webhook.MentioneeInterface{
				webhook.UserMentionee{Index: 0, Length: 5, UserId: "U1"},
				self(6, 4),
			}},
			"@Anna Sauna?",
		},
		{
			"Out of range span ignored",
			"Hallo",
			&webhook.Mention{Mentionees: []webhook.MentioneeInterface{self(10, 4)}},
			"Hallo",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := removeBotMentions(tt.text, tt.mention); got != tt.want {
				t.Errorf("removeBotMentions() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSessionID(t *testing.T) {
	t.Parallel()
	if got := sessionID(webhook.UserSource{UserId: "U1"}); got != "U1" {
		t.Errorf("user source = %q", got)
	}
	if got := sessionID(webhook.GroupSource{GroupId: "G1", UserId: "U1"}); got != "G1" {
		t.Errorf("group source = %q", got)
	}
	if got := sessionID(webhook.RoomSource{RoomId: "R1", UserId: "U1"}); got != "R1" {
		t.Errorf("room source = %q", got)
	}
	if got := sessionID(nil); got != "" {
		t.Errorf("nil source = %q", got)
	}
	if !isPersonalChat(webhook.UserSource{UserId: "U1"}) || isPersonalChat(webhook.GroupSource{GroupId: "G1"}) {
		t.Error("isPersonalChat misclassified source")
	}
}
