package storage

import (
	"regexp"
	"time"
	"unicode"

	"github.com/garyellow/ptc-frontdesk/internal/stringutil"
)

// Placeholders substituted for personal data in the interaction log.
const (
	EmailPlaceholder = "[email]"
	PhonePlaceholder = "[telefon]"
)

var (
	emailPattern = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	// candidates only; phoneLike decides
	phonePattern = regexp.MustCompile(`\+?\d[\d\s/().\-]{5,}\d`)
)

const minPhoneDigits = 7

func phoneLike(s string) bool {
	digits := 0
	for _, r := range s {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	return digits >= minPhoneDigits
}

// Redact replaces e-mail addresses and phone-number-like digit runs.
func Redact(s string) string {
	s = emailPattern.ReplaceAllString(s, EmailPlaceholder)
	return phonePattern.ReplaceAllStringFunc(s, func(m string) string {
		if phoneLike(m) {
			return PhonePlaceholder
		}
		return m
	})
}

// NewInteraction builds a log record from raw user input: redacted, then
// capped to maxChars runes.
func NewInteraction(at time.Time, sessionID, intent, goal, raw string, maxChars int) Interaction {
	return Interaction{
		Timestamp: at.UTC(),
		SessionID: sessionID,
		Intent:    intent,
		Goal:      goal,
		Input:     stringutil.Truncate(Redact(raw), maxChars),
	}
}
