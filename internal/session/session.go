// Package session keeps per-conversation memory: the remembered goal and
// the transcript. Stores hand out copies, so a Session value is owned by
// the caller until it is saved again.
package session

import (
	"context"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/garyellow/ptc-frontdesk/internal/intent"
)

// MaxTranscript caps the turns kept per session; older turns are dropped.
const MaxTranscript = 200

// Transcript roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Turn is one transcript entry.
type Turn struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Session is the memory of one conversation.
type Session struct {
	ID         string        `json:"id"`
	Goal       intent.Goal   `json:"goal"`
	Transcript []Turn        `json:"transcript"`
	Asked      []intent.Kind `json:"asked,omitempty"` // tracked topics, first-asked order
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// New returns an empty session with an unset goal.
func New(id string, now time.Time) *Session {
	return &Session{ID: id, CreatedAt: now, UpdatedAt: now}
}

// NewID returns a random session ID.
func NewID() string {
	return uuid.NewString()
}

// RememberGoal overwrites the goal; GoalUnset leaves it untouched.
func (s *Session) RememberGoal(g intent.Goal) {
	if g.IsSet() {
		s.Goal = g
	}
}

// trackedTopics are the topics remembered in Asked.
var trackedTopics = []intent.Kind{intent.KindPricing, intent.KindCourses, intent.KindInfo, intent.KindTrial}

// MarkAsked remembers that a tracked topic came up. Other kinds are ignored.
func (s *Session) MarkAsked(k intent.Kind) {
	if slices.Contains(trackedTopics, k) && !slices.Contains(s.Asked, k) {
		s.Asked = append(s.Asked, k)
	}
}

// HasAsked reports whether topic k came up in this session.
func (s *Session) HasAsked(k intent.Kind) bool {
	return slices.Contains(s.Asked, k)
}

// Append adds a turn and trims the transcript to MaxTranscript.
func (s *Session) Append(role, text string, at time.Time) {
	s.Transcript = append(s.Transcript, Turn{Role: role, Text: text, At: at})
	if over := len(s.Transcript) - MaxTranscript; over > 0 {
		s.Transcript = slices.Delete(s.Transcript, 0, over)
	}
	s.UpdatedAt = at
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.Transcript = slices.Clone(s.Transcript)
	c.Asked = slices.Clone(s.Asked)
	return &c
}

// Store persists sessions.
type Store interface {
	// Get returns a copy of the session or errors.ErrSessionNotFound.
	Get(ctx context.Context, id string) (*Session, error)
	// Save stores a copy of s and refreshes its idle expiry.
	Save(ctx context.Context, s *Session) error
	// Delete removes the session. Deleting a missing session is not an error.
	Delete(ctx context.Context, id string) error
}
