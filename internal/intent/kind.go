// Package intent classifies normalized user text into one topic and infers
// the user's fitness goal.
//
// Classification is best-match-by-score: every rule is evaluated, the rule
// with the most matching patterns wins and ties go to the lower priority
// number. Goal inference is a separate pass over the same text.
package intent

import "fmt"

// Kind is the closed set of topics a message can be answered with.
type Kind int

const (
	KindFallback Kind = iota
	KindMedical
	KindPricing
	KindTrial
	KindInfo
	KindCourses
	KindFeatures
	KindGoal
)

var kindNames = [...]string{
	KindFallback: "fallback",
	KindMedical:  "medical",
	KindPricing:  "pricing",
	KindTrial:    "trial",
	KindInfo:     "info",
	KindCourses:  "courses",
	KindFeatures: "features",
	KindGoal:     "goal",
}

// Kinds returns every kind, fallback first.
func Kinds() []Kind {
	out := make([]Kind, len(kindNames))
	for i := range kindNames {
		out[i] = Kind(i)
	}
	return out
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind is the inverse of String.
func ParseKind(s string) (Kind, bool) {
	for i, name := range kindNames {
		if name == s {
			return Kind(i), true
		}
	}
	return KindFallback, false
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, ok := ParseKind(string(b))
	if !ok {
		return fmt.Errorf("unknown intent %q", b)
	}
	*k = parsed
	return nil
}
