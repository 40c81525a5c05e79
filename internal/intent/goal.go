package intent

import "fmt"

// Goal is the single fitness objective remembered per session.
type Goal int

const (
	GoalUnset Goal = iota
	GoalWeightLoss
	GoalMuscleBuilding
	GoalBackStrengthening
	GoalGeneralFitness
)

var goalInfo = [...]struct{ key, display string }{
	GoalUnset:             {"", ""},
	GoalWeightLoss:        {"weight_loss", "Abnehmen"},
	GoalMuscleBuilding:    {"muscle_building", "Muskelaufbau"},
	GoalBackStrengthening: {"back_strengthening", "Rücken stärken"},
	GoalGeneralFitness:    {"general_fitness", "Allgemeine Fitness"},
}

// String returns the stable key ("weight_loss"), empty for GoalUnset.
func (g Goal) String() string {
	if g < 0 || int(g) >= len(goalInfo) {
		return fmt.Sprintf("Goal(%d)", int(g))
	}
	return goalInfo[g].key
}

// Display returns the German label used in replies.
func (g Goal) Display() string {
	if g < 0 || int(g) >= len(goalInfo) {
		return ""
	}
	return goalInfo[g].display
}

// IsSet reports whether g is a known goal other than GoalUnset.
func (g Goal) IsSet() bool {
	return g > GoalUnset && int(g) < len(goalInfo)
}

// ParseGoal is the inverse of String. The empty string parses as GoalUnset.
func ParseGoal(s string) (Goal, bool) {
	for i, info := range goalInfo {
		if info.key == s {
			return Goal(i), true
		}
	}
	return GoalUnset, false
}

// MarshalText implements encoding.TextMarshaler.
func (g Goal) MarshalText() ([]byte, error) {
	return []byte(g.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (g *Goal) UnmarshalText(b []byte) error {
	parsed, ok := ParseGoal(string(b))
	if !ok {
		return fmt.Errorf("unknown goal %q", b)
	}
	*g = parsed
	return nil
}
