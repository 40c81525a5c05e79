package intent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKind_StringRoundTrip(t *testing.T) {
	t.Parallel()
	for _, k := range Kinds() {
		parsed, ok := ParseKind(k.String())
		require.True(t, ok, k.String())
		assert.Equal(t, k, parsed)
	}
	_, ok := ParseKind("smalltalk")
	assert.False(t, ok)
	assert.Equal(t, "Kind(99)", Kind(99).String())
}

func TestGoal(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Rücken stärken", GoalBackStrengthening.Display())
	assert.Equal(t, "Abnehmen", GoalWeightLoss.Display())
	assert.Equal(t, "", GoalUnset.String())
	assert.False(t, GoalUnset.IsSet())
	assert.True(t, GoalGeneralFitness.IsSet())
	assert.False(t, Goal(42).IsSet())

	g, ok := ParseGoal("muscle_building")
	assert.True(t, ok)
	assert.Equal(t, GoalMuscleBuilding, g)
	g, ok = ParseGoal("")
	assert.True(t, ok)
	assert.Equal(t, GoalUnset, g)
}

func TestGoalAndKind_JSON(t *testing.T) {
	t.Parallel()

	type payload struct {
		Intent Kind `json:"intent"`
		Goal   Goal `json:"goal"`
	}
	data, err := json.Marshal(payload{Intent: KindCourses, Goal: GoalWeightLoss})
	require.NoError(t, err)
	assert.JSONEq(t, `{"intent":"courses","goal":"weight_loss"}`, string(data))

	var p payload
	require.NoError(t, json.Unmarshal([]byte(`{"intent":"medical","goal":""}`), &p))
	assert.Equal(t, KindMedical, p.Intent)
	assert.Equal(t, GoalUnset, p.Goal)

	assert.Error(t, json.Unmarshal([]byte(`{"intent":"nope"}`), &p))
}
