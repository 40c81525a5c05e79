package intent

import "slices"

// Rule is one row of the intent table. Patterns are RE2 expressions
// evaluated against normalized text (lower case, no diacritics).
type Rule struct {
	Kind     Kind
	Priority int // lower wins ties
	Patterns []string
}

// GoalRule maps patterns to a goal. Rules are listed in tie-break order.
type GoalRule struct {
	Goal     Goal
	Patterns []string
}

// goalPriority is the priority of the synthesized KindGoal rule.
const goalPriority = 7

// Medical markers are mostly plain stems so compounds like "ruckenschmerzen"
// match. "krank" is word-bounded because "krankenkasse" is a billing question.
var medicalPatterns = []string{
	`diagnos`,
	`arzt`,
	`operation`,
	`bandscheibe`,
	`\bherz(?:\b|krank|problem|infarkt|rhythmus|fehler)`,
	`blutdruck`,
	`schmerz`,
	`verletz`,
	`physio`,
	`\b(?:er)?krank(?:e|en|er|es|heit|heiten|ung|ungen)?\b`,
}

var defaultRules = []Rule{
	{Kind: KindMedical, Priority: 1, Patterns: medicalPatterns},
	{Kind: KindPricing, Priority: 2, Patterns: []string{
		`\bpreis(?:e|en)?\b`,
		`\bkost(?:en|et)\b`,
		`\bbeitr(?:ag|age)\b`,
		`\bmitglied(?:schaft)?\b`,
		`\babo\b`,
		`\bvertrag\b`,
		`\btarif(?:e)?\b`,
		`\bgebuhr(?:en)?\b`,
		`€|\beuro\b`,
		`\bteuer\b`,
		`\bgunstig(?:er)?\b`,
		`\bkrankenkasse\b`,
	}},
	{Kind: KindTrial, Priority: 3, Patterns: []string{
		`\bprobetraining\b`,
		`\bprobe\b`,
		`\btesten\b`,
		`\btermin\b`,
		`\bkennenlernen\b`,
		`\berst(?:es)? mal\b`,
		`\bausprobieren\b`,
		`\bschnupper`,
	}},
	{Kind: KindInfo, Priority: 4, Patterns: []string{
		`\boffnungszeit(?:en)?\b`,
		`\bgeoffnet\b`,
		`\boffen\b`,
		`\b(?:habt|hat|haben|seid|ist|sind)\b(?:\s+\w+){0,4}\s+auf\b`,
		`\bwann\b`,
		`\buhr\b`,
		`\badresse\b`,
		`\banfahrt\b`,
		`\bwo\b`,
		`\bpark(?:en|platz|platze)\b`,
		`\b(?:montag|dienstag|mittwoch|donnerstag|freitag|samstag|sonntag)s?\b`,
	}},
	{Kind: KindCourses, Priority: 5, Patterns: []string{
		`\bkurs(?:e|en)?\b`,
		`\bkursplan\b`,
		`\bwelche kurse\b`,
		`\bjumping\b`,
		`\bbauch\b`,
		`\bbeine\b`,
		`\bpo\b`,
		`\bdance\b`,
		`\bvibration(?:straining)?\b`,
		`\bplattenkurs\b`,
	}},
	{Kind: KindFeatures, Priority: 6, Patterns: []string{
		`\bausstattung\b`,
		`\bgerate(?:n)?\b`,
		`\bfreihantel`,
		`\bwellness\b`,
		`\bkorperanalyse\b`,
		`\bsauna\b`,
		`\bangebot(?:e)?\b`,
	}},
}

var defaultGoalRules = []GoalRule{
	{Goal: GoalBackStrengthening, Patterns: []string{
		`\brucken`,
		`\bhaltung\b`,
		`\bverspann`,
		`bandscheibe`,
	}},
	{Goal: GoalWeightLoss, Patterns: []string{
		`\babnehm`,
		`\bgewicht`,
		`\bfett`,
		`\bkalorien\b`,
		`\bfigur\b`,
	}},
	{Goal: GoalMuscleBuilding, Patterns: []string{
		`\bmuskel`,
		`\bkraft`,
		`\bhypertroph`,
		`\baufbau`,
	}},
	{Goal: GoalGeneralFitness, Patterns: []string{
		`\bfit(?:ter)?\b`,
		`\bausdauer\b`,
		`\bkondition\b`,
		`\bgesund(?:heit)?\b`,
		`\bstress\b`,
	}},
}

// DefaultRules returns a copy of the built-in intent table.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	for i, r := range defaultRules {
		r.Patterns = slices.Clone(r.Patterns)
		out[i] = r
	}
	return out
}

// DefaultGoalRules returns a copy of the built-in goal table.
func DefaultGoalRules() []GoalRule {
	out := make([]GoalRule, len(defaultGoalRules))
	for i, r := range defaultGoalRules {
		r.Patterns = slices.Clone(r.Patterns)
		out[i] = r
	}
	return out
}
