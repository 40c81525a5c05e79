package intent

import (
	"regexp"

	"github.com/garyellow/ptc-frontdesk/internal/errors"
)

type compiledRule struct {
	kind     Kind
	priority int
	patterns []*regexp.Regexp
}

func (r compiledRule) score(text string) int {
	n := 0
	for _, re := range r.patterns {
		if re.MatchString(text) {
			n++
		}
	}
	return n
}

type compiledGoalRule struct {
	goal     Goal
	patterns []*regexp.Regexp
}

// Match is the outcome of Classify.
type Match struct {
	Kind  Kind
	Score int // number of matching patterns of the winning rule; 0 for fallback
}

// Classifier holds the compiled rule tables. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	rules    []compiledRule
	goals    []compiledGoalRule
	medical  []*regexp.Regexp
	warnings []error
}

// NewClassifier compiles rules and goal rules. Malformed patterns are
// skipped and reported by Warnings; they never make construction fail.
// A KindGoal rule is synthesized from the union of all goal patterns.
func NewClassifier(rules []Rule, goalRules []GoalRule) *Classifier {
	c := &Classifier{}

	for _, r := range rules {
		cr := compiledRule{kind: r.Kind, priority: r.Priority, patterns: c.compile(r.Kind.String(), r.Patterns)}
		c.rules = append(c.rules, cr)
		if r.Kind == KindMedical {
			c.medical = append(c.medical, cr.patterns...)
		}
	}

	goalRule := compiledRule{kind: KindGoal, priority: goalPriority}
	for _, g := range goalRules {
		cg := compiledGoalRule{goal: g.Goal, patterns: c.compile("goal_"+g.Goal.String(), g.Patterns)}
		c.goals = append(c.goals, cg)
		goalRule.patterns = append(goalRule.patterns, cg.patterns...)
	}
	if len(goalRule.patterns) > 0 {
		c.rules = append(c.rules, goalRule)
	}

	return c
}

// Default returns a classifier over the built-in tables.
func Default() *Classifier {
	return NewClassifier(DefaultRules(), DefaultGoalRules())
}

func (c *Classifier) compile(rule string, patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			c.warnings = append(c.warnings, errors.NewPatternError(rule, p, err))
			continue
		}
		out = append(out, re)
	}
	return out
}

// Warnings returns one *errors.PatternError per skipped pattern.
func (c *Classifier) Warnings() []error {
	return append([]error(nil), c.warnings...)
}

// Classify returns the best-scoring rule for normalized text. Ties go to
// the lower priority number; no match yields KindFallback.
func (c *Classifier) Classify(normalized string) Match {
	best := Match{Kind: KindFallback}
	bestPriority := 0
	if normalized == "" {
		return best
	}

	for _, r := range c.rules {
		s := r.score(normalized)
		if s == 0 {
			continue
		}
		if s > best.Score || (s == best.Score && r.priority < bestPriority) {
			best = Match{Kind: r.kind, Score: s}
			bestPriority = r.priority
		}
	}
	return best
}

// InferGoal returns the goal whose patterns match most often, ties in
// table order. ok is false when no goal pattern matches.
func (c *Classifier) InferGoal(normalized string) (goal Goal, ok bool) {
	bestScore := 0
	for _, g := range c.goals {
		s := 0
		for _, re := range g.patterns {
			if re.MatchString(normalized) {
				s++
			}
		}
		if s > bestScore {
			goal, bestScore = g.goal, s
		}
	}
	return goal, bestScore > 0
}

// HasMedicalMarker reports whether normalized text mentions a symptom or
// medical term, independent of the winning intent.
func (c *Classifier) HasMedicalMarker(normalized string) bool {
	for _, re := range c.medical {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}
