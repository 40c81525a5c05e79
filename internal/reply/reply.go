// Package reply renders the answer text for a classified message.
//
// Composition is pure string assembly from the knowledge base, the intent
// and the remembered goal. Every reply ends with the contact block.
package reply

import (
	"fmt"
	"slices"
	"strings"

	"github.com/garyellow/ptc-frontdesk/internal/intent"
	"github.com/garyellow/ptc-frontdesk/internal/knowledge"
	"github.com/garyellow/ptc-frontdesk/internal/stringutil"
)

// Fixed sentences that tests and consumers rely on.
const (
	MedicalDisclaimer = "Hinweis: Ich kann keine medizinische Einschätzung geben. " +
		"Wenn Sie akute oder starke Beschwerden haben, lassen Sie das bitte ärztlich abklären."

	PricingPolicy = "Die Beiträge können je nach Laufzeit und Angebot variieren. " +
		"Damit Sie das passende Modell bekommen, empfehle ich Ihnen ein kurzes telefonisches Gespräch oder ein kostenloses Probetraining."

	ClarifyingQuestion = "Gern helfe ich Ihnen weiter. " +
		"Geht es bei Ihnen eher um Kurse, Probetraining, Öffnungszeiten/Anfahrt oder Mitgliedschaft?"

	blockSeparator = "\n\n"
)

const (
	askForGoal      = "Wenn Sie mir Ihr Ziel nennen (z. B. Abnehmen, Rücken, Muskelaufbau), kann ich Ihnen die sinnvollste Option bei uns einordnen."
	signUp          = "Für die Anmeldung melden Sie sich am besten kurz telefonisch."
	signUpTogether  = "Für die Anmeldung melden Sie sich am besten kurz telefonisch – dann finden wir gemeinsam den passenden Rahmen."
	phoneAlternate  = "Alternativ erreichen Sie uns direkt telefonisch."
	trialWelcome    = "Sehr gern – ein Probetraining ist ideal, um unser Studio kennenzulernen."
	trialInvite     = "Wenn Sie möchten, können Sie das bei einem kostenlosen Probetraining in Ruhe kennenlernen."
	trialBook       = "Wenn Sie möchten, können Sie direkt ein kostenloses Probetraining vereinbaren."
	trialCourses    = "Wenn Sie möchten, können Sie Kurse auch im Rahmen eines kostenlosen Probetrainings ausprobieren."
	infoIntro       = "Gern – hier die wichtigsten Infos:"
	coursesIntro    = "Gern – hier ein Überblick über unseren Kursplan:"
	featuresIntro   = "Das erwartet Sie bei uns:"
	gentleStart     = "kann ein ruhiger, gut betreuter Einstieg sehr sinnvoll sein. Wir achten dabei auf saubere Ausführung und steigern nach und nach."
	gentleStartBare = "Ein ruhiger, gut betreuter Einstieg ist bei uns jederzeit möglich. Wir achten dabei auf saubere Ausführung und steigern nach und nach."
)

// Composer renders replies from a knowledge base. It is safe for
// concurrent use.
type Composer struct {
	kb *knowledge.Base
}

// NewComposer returns a Composer over kb.
func NewComposer(kb *knowledge.Base) *Composer {
	return &Composer{kb: kb}
}

// Compose returns the reply for kind. medical prepends the disclaimer
// regardless of kind; goal tailors pricing, course, trial and goal replies.
func (c *Composer) Compose(kind intent.Kind, goal intent.Goal, medical bool) string {
	var blocks []string

	switch kind {
	case intent.KindMedical:
		blocks = c.medical(goal)
	case intent.KindPricing:
		blocks = c.pricing(goal)
	case intent.KindTrial:
		blocks = c.trial(goal)
	case intent.KindInfo:
		blocks = c.info()
	case intent.KindCourses:
		blocks = c.courses(goal)
	case intent.KindFeatures:
		blocks = c.features()
	case intent.KindGoal:
		if goal.IsSet() {
			blocks = c.goal(goal)
		} else {
			blocks = c.fallback()
		}
	case intent.KindFallback:
		blocks = c.fallback()
	default:
		blocks = c.fallback()
	}

	if medical && kind != intent.KindMedical {
		blocks = append([]string{MedicalDisclaimer}, blocks...)
	}
	blocks = append(blocks, c.ContactBlock())

	return strings.TrimSpace(strings.Join(blocks, blockSeparator))
}

// ContactBlock is the phone, address and opening hours footer.
func (c *Composer) ContactBlock() string {
	s := c.kb.Studio()
	return fmt.Sprintf("%s\n%s\n🕒 Öffnungszeiten:\n%s",
		c.PhoneLine(), "📍 Adresse: "+s.Address, strings.Join(c.kb.HoursLines(), "\n"))
}

// PhoneLine is the verbatim phone contact line present in every reply.
func (c *Composer) PhoneLine() string {
	s := c.kb.Studio()
	return fmt.Sprintf("📞 Telefon: %s (%s)", s.PhoneDisplay, s.PhoneTel)
}

// TrialBlock describes the free trial session.
func (c *Composer) TrialBlock() string {
	t := c.kb.Trial()
	return "Probetraining:\n" +
		"• Dauer: " + t.Duration + "\n" +
		"• Betreuung: " + t.Included + "\n" +
		"• Inhalt: " + t.Options + "\n" +
		"• Kosten: " + t.Price
}

// Schedule renders the full weekly course plan, one "• Tag: Zeit Kurs" line
// per slot, in weekday then start time order.
func (c *Composer) Schedule() string {
	return scheduleLines(c.kb.Courses())
}

func scheduleLines(courses []knowledge.Course) string {
	slices.SortStableFunc(courses, func(a, b knowledge.Course) int {
		if d := knowledge.WeekdayIndex(a.Day) - knowledge.WeekdayIndex(b.Day); d != 0 {
			return d
		}
		return strings.Compare(a.Start, b.Start)
	})
	lines := make([]string, len(courses))
	for i, course := range courses {
		lines[i] = fmt.Sprintf("• %s: %s %s", course.Day, course.TimeRange(), course.Title)
	}
	return strings.Join(lines, "\n")
}

func goalPhrase(goal intent.Goal) string {
	return fmt.Sprintf("Da Ihr Ziel „%s“ ist, ", goal.Display())
}

func (c *Composer) suggestionTexts(goal intent.Goal) []string {
	var out []string
	for _, s := range c.kb.Suggestions(goal.String()) {
		out = append(out, s.Text)
	}
	return out
}

// goalSentence names the goal and lists its suggestions. Empty when the
// goal is unset.
func (c *Composer) goalSentence(goal intent.Goal) string {
	texts := c.suggestionTexts(goal)
	if !goal.IsSet() || len(texts) == 0 {
		return ""
	}
	return goalPhrase(goal) + "würden sich z. B. diese Optionen anbieten: " + strings.Join(texts, ", ") + "."
}

func appendNonEmpty(blocks []string, more ...string) []string {
	for _, b := range more {
		if b != "" {
			blocks = append(blocks, b)
		}
	}
	return blocks
}

func (c *Composer) medical(goal intent.Goal) []string {
	start := gentleStartBare
	if goal.IsSet() {
		start = goalPhrase(goal) + gentleStart
	}
	return []string{MedicalDisclaimer, start, trialInvite, c.TrialBlock(), signUpTogether}
}

func (c *Composer) pricing(goal intent.Goal) []string {
	next := c.goalSentence(goal)
	if next == "" {
		next = askForGoal
	}
	return []string{PricingPolicy, next, c.TrialBlock(), signUp}
}

func (c *Composer) trial(goal intent.Goal) []string {
	return appendNonEmpty([]string{trialWelcome, c.TrialBlock()}, c.goalSentence(goal), signUp)
}

func (c *Composer) info() []string {
	s := c.kb.Studio()
	return []string{
		infoIntro,
		"📍 Adresse: " + s.Address,
		"🕒 Öffnungszeiten:\n" + strings.Join(c.kb.HoursLines(), "\n"),
		"🚗 Parken: " + s.Parking,
		trialBook,
		signUp,
	}
}

func (c *Composer) courses(goal intent.Goal) []string {
	blocks := appendNonEmpty([]string{coursesIntro, c.Schedule()}, c.goalSentence(goal))
	return append(blocks, trialCourses, c.TrialBlock(), signUp)
}

func (c *Composer) features() []string {
	features := c.kb.Features()
	lines := make([]string, len(features))
	for i, f := range features {
		lines[i] = "• " + f
	}
	return []string{featuresIntro, strings.Join(lines, "\n"), trialInvite, signUp}
}

func (c *Composer) goal(goal intent.Goal) []string {
	blocks := []string{goalPhrase(goal) + gentleStart}

	suggestions := c.kb.Suggestions(goal.String())
	if len(suggestions) > 0 {
		blocks = append(blocks, "Passend dazu kommen bei uns oft diese Optionen infrage: "+
			strings.Join(c.suggestionTexts(goal), ", ")+".")
	}

	var excerpt []knowledge.Course
	for _, course := range c.kb.Courses() {
		if slices.ContainsFunc(suggestions, func(s knowledge.Suggestion) bool {
			return s.Course != "" && strings.EqualFold(s.Course, course.Title)
		}) {
			excerpt = append(excerpt, course)
		}
	}
	if len(excerpt) > 0 {
		blocks = append(blocks, "Aktuelle Kurszeiten (Auszug):\n"+scheduleLines(excerpt))
	}

	return append(blocks, trialInvite, c.TrialBlock(), signUpTogether)
}

func (c *Composer) fallback() []string {
	return []string{ClarifyingQuestion, phoneAlternate}
}

// Conversation framing shown by the transports, outside of Compose.
const (
	Greeting = "Guten Tag, ich bin der digitale Beratungsassistent des PTC Fitnessstudios Hildesheim. " +
		"Wie kann ich Ihnen helfen?"

	PrivacyNotice = "Bitte geben Sie keine sensiblen Gesundheitsdaten ein. " +
		"Bei akuten Beschwerden wenden Sie sich an medizinisches Fachpersonal. " +
		"Ich gebe keine medizinischen Einschätzungen, sondern allgemeine Hinweise zum Studiostart."

	ResetConfirmation = "Alles klar, wir beginnen ein neues Gespräch."
)

// Topic is a suggested follow-up message with a short button label.
type Topic struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// ResetCommand is the message that starts a new conversation.
const ResetCommand = "neu"

// resetWords start a new conversation when sent on their own (normalized).
var resetWords = []string{ResetCommand, "reset", "neues gesprach", "neustart"}

// IsResetCommand reports whether text asks for a fresh conversation.
func IsResetCommand(text string) bool {
	return slices.Contains(resetWords, stringutil.Normalize(text))
}

// Topics lists the suggestions offered next to a reply, reset last.
func Topics() []Topic {
	return []Topic{
		{Label: "🏋️ Probetraining", Text: "Probetraining"},
		{Label: "📅 Kurse", Text: "Welche Kurse gibt es?"},
		{Label: "🕒 Öffnungszeiten", Text: "Öffnungszeiten"},
		{Label: "💶 Mitgliedschaft", Text: "Mitgliedschaft"},
		{Label: "🔄 Neues Gespräch", Text: ResetCommand},
	}
}

// Welcome is the first message of a new conversation.
func Welcome() string {
	return Greeting + blockSeparator + PrivacyNotice
}

// GoalStatus tells the user which goal is remembered; empty when unset.
func GoalStatus(goal intent.Goal) string {
	if !goal.IsSet() {
		return ""
	}
	return "Merke ich mir: Ziel = " + goal.Display()
}
