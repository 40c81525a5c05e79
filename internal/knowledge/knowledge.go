// Package knowledge holds the studio's static facts: contact data, opening
// hours, the weekly course plan, the trial session and goal suggestions.
//
// A Base is loaded once at startup and never changes afterwards; every
// accessor returns a copy.
package knowledge

import (
	_ "embed"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultDocument []byte

// Weekdays lists the German weekday names in calendar order.
var Weekdays = []string{"Montag", "Dienstag", "Mittwoch", "Donnerstag", "Freitag", "Samstag", "Sonntag"}

// WeekdayIndex returns the position of day in Weekdays, or -1.
func WeekdayIndex(day string) int {
	return slices.Index(Weekdays, day)
}

// Studio is the studio's identity and contact data.
type Studio struct {
	Name         string `yaml:"name"`
	PhoneDisplay string `yaml:"phone_display"`
	PhoneTel     string `yaml:"phone_tel"`
	Address      string `yaml:"address"`
	Parking      string `yaml:"parking"`
}

// Hours is one opening-hours group: several weekdays sharing a time range.
type Hours struct {
	Days  []string `yaml:"days"`
	Open  string   `yaml:"open"`
	Close string   `yaml:"close"`
}

// Line renders the group the way it appears in replies, e.g.
// "Dienstag & Donnerstag: 09:00–20:00 Uhr".
func (h Hours) Line() string {
	days := strings.Join(h.Days, ", ")
	if len(h.Days) == 2 {
		days = h.Days[0] + " & " + h.Days[1]
	}
	return fmt.Sprintf("%s: %s–%s Uhr", days, h.Open, h.Close)
}

// Course is one weekly course slot.
type Course struct {
	Day   string `yaml:"day"`
	Start string `yaml:"start"`
	End   string `yaml:"end"`
	Title string `yaml:"title"`
}

// TimeRange returns "HH:MM–HH:MM".
func (c Course) TimeRange() string {
	return c.Start + "–" + c.End
}

// Trial describes the free trial session.
type Trial struct {
	Duration string `yaml:"duration"`
	Included string `yaml:"included"`
	Options  string `yaml:"options"`
	Price    string `yaml:"price"`
}

// Suggestion is a recommended option for a goal. Course, when set, names a
// course title from the schedule.
type Suggestion struct {
	Text   string `yaml:"text"`
	Course string `yaml:"course,omitempty"`
}

type document struct {
	Studio   Studio                  `yaml:"studio"`
	Hours    []Hours                 `yaml:"opening_hours"`
	Courses  []Course                `yaml:"courses"`
	Trial    Trial                   `yaml:"trial"`
	Features []string                `yaml:"features"`
	Goals    map[string][]Suggestion `yaml:"goals"`
}

// Base is the immutable knowledge base.
type Base struct {
	doc document
}

// Default parses the embedded knowledge base.
func Default() (*Base, error) {
	return Parse(defaultDocument)
}

// MustDefault is Default for tests and static initialisation.
func MustDefault() *Base {
	b, err := Default()
	if err != nil {
		panic(err)
	}
	return b
}

// Load reads a knowledge base override from path. An empty path returns
// the embedded default.
func Load(path string) (*Base, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML knowledge document.
func Parse(data []byte) (*Base, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode knowledge: %w", err)
	}
	b := &Base{doc: doc}
	if err := b.Validate(); err != nil {
		return nil, err
	}
	return b, nil
}

// Studio returns the contact data.
func (b *Base) Studio() Studio {
	return b.doc.Studio
}

// Hours returns the opening-hours groups in display order.
func (b *Base) Hours() []Hours {
	out := make([]Hours, len(b.doc.Hours))
	for i, h := range b.doc.Hours {
		h.Days = slices.Clone(h.Days)
		out[i] = h
	}
	return out
}

// HoursLines renders every opening-hours group, one per line.
func (b *Base) HoursLines() []string {
	lines := make([]string, len(b.doc.Hours))
	for i, h := range b.doc.Hours {
		lines[i] = h.Line()
	}
	return lines
}

// HoursFor returns the hours group containing day.
func (b *Base) HoursFor(day string) (Hours, bool) {
	for _, h := range b.doc.Hours {
		if slices.Contains(h.Days, day) {
			h.Days = slices.Clone(h.Days)
			return h, true
		}
	}
	return Hours{}, false
}

// Courses returns the weekly plan in weekday order, then by start time.
func (b *Base) Courses() []Course {
	return slices.Clone(b.doc.Courses)
}

// CoursesByTitle returns all slots of the named course in schedule order.
func (b *Base) CoursesByTitle(title string) []Course {
	var out []Course
	for _, c := range b.doc.Courses {
		if strings.EqualFold(c.Title, title) {
			out = append(out, c)
		}
	}
	return out
}

// Trial returns the trial session description.
func (b *Base) Trial() Trial {
	return b.doc.Trial
}

// Features returns the amenity list.
func (b *Base) Features() []string {
	return slices.Clone(b.doc.Features)
}

// Suggestions returns the options for a goal key such as "weight_loss".
// Unknown or empty keys yield nil.
func (b *Base) Suggestions(goal string) []Suggestion {
	return slices.Clone(b.doc.Goals[goal])
}
