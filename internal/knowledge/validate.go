package knowledge

import (
	"errors"
	"fmt"
	"time"
)

// GoalKeys are the goal entries every knowledge base must define.
var GoalKeys = []string{"weight_loss", "muscle_building", "back_strengthening", "general_fitness"}

// Validate checks the invariants replies rely on. All violations are
// reported together.
func (b *Base) Validate() error {
	var errs []error
	d := b.doc

	if d.Studio.Name == "" {
		errs = append(errs, errors.New("studio name is required"))
	}
	if d.Studio.PhoneDisplay == "" || d.Studio.PhoneTel == "" {
		errs = append(errs, errors.New("studio phone is required"))
	}
	if d.Studio.Address == "" {
		errs = append(errs, errors.New("studio address is required"))
	}
	if len(d.Hours) == 0 {
		errs = append(errs, errors.New("opening hours are required"))
	}
	for i, h := range d.Hours {
		if len(h.Days) == 0 {
			errs = append(errs, fmt.Errorf("opening_hours[%d]: no days", i))
		}
		for _, day := range h.Days {
			if WeekdayIndex(day) < 0 {
				errs = append(errs, fmt.Errorf("opening_hours[%d]: unknown weekday %q", i, day))
			}
		}
		errs = append(errs, checkRange(fmt.Sprintf("opening_hours[%d]", i), h.Open, h.Close)...)
	}

	for i, c := range d.Courses {
		name := fmt.Sprintf("courses[%d]", i)
		if WeekdayIndex(c.Day) < 0 {
			errs = append(errs, fmt.Errorf("%s: unknown weekday %q", name, c.Day))
		}
		if c.Title == "" {
			errs = append(errs, fmt.Errorf("%s: title is required", name))
		}
		errs = append(errs, checkRange(name, c.Start, c.End)...)
		if i > 0 && courseLess(c, d.Courses[i-1]) {
			errs = append(errs, fmt.Errorf("%s: schedule must be sorted by weekday and start time", name))
		}
	}

	for _, key := range GoalKeys {
		s := d.Goals[key]
		if len(s) < 2 || len(s) > 3 {
			errs = append(errs, fmt.Errorf("goals.%s: want 2 or 3 suggestions, got %d", key, len(s)))
		}
		for _, sg := range s {
			if sg.Course != "" && len(b.CoursesByTitle(sg.Course)) == 0 {
				errs = append(errs, fmt.Errorf("goals.%s: course %q is not on the schedule", key, sg.Course))
			}
		}
	}

	return errors.Join(errs...)
}

func courseLess(a, b Course) bool {
	if ai, bi := WeekdayIndex(a.Day), WeekdayIndex(b.Day); ai != bi {
		return ai < bi
	}
	return a.Start < b.Start
}

func checkRange(name, from, to string) []error {
	start, err1 := time.Parse("15:04", from)
	end, err2 := time.Parse("15:04", to)
	if err1 != nil || err2 != nil {
		return []error{fmt.Errorf("%s: times must be HH:MM, got %q–%q", name, from, to)}
	}
	if !end.After(start) {
		return []error{fmt.Errorf("%s: end %s is not after start %s", name, to, from)}
	}
	return nil
}
