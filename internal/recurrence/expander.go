// Package recurrence expands a task template into the concrete instances of
// a recurring series. It performs no I/O and is safe for concurrent use.
package recurrence

import "time"

// Template carries the timestamps of the task a series is generated from.
type Template struct {
	Start *time.Time
	End   *time.Time
}

// Instance is one occurrence of a series. Pointers are never shared between instances.
type Instance struct {
	Start *time.Time
	End   *time.Time
}

func (t Template) hasWindow() bool {
	return t.Start != nil && t.End != nil
}

func (t Template) single() []Instance {
	return []Instance{{Start: copyTime(t.Start), End: copyTime(t.End)}}
}

// Expand produces the full series for a newly created task. Instance 0 is the
// template itself. A template missing either timestamp, or a pattern that does
// not expand, yields exactly one instance equal to the template.
func Expand(tmpl Template, p Pattern) []Instance {
	if !tmpl.hasWindow() || !p.Expands() {
		return tmpl.single()
	}
	return series(*tmpl.Start, *tmpl.End, CreationRule(p))
}

// Continue produces the instances that follow an existing task converted into
// a series, i.e. indices 1..N-1. The existing task stays index 0.
func Continue(tmpl Template, p Pattern) []Instance {
	if !tmpl.hasWindow() || !p.Expands() {
		return nil
	}
	all := series(*tmpl.Start, *tmpl.End, ConversionRule(p))
	return all[1:]
}

func series(start, end time.Time, rule Rule) []Instance {
	duration := end.Sub(start)
	out := make([]Instance, 0, rule.Count)
	for i := 0; i < rule.Count; i++ {
		if i > 0 {
			// end follows start so month and year steps keep the exact duration.
			start = rule.Step(start)
			end = start.Add(duration)
		}
		s, e := start, end
		out = append(out, Instance{Start: &s, End: &e})
	}
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
