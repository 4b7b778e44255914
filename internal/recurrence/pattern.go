package recurrence

import (
	"fmt"
	"strings"
)

// Pattern names how a task repeats.
type Pattern string

const (
	None     Pattern = "none"
	Daily    Pattern = "daily"
	Weekly   Pattern = "weekly"
	Biweekly Pattern = "biweekly"
	Monthly  Pattern = "monthly"
	Yearly   Pattern = "yearly"
	Weekday  Pattern = "weekday"
	Weekend  Pattern = "weekend"
	// Custom is accepted and stored but has no expansion rule.
	Custom Pattern = "custom"
)

var ErrUnknownPattern = fmt.Errorf("unknown recurrence pattern")

// Patterns lists every value accepted from clients.
func Patterns() []Pattern {
	return []Pattern{Daily, Weekly, Weekday, Weekend, Biweekly, Monthly, Yearly, Custom, None}
}

func ParsePattern(raw string) (Pattern, error) {
	p := Pattern(strings.ToLower(strings.TrimSpace(raw)))
	if p == "" {
		return None, nil
	}
	if !p.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPattern, raw)
	}
	return p, nil
}

func (p Pattern) Valid() bool {
	for _, known := range Patterns() {
		if p == known {
			return true
		}
	}
	return false
}

// Expands reports whether the pattern generates more than the template itself.
func (p Pattern) Expands() bool {
	return p != "" && p != None && p != Custom
}

func (p Pattern) String() string {
	return string(p)
}
