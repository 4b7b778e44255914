package recurrence

import "time"

// Step advances an occurrence start to the next one.
type Step func(time.Time) time.Time

// Rule pairs a step with the number of instances a series holds, template included.
type Rule struct {
	Count int
	Step  Step
}

func addDays(n int) Step {
	return func(t time.Time) time.Time { return t.AddDate(0, 0, n) }
}

// addMonths relies on AddDate normalisation, so Jan 31 + 1 month lands on Mar 3 (Mar 2 in leap years).
func addMonths(n int) Step {
	return func(t time.Time) time.Time { return t.AddDate(0, n, 0) }
}

func addYears(n int) Step {
	return func(t time.Time) time.Time { return t.AddDate(n, 0, 0) }
}

func nextMatching(match func(time.Weekday) bool) Step {
	return func(t time.Time) time.Time {
		next := t.AddDate(0, 0, 1)
		for !match(next.Weekday()) {
			next = next.AddDate(0, 0, 1)
		}
		return next
	}
}

func isWeekend(d time.Weekday) bool { return d == time.Saturday || d == time.Sunday }
func isWeekday(d time.Weekday) bool { return !isWeekend(d) }

func noop(t time.Time) time.Time { return t }

var steps = map[Pattern]Step{
	Daily:    addDays(1),
	Weekly:   addDays(7),
	Biweekly: addDays(14),
	Monthly:  addMonths(1),
	Yearly:   addYears(1),
	Weekday:  nextMatching(isWeekday),
	Weekend:  nextMatching(isWeekend),
}

var creationCounts = map[Pattern]int{
	Daily:    30,
	Weekly:   12,
	Biweekly: 12,
	Monthly:  12,
	Yearly:   5,
	Weekday:  20,
	Weekend:  8,
}

const unmatchedCount = 5

// Converting an existing task uses a narrower table than creation.
// TODO: confirm with product whether conversion should share creationCounts.
const (
	conversionDailyCount = 30
	conversionOtherCount = 8
)

// CreationRule returns the rule used when a series is created from scratch.
// Unknown patterns get a five-instance no-op rule.
func CreationRule(p Pattern) Rule {
	step, ok := steps[p]
	if !ok {
		return Rule{Count: unmatchedCount, Step: noop}
	}
	return Rule{Count: creationCounts[p], Step: step}
}

// ConversionRule returns the rule used when an existing task becomes recurring.
func ConversionRule(p Pattern) Rule {
	step, ok := steps[p]
	if !ok {
		step = noop
	}
	if p == Daily {
		return Rule{Count: conversionDailyCount, Step: step}
	}
	return Rule{Count: conversionOtherCount, Step: step}
}
