package services

import (
	"fmt"
	"time"

	"homesplit/internal/core"
)

// DuenessChecker decides whether a recurring bill should produce a charge at
// now, given when it last did.
type DuenessChecker interface {
	IsDue(lastExecution, now time.Time, startDate core.Date) bool
}

type DailyChecker struct{}

// IsDue is true once per calendar day.
func (DailyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return lastExecution.Format(time.DateOnly) != now.Format(time.DateOnly)
}

type WeeklyChecker struct{}

// IsDue is true when at least seven days have passed since the last run.
func (WeeklyChecker) IsDue(lastExecution, now time.Time, _ core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	return now.Sub(lastExecution) >= 7*24*time.Hour
}

type MonthlyChecker struct{}

// IsDue is true once a month from the start date's day on. Days missing from
// short months clamp to the last day.
func (MonthlyChecker) IsDue(lastExecution, now time.Time, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() && lastExecution.Month() == now.Month() {
		return false
	}
	return now.Day() >= clampDay(now.Year(), now.Month(), startDate.Day())
}

type YearlyChecker struct{}

// IsDue is true once a year from the start date's month and day on. A 29
// February start clamps to the 28th in common years.
func (YearlyChecker) IsDue(lastExecution, now time.Time, startDate core.Date) bool {
	if lastExecution.IsZero() {
		return true
	}
	if lastExecution.Year() == now.Year() {
		return false
	}
	target := time.Month(startDate.Month())
	switch {
	case now.Month() < target:
		return false
	case now.Month() > target:
		return true
	}
	return now.Day() >= clampDay(now.Year(), target, startDate.Day())
}

func clampDay(year int, month time.Month, day int) int {
	last := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return last
	}
	return day
}

// DuenessRegistry maps repetition types to their checkers.
type DuenessRegistry struct {
	checkers map[core.RepetitionTypes]DuenessChecker
}

// NewDuenessRegistry returns a registry with the four built-in frequencies.
func NewDuenessRegistry() *DuenessRegistry {
	return &DuenessRegistry{checkers: map[core.RepetitionTypes]DuenessChecker{
		core.Daily:   DailyChecker{},
		core.Weekly:  WeeklyChecker{},
		core.Monthly: MonthlyChecker{},
		core.Yearly:  YearlyChecker{},
	}}
}

func (r *DuenessRegistry) Get(frequency core.RepetitionTypes) (DuenessChecker, error) {
	checker, ok := r.checkers[frequency]
	if !ok {
		return nil, fmt.Errorf("unknown repetition type: %s", frequency)
	}
	return checker, nil
}

// Register adds or replaces the checker for frequency.
func (r *DuenessRegistry) Register(frequency core.RepetitionTypes, checker DuenessChecker) {
	r.checkers[frequency] = checker
}
