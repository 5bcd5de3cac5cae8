package core

import (
	"errors"
	"testing"
	"time"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Year != 2024 || p.Month != time.February {
		t.Fatalf("got %+v", p)
	}
	if p.End().Day() != 29 {
		t.Fatalf("End() = %s, want leap day", p.End())
	}
	if _, err := ParsePeriod("2024-13"); !errors.Is(err, ErrInvalidPeriod) {
		t.Fatalf("expected ErrInvalidPeriod, got %v", err)
	}
}

func TestPeriodNavigation(t *testing.T) {
	cases := []struct {
		p          Period
		prev, next string
	}{
		{NewPeriod(2025, time.January), "2024-12", "2025-02"},
		{NewPeriod(2025, time.December), "2025-11", "2026-01"},
	}
	for _, tc := range cases {
		if got := tc.p.Prev().String(); got != tc.prev {
			t.Errorf("%s.Prev() = %s, want %s", tc.p, got, tc.prev)
		}
		if got := tc.p.Next().String(); got != tc.next {
			t.Errorf("%s.Next() = %s, want %s", tc.p, got, tc.next)
		}
	}
}

func TestPeriodContainsAndText(t *testing.T) {
	p := NewPeriod(2025, time.March)
	if !p.Contains(NewDate(2025, 3, 31)) || p.Contains(NewDate(2025, 4, 1)) {
		t.Fatal("Contains boundaries wrong")
	}
	b, _ := p.MarshalText()
	var q Period
	if err := q.UnmarshalText(b); err != nil || q != p {
		t.Fatalf("text round trip: %v %+v", err, q)
	}
}
