// Package http serves the household JSON API.
//
// This file implements utilities for parsing and validating request data.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"homesplit/internal/core"
)

const maxBodyBytes = 1 << 20

// decodeJSON reads one JSON object into v. Unknown fields and trailing data
// are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: body must contain a single JSON object", errBadRequest)
	}
	return nil
}

// parsePeriodParam reads ?period=YYYY-MM, defaulting to the month of now.
func parsePeriodParam(query url.Values, now time.Time) (core.Period, error) {
	v := strings.TrimSpace(query.Get("period"))
	if v == "" {
		return core.PeriodOf(now), nil
	}
	return core.ParsePeriod(v)
}

// parseClosePeriod reads the period to close, defaulting to the month
// before now.
func parseClosePeriod(v string, now time.Time) (core.Period, error) {
	if v = strings.TrimSpace(v); v == "" {
		return core.PeriodOf(now).Prev(), nil
	}
	return core.ParsePeriod(v)
}

func parseIDParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, r.PathValue(name))
	}
	return id, nil
}

// parseDateField parses YYYY-MM-DD, defaulting to the day of now.
func parseDateField(s string, now time.Time) (core.Date, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		y, m, d := now.Date()
		return core.NewDate(y, int(m), d), nil
	}
	return core.ParseDate(s)
}

// parseOptionalDate parses YYYY-MM-DD; empty is the zero date.
func parseOptionalDate(s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, nil
	}
	return core.ParseDate(s)
}

// parseOverrideAmount accepts zero, which ParseAmount rejects.
func parseOverrideAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "0" || s == "0.00" || s == "0,00" {
		return decimal.Zero, nil
	}
	return core.ParseAmount(s)
}

func parseMembers(in []string) []core.Member {
	out := make([]core.Member, 0, len(in))
	for _, m := range in {
		out = append(out, core.Member(strings.TrimSpace(m)))
	}
	return out
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
