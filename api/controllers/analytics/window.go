package analytics

import (
	"net/url"
	"strings"
	"time"

	pkgerrors "github.com/PrinceMUGABE/smart-sunflower-production-and-marketing-integration-system-backend/pkg/errors"
)

const (
	dateLayout    = "2006-01-02"
	defaultPreset = "30d"
	day           = 24 * time.Hour
)

var presets = map[string]time.Duration{
	"7d":   7 * day,
	"30d":  30 * day,
	"90d":  90 * day,
	"365d": 365 * day,
}

// clock is swapped in tests.
var clock = func() time.Time { return time.Now().UTC() }

// window is the closed [start, end] interval a dashboard query covers.
type window struct {
	start time.Time
	end   time.Time
}

// parseWindow reads either an explicit start/end pair or a trailing preset
// ending at now. Bounds accept a date or an RFC3339 timestamp; a date-only
// end covers that whole day.
func parseWindow(values url.Values, now time.Time) (window, error) {
	rawStart := strings.TrimSpace(values.Get("start"))
	rawEnd := strings.TrimSpace(values.Get("end"))

	switch {
	case rawStart == "" && rawEnd == "":
		return presetWindow(strings.TrimSpace(values.Get("preset")), now)
	case rawStart == "" || rawEnd == "":
		return window{}, pkgerrors.New(pkgerrors.CodeValidation, "start and end must be provided together")
	}

	start, _, ok := parseBound(rawStart)
	if !ok {
		return window{}, pkgerrors.Validation("start", "must be a date or RFC3339 timestamp")
	}
	end, wholeDay, ok := parseBound(rawEnd)
	if !ok {
		return window{}, pkgerrors.Validation("end", "must be a date or RFC3339 timestamp")
	}
	if wholeDay {
		end = end.Add(day - time.Nanosecond)
	}
	if end.Before(start) {
		return window{}, pkgerrors.New(pkgerrors.CodeValidation, "end must be after start")
	}
	return window{start: start, end: end}, nil
}

func presetWindow(name string, now time.Time) (window, error) {
	if name == "" {
		name = defaultPreset
	}
	span, ok := presets[strings.ToLower(name)]
	if !ok {
		return window{}, pkgerrors.Validation("preset", "must be one of 7d, 30d, 90d, 365d")
	}
	return window{start: now.Add(-span), end: now}, nil
}

// parseBound reports whether value was a bare date alongside the parsed time.
func parseBound(value string) (time.Time, bool, bool) {
	if t, err := time.Parse(dateLayout, value); err == nil {
		return t, true, true
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t.UTC(), false, true
	}
	return time.Time{}, false, false
}
