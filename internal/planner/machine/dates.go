package machine

import (
	"fmt"
	"time"

	"github.com/tripflow-core/server/internal/planner/model"
)

// NormalizeParameters repairs date fields in tool parameters before
// dispatch. Dates already in the future pass through unchanged, so the
// function is idempotent. Dates in the past get the smallest year shift
// that lands them on or after today while keeping month and day intact.
// Anything it cannot repair without inventing data comes back as a flag
// instead of a silent rewrite: unparseable values and reversed ranges
// are reported, never guessed at or swapped.
func NormalizeParameters(params map[string]any, spec model.DateSpec, now time.Time) (map[string]any, []string) {
	if len(spec.Fields) == 0 {
		return params, nil
	}

	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var flags []string

	for _, field := range spec.Fields {
		raw, ok := out[field]
		if !ok || raw == nil {
			continue
		}
		s, ok := raw.(string)
		if !ok || s == "" {
			flags = append(flags, fmt.Sprintf("%s: %v is not a date string", field, raw))
			continue
		}
		d, err := time.Parse(model.DateLayout, s)
		if err != nil {
			flags = append(flags, fmt.Sprintf("%s: %q is not a valid YYYY-MM-DD date", field, s))
			continue
		}
		if !d.Before(today) {
			continue
		}
		shifted, ok := shiftForward(d, today)
		if !ok {
			flags = append(flags, fmt.Sprintf("%s: %q cannot be moved to a future date", field, s))
			continue
		}
		out[field] = shifted.Format(model.DateLayout)
	}

	for _, r := range spec.Ranges {
		from, okFrom := dateValue(out[r[0]])
		to, okTo := dateValue(out[r[1]])
		if !okFrom || !okTo {
			continue
		}
		if from.After(to) {
			flags = append(flags, fmt.Sprintf("%s %s is after %s %s",
				r[0], from.Format(model.DateLayout), r[1], to.Format(model.DateLayout)))
		}
	}

	return out, flags
}

// shiftForward returns the earliest date on or after today with the same
// month and day as d. Feb 29 only lands on leap years, so the search
// walks forward until the combination exists.
func shiftForward(d, today time.Time) (time.Time, bool) {
	for year := today.Year(); year <= today.Year()+8; year++ {
		c := time.Date(year, d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		if c.Month() != d.Month() || c.Day() != d.Day() {
			continue
		}
		if !c.Before(today) {
			return c, true
		}
	}
	return time.Time{}, false
}

func dateValue(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, false
	}
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
