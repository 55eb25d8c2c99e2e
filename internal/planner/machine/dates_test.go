package machine

import (
	"reflect"
	"testing"
	"time"

	"github.com/tripflow-core/server/internal/planner/model"
)

var normNow = time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)

func TestNormalizeParametersShiftsPastDates(t *testing.T) {
	spec := model.DateSpec{Fields: []string{"date"}}

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"future date untouched", "2026-11-02", "2026-11-02"},
		{"today untouched", "2026-03-10", "2026-03-10"},
		{"stale year moves to current year", "2024-05-01", "2026-05-01"},
		{"earlier this year moves to next year", "2026-01-15", "2027-01-15"},
		{"leap day lands on next leap year", "2024-02-29", "2028-02-29"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, flags := NormalizeParameters(map[string]any{"date": tt.in}, spec, normNow)
			if len(flags) != 0 {
				t.Fatalf("unexpected flags: %v", flags)
			}
			if got := out["date"]; got != tt.want {
				t.Errorf("date = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNormalizeParametersIsIdempotent(t *testing.T) {
	spec := model.DateSpec{
		Fields: []string{"check_in", "check_out"},
		Ranges: [][2]string{{"check_in", "check_out"}},
	}
	params := map[string]any{"check_in": "2023-06-01", "check_out": "2023-06-05", "city": "Shanghai"}

	once, flags := NormalizeParameters(params, spec, normNow)
	if len(flags) != 0 {
		t.Fatalf("first pass flags: %v", flags)
	}
	twice, flags := NormalizeParameters(once, spec, normNow)
	if len(flags) != 0 {
		t.Fatalf("second pass flags: %v", flags)
	}
	if !reflect.DeepEqual(once, twice) {
		t.Errorf("second pass changed output: %v != %v", twice, once)
	}
	if twice["city"] != "Shanghai" {
		t.Errorf("non-date field modified: %v", twice["city"])
	}
}

func TestNormalizeParametersFlagsInsteadOfGuessing(t *testing.T) {
	spec := model.DateSpec{
		Fields: []string{"check_in", "check_out"},
		Ranges: [][2]string{{"check_in", "check_out"}},
	}

	t.Run("unparseable date", func(t *testing.T) {
		out, flags := NormalizeParameters(map[string]any{"check_in": "next friday"}, spec, normNow)
		if len(flags) != 1 {
			t.Fatalf("flags = %v, want one", flags)
		}
		if out["check_in"] != "next friday" {
			t.Errorf("unparseable value rewritten to %v", out["check_in"])
		}
	})

	t.Run("non-string value", func(t *testing.T) {
		_, flags := NormalizeParameters(map[string]any{"check_in": 20260401}, spec, normNow)
		if len(flags) != 1 {
			t.Fatalf("flags = %v, want one", flags)
		}
	})

	t.Run("reversed range flagged, never swapped", func(t *testing.T) {
		in := map[string]any{"check_in": "2026-07-10", "check_out": "2026-07-03"}
		out, flags := NormalizeParameters(in, spec, normNow)
		if len(flags) != 1 {
			t.Fatalf("flags = %v, want one", flags)
		}
		if out["check_in"] != "2026-07-10" || out["check_out"] != "2026-07-03" {
			t.Errorf("range values swapped: %v", out)
		}
	})
}

func TestNormalizeParametersNoDateFields(t *testing.T) {
	params := map[string]any{"origin": "Beijing", "destination": "Shanghai"}
	out, flags := NormalizeParameters(params, model.DateSpec{}, normNow)
	if len(flags) != 0 {
		t.Fatalf("unexpected flags: %v", flags)
	}
	if !reflect.DeepEqual(out, params) {
		t.Errorf("parameters changed: %v", out)
	}
}
