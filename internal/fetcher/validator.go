package fetcher

import (
	"fmt"
	"math"
	"time"

	"github.com/intralake/barfetch/internal/bars"
	"github.com/intralake/barfetch/internal/calendar"
)

// Outcome is the validation verdict for one fetched day.
type Outcome struct {
	Accepted bool
	Count    int    // accepted count, or partial count on rejection
	Reason   string // set iff rejected; becomes the ledger error_message
}

func accepted(count int) Outcome {
	return Outcome{Accepted: true, Count: count}
}

func rejected(partial int, format string, args ...any) Outcome {
	return Outcome{Count: partial, Reason: fmt.Sprintf(format, args...)}
}

// Validate decides whether a fetched day is accepted against its calendar
// expectation. Checks run in order and short-circuit on the first failure:
// structural, per-bar numeric relationships, temporal ordering within the
// session window, and finally the exact expected count. A non-trading day
// with zero bars is accepted outright.
func Validate(bs []bars.Bar, day calendar.Day) Outcome {
	if !day.IsTradingDay {
		if len(bs) == 0 {
			return accepted(0)
		}
		return rejected(len(bs), "got %d bars on non-trading day %s",
			len(bs), day.Date.Format("2006-01-02"))
	}

	for i, b := range bs {
		if reason := checkStructural(b); reason != "" {
			return rejected(len(bs), "bar %d: %s", i, reason)
		}
	}

	for i, b := range bs {
		if reason := checkNumeric(b); reason != "" {
			return rejected(len(bs), "bar %d at %s: %s",
				i, b.Time.Format(time.RFC3339), reason)
		}
	}

	for i := range bs {
		if i > 0 && !bs[i].Time.After(bs[i-1].Time) {
			return rejected(len(bs), "bars out of order at index %d: %s then %s",
				i, bs[i-1].Time.Format(time.RFC3339), bs[i].Time.Format(time.RFC3339))
		}
		if bs[i].Time.Before(day.SessionOpen) || !bs[i].Time.Before(day.SessionClose) {
			return rejected(len(bs), "bar %d at %s outside session window [%s, %s)",
				i, bs[i].Time.Format(time.RFC3339),
				day.SessionOpen.Format(time.RFC3339), day.SessionClose.Format(time.RFC3339))
		}
	}

	if len(bs) != day.ExpectedBars {
		return rejected(len(bs), "expected %d bars, got %d", day.ExpectedBars, len(bs))
	}
	return accepted(len(bs))
}

func checkStructural(b bars.Bar) string {
	if b.Time.IsZero() {
		return "missing timestamp"
	}
	for _, v := range []float64{b.Open, b.High, b.Low, b.Close, b.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return "non-finite field"
		}
	}
	return ""
}

func checkNumeric(b bars.Bar) string {
	if b.Open <= 0 || b.High <= 0 || b.Low <= 0 || b.Close <= 0 {
		return "non-positive price"
	}
	if b.High < b.Open || b.High < b.Close || b.High < b.Low {
		return fmt.Sprintf("high %g below another price", b.High)
	}
	if b.Low > b.Open || b.Low > b.Close || b.Low > b.High {
		return fmt.Sprintf("low %g above another price", b.Low)
	}
	if b.Volume < 0 {
		return fmt.Sprintf("negative volume %g", b.Volume)
	}
	return ""
}
