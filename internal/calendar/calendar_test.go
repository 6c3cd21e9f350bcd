package calendar

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestClassifyRegularDay(t *testing.T) {
	cal := New("NYSE")

	day, err := cal.Classify(date("2024-03-20"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !day.IsTradingDay || day.Type != DayRegular {
		t.Errorf("day = %+v, want regular trading day", day)
	}
	if day.ExpectedBars != 390 {
		t.Errorf("ExpectedBars = %d, want 390", day.ExpectedBars)
	}
	if got := day.SessionClose.Sub(day.SessionOpen); got != 390*time.Minute {
		t.Errorf("session length = %s, want 6h30m", got)
	}
}

func TestClassifyHolidayAndWeekend(t *testing.T) {
	cal := New("NYSE")

	tests := []struct {
		name string
		date string
	}{
		{"good friday", "2024-03-29"},
		{"christmas", "2024-12-25"},
		{"saturday", "2024-03-23"},
		{"sunday", "2024-03-24"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			day, err := cal.Classify(date(tt.date))
			if err != nil {
				t.Fatalf("Classify() error = %v", err)
			}
			if day.IsTradingDay || day.Type != DayHoliday || day.ExpectedBars != 0 {
				t.Errorf("day = %+v, want non-trading holiday with 0 bars", day)
			}
		})
	}
}

func TestClassifyEarlyClose(t *testing.T) {
	cal := New("NYSE")

	day, err := cal.Classify(date("2024-11-29"))
	if err != nil {
		t.Fatalf("Classify() error = %v", err)
	}
	if !day.IsTradingDay || day.Type != DayEarlyCloseShort {
		t.Errorf("day = %+v, want short early close", day)
	}
	if day.ExpectedBars != 210 {
		t.Errorf("ExpectedBars = %d, want 210", day.ExpectedBars)
	}
}

func TestClassifyOutsideCoverage(t *testing.T) {
	cal := New("NYSE")

	_, err := cal.Classify(date("1999-06-01"))
	if err == nil {
		t.Fatal("Classify() outside coverage should fail")
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	cal := New("NYSE")

	a, err := cal.Classify(date("2024-07-03"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := cal.Classify(date("2024-07-03"))
	if err != nil {
		t.Fatal(err)
	}
	if a != b {
		t.Errorf("Classify() not deterministic: %+v vs %+v", a, b)
	}
}

func TestTradingDaysSkipsClosures(t *testing.T) {
	cal := New("NYSE")

	// 2024-03-25 (Mon) through 2024-04-01 (Mon): Good Friday 03-29 and the
	// weekend drop out.
	days, err := cal.TradingDays(date("2024-03-25"), date("2024-04-01"))
	if err != nil {
		t.Fatalf("TradingDays() error = %v", err)
	}

	want := []string{"2024-03-25", "2024-03-26", "2024-03-27", "2024-03-28", "2024-04-01"}
	if len(days) != len(want) {
		t.Fatalf("TradingDays() returned %d days, want %d", len(days), len(want))
	}
	for i, w := range want {
		if got := days[i].Format("2006-01-02"); got != w {
			t.Errorf("day %d = %s, want %s", i, got, w)
		}
	}
}

func TestLoadDataFile(t *testing.T) {
	content := `exchange: TEST
years:
  - year: 2024
    holidays:
      - "2024-01-01"
      - "2024-12-25"
    early_closes:
      "2024-12-24": short
      "2024-07-05": long
`
	path := filepath.Join(t.TempDir(), "calendar.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cal, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cal.Exchange() != "TEST" {
		t.Errorf("Exchange() = %s, want TEST", cal.Exchange())
	}

	day, err := cal.Classify(date("2024-07-05"))
	if err != nil {
		t.Fatal(err)
	}
	if day.Type != DayEarlyCloseLong || day.ExpectedBars != 360 {
		t.Errorf("2024-07-05 = %+v, want long early close with 360 bars", day)
	}

	if cal.Covers(date("2025-01-01")) {
		t.Error("Covers() should be false outside the data file's years")
	}
}

func TestLoadRejectsBadDataFiles(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name: "date under wrong year",
			content: `exchange: TEST
years:
  - year: 2024
    holidays: ["2023-12-25"]
`,
		},
		{
			name: "gap between years",
			content: `exchange: TEST
years:
  - year: 2022
    holidays: []
  - year: 2024
    holidays: []
`,
		},
		{
			name: "unknown early close kind",
			content: `exchange: TEST
years:
  - year: 2024
    early_closes:
      "2024-12-24": tiny
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "calendar.yaml")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}
			if _, err := Load(path); err == nil {
				t.Error("Load() should reject the data file")
			}
		})
	}
}
