package ledger

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestLoadMissingLedgerIsEmpty(t *testing.T) {
	store := NewStore(t.TempDir())

	recs, err := store.Load("AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(recs) != 0 {
		t.Errorf("Load() returned %d records, want 0", len(recs))
	}
}

func TestAppendAndLoadRoundTrip(t *testing.T) {
	store := NewStore(t.TempDir())

	rec := Record{
		Date:          day("2024-03-20"),
		Status:        StatusComplete,
		ExpectedBars:  390,
		ActualBars:    390,
		LastTimestamp: time.Date(2024, 3, 20, 20, 59, 0, 0, time.UTC),
		RetryCount:    1,
		RunID:         "run-1",
	}
	if err := store.Append("AAPL", rec); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	recs, err := store.Load("AAPL")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(recs) != 1 {
		t.Fatalf("Load() returned %d records, want 1", len(recs))
	}

	got := recs[0]
	if got.DateKey() != "2024-03-20" {
		t.Errorf("date = %s, want 2024-03-20", got.DateKey())
	}
	if got.Status != StatusComplete {
		t.Errorf("status = %s, want COMPLETE", got.Status)
	}
	if got.ExpectedBars != 390 || got.ActualBars != 390 {
		t.Errorf("bars = %d/%d, want 390/390", got.ActualBars, got.ExpectedBars)
	}
	if !got.LastTimestamp.Equal(rec.LastTimestamp) {
		t.Errorf("last_timestamp = %v, want %v", got.LastTimestamp, rec.LastTimestamp)
	}
	if got.RunID != "run-1" {
		t.Errorf("run_id = %q, want run-1", got.RunID)
	}
}

func TestLatestByDateLaterRowsShadowEarlier(t *testing.T) {
	store := NewStore(t.TempDir())

	first := Record{
		Date:         day("2024-03-19"),
		Status:       StatusError,
		ExpectedBars: 390,
		ErrorMessage: "timeout",
		RetryCount:   3,
		RunID:        "run-1",
	}
	second := Record{
		Date:         day("2024-03-19"),
		Status:       StatusComplete,
		ExpectedBars: 390,
		ActualBars:   390,
		RetryCount:   1,
		RunID:        "run-2",
	}
	for _, r := range []Record{first, second} {
		if err := store.Append("MSFT", r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	latest, err := store.LatestByDate("MSFT")
	if err != nil {
		t.Fatalf("LatestByDate() error = %v", err)
	}
	if len(latest) != 1 {
		t.Fatalf("LatestByDate() returned %d dates, want 1", len(latest))
	}
	if got := latest["2024-03-19"]; got.Status != StatusComplete || got.RunID != "run-2" {
		t.Errorf("latest record = %s/%s, want COMPLETE/run-2", got.Status, got.RunID)
	}

	// The append-only log still holds both rows.
	recs, err := store.Load("MSFT")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(recs) != 2 {
		t.Errorf("Load() returned %d records, want 2", len(recs))
	}
}

func TestConsecutiveFailures(t *testing.T) {
	tests := []struct {
		name string
		recs []Record
		want int
	}{
		{
			name: "empty ledger",
			want: 0,
		},
		{
			name: "errors on the newest dates",
			recs: []Record{
				{Date: day("2024-03-18"), Status: StatusComplete, ExpectedBars: 390, ActualBars: 390},
				{Date: day("2024-03-19"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout"},
				{Date: day("2024-03-20"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout"},
			},
			want: 2,
		},
		{
			name: "success on newest date resets the streak",
			recs: []Record{
				{Date: day("2024-03-19"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout"},
				{Date: day("2024-03-20"), Status: StatusComplete, ExpectedBars: 390, ActualBars: 390},
			},
			want: 0,
		},
		{
			name: "holiday breaks the streak",
			recs: []Record{
				{Date: day("2024-03-18"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout"},
				{Date: day("2024-03-19"), Status: StatusHoliday},
				{Date: day("2024-03-20"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout"},
			},
			want: 1,
		},
		{
			name: "retry overwrites an old error",
			recs: []Record{
				{Date: day("2024-03-20"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout"},
				{Date: day("2024-03-20"), Status: StatusComplete, ExpectedBars: 390, ActualBars: 390},
			},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(t.TempDir())
			for _, r := range tt.recs {
				if err := store.Append("SPY", r); err != nil {
					t.Fatalf("Append() error = %v", err)
				}
			}

			got, err := store.ConsecutiveFailures("SPY")
			if err != nil {
				t.Fatalf("ConsecutiveFailures() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ConsecutiveFailures() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestLoadCorruptLedger(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{
			name:    "unknown status",
			content: "date,status,expected_bars,actual_bars,last_timestamp,error_message,retry_count,run_id,recorded_at\n2024-03-20,DONE,390,390,,,1,run-1,\n",
		},
		{
			name:    "negative bar count",
			content: "date,status,expected_bars,actual_bars,last_timestamp,error_message,retry_count,run_id,recorded_at\n2024-03-20,COMPLETE,390,-5,,,1,run-1,\n",
		},
		{
			name:    "unparseable date",
			content: "date,status,expected_bars,actual_bars,last_timestamp,error_message,retry_count,run_id,recorded_at\nnot-a-date,COMPLETE,390,390,,,1,run-1,\n",
		},
		{
			name:    "wrong header",
			content: "symbol,status\nAAPL,COMPLETE\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			if err := os.MkdirAll(filepath.Join(dir, "AAPL"), 0o755); err != nil {
				t.Fatal(err)
			}
			path := filepath.Join(dir, "AAPL", "bar_status.csv")
			if err := os.WriteFile(path, []byte(tt.content), 0o644); err != nil {
				t.Fatal(err)
			}

			_, err := NewStore(dir).Load("AAPL")
			if !errors.Is(err, ErrCorrupt) {
				t.Errorf("Load() error = %v, want ErrCorrupt", err)
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	store := NewStore(t.TempDir())
	recs := []Record{
		{Date: day("2024-03-15"), Status: StatusComplete, ExpectedBars: 390, ActualBars: 390},
		{Date: day("2024-03-18"), Status: StatusEarlyClose, ExpectedBars: 210, ActualBars: 210},
		{Date: day("2024-03-19"), Status: StatusHoliday},
		{Date: day("2024-03-20"), Status: StatusError, ExpectedBars: 390, ErrorMessage: "timeout", RetryCount: 3},
	}
	for _, r := range recs {
		if err := store.Append("QQQ", r); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	sum, err := store.Summarize("QQQ")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if sum.Total != 4 {
		t.Errorf("Total = %d, want 4", sum.Total)
	}
	if sum.Completed != 2 {
		t.Errorf("Completed = %d, want 2 (COMPLETE + EARLY_CLOSE)", sum.Completed)
	}
	if sum.Holidays != 1 || sum.Errors != 1 {
		t.Errorf("Holidays/Errors = %d/%d, want 1/1", sum.Holidays, sum.Errors)
	}
	if want := 2.0 / 3.0 * 100; sum.SuccessRate < want-0.01 || sum.SuccessRate > want+0.01 {
		t.Errorf("SuccessRate = %.2f, want %.2f", sum.SuccessRate, want)
	}
	if sum.OldestDate != "2024-03-15" || sum.NewestDate != "2024-03-20" {
		t.Errorf("date span = %s..%s, want 2024-03-15..2024-03-20", sum.OldestDate, sum.NewestDate)
	}
}

func TestSymbolsListsLedgerDirs(t *testing.T) {
	store := NewStore(t.TempDir())
	for _, sym := range []string{"MSFT", "AAPL"} {
		if err := store.Append(sym, Record{Date: day("2024-03-20"), Status: StatusHoliday}); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	symbols, err := store.Symbols()
	if err != nil {
		t.Fatalf("Symbols() error = %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "AAPL" || symbols[1] != "MSFT" {
		t.Errorf("Symbols() = %v, want [AAPL MSFT]", symbols)
	}
}
