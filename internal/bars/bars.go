// Package bars defines the intraday bar type and the codecs used to persist
// one trading day of bars as a single immutable day file.
package bars

import (
	"time"
)

// Bar is one minute of price/volume data. Time is the open of the minute.
type Bar struct {
	Time   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Row is the parquet row layout for a persisted day file. The raw bar fields
// are the truth; the symbol/date/ingestion columns make day files
// self-describing when read outside this system.
type Row struct {
	// Bar data
	Time   time.Time `parquet:"time,timestamp(millisecond)"`
	Open   float64   `parquet:"open"`
	High   float64   `parquet:"high"`
	Low    float64   `parquet:"low"`
	Close  float64   `parquet:"close"`
	Volume float64   `parquet:"volume"`

	// Identity
	Symbol string `parquet:"symbol"`
	Date   string `parquet:"date"` // "2006-01-02"

	// Ingestion metadata
	IngestedAt time.Time `parquet:"ingested_at,timestamp(millisecond)"`
	RunID      string    `parquet:"run_id"`
}

// SchemaVersion identifies the day-file layout. Increment on breaking change.
const SchemaVersion = "1.0.0"

// LastTimestamp returns the time of the final bar, or the zero time for an
// empty day.
func LastTimestamp(bs []Bar) time.Time {
	if len(bs) == 0 {
		return time.Time{}
	}
	return bs[len(bs)-1].Time
}
