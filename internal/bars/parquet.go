package bars

import (
	"bytes"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// EncodeDay serializes one day of bars to parquet bytes.
func EncodeDay(symbol string, date time.Time, runID string, bs []Bar) ([]byte, error) {
	rows := make([]Row, len(bs))
	now := time.Now().UTC()
	dateStr := date.Format("2006-01-02")

	for i, b := range bs {
		rows[i] = Row{
			Time:       b.Time.UTC(),
			Open:       b.Open,
			High:       b.High,
			Low:        b.Low,
			Close:      b.Close,
			Volume:     b.Volume,
			Symbol:     symbol,
			Date:       dateStr,
			IngestedAt: now,
			RunID:      runID,
		}
	}

	buf := new(bytes.Buffer)
	w := parquet.NewGenericWriter[Row](buf)
	if _, err := w.Write(rows); err != nil {
		return nil, fmt.Errorf("write parquet rows: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close parquet writer: %w", err)
	}

	return buf.Bytes(), nil
}

// DecodeDay reads a parquet day file back into bars.
func DecodeDay(data []byte) ([]Bar, error) {
	rows, err := parquet.Read[Row](bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("read parquet rows: %w", err)
	}

	bs := make([]Bar, len(rows))
	for i, r := range rows {
		bs[i] = Bar{
			Time:   r.Time,
			Open:   r.Open,
			High:   r.High,
			Low:    r.Low,
			Close:  r.Close,
			Volume: r.Volume,
		}
	}
	return bs, nil
}
