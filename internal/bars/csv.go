package bars

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// CSV day-file columns, used by the archive source for replaying previously
// captured days. Times are RFC 3339 in UTC.
var csvHeader = []string{"time", "open", "high", "low", "close", "volume"}

// WriteCSV writes bars as a CSV day file.
func WriteCSV(w io.Writer, bs []Bar) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, b := range bs {
		rec := []string{
			b.Time.UTC().Format(time.RFC3339),
			strconv.FormatFloat(b.Open, 'f', -1, 64),
			strconv.FormatFloat(b.High, 'f', -1, 64),
			strconv.FormatFloat(b.Low, 'f', -1, 64),
			strconv.FormatFloat(b.Close, 'f', -1, 64),
			strconv.FormatFloat(b.Volume, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a CSV day file.
func ReadCSV(r io.Reader) ([]Bar, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(csvHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	if header[0] != "time" {
		return nil, fmt.Errorf("unexpected csv header %q", header[0])
	}

	var bs []Bar
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}

		b, err := parseCSVRow(rec)
		if err != nil {
			return nil, err
		}
		bs = append(bs, b)
	}
	return bs, nil
}

func parseCSVRow(rec []string) (Bar, error) {
	t, err := time.Parse(time.RFC3339, rec[0])
	if err != nil {
		return Bar{}, fmt.Errorf("bad bar time %q: %w", rec[0], err)
	}

	vals := make([]float64, 5)
	for i := 0; i < 5; i++ {
		v, err := strconv.ParseFloat(rec[i+1], 64)
		if err != nil {
			return Bar{}, fmt.Errorf("bad bar field %q: %w", rec[i+1], err)
		}
		vals[i] = v
	}

	return Bar{
		Time:   t,
		Open:   vals[0],
		High:   vals[1],
		Low:    vals[2],
		Close:  vals[3],
		Volume: vals[4],
	}, nil
}
