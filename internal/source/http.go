package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/sony/gobreaker"

	"github.com/intralake/barfetch/internal/bars"
)

// httpSource fetches bars from the provider's chart endpoint. A transport
// circuit breaker sits in front of the client so a provider outage fails
// fast instead of burning the rate budget on doomed requests. This guard is
// separate from the per-symbol failure streak the orchestrator tracks.
type httpSource struct {
	baseURL string
	client  *http.Client
	cb      *gobreaker.CircuitBreaker
}

func newHTTPSource(baseURL string, timeout time.Duration) *httpSource {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	st := gobreaker.Settings{Name: "bar-source"}
	st.Timeout = 60 * time.Second
	st.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 5
	}

	return &httpSource{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		cb:      gobreaker.NewCircuitBreaker(st),
	}
}

// chartResponse is the provider's chart payload for one symbol-day.
type chartResponse struct {
	Symbol    string    `json:"symbol"`
	Timestamp []int64   `json:"timestamp"`
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
	Error     *struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

type metaResponse struct {
	Symbol         string `json:"symbol"`
	FirstAvailable string `json:"first_available"` // "2006-01-02"
}

func (s *httpSource) FetchDay(ctx context.Context, symbol string, date time.Time) ([]bars.Bar, error) {
	u := fmt.Sprintf("%s/v1/bars/%s?date=%s&interval=1m",
		s.baseURL, url.PathEscape(symbol), date.Format("2006-01-02"))

	body, err := s.get(ctx, u)
	if err != nil {
		return nil, err
	}

	var chart chartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, Transient(fmt.Errorf("decode chart for %s: %w", symbol, err))
	}
	if chart.Error != nil {
		return nil, fmt.Errorf("provider error for %s: %s (%s)",
			symbol, chart.Error.Description, chart.Error.Code)
	}

	n := len(chart.Timestamp)
	if len(chart.Open) != n || len(chart.High) != n || len(chart.Low) != n ||
		len(chart.Close) != n || len(chart.Volume) != n {
		return nil, fmt.Errorf("ragged chart arrays for %s on %s", symbol, date.Format("2006-01-02"))
	}

	bs := make([]bars.Bar, 0, n)
	for i, ts := range chart.Timestamp {
		bs = append(bs, bars.Bar{
			Time:   time.Unix(ts, 0).UTC(),
			Open:   chart.Open[i],
			High:   chart.High[i],
			Low:    chart.Low[i],
			Close:  chart.Close[i],
			Volume: chart.Volume[i],
		})
	}
	sort.Slice(bs, func(i, j int) bool { return bs[i].Time.Before(bs[j].Time) })
	return bs, nil
}

func (s *httpSource) EarliestAvailable(ctx context.Context, symbol string) (time.Time, error) {
	u := fmt.Sprintf("%s/v1/meta/%s", s.baseURL, url.PathEscape(symbol))

	body, err := s.get(ctx, u)
	if err != nil {
		return time.Time{}, err
	}

	var meta metaResponse
	if err := json.Unmarshal(body, &meta); err != nil {
		return time.Time{}, Transient(fmt.Errorf("decode meta for %s: %w", symbol, err))
	}
	first, err := time.Parse("2006-01-02", meta.FirstAvailable)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad first_available %q for %s: %w", meta.FirstAvailable, symbol, err)
	}
	return first, nil
}

// get runs one HTTP GET through the circuit breaker and classifies failures.
func (s *httpSource) get(ctx context.Context, u string) ([]byte, error) {
	out, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, Transient(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, Transient(fmt.Errorf("read body: %w", err))
		}

		switch {
		case resp.StatusCode == http.StatusOK:
			return body, nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return nil, Transient(fmt.Errorf("status %d from %s", resp.StatusCode, u))
		default:
			return nil, fmt.Errorf("status %d from %s", resp.StatusCode, u)
		}
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, Transient(err)
	}
	if err != nil {
		return nil, err
	}
	return out.([]byte), nil
}

func (s *httpSource) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
