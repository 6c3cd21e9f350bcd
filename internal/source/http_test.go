package source

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPFetchDay(t *testing.T) {
	open := time.Date(2024, 3, 20, 13, 30, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/bars/AAPL" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("date"); got != "2024-03-20" {
			t.Errorf("date = %s, want 2024-03-20", got)
		}
		// Second bar first: the client must sort ascending.
		fmt.Fprintf(w, `{
			"symbol": "AAPL",
			"timestamp": [%d, %d],
			"open": [100.5, 100.0],
			"high": [100.8, 101.0],
			"low": [100.1, 99.5],
			"close": [100.2, 100.5],
			"volume": [900, 1200]
		}`, open.Add(time.Minute).Unix(), open.Unix())
	}))
	defer srv.Close()

	src := newHTTPSource(srv.URL, 5*time.Second)
	defer src.Close()

	bs, err := src.FetchDay(context.Background(), "AAPL", open)
	if err != nil {
		t.Fatalf("FetchDay() error = %v", err)
	}
	if len(bs) != 2 {
		t.Fatalf("FetchDay() returned %d bars, want 2", len(bs))
	}
	if !bs[0].Time.Equal(open) {
		t.Errorf("bars not sorted ascending: first bar at %v, want %v", bs[0].Time, open)
	}
	if bs[0].Open != 100.0 || bs[1].Close != 100.2 {
		t.Errorf("bar values misaligned after sort: %+v", bs)
	}
}

func TestHTTPFetchDayClassifiesFailures(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		transient bool
	}{
		{name: "server error is transient", status: 500, body: "oops", transient: true},
		{name: "throttle is transient", status: 429, body: "slow down", transient: true},
		{name: "not found is permanent", status: 404, body: "no such symbol", transient: false},
		{name: "provider error payload is permanent", status: 200,
			body: `{"error": {"code": "BAD_SYMBOL", "description": "unknown symbol"}}`, transient: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			src := newHTTPSource(srv.URL, 5*time.Second)
			defer src.Close()

			_, err := src.FetchDay(context.Background(), "AAPL", time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC))
			if err == nil {
				t.Fatal("FetchDay() should fail")
			}
			if got := IsTransient(err); got != tt.transient {
				t.Errorf("IsTransient(%v) = %v, want %v", err, got, tt.transient)
			}
		})
	}
}

func TestHTTPEarliestAvailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/meta/MSFT" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		fmt.Fprint(w, `{"symbol": "MSFT", "first_available": "2004-01-02"}`)
	}))
	defer srv.Close()

	src := newHTTPSource(srv.URL, 5*time.Second)
	defer src.Close()

	got, err := src.EarliestAvailable(context.Background(), "MSFT")
	if err != nil {
		t.Fatalf("EarliestAvailable() error = %v", err)
	}
	if got.Format("2006-01-02") != "2004-01-02" {
		t.Errorf("EarliestAvailable() = %s, want 2004-01-02", got.Format("2006-01-02"))
	}
}

func TestHTTPBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := newHTTPSource(srv.URL, 5*time.Second)
	defer src.Close()

	date := time.Date(2024, 3, 20, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 8; i++ {
		_, err := src.FetchDay(context.Background(), "AAPL", date)
		if err == nil {
			t.Fatal("FetchDay() should fail")
		}
		if !IsTransient(err) {
			t.Fatalf("attempt %d: error not transient: %v", i, err)
		}
	}
	// Breaker trips after 5 consecutive transport failures; later attempts
	// fail fast without reaching the server.
	if hits >= 8 {
		t.Errorf("server saw %d requests, want fewer once the breaker opened", hits)
	}
}
