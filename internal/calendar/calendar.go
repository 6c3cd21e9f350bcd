// Package calendar classifies trading dates: whether the market was open,
// what kind of session it was, and how many one-minute bars a full fetch of
// that date is expected to return.
package calendar

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrUnavailable is returned when the loaded calendar data does not cover
// the requested date. Callers must treat this as a per-date failure rather
// than guessing a classification.
var ErrUnavailable = errors.New("calendar data does not cover date")

// DayType identifies the kind of session a date had.
type DayType string

const (
	DayRegular         DayType = "regular"
	DayEarlyCloseLong  DayType = "early_close_long"  // 6h session
	DayEarlyCloseShort DayType = "early_close_short" // 3.5h session
	DayHoliday         DayType = "holiday"
)

// Expected one-minute bar counts per session type.
const (
	BarsRegular         = 390
	BarsEarlyCloseLong  = 360
	BarsEarlyCloseShort = 210
	BarsHoliday         = 0
)

// Day is the classification of a single calendar date. Immutable once
// computed; the session window is half-open [SessionOpen, SessionClose).
type Day struct {
	Date         time.Time
	IsTradingDay bool
	Type         DayType
	ExpectedBars int
	SessionOpen  time.Time
	SessionClose time.Time
}

// yearData is one year of exceptions in the calendar data file. Dates are
// "2006-01-02"; early close values are "long" or "short".
type yearData struct {
	Year        int               `yaml:"year"`
	Holidays    []string          `yaml:"holidays"`
	EarlyCloses map[string]string `yaml:"early_closes"`
}

type dataFile struct {
	Exchange string     `yaml:"exchange"`
	Years    []yearData `yaml:"years"`
}

// Calendar answers trading-day classification for a bounded range of years.
type Calendar struct {
	exchange    string
	loc         *time.Location
	minYear     int
	maxYear     int
	holidays    map[string]bool
	earlyCloses map[string]DayType
}

// exchange time zone; fall back to a fixed offset when the host has no
// tzdata, matching the convention that session opens are quoted in ET.
func easternTime() *time.Location {
	if loc, err := time.LoadLocation("America/New_York"); err == nil {
		return loc
	}
	return time.FixedZone("ET", -5*60*60)
}

// New builds a calendar from the built-in exception table (2020-2026).
func New(exchange string) *Calendar {
	c, err := build(exchange, builtinYears)
	if err != nil {
		// The built-in table is validated by tests; a failure here is a
		// programming error.
		panic(err)
	}
	return c
}

// Load builds a calendar from a YAML data file.
func Load(path string) (*Calendar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calendar data %s: %w", path, err)
	}

	var df dataFile
	if err := yaml.Unmarshal(data, &df); err != nil {
		return nil, fmt.Errorf("parse calendar data %s: %w", path, err)
	}
	if len(df.Years) == 0 {
		return nil, fmt.Errorf("calendar data %s: no years defined", path)
	}

	return build(df.Exchange, df.Years)
}

func build(exchange string, years []yearData) (*Calendar, error) {
	c := &Calendar{
		exchange:    exchange,
		loc:         easternTime(),
		holidays:    make(map[string]bool),
		earlyCloses: make(map[string]DayType),
	}

	sorted := make([]yearData, len(years))
	copy(sorted, years)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Year < sorted[j].Year })

	c.minYear = sorted[0].Year
	c.maxYear = sorted[len(sorted)-1].Year

	// Years must be contiguous so coverage is a single range.
	for i := 1; i < len(sorted); i++ {
		if sorted[i].Year != sorted[i-1].Year+1 {
			return nil, fmt.Errorf("calendar years not contiguous: %d followed by %d",
				sorted[i-1].Year, sorted[i].Year)
		}
	}

	for _, y := range sorted {
		for _, d := range y.Holidays {
			if err := checkYear(d, y.Year); err != nil {
				return nil, err
			}
			c.holidays[d] = true
		}
		for d, kind := range y.EarlyCloses {
			if err := checkYear(d, y.Year); err != nil {
				return nil, err
			}
			switch kind {
			case "long":
				c.earlyCloses[d] = DayEarlyCloseLong
			case "short":
				c.earlyCloses[d] = DayEarlyCloseShort
			default:
				return nil, fmt.Errorf("calendar %d: unknown early close kind %q for %s",
					y.Year, kind, d)
			}
		}
	}

	return c, nil
}

func checkYear(date string, year int) error {
	t, err := time.Parse("2006-01-02", date)
	if err != nil {
		return fmt.Errorf("calendar %d: bad date %q: %w", year, date, err)
	}
	if t.Year() != year {
		return fmt.Errorf("calendar %d: date %s listed under wrong year", year, date)
	}
	return nil
}

// Exchange returns the exchange this calendar describes.
func (c *Calendar) Exchange() string { return c.exchange }

// Covers reports whether the calendar data covers the given date.
func (c *Calendar) Covers(date time.Time) bool {
	return date.Year() >= c.minYear && date.Year() <= c.maxYear
}

// CoverageStart returns the first covered date.
func (c *Calendar) CoverageStart() time.Time {
	return time.Date(c.minYear, time.January, 1, 0, 0, 0, 0, time.UTC)
}

// CoverageEnd returns the last covered date.
func (c *Calendar) CoverageEnd() time.Time {
	return time.Date(c.maxYear, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Classify returns the session classification for a date. The result is
// deterministic for a given calendar: the same date always classifies the
// same way.
func (c *Calendar) Classify(date time.Time) (Day, error) {
	if !c.Covers(date) {
		return Day{}, fmt.Errorf("%w: %s (covered: %d-%d)",
			ErrUnavailable, date.Format("2006-01-02"), c.minYear, c.maxYear)
	}

	day := Day{Date: midnightUTC(date)}
	key := date.Format("2006-01-02")

	if wd := date.Weekday(); wd == time.Saturday || wd == time.Sunday {
		day.Type = DayHoliday
		day.ExpectedBars = BarsHoliday
		return day, nil
	}
	if c.holidays[key] {
		day.Type = DayHoliday
		day.ExpectedBars = BarsHoliday
		return day, nil
	}

	day.IsTradingDay = true
	if kind, ok := c.earlyCloses[key]; ok {
		day.Type = kind
		if kind == DayEarlyCloseLong {
			day.ExpectedBars = BarsEarlyCloseLong
		} else {
			day.ExpectedBars = BarsEarlyCloseShort
		}
	} else {
		day.Type = DayRegular
		day.ExpectedBars = BarsRegular
	}

	// Session opens 09:30 exchange time; the close follows from the bar
	// count, one bar per minute.
	day.SessionOpen = time.Date(date.Year(), date.Month(), date.Day(), 9, 30, 0, 0, c.loc)
	day.SessionClose = day.SessionOpen.Add(time.Duration(day.ExpectedBars) * time.Minute)

	return day, nil
}

// TradingDays enumerates the trading dates in [from, to] in ascending order.
func (c *Calendar) TradingDays(from, to time.Time) ([]time.Time, error) {
	from = midnightUTC(from)
	to = midnightUTC(to)

	var days []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		day, err := c.Classify(d)
		if err != nil {
			return nil, err
		}
		if day.IsTradingDay {
			days = append(days, d)
		}
	}
	return days, nil
}

func midnightUTC(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
