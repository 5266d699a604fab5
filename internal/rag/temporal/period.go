package temporal

import (
	"fmt"
	"time"
)

// Grouping selects the period granularity for timeline bucketing.
type Grouping string

const (
	GroupByQuarter Grouping = "quarter"
	GroupByYear    Grouping = "year"
	GroupByMonth   Grouping = "month"
)

// QuarterOf returns the calendar quarter and year of a time.
func QuarterOf(t time.Time) (quarter, year int) {
	return (int(t.Month())-1)/3 + 1, t.Year()
}

// FormatQuarter renders a quarter as "Qn YYYY".
func FormatQuarter(quarter, year int) string {
	return fmt.Sprintf("Q%d %d", quarter, year)
}

// PeriodKey derives the period key of a time: "Qn YYYY" for quarters,
// "YYYY" for years, "YYYY-MM" for months. Unknown groupings fall back to
// quarters.
func PeriodKey(t time.Time, groupBy Grouping) string {
	switch groupBy {
	case GroupByYear:
		return fmt.Sprintf("%d", t.Year())
	case GroupByMonth:
		return t.Format("2006-01")
	default:
		q, y := QuarterOf(t)
		return FormatQuarter(q, y)
	}
}

// PeriodBounds parses a period key back into its inclusive start and end
// dates, in UTC.
func PeriodBounds(periodKey string, groupBy Grouping) (start, end time.Time, err error) {
	switch groupBy {
	case GroupByYear:
		var y int
		if _, err := fmt.Sscanf(periodKey, "%d", &y); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid year period %q: %w", periodKey, err)
		}
		start = time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
		end = time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
		return start, end, nil

	case GroupByMonth:
		var y, m int
		if _, err := fmt.Sscanf(periodKey, "%d-%d", &y, &m); err != nil || m < 1 || m > 12 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid month period %q", periodKey)
		}
		start = time.Date(y, time.Month(m), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, -1)
		return start, end, nil

	default:
		var q, y int
		if _, err := fmt.Sscanf(periodKey, "Q%d %d", &q, &y); err != nil || q < 1 || q > 4 {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid quarter period %q", periodKey)
		}
		startMonth := time.Month((q-1)*3 + 1)
		start = time.Date(y, startMonth, 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 3, -1)
		return start, end, nil
	}
}
