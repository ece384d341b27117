package billing

import (
	"context"
	"fmt"
	"time"

	"agent_gateway/internal/models"
	"agent_gateway/internal/storage"
)

// DateLayout is the calendar-day format of report ranges and chart points.
const DateLayout = "2006-01-02"

// maxRangeDays bounds the chart length of one report.
const maxRangeDays = 3660

// Range selects calendar days, both inclusive, in UTC. Nil bounds are open:
// Start becomes the day of the oldest record and End becomes today, or the
// day of the newest record when that is later.
type Range struct {
	Start *time.Time
	End   *time.Time
}

// ParseRange parses optional YYYY-MM-DD bounds; empty strings are open.
func ParseRange(start, end string) (Range, error) {
	var r Range
	if start != "" {
		t, err := time.Parse(DateLayout, start)
		if err != nil {
			return Range{}, models.NewValidationError("startDate", "expected YYYY-MM-DD, got %q", start)
		}
		r.Start = &t
	}
	if end != "" {
		t, err := time.Parse(DateLayout, end)
		if err != nil {
			return Range{}, models.NewValidationError("endDate", "expected YYYY-MM-DD, got %q", end)
		}
		r.End = &t
	}
	return r, nil
}

// Summary totals a report.
type Summary struct {
	Requests     int     `json:"requests"`
	InputTokens  int64   `json:"inputTokens"`
	OutputTokens int64   `json:"outputTokens"`
	TotalTokens  int64   `json:"totalTokens"`
	CostUSD      float64 `json:"totalCostUSD"`
	CostDisplay  float64 `json:"totalCostVND"`
	Currency     string  `json:"currency"`
	// UnknownCost counts records without a catalog price; their cost is excluded above.
	UnknownCost int `json:"unknownCostRecords"`
}

// ChartPoint is one calendar day of the cost series.
type ChartPoint struct {
	Date        string  `json:"date"`
	CostDisplay float64 `json:"costVND"`
	Tokens      int64   `json:"tokens"`
}

// ReportRecord is a usage record with its derived values. Date carries the
// call time, not just the day.
type ReportRecord struct {
	*models.UsageRecord
	Date        time.Time `json:"date"`
	TotalTokens int64     `json:"totalTokens"`
	CostDisplay *float64  `json:"costVND"`
}

// Report is the billing view of a date range.
type Report struct {
	StartDate string         `json:"startDate,omitempty"`
	EndDate   string         `json:"endDate,omitempty"`
	Summary   Summary        `json:"summary"`
	Chart     []ChartPoint   `json:"chart"`
	Records   []ReportRecord `json:"records"`
}

// Aggregator builds reports from the usage store.
type Aggregator struct {
	store    storage.UsageStore
	currency string
	now      func() time.Time
}

// NewAggregator creates an aggregator labelling display costs with currency.
func NewAggregator(store storage.UsageStore, currency string) *Aggregator {
	return &Aggregator{
		store:    store,
		currency: currency,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Aggregate summarizes records in r. The chart has one point per day in the
// range, zero for days without records; records are newest first.
func (a *Aggregator) Aggregate(ctx context.Context, r Range) (*Report, error) {
	report := &Report{
		Summary: Summary{Currency: a.currency},
		Chart:   []ChartPoint{},
		Records: []ReportRecord{},
	}

	start, end, ok, err := a.bounds(ctx, r)
	if err != nil {
		return nil, err
	}
	if !ok {
		return report, nil
	}
	if end.Before(start) {
		return nil, models.NewValidationError("endDate", "end date %s is before start date %s", end.Format(DateLayout), start.Format(DateLayout))
	}
	days := int(end.Sub(start).Hours()/24) + 1
	if days > maxRangeDays {
		return nil, models.NewValidationError("startDate", "range of %d days exceeds %d", days, maxRangeDays)
	}

	report.StartDate = start.Format(DateLayout)
	report.EndDate = end.Format(DateLayout)

	to := end.AddDate(0, 0, 1)
	records, err := a.store.ListUsage(ctx, &start, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to list usage: %w", err)
	}

	report.Chart = make([]ChartPoint, days)
	for i := range report.Chart {
		report.Chart[i].Date = start.AddDate(0, 0, i).Format(DateLayout)
	}

	report.Records = make([]ReportRecord, 0, len(records))
	for _, rec := range records {
		s := &report.Summary
		s.Requests++
		s.InputTokens += rec.InputTokens
		s.OutputTokens += rec.OutputTokens
		s.TotalTokens += rec.TotalTokens()

		day := truncateDay(rec.Timestamp)
		point := &report.Chart[int(day.Sub(start).Hours()/24)]
		point.Tokens += rec.TotalTokens()

		line := ReportRecord{
			UsageRecord: rec,
			Date:        rec.Timestamp,
			TotalTokens: rec.TotalTokens(),
		}
		if rec.CostKnown() {
			display := rec.DisplayCost()
			s.CostUSD += *rec.CostUSD
			s.CostDisplay += display
			point.CostDisplay += display
			line.CostDisplay = &display
		} else {
			s.UnknownCost++
		}
		report.Records = append(report.Records, line)
	}

	return report, nil
}

// bounds resolves open ends; ok is false when the range is fully open and
// the ledger is empty.
func (a *Aggregator) bounds(ctx context.Context, r Range) (start, end time.Time, ok bool, err error) {
	if r.Start != nil {
		start = truncateDay(*r.Start)
	}
	if r.End != nil {
		end = truncateDay(*r.End)
	}
	if r.Start != nil && r.End != nil {
		return start, end, true, nil
	}

	first, last, found, err := a.store.UsageBounds(ctx)
	if err != nil {
		return start, end, false, fmt.Errorf("failed to read usage bounds: %w", err)
	}

	if r.End == nil {
		// Open end reaches today, or the newest record if the clock lags it.
		end = truncateDay(a.now())
		if found && truncateDay(last).After(end) {
			end = truncateDay(last)
		}
	}

	if r.Start == nil {
		if !found {
			if r.End == nil {
				return start, end, false, nil
			}
			// Nothing recorded: the range is just the end day.
			return end, end, true, nil
		}
		start = truncateDay(first)
		if start.After(end) {
			start = end
		}
	}
	return start, end, true, nil
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
