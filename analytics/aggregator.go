// Package analytics holds the pure arithmetic behind the dashboard: metric totals,
// period-over-period comparison, derived ratios and date-range presets.
package analytics

import (
	"sort"
	"time"
)

// MetricRow is one set of raw delivery counters
type MetricRow struct {
	Impressions int64   `json:"impressions"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Reach       int64   `json:"reach"`
	Spend       float64 `json:"spend"`
	Revenue     float64 `json:"revenue"`
}

// Add returns the field-wise sum of r and o
func (r MetricRow) Add(o MetricRow) MetricRow {
	return MetricRow{
		Impressions: r.Impressions + o.Impressions,
		Clicks:      r.Clicks + o.Clicks,
		Conversions: r.Conversions + o.Conversions,
		Reach:       r.Reach + o.Reach,
		Spend:       r.Spend + o.Spend,
		Revenue:     r.Revenue + o.Revenue,
	}
}

// DatedRow is a MetricRow attributed to a single calendar day
type DatedRow struct {
	Date time.Time `json:"date"`
	MetricRow
}

// DerivedMetrics are the ratios computed from a MetricRow
type DerivedMetrics struct {
	CTR            float64 `json:"ctr"`
	CPC            float64 `json:"cpc"`
	CPM            float64 `json:"cpm"`
	ROAS           float64 `json:"roas"`
	CPA            float64 `json:"cpa"`
	ConversionRate float64 `json:"conversion_rate"`
}

// Delta compares one value across two periods
type Delta struct {
	Current       float64 `json:"current"`
	Previous      float64 `json:"previous"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
}

// Comparison is the period-over-period view of every raw and derived metric
type Comparison struct {
	Impressions    Delta `json:"impressions"`
	Clicks         Delta `json:"clicks"`
	Conversions    Delta `json:"conversions"`
	Reach          Delta `json:"reach"`
	Spend          Delta `json:"spend"`
	Revenue        Delta `json:"revenue"`
	CTR            Delta `json:"ctr"`
	CPC            Delta `json:"cpc"`
	CPM            Delta `json:"cpm"`
	ROAS           Delta `json:"roas"`
	CPA            Delta `json:"cpa"`
	ConversionRate Delta `json:"conversion_rate"`
}

// Totals sums every field across rows. An empty slice yields the zero row.
func Totals(rows []MetricRow) MetricRow {
	var total MetricRow
	for _, row := range rows {
		total = total.Add(row)
	}
	return total
}

// PercentChange returns (current-previous)/previous*100.
// With a zero previous value the result is 0, 100 or -100 depending on the sign of current.
func PercentChange(current, previous float64) float64 {
	if previous == 0 {
		switch {
		case current > 0:
			return 100
		case current < 0:
			return -100
		default:
			return 0
		}
	}
	return (current - previous) / previous * 100
}

// NewDelta builds a Delta for a pair of values
func NewDelta(current, previous float64) Delta {
	return Delta{
		Current:       current,
		Previous:      previous,
		Change:        current - previous,
		ChangePercent: PercentChange(current, previous),
	}
}

// Compare computes deltas for every raw field and every derived ratio
func Compare(current, previous MetricRow) Comparison {
	cr, pr := Ratios(current), Ratios(previous)
	return Comparison{
		Impressions:    NewDelta(float64(current.Impressions), float64(previous.Impressions)),
		Clicks:         NewDelta(float64(current.Clicks), float64(previous.Clicks)),
		Conversions:    NewDelta(float64(current.Conversions), float64(previous.Conversions)),
		Reach:          NewDelta(float64(current.Reach), float64(previous.Reach)),
		Spend:          NewDelta(current.Spend, previous.Spend),
		Revenue:        NewDelta(current.Revenue, previous.Revenue),
		CTR:            NewDelta(cr.CTR, pr.CTR),
		CPC:            NewDelta(cr.CPC, pr.CPC),
		CPM:            NewDelta(cr.CPM, pr.CPM),
		ROAS:           NewDelta(cr.ROAS, pr.ROAS),
		CPA:            NewDelta(cr.CPA, pr.CPA),
		ConversionRate: NewDelta(cr.ConversionRate, pr.ConversionRate),
	}
}

// Ratios derives CTR, CPC, CPM, ROAS, CPA and conversion rate. A zero denominator yields 0.
func Ratios(row MetricRow) DerivedMetrics {
	return DerivedMetrics{
		CTR:            safeDiv(float64(row.Clicks), float64(row.Impressions)) * 100,
		CPC:            safeDiv(row.Spend, float64(row.Clicks)),
		CPM:            safeDiv(row.Spend, float64(row.Impressions)) * 1000,
		ROAS:           safeDiv(row.Revenue, row.Spend),
		CPA:            safeDiv(row.Spend, float64(row.Conversions)),
		ConversionRate: safeDiv(float64(row.Conversions), float64(row.Clicks)) * 100,
	}
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// DailySeries returns one row per day of r, in order. Points are matched by their calendar
// date as written, points on the same day are summed, days without points are zero-filled
// and points outside r are ignored.
func DailySeries(points []DatedRow, r DateRange) []DatedRow {
	byDay := make(map[string]MetricRow, len(points))
	for _, p := range points {
		key := p.Date.Format(DateLayout)
		byDay[key] = byDay[key].Add(p.MetricRow)
	}

	days := r.Days()
	series := make([]DatedRow, 0, days)
	day := r.Start
	for i := 0; i < days; i++ {
		series = append(series, DatedRow{Date: day, MetricRow: byDay[day.Format(DateLayout)]})
		day = day.AddDate(0, 0, 1)
	}
	return series
}

// TotalsByKey groups keyed rows and sums each group. Keys are returned sorted.
func TotalsByKey[K comparable](rows []KeyedRow[K], less func(a, b K) bool) ([]K, map[K]MetricRow) {
	totals := make(map[K]MetricRow)
	for _, row := range rows {
		totals[row.Key] = totals[row.Key].Add(row.MetricRow)
	}
	keys := make([]K, 0, len(totals))
	for k := range totals {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return less(keys[i], keys[j]) })
	return keys, totals
}

// KeyedRow is a MetricRow tagged with a grouping key such as a campaign id
type KeyedRow[K comparable] struct {
	Key K
	MetricRow
}
