// Package stats produces the dashboard aggregates. The sales numbers are
// display heuristics, not accounting: EBITDA and tax are fixed fractions
// of revenue.
package stats

import (
	"math"
	"time"

	"eatgreet/internal/domain"
)

const (
	ebitdaRate = 0.35
	taxRate    = 0.10
)

// Bucket is one reporting period of the sales report.
type Bucket struct {
	Sales  float64 `json:"sales"`
	Vol    int     `json:"vol"`
	EBITDA float64 `json:"ebitda"`
	Tax    float64 `json:"tax"`
}

type SalesReport struct {
	Weekly    Bucket `json:"weekly"`
	Monthly   Bucket `json:"monthly"`
	Quarterly Bucket `json:"quarterly"`
	Annual    Bucket `json:"annual"`
}

func (b *Bucket) add(amount float64) {
	b.Sales += amount
	b.Vol++
	b.EBITDA = round2(b.Sales * ebitdaRate)
	b.Tax = round2(b.Sales * taxRate)
}

// FoldSales buckets completed orders into the calendar periods containing
// now: the current week (starting Monday), month, quarter and year. An
// order placed on the 1st still counts toward "monthly" on the 31st.
func FoldSales(orders []domain.Order, now time.Time) SalesReport {
	now = now.UTC()
	week := startOfWeek(now)
	month := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	quarter := startOfQuarter(now)
	year := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)

	var r SalesReport
	for _, o := range orders {
		at := o.CreatedAt.UTC()
		if at.After(now) || at.Before(year) {
			continue
		}
		r.Annual.add(o.TotalAmount)
		if !at.Before(quarter) {
			r.Quarterly.add(o.TotalAmount)
		}
		if !at.Before(month) {
			r.Monthly.add(o.TotalAmount)
		}
		if !at.Before(week) {
			r.Weekly.add(o.TotalAmount)
		}
	}
	return r
}

func startOfWeek(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, -daysSinceMonday)
}

func startOfQuarter(t time.Time) time.Time {
	firstMonth := time.Month((int(t.Month())-1)/3*3 + 1)
	return time.Date(t.Year(), firstMonth, 1, 0, 0, 0, 0, time.UTC)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
