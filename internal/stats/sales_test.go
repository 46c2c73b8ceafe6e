package stats

import (
	"testing"
	"time"

	"eatgreet/internal/domain"
)

func completedOn(amount float64, at time.Time) domain.Order {
	return domain.Order{
		Status:      domain.OrderCompleted,
		TotalAmount: amount,
		CreatedAt:   at,
	}
}

func TestFoldSalesBuckets(t *testing.T) {
	// Sunday 2026-08-30; the week runs from Monday the 24th.
	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		completedOn(100, time.Date(2026, 8, 28, 19, 0, 0, 0, time.UTC)),  // this week
		completedOn(200, time.Date(2026, 8, 25, 13, 0, 0, 0, time.UTC)),  // this week
		completedOn(300, time.Date(2026, 8, 10, 20, 0, 0, 0, time.UTC)),  // this month only
		completedOn(500, time.Date(2026, 7, 5, 12, 0, 0, 0, time.UTC)),   // this quarter only
		completedOn(900, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)),   // this year only
		completedOn(999, time.Date(2025, 12, 20, 21, 0, 0, 0, time.UTC)), // last year
	}

	r := FoldSales(orders, now)

	tests := []struct {
		name      string
		got       Bucket
		wantSales float64
		wantVol   int
	}{
		{"weekly", r.Weekly, 300, 2},
		{"monthly", r.Monthly, 600, 3},
		{"quarterly", r.Quarterly, 1100, 4},
		{"annual", r.Annual, 2000, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got.Sales != tt.wantSales {
				t.Errorf("sales = %.2f, want %.2f", tt.got.Sales, tt.wantSales)
			}
			if tt.got.Vol != tt.wantVol {
				t.Errorf("vol = %d, want %d", tt.got.Vol, tt.wantVol)
			}
			if want := round2(tt.wantSales * 0.35); tt.got.EBITDA != want {
				t.Errorf("ebitda = %.2f, want %.2f", tt.got.EBITDA, want)
			}
			if want := round2(tt.wantSales * 0.10); tt.got.Tax != want {
				t.Errorf("tax = %.2f, want %.2f", tt.got.Tax, want)
			}
		})
	}
}

// Buckets are calendar periods, not trailing windows: an order from the
// 1st still counts toward the month on the evening of the 31st.
func TestFoldSalesMonthStartCountsAtMonthEnd(t *testing.T) {
	now := time.Date(2026, 8, 31, 23, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		completedOn(250, time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)),
	}

	r := FoldSales(orders, now)

	if r.Monthly.Sales != 250 || r.Monthly.Vol != 1 {
		t.Errorf("monthly = %+v, want sales 250 vol 1", r.Monthly)
	}
	// The 31st is a Monday, so the week holds nothing from the 1st.
	if r.Weekly.Vol != 0 {
		t.Errorf("weekly = %+v, want empty", r.Weekly)
	}
	if r.Quarterly.Vol != 1 || r.Annual.Vol != 1 {
		t.Errorf("quarterly = %+v, annual = %+v, want vol 1 in both", r.Quarterly, r.Annual)
	}
}

func TestFoldSalesEmpty(t *testing.T) {
	r := FoldSales(nil, time.Now())
	if r.Weekly.Vol != 0 || r.Annual.Sales != 0 {
		t.Errorf("empty fold = %+v", r)
	}
}

func TestFoldSalesMonthlyExample(t *testing.T) {
	now := time.Date(2026, 8, 15, 18, 0, 0, 0, time.UTC)
	orders := []domain.Order{
		completedOn(100, now.Add(-time.Hour)),
		completedOn(200, now.Add(-2*time.Hour)),
		completedOn(300, now.Add(-3*time.Hour)),
	}
	r := FoldSales(orders, now)
	if r.Monthly.Sales != 600 || r.Monthly.Vol != 3 {
		t.Errorf("monthly = %+v, want sales 600 vol 3", r.Monthly)
	}
	if r.Monthly.EBITDA != 210 {
		t.Errorf("ebitda = %.2f, want 210", r.Monthly.EBITDA)
	}
	if r.Monthly.Tax != 60 {
		t.Errorf("tax = %.2f, want 60", r.Monthly.Tax)
	}
}
