package stats

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// AdminStats is the restaurant dashboard header block.
type AdminStats struct {
	TotalOrders    int           `json:"totalOrders"`
	ActiveOrders   int           `json:"activeOrders"`
	TotalRevenue   float64       `json:"totalRevenue"`
	TodayRevenue   float64       `json:"todayRevenue"`
	OccupiedTables []string      `json:"occupiedTables"`
	TakeawayCount  int           `json:"takeawayCount"`
	DailyRevenue   []DailyPoint  `json:"dailyRevenue"`
	HourlyRevenue  []HourlyPoint `json:"hourlyRevenue"`
}

type DailyPoint struct {
	Date    string  `json:"date"` // YYYY-MM-DD
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

type HourlyPoint struct {
	Hour    int     `json:"hour"`
	Revenue float64 `json:"revenue"`
	Orders  int     `json:"orders"`
}

// SuperStats is the platform console block. Subscription revenue is the
// flat monthly fee times active restaurants.
type SuperStats struct {
	TotalRestaurants    int            `json:"totalRestaurants"`
	ActiveRestaurants   int            `json:"activeRestaurants"`
	SubscriptionRevenue float64        `json:"subscriptionRevenue"`
	MonthlySignups      []MonthlyPoint `json:"monthlySignups"`
}

type MonthlyPoint struct {
	Month   string  `json:"month"` // YYYY-MM
	Signups int     `json:"signups"`
	Revenue float64 `json:"revenue"`
}

const monthlyFee = 2999

type StatsRepositoryInterface interface {
	Admin(ctx context.Context, restaurantID uuid.UUID) (AdminStats, error)
	Super(ctx context.Context) (SuperStats, error)
}

type StatsRepository struct {
	db *sql.DB
}

func NewStatsRepository(db *sql.DB) StatsRepositoryInterface {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) Admin(ctx context.Context, restaurantID uuid.UUID) (AdminStats, error) {
	var s AdminStats
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status IN ('pending','preparing','ready')),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed'), 0),
			COALESCE(SUM(total_amount) FILTER (WHERE status = 'completed' AND created_at >= date_trunc('day', now())), 0),
			COUNT(*) FILTER (WHERE table_number IS NULL AND status IN ('pending','preparing','ready'))
		FROM orders
		WHERE restaurant_id = $1`,
		restaurantID,
	).Scan(&s.TotalOrders, &s.ActiveOrders, &s.TotalRevenue, &s.TodayRevenue, &s.TakeawayCount)
	if err != nil {
		return AdminStats{}, fmt.Errorf("admin stats: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT table_number
		FROM orders
		WHERE restaurant_id = $1
		  AND status IN ('pending','preparing','ready')
		  AND table_number ~ '^[0-9]+$'
		ORDER BY table_number`,
		restaurantID)
	if err != nil {
		return AdminStats{}, fmt.Errorf("occupied tables: %w", err)
	}
	defer rows.Close()
	s.OccupiedTables = []string{}
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return AdminStats{}, fmt.Errorf("scan table: %w", err)
		}
		s.OccupiedTables = append(s.OccupiedTables, t)
	}
	if err := rows.Err(); err != nil {
		return AdminStats{}, err
	}

	if s.DailyRevenue, err = r.dailyRevenue(ctx, restaurantID); err != nil {
		return AdminStats{}, err
	}
	if s.HourlyRevenue, err = r.hourlyRevenue(ctx, restaurantID); err != nil {
		return AdminStats{}, err
	}
	return s, nil
}

func (r *StatsRepository) dailyRevenue(ctx context.Context, restaurantID uuid.UUID) ([]DailyPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('day', created_at), 'YYYY-MM-DD'),
		       COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders
		WHERE restaurant_id = $1
		  AND status = 'completed'
		  AND created_at >= date_trunc('day', now()) - INTERVAL '6 days'
		GROUP BY 1
		ORDER BY 1`,
		restaurantID)
	if err != nil {
		return nil, fmt.Errorf("daily revenue: %w", err)
	}
	defer rows.Close()

	byDate := map[string]DailyPoint{}
	for rows.Next() {
		var p DailyPoint
		if err := rows.Scan(&p.Date, &p.Revenue, &p.Orders); err != nil {
			return nil, fmt.Errorf("scan daily point: %w", err)
		}
		byDate[p.Date] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Fill zero days so charts do not skip gaps.
	out := make([]DailyPoint, 0, 7)
	day := time.Now().UTC().Truncate(24 * time.Hour).AddDate(0, 0, -6)
	for i := 0; i < 7; i++ {
		key := day.Format("2006-01-02")
		p, ok := byDate[key]
		if !ok {
			p = DailyPoint{Date: key}
		}
		out = append(out, p)
		day = day.AddDate(0, 0, 1)
	}
	return out, nil
}

func (r *StatsRepository) hourlyRevenue(ctx context.Context, restaurantID uuid.UUID) ([]HourlyPoint, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(hour FROM created_at)::int,
		       COALESCE(SUM(total_amount), 0), COUNT(*)
		FROM orders
		WHERE restaurant_id = $1
		  AND status = 'completed'
		  AND created_at >= date_trunc('day', now())
		GROUP BY 1
		ORDER BY 1`,
		restaurantID)
	if err != nil {
		return nil, fmt.Errorf("hourly revenue: %w", err)
	}
	defer rows.Close()

	byHour := map[int]HourlyPoint{}
	for rows.Next() {
		var p HourlyPoint
		if err := rows.Scan(&p.Hour, &p.Revenue, &p.Orders); err != nil {
			return nil, fmt.Errorf("scan hourly point: %w", err)
		}
		byHour[p.Hour] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]HourlyPoint, 24)
	for h := 0; h < 24; h++ {
		p, ok := byHour[h]
		if !ok {
			p = HourlyPoint{Hour: h}
		}
		out[h] = p
	}
	return out, nil
}

func (r *StatsRepository) Super(ctx context.Context) (SuperStats, error) {
	var s SuperStats
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE is_active)
		FROM restaurants`,
	).Scan(&s.TotalRestaurants, &s.ActiveRestaurants)
	if err != nil {
		return SuperStats{}, fmt.Errorf("super stats: %w", err)
	}
	s.SubscriptionRevenue = float64(s.ActiveRestaurants * monthlyFee)

	rows, err := r.db.QueryContext(ctx, `
		SELECT to_char(date_trunc('month', created_at), 'YYYY-MM'), COUNT(*)
		FROM restaurants
		WHERE created_at >= date_trunc('month', now()) - INTERVAL '11 months'
		GROUP BY 1
		ORDER BY 1`,
	)
	if err != nil {
		return SuperStats{}, fmt.Errorf("monthly signups: %w", err)
	}
	defer rows.Close()

	byMonth := map[string]int{}
	for rows.Next() {
		var month string
		var n int
		if err := rows.Scan(&month, &n); err != nil {
			return SuperStats{}, fmt.Errorf("scan signup point: %w", err)
		}
		byMonth[month] = n
	}
	if err := rows.Err(); err != nil {
		return SuperStats{}, err
	}

	now := time.Now().UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -11, 0)
	s.MonthlySignups = make([]MonthlyPoint, 0, 12)
	for i := 0; i < 12; i++ {
		key := first.AddDate(0, i, 0).Format("2006-01")
		n := byMonth[key]
		s.MonthlySignups = append(s.MonthlySignups, MonthlyPoint{
			Month:   key,
			Signups: n,
			Revenue: float64(n * monthlyFee),
		})
	}
	return s, nil
}
