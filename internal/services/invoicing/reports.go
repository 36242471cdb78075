package invoicing

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ncbao26/POS/internal/models"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Filter narrows a listing. The date range applies only when both Start
// and End are set.
type Filter struct {
	Start  *time.Time
	End    *time.Time
	Status string
}

type RevenuePoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type RevenueSummary struct {
	TodayRevenue            decimal.Decimal `json:"todayRevenue"`
	YesterdayRevenue        decimal.Decimal `json:"yesterdayRevenue"`
	ThisMonthRevenue        decimal.Decimal `json:"thisMonthRevenue"`
	LastMonthRevenue        decimal.Decimal `json:"lastMonthRevenue"`
	DailyChangePercentage   float64         `json:"dailyChangePercentage"`
	MonthlyChangePercentage float64         `json:"monthlyChangePercentage"`
	Date                    string          `json:"date"`
}

// ParseDate reads a YYYY-MM-DD calendar date in the engine's time zone.
func (e *Engine) ParseDate(value string) (time.Time, error) {
	d, err := time.ParseInLocation(dateLayout, strings.TrimSpace(value), e.loc)
	if err != nil {
		return time.Time{}, invalid("invalid date %q, expected YYYY-MM-DD", value)
	}
	return d, nil
}

// Today is the current calendar date in the engine's time zone.
func (e *Engine) Today() time.Time {
	return e.startOfDay(e.now())
}

func (e *Engine) startOfDay(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, e.loc)
}

func (e *Engine) startOfMonth(t time.Time) time.Time {
	t = t.In(e.loc)
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, e.loc)
}

// Filter returns invoices created on any day from f.Start to f.End
// inclusive, newest first. An empty status matches every status.
func (e *Engine) Filter(ctx context.Context, userID uuid.UUID, f Filter) ([]models.Invoice, error) {
	query := e.db.WithContext(ctx).
		Preload("Customer").
		Where("user_id = ?", userID)
	if f.Start != nil && f.End != nil {
		from, to := e.startOfDay(*f.Start), e.startOfDay(*f.End).AddDate(0, 0, 1)
		if !to.After(from) {
			return nil, invalid("end date must not be before start date")
		}
		query = query.Where("created_at >= ? AND created_at < ?", from.UTC(), to.UTC())
	}
	if status := strings.ToUpper(strings.TrimSpace(f.Status)); status != "" {
		query = query.Where("payment_status = ?", status)
	}

	var invoices []models.Invoice
	err := query.Order("created_at DESC").Find(&invoices).Error
	return invoices, err
}

// RevenueByDate totals invoice amounts per calendar day, oldest day first.
// Days without invoices are left out.
func (e *Engine) RevenueByDate(ctx context.Context, userID uuid.UUID, start, end time.Time) ([]RevenuePoint, error) {
	from, to := e.startOfDay(start), e.startOfDay(end).AddDate(0, 0, 1)
	if !to.After(from) {
		return nil, invalid("end date must not be before start date")
	}

	var invoices []models.Invoice
	err := e.db.WithContext(ctx).
		Select("total_amount", "created_at").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from.UTC(), to.UTC()).
		Order("created_at ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, err
	}

	points := []RevenuePoint{}
	for _, inv := range invoices {
		day := inv.CreatedAt.In(e.loc).Format(dateLayout)
		if n := len(points); n > 0 && points[n-1].Date == day {
			points[n-1].Revenue = points[n-1].Revenue.Add(inv.TotalAmount)
			continue
		}
		points = append(points, RevenuePoint{Date: day, Revenue: inv.TotalAmount})
	}
	return points, nil
}

// RevenueSummary compares the day and month containing date against the
// previous day and month. A nil date means today.
func (e *Engine) RevenueSummary(ctx context.Context, userID uuid.UUID, date *time.Time) (RevenueSummary, error) {
	day := e.Today()
	if date != nil {
		day = e.startOfDay(*date)
	}
	month := e.startOfMonth(day)

	var summary RevenueSummary
	var err error
	if summary.TodayRevenue, err = e.revenueBetween(ctx, userID, day, day.AddDate(0, 0, 1)); err != nil {
		return summary, err
	}
	if summary.YesterdayRevenue, err = e.revenueBetween(ctx, userID, day.AddDate(0, 0, -1), day); err != nil {
		return summary, err
	}
	if summary.ThisMonthRevenue, err = e.revenueBetween(ctx, userID, month, month.AddDate(0, 1, 0)); err != nil {
		return summary, err
	}
	if summary.LastMonthRevenue, err = e.revenueBetween(ctx, userID, month.AddDate(0, -1, 0), month); err != nil {
		return summary, err
	}

	summary.DailyChangePercentage = ChangePercentage(summary.TodayRevenue, summary.YesterdayRevenue)
	summary.MonthlyChangePercentage = ChangePercentage(summary.ThisMonthRevenue, summary.LastMonthRevenue)
	summary.Date = day.Format(dateLayout)
	return summary, nil
}

// revenueBetween sums total_amount over [from, to).
func (e *Engine) revenueBetween(ctx context.Context, userID uuid.UUID, from, to time.Time) (decimal.Decimal, error) {
	var invoices []models.Invoice
	err := e.db.WithContext(ctx).
		Select("total_amount").
		Where("user_id = ? AND created_at >= ? AND created_at < ?", userID, from.UTC(), to.UTC()).
		Find(&invoices).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, inv := range invoices {
		total = total.Add(inv.TotalAmount)
	}
	return total, nil
}
