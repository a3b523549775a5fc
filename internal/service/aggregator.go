package service

import (
	"fmt"
	"math"
	"strings"
	"time"

	"reseller-dashboard/internal/domain"
)

const (
	DefaultExpiryWindowDays  = 30
	DefaultRecentOrdersLimit = 5

	unknownCustomer = "N/A"
	defaultStatus   = "pending"
)

// Aggregator turns one cycle of backend collections into DashboardStats.
// It holds no state besides its options; Compute is a pure function of its inputs.
type Aggregator struct {
	ExpiryWindowDays  int
	RecentOrdersLimit int
}

func NewAggregator(expiryWindowDays, recentOrdersLimit int) *Aggregator {
	if expiryWindowDays <= 0 {
		expiryWindowDays = DefaultExpiryWindowDays
	}
	if recentOrdersLimit < 0 {
		recentOrdersLimit = DefaultRecentOrdersLimit
	}
	return &Aggregator{ExpiryWindowDays: expiryWindowDays, RecentOrdersLimit: recentOrdersLimit}
}

// MonthWindows returns the boundaries used for order counting, in now's location.
// lastMonthEnd is midnight at the start of the previous month's last day.
func MonthWindows(now time.Time) (monthStart, lastMonthStart, lastMonthEnd time.Time) {
	loc := now.Location()
	y, m, _ := now.Date()
	monthStart = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	lastMonthStart = time.Date(y, m-1, 1, 0, 0, 0, 0, loc)
	lastMonthEnd = time.Date(y, m, 0, 0, 0, 0, 0, loc)
	return monthStart, lastMonthStart, lastMonthEnd
}

// OrderChangePercent is the rounded month-over-month change. With no orders
// last month it is 100 when this month has any, otherwise 0.
func OrderChangePercent(current, previous int) int {
	if previous > 0 {
		ratio := float64(current-previous) / float64(previous) * 100
		return int(math.Floor(ratio + 0.5))
	}
	if current > 0 {
		return 100
	}
	return 0
}

func (a *Aggregator) Compute(c domain.Collections, now time.Time) domain.DashboardStats {
	monthStart, lastMonthStart, lastMonthEnd := MonthWindows(now)

	stats := domain.EmptyStats()
	stats.TotalCustomers = len(c.Customers)
	stats.HostingCount = len(c.Hosting)
	stats.VpsCount = len(c.VPS)

	// 1. Order windows and revenue
	var revenue float64
	for _, o := range c.Orders {
		created := o.CreatedAt.Time
		if created.IsZero() {
			continue
		}
		if !created.Before(monthStart) {
			stats.MonthlyOrders++
			revenue = addRevenue(revenue, o.TotalAmount.Float())
		}
		if !created.Before(lastMonthStart) && !created.After(lastMonthEnd) {
			stats.LastMonthOrders++
		}
	}
	stats.MonthlyRevenue = revenue
	stats.OrderChangePercent = OrderChangePercent(stats.MonthlyOrders, stats.LastMonthOrders)

	// 2. Service counts
	for _, ct := range c.Contracts {
		if ct.Status == domain.StatusActive {
			stats.ActiveContracts++
		}
	}
	for _, d := range c.Domains {
		if d.Purchased() {
			stats.DomainCount++
		}
	}

	// 3. Presentation lists
	stats.RecentOrders = a.recentOrders(c.Orders)
	stats.Alerts = a.alerts(c, now)
	return stats
}

// addRevenue keeps revenue finite and non-negative: negative amounts (refunds,
// bad data) contribute nothing and the sum saturates at math.MaxFloat64.
func addRevenue(sum, amount float64) float64 {
	if amount <= 0 || math.IsNaN(amount) {
		return sum
	}
	if amount > math.MaxFloat64-sum {
		return math.MaxFloat64
	}
	return sum + amount
}

func (a *Aggregator) recentOrders(orders []domain.Order) []domain.OrderSummary {
	n := min(a.RecentOrdersLimit, len(orders))
	out := make([]domain.OrderSummary, 0, n)
	for _, o := range orders[:n] {
		out = append(out, summarizeOrder(o))
	}
	return out
}

func summarizeOrder(o domain.Order) domain.OrderSummary {
	id := o.OrderNumber
	if id == "" {
		id = "ORD-" + string(o.ID)
	}
	customer := o.CustomerName
	if customer == "" {
		customer = unknownCustomer
	}
	status := strings.ToLower(o.Status)
	if status == "" {
		status = defaultStatus
	}
	return domain.OrderSummary{
		ID:       id,
		Customer: customer,
		Amount:   FormatVND(o.TotalAmount.Float()),
		Status:   status,
	}
}

// alerts emits at most one alert per kind, always in the same order.
func (a *Aggregator) alerts(c domain.Collections, now time.Time) []domain.Alert {
	windowEnd := now.Add(time.Duration(a.ExpiryWindowDays) * 24 * time.Hour)

	var expiring, expiredDomains int
	for _, d := range c.Domains {
		if d.Status != domain.StatusActive || d.ExpiryDate.IsZero() {
			continue
		}
		exp := d.ExpiryDate.Time
		switch {
		case exp.Before(now):
			expiredDomains++
		case !exp.After(windowEnd):
			expiring++
		}
	}

	var expiredHosting int
	for _, h := range c.Hosting {
		if h.Status == domain.StatusActive && !h.ExpiryDate.IsZero() && h.ExpiryDate.Before(now) {
			expiredHosting++
		}
	}

	var pending int
	for _, o := range c.Orders {
		if o.AwaitingPayment() {
			pending++
		}
	}

	alerts := []domain.Alert{}
	if expiring > 0 {
		alerts = append(alerts, domain.Alert{
			Kind:        domain.AlertExpiringDomains,
			Type:        domain.AlertWarning,
			Message:     fmt.Sprintf("%d tên miền sắp hết hạn", expiring),
			Description: fmt.Sprintf("Trong vòng %d ngày tới", a.ExpiryWindowDays),
			Count:       expiring,
		})
	}
	if expiredDomains > 0 {
		alerts = append(alerts, domain.Alert{
			Kind:        domain.AlertExpiredDomains,
			Type:        domain.AlertError,
			Message:     fmt.Sprintf("%d tên miền đã hết hạn", expiredDomains),
			Description: "Cần gia hạn ngay để tránh mất tên miền",
			Count:       expiredDomains,
		})
	}
	if expiredHosting > 0 {
		alerts = append(alerts, domain.Alert{
			Kind:        domain.AlertExpiredHosting,
			Type:        domain.AlertError,
			Message:     fmt.Sprintf("%d gói hosting đã hết hạn", expiredHosting),
			Description: "Cần gia hạn hoặc tạm ngưng dịch vụ",
			Count:       expiredHosting,
		})
	}
	if pending > 0 {
		alerts = append(alerts, domain.Alert{
			Kind:        domain.AlertPendingPayments,
			Type:        domain.AlertInfo,
			Message:     fmt.Sprintf("%d đơn hàng chờ thanh toán", pending),
			Description: "Đơn hàng đang chờ xác nhận thanh toán",
			Count:       pending,
		})
	}
	return alerts
}

// BuildStatCards lays out the four headline tiles.
func BuildStatCards(stats domain.DashboardStats) []domain.StatCard {
	trend := domain.TrendFlat
	switch {
	case stats.OrderChangePercent > 0:
		trend = domain.TrendUp
	case stats.OrderChangePercent < 0:
		trend = domain.TrendDown
	}

	return []domain.StatCard{
		{Key: "customers", Title: "Tổng khách hàng", Value: FormatCount(stats.TotalCustomers)},
		{
			Key:    "monthly_orders",
			Title:  "Đơn hàng tháng này",
			Value:  FormatCount(stats.MonthlyOrders),
			Change: FormatPercent(stats.OrderChangePercent),
			Trend:  trend,
		},
		{Key: "active_contracts", Title: "Hợp đồng hiệu lực", Value: FormatCount(stats.ActiveContracts)},
		{Key: "monthly_revenue", Title: "Doanh thu tháng này", Value: FormatVND(stats.MonthlyRevenue)},
	}
}
