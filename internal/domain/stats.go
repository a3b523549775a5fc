package domain

type AlertType string

const (
	AlertWarning AlertType = "warning"
	AlertError   AlertType = "error"
	AlertInfo    AlertType = "info"
)

type AlertKind string

const (
	AlertExpiringDomains AlertKind = "expiring_domains"
	AlertExpiredDomains  AlertKind = "expired_domains"
	AlertExpiredHosting  AlertKind = "expired_hosting"
	AlertPendingPayments AlertKind = "pending_payments"
)

type Alert struct {
	Kind        AlertKind `json:"kind"`
	Type        AlertType `json:"type"`
	Message     string    `json:"message"`
	Description string    `json:"description"`
	Count       int       `json:"count"`
}

type OrderSummary struct {
	ID       string `json:"id"`
	Customer string `json:"customer"`
	Amount   string `json:"amount"`
	Status   string `json:"status"`
}

type DashboardStats struct {
	TotalCustomers     int            `json:"totalCustomers"`
	MonthlyOrders      int            `json:"monthlyOrders"`
	LastMonthOrders    int            `json:"lastMonthOrders"`
	OrderChangePercent int            `json:"orderChangePercent"`
	ActiveContracts    int            `json:"activeContracts"`
	MonthlyRevenue     float64        `json:"monthlyRevenue"`
	DomainCount        int            `json:"domainCount"`
	HostingCount       int            `json:"hostingCount"`
	VpsCount           int            `json:"vpsCount"`
	RecentOrders       []OrderSummary `json:"recentOrders"`
	Alerts             []Alert        `json:"alerts"`
}

// EmptyStats is the state shown before the first successful cycle.
func EmptyStats() DashboardStats {
	return DashboardStats{
		RecentOrders: []OrderSummary{},
		Alerts:       []Alert{},
	}
}

type Trend string

const (
	TrendUp   Trend = "up"
	TrendDown Trend = "down"
	TrendFlat Trend = "flat"
)

// StatCard is one headline tile on the dashboard.
type StatCard struct {
	Key    string `json:"key"`
	Title  string `json:"title"`
	Value  string `json:"value"`
	Change string `json:"change,omitempty"`
	Trend  Trend  `json:"trend,omitempty"`
}
