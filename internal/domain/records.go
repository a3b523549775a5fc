package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Status values as the reseller backend emits them. Comparisons are case-sensitive.
const (
	StatusActive = "ACTIVE"

	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"

	PaymentStatusPending = "PENDING"
)

type Customer struct {
	ID   ID     `json:"id"`
	Name string `json:"name,omitempty"`
}

type Order struct {
	ID            ID        `json:"id"`
	OrderNumber   string    `json:"orderNumber"`
	CustomerName  string    `json:"customerName"`
	TotalAmount   Amount    `json:"totalAmount"`
	Status        string    `json:"status"`
	PaymentStatus string    `json:"paymentStatus"`
	CreatedAt     Timestamp `json:"createdAt"`
}

// AwaitingPayment reports orders that still need the customer to pay.
func (o Order) AwaitingPayment() bool {
	return o.Status == OrderStatusPending ||
		(o.Status == OrderStatusConfirmed && o.PaymentStatus == PaymentStatusPending)
}

type Contract struct {
	ID     ID     `json:"id"`
	Status string `json:"status"`
}

type Domain struct {
	ID         ID        `json:"id"`
	Name       string    `json:"domainName,omitempty"`
	CustomerID *ID       `json:"customerId"`
	Status     string    `json:"status"`
	ExpiryDate Timestamp `json:"expiryDate"`
}

// Purchased reports whether the domain is owned by a customer.
func (d Domain) Purchased() bool {
	return d.CustomerID != nil && *d.CustomerID != ""
}

type HostingInstance struct {
	ID         ID        `json:"id"`
	Status     string    `json:"status"`
	ExpiryDate Timestamp `json:"expiryDate"`
}

type VpsInstance struct {
	ID     ID     `json:"id"`
	Status string `json:"status,omitempty"`
}

// Collections is one fetch cycle's worth of backend records.
type Collections struct {
	Customers []Customer
	Orders    []Order
	Contracts []Contract
	Domains   []Domain
	Hosting   []HostingInstance
	VPS       []VpsInstance

	// Degraded names the collections the backend answered with a non-2xx status.
	Degraded []string
}

// =============================================================================
// Boundary types
// =============================================================================

// ID accepts either a JSON string or number.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("id: %w", err)
	}
	*id = ID(n.String())
	return nil
}

// Amount keeps the backend's textual decimal (string or number) untouched.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("amount: %w", err)
		}
		*a = Amount(n.String())
	}
	return nil
}

var leadingDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Float parses the longest leading decimal, ignoring trailing garbage.
// Text without a leading number, and values that overflow, count as 0.
func (a Amount) Float() float64 {
	s := strings.TrimLeft(string(a), " \t\n\r\v\f")
	m := leadingDecimal.FindString(s)
	if m == "" {
		return 0
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil || math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}

// Timestamp is an optional instant. The zero value means the field was absent.
type Timestamp struct {
	time.Time
}

var dateOnlyLayouts = []string{"2006-01-02"}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// ParseTimestamp accepts RFC 3339 instants and bare dates (UTC midnight).
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return ts, nil
	}
	for _, layout := range dateOnlyLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}
