package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reseller-dashboard/internal/domain"

	"github.com/sirupsen/logrus"
)

var ErrSessionBusy = errors.New("dashboard refresh already in progress")

// DashboardSnapshot is what the API serves: the last good stats plus cycle state.
type DashboardSnapshot struct {
	Stats      domain.DashboardStats `json:"stats"`
	Cards      []domain.StatCard     `json:"cards"`
	Loading    bool                  `json:"loading"`
	ComputedAt *time.Time            `json:"computedAt"`
	LastError  string                `json:"lastError,omitempty"`
	Degraded   []string              `json:"degraded,omitempty"` // collections refused with non-2xx
}

// DashboardSession owns the dashboard's view state. The first Start runs one
// refresh; later Starts are no-ops. A failed cycle keeps the previous stats.
type DashboardSession struct {
	fetcher    CollectionsFetcher
	aggregator *Aggregator
	clock      func() time.Time

	mu         sync.RWMutex
	started    bool
	loading    bool
	stats      domain.DashboardStats
	computedAt time.Time
	lastErr    string
	degraded   []string
}

func NewDashboardSession(fetcher CollectionsFetcher, aggregator *Aggregator, loc *time.Location) *DashboardSession {
	if loc == nil {
		loc = time.Local
	}
	return &DashboardSession{
		fetcher:    fetcher,
		aggregator: aggregator,
		clock:      func() time.Time { return time.Now().In(loc) },
		stats:      domain.EmptyStats(),
	}
}

// Start performs the session's one initial load. It reports whether this
// call was the one that triggered it.
func (s *DashboardSession) Start(ctx context.Context) bool {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return false
	}
	s.started = true
	s.mu.Unlock()

	_ = s.Refresh(ctx)
	return true
}

// Started reports whether the initial load has been triggered.
func (s *DashboardSession) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Refresh runs a full fetch-and-aggregate cycle. Concurrent calls get ErrSessionBusy.
func (s *DashboardSession) Refresh(ctx context.Context) error {
	s.mu.Lock()
	if s.loading {
		s.mu.Unlock()
		return ErrSessionBusy
	}
	s.loading = true
	s.started = true
	s.mu.Unlock()

	// 1. Fetch + aggregate outside the lock
	start := time.Now()
	now := s.clock()
	stats, degraded, err := s.compute(ctx, now)
	refreshDuration.Observe(time.Since(start).Seconds())

	// 2. Publish, or keep the last good stats on failure
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false

	if err != nil {
		s.lastErr = err.Error()
		refreshTotal.WithLabelValues("error").Inc()
		logrus.WithError(err).Error("[Dashboard] refresh failed, keeping previous stats")
		return err
	}

	s.stats = stats
	s.computedAt = now
	s.lastErr = ""
	s.degraded = degraded
	refreshTotal.WithLabelValues("ok").Inc()
	recordAlertGauges(stats.Alerts)

	logrus.WithFields(logrus.Fields{
		"monthly_orders": stats.MonthlyOrders,
		"alerts":         len(stats.Alerts),
		"degraded":       degraded,
		"took":           time.Since(start).String(),
	}).Info("[Dashboard] stats refreshed")
	return nil
}

func (s *DashboardSession) compute(ctx context.Context, now time.Time) (stats domain.DashboardStats, degraded []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("aggregate panic: %v", r)
		}
	}()

	cols, err := s.fetcher.FetchAll(ctx)
	if err != nil {
		return stats, nil, fmt.Errorf("fetch collections: %w", err)
	}
	return s.aggregator.Compute(cols, now), cols.Degraded, nil
}

func (s *DashboardSession) Snapshot() DashboardSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := DashboardSnapshot{
		Stats:     s.stats,
		Cards:     BuildStatCards(s.stats),
		Loading:   s.loading,
		LastError: s.lastErr,
		Degraded:  s.degraded,
	}
	if !s.computedAt.IsZero() {
		at := s.computedAt
		snap.ComputedAt = &at
	}
	return snap
}

func recordAlertGauges(alerts []domain.Alert) {
	activeAlerts.Reset()
	for _, a := range alerts {
		activeAlerts.WithLabelValues(string(a.Kind)).Set(float64(a.Count))
	}
}
