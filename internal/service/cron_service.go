package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"reseller-dashboard/internal/repository"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const (
	jobRefresh = "refresh"
	jobDigest  = "digest"

	jobTimeout = 2 * time.Minute
)

var errNoStatsYet = errors.New("no dashboard stats computed yet")

// CronService runs the settings-driven background jobs: periodic stats
// refresh and the alert digest.
type CronService struct {
	Cron     *cron.Cron
	Repo     repository.SettingsRepository
	Session  *DashboardSession
	Notifier *NotifierService
	EntryIDs map[string]cron.EntryID

	mu    sync.Mutex
	clock func() time.Time
}

func NewCronService(repo repository.SettingsRepository, session *DashboardSession, notifier *NotifierService, loc *time.Location) *CronService {
	if loc == nil {
		loc = time.Local
	}
	return &CronService{
		Cron:     cron.New(cron.WithLocation(loc)),
		Repo:     repo,
		Session:  session,
		Notifier: notifier,
		EntryIDs: make(map[string]cron.EntryID),
		clock:    func() time.Time { return time.Now().In(loc) },
	}
}

func (s *CronService) Start() {
	s.ReloadJobs()
	s.Cron.Start()
}

// Stop halts the scheduler and waits for running jobs.
func (s *CronService) Stop() {
	<-s.Cron.Stop().Done()
}

// ReloadJobs re-reads settings and replaces every registered job.
func (s *CronService) ReloadJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	settings, err := s.Repo.GetSettings(ctx)
	if err != nil {
		logrus.WithError(err).Error("[Cron] cannot load settings, jobs left unchanged")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.EntryIDs {
		s.Cron.Remove(id)
	}
	s.EntryIDs = make(map[string]cron.EntryID)

	if settings.RefreshEnabled && settings.RefreshSchedule != "" {
		s.registerJob(jobRefresh, settings.RefreshSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			_ = s.PerformRefresh(ctx)
		})
	}

	if settings.DigestEnabled && settings.DigestSchedule != "" {
		s.registerJob(jobDigest, settings.DigestSchedule, func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if _, err := s.PerformDigest(ctx); err != nil {
				logrus.WithError(err).Error("[Cron] digest job failed")
			}
		})
	}
}

// registerJob expects s.mu held.
func (s *CronService) registerJob(name, schedule string, cmd func()) {
	id, err := s.Cron.AddFunc(schedule, cmd)
	if err != nil {
		logrus.WithFields(logrus.Fields{"job": name, "schedule": schedule}).WithError(err).Error("[Cron] invalid schedule, job not registered")
		return
	}
	s.EntryIDs[name] = id
	logrus.WithFields(logrus.Fields{"job": name, "schedule": schedule}).Info("[Cron] job scheduled")
}

// JobNames lists the currently registered jobs.
func (s *CronService) JobNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.EntryIDs))
	for name := range s.EntryIDs {
		names = append(names, name)
	}
	return names
}

// PerformRefresh recomputes the stats. A refresh already running is not an error.
func (s *CronService) PerformRefresh(ctx context.Context) error {
	err := s.Session.Refresh(ctx)
	if errors.Is(err, ErrSessionBusy) {
		logrus.Info("[Cron] refresh already running, skipping")
		return nil
	}
	return err
}

// PerformDigest refreshes the stats and hands them to the notifier. When the
// refresh fails the last good stats are used, if there are any.
func (s *CronService) PerformDigest(ctx context.Context) (bool, error) {
	if err := s.PerformRefresh(ctx); err != nil {
		logrus.WithError(err).Warn("[Cron] refresh before digest failed, using last good stats")
	}

	snap := s.Session.Snapshot()
	if snap.ComputedAt == nil {
		return false, errNoStatsYet
	}
	return s.Notifier.NotifyDigest(ctx, snap.Stats, s.clock())
}
