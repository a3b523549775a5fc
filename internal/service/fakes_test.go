package service

import (
	"context"
	"sync"
	"time"

	"reseller-dashboard/internal/domain"
)

// memorySettingsRepo is an in-memory repository.SettingsRepository.
type memorySettingsRepo struct {
	mu       sync.Mutex
	settings domain.NotificationSettings
	getErr   error
}

func (r *memorySettingsRepo) GetSettings(context.Context) (*domain.NotificationSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	s := r.settings
	return &s, nil
}

func (r *memorySettingsRepo) SaveSettings(_ context.Context, s domain.NotificationSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings = s
	return nil
}

func (r *memorySettingsRepo) UpdateDigestState(_ context.Context, at time.Time, fp string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings.LastDigestAt = at
	r.settings.LastDigestFingerprint = fp
	return nil
}

func (r *memorySettingsRepo) snapshot() domain.NotificationSettings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}
