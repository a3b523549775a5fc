package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reseller-dashboard/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Path string
	User string
	Pass string
	Body map[string]string
}

func captureServer(t *testing.T, status int) (*httptest.Server, <-chan capturedRequest) {
	t.Helper()
	ch := make(chan capturedRequest, 10)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		user, pass, _ := r.BasicAuth()
		ch <- capturedRequest{Path: r.URL.Path, User: user, Pass: pass, Body: body}
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, ch
}

func waitRequest(t *testing.T, ch <-chan capturedRequest) capturedRequest {
	t.Helper()
	select {
	case req := <-ch:
		return req
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for outbound notification")
		return capturedRequest{}
	}
}

func alertStats() domain.DashboardStats {
	stats := domain.EmptyStats()
	stats.MonthlyOrders = 4
	stats.MonthlyRevenue = 1200000
	stats.Alerts = []domain.Alert{
		{Kind: domain.AlertExpiredDomains, Type: domain.AlertError, Message: "2 tên miền đã hết hạn", Description: "Cần gia hạn", Count: 2},
		{Kind: domain.AlertPendingPayments, Type: domain.AlertInfo, Message: "1 đơn hàng chờ thanh toán", Description: "Chờ", Count: 1},
	}
	return stats
}

func TestNotifyDigest_SendsWebhookAndRecordsState(t *testing.T) {
	hook, reqs := captureServer(t, http.StatusOK)
	repo := &memorySettingsRepo{settings: domain.NotificationSettings{
		DigestEnabled:   true,
		WebhookEnabled:  true,
		WebhookURL:      hook.URL + "/hook",
		WebhookUser:     "ops",
		WebhookPassword: "pw",
	}}
	n := newNotifierService(repo, "http://unused", 0)
	t.Cleanup(n.Stop)
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, saigon)

	sent, err := n.NotifyDigest(context.Background(), alertStats(), now)
	require.NoError(t, err)
	assert.True(t, sent)

	req := waitRequest(t, reqs)
	assert.Equal(t, "/hook", req.Path)
	assert.Equal(t, "ops", req.User)
	assert.Equal(t, "pw", req.Pass)
	assert.Contains(t, req.Body["text"], "2 tên miền đã hết hạn")
	assert.Contains(t, req.Body["text"], "1.200.000\u00a0₫")

	state := repo.snapshot()
	assert.True(t, now.Equal(state.LastDigestAt))
	assert.Equal(t, "expired_domains=2;pending_payments=1", state.LastDigestFingerprint)
}

func TestNotifyDigest_Cooldown(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, saigon)
	stats := alertStats()
	base := domain.NotificationSettings{
		DigestEnabled:         true,
		WebhookEnabled:        true,
		WebhookURL:            "http://127.0.0.1:1/unreachable",
		LastDigestFingerprint: AlertFingerprint(stats.Alerts),
	}

	tests := []struct {
		name     string
		lastSent time.Time
		mutate   func(*domain.DashboardStats)
		want     bool
	}{
		{"same alerts within cooldown", now.Add(-time.Hour), nil, false},
		{"same alerts after cooldown", now.Add(-25 * time.Hour), nil, true},
		{"changed alerts within cooldown", now.Add(-time.Hour), func(s *domain.DashboardStats) { s.Alerts[0].Count = 3 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := base
			settings.LastDigestAt = tt.lastSent
			repo := &memorySettingsRepo{settings: settings}
			n := newNotifierService(repo, "http://unused", 0)
			t.Cleanup(n.Stop)

			s := alertStats()
			if tt.mutate != nil {
				tt.mutate(&s)
			}
			sent, err := n.NotifyDigest(context.Background(), s, now)
			require.NoError(t, err)
			assert.Equal(t, tt.want, sent)
		})
	}
}

func TestNotifyDigest_Skips(t *testing.T) {
	now := time.Now()
	tests := []struct {
		name     string
		settings domain.NotificationSettings
		stats    domain.DashboardStats
	}{
		{"digest disabled", domain.NotificationSettings{WebhookEnabled: true, WebhookURL: "http://x"}, alertStats()},
		{"no channel", domain.NotificationSettings{DigestEnabled: true}, alertStats()},
		{"telegram missing chat id", domain.NotificationSettings{DigestEnabled: true, TelegramEnabled: true, TelegramBotToken: "t"}, alertStats()},
		{"no alerts", domain.NotificationSettings{DigestEnabled: true, WebhookEnabled: true, WebhookURL: "http://x"}, domain.EmptyStats()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &memorySettingsRepo{settings: tt.settings}
			n := newNotifierService(repo, "http://unused", 0)
			t.Cleanup(n.Stop)

			sent, err := n.NotifyDigest(context.Background(), tt.stats, now)
			require.NoError(t, err)
			assert.False(t, sent)
			assert.Empty(t, repo.snapshot().LastDigestFingerprint)
		})
	}
}

func TestNotifyDigest_Errors(t *testing.T) {
	repo := &memorySettingsRepo{getErr: errors.New("mongo down")}
	n := newNotifierService(repo, "http://unused", 0)
	t.Cleanup(n.Stop)

	_, err := n.NotifyDigest(context.Background(), alertStats(), time.Now())
	assert.EqualError(t, err, "mongo down")

	repo = &memorySettingsRepo{settings: domain.NotificationSettings{
		DigestEnabled: true, WebhookEnabled: true, WebhookURL: "http://x", DigestTemplate: "{{.Nope",
	}}
	n.Repo = repo
	_, err = n.NotifyDigest(context.Background(), alertStats(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render digest")
}

func TestSendTestMessage(t *testing.T) {
	tg, tgReqs := captureServer(t, http.StatusOK)
	hook, _ := captureServer(t, http.StatusInternalServerError)
	n := newNotifierService(&memorySettingsRepo{}, tg.URL, 0)
	t.Cleanup(n.Stop)

	err := n.SendTestMessage(context.Background(), domain.NotificationSettings{
		TelegramEnabled:  true,
		TelegramBotToken: "123:abc",
		TelegramChatID:   "-100",
		WebhookEnabled:   true,
		WebhookURL:       hook.URL,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
	assert.NotContains(t, err.Error(), "telegram")

	req := waitRequest(t, tgReqs)
	assert.Equal(t, "/bot123:abc/sendMessage", req.Path)
	assert.Equal(t, "-100", req.Body["chat_id"])
	assert.Equal(t, "HTML", req.Body["parse_mode"])
}

func TestSendTestMessage_NoChannel(t *testing.T) {
	n := newNotifierService(&memorySettingsRepo{}, "http://unused", 0)
	t.Cleanup(n.Stop)

	assert.Error(t, n.SendTestMessage(context.Background(), domain.NotificationSettings{}))
}

func TestAlertFingerprint(t *testing.T) {
	assert.Equal(t, "", AlertFingerprint(nil))
	assert.Equal(t, "expiring_domains=3", AlertFingerprint([]domain.Alert{{Kind: domain.AlertExpiringDomains, Count: 3}}))
}
