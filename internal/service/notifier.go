package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"text/template"
	"time"

	"reseller-dashboard/internal/domain"
	"reseller-dashboard/internal/repository"

	"github.com/sirupsen/logrus"
)

const (
	defaultTelegramAPI  = "https://api.telegram.org"
	defaultSendInterval = 1100 * time.Millisecond
	queueSize           = 1000
)

// DigestData is what digest templates see, e.g. {{.MonthlyRevenue}} or {{range .Alerts}}.
type DigestData struct {
	Time           string
	Alerts         []domain.Alert
	MonthlyOrders  int
	OrderChange    string
	MonthlyRevenue string
	DomainCount    int
	HostingCount   int
	VpsCount       int
}

const defaultDigestTemplate = `⚠️ <b>[Cảnh báo dịch vụ]</b> {{.Time}}
{{range .Alerts}}• {{.Message}} - {{.Description}}
{{end}}
Đơn hàng tháng này: {{.MonthlyOrders}} ({{.OrderChange}})
Doanh thu: {{.MonthlyRevenue}}
Tên miền: {{.DomainCount}} | Hosting: {{.HostingCount}} | VPS: {{.VpsCount}}`

const testMessage = "✅ Kết nối thông báo hoạt động bình thường."

type telegramJob struct {
	Token   string
	ChatID  string
	Message string
}

type webhookJob struct {
	URL      string
	Message  string
	User     string
	Password string
}

type NotifierService struct {
	Repo repository.SettingsRepository

	tgQueue      chan telegramJob
	webhookQueue chan webhookJob
	httpClient   *http.Client
	telegramAPI  string
	sendInterval time.Duration
	stopOnce     sync.Once
}

func NewNotifierService(repo repository.SettingsRepository) *NotifierService {
	return newNotifierService(repo, defaultTelegramAPI, defaultSendInterval)
}

func newNotifierService(repo repository.SettingsRepository, telegramAPI string, interval time.Duration) *NotifierService {
	n := &NotifierService{
		Repo:         repo,
		tgQueue:      make(chan telegramJob, queueSize),
		webhookQueue: make(chan webhookJob, queueSize),
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		telegramAPI:  strings.TrimRight(telegramAPI, "/"),
		sendInterval: interval,
	}

	go n.startTelegramWorker()
	go n.startWebhookWorker()

	return n
}

// Stop closes the queues; workers drain what is already queued and exit.
func (n *NotifierService) Stop() {
	n.stopOnce.Do(func() {
		close(n.tgQueue)
		close(n.webhookQueue)
	})
}

// =============================================================================
// Public Methods
// =============================================================================

// NotifyDigest sends the alert digest for stats when digests are enabled, a
// channel is configured and either the alert set changed or the cooldown has
// passed. It reports whether a digest was queued.
func (n *NotifierService) NotifyDigest(ctx context.Context, stats domain.DashboardStats, now time.Time) (bool, error) {
	settings, err := n.Repo.GetSettings(ctx)
	if err != nil {
		return false, err
	}
	if !settings.DigestEnabled || !settings.HasChannel() || len(stats.Alerts) == 0 {
		return false, nil
	}

	// 1. Skip when nothing changed since the last digest and the cooldown holds
	fingerprint := AlertFingerprint(stats.Alerts)
	if fingerprint == settings.LastDigestFingerprint && now.Sub(settings.LastDigestAt) < settings.DigestCooldown() {
		logrus.WithField("fingerprint", fingerprint).Debug("[Notifier] digest unchanged and within cooldown, skipping")
		return false, nil
	}

	// 2. Render (user template or built-in) and enqueue
	tmpl := settings.DigestTemplate
	if strings.TrimSpace(tmpl) == "" {
		tmpl = defaultDigestTemplate
	}
	msg, err := renderTemplate(tmpl, newDigestData(stats, now))
	if err != nil {
		return false, fmt.Errorf("render digest: %w", err)
	}

	n.sendToChannels(settings, msg)

	// 3. Remember what was sent
	if err := n.Repo.UpdateDigestState(ctx, now, fingerprint); err != nil {
		return true, err
	}
	logrus.WithField("alerts", len(stats.Alerts)).Info("[Notifier] alert digest queued")
	return true, nil
}

// SendTestMessage delivers a fixed message synchronously over every enabled channel.
func (n *NotifierService) SendTestMessage(ctx context.Context, settings domain.NotificationSettings) error {
	if !settings.HasChannel() {
		return errors.New("no notification channel is enabled")
	}

	var errs []error
	if settings.TelegramReady() {
		if err := n.sendTelegram(ctx, settings.TelegramBotToken, settings.TelegramChatID, testMessage); err != nil {
			errs = append(errs, fmt.Errorf("telegram: %w", err))
		}
	}
	if settings.WebhookReady() {
		if err := n.sendWebhook(ctx, settings.WebhookURL, testMessage, settings.WebhookUser, settings.WebhookPassword); err != nil {
			errs = append(errs, fmt.Errorf("webhook: %w", err))
		}
	}
	return errors.Join(errs...)
}

// AlertFingerprint identifies an alert set by kind and count.
func AlertFingerprint(alerts []domain.Alert) string {
	parts := make([]string, 0, len(alerts))
	for _, a := range alerts {
		parts = append(parts, fmt.Sprintf("%s=%d", a.Kind, a.Count))
	}
	return strings.Join(parts, ";")
}

func newDigestData(stats domain.DashboardStats, now time.Time) DigestData {
	return DigestData{
		Time:           now.Format("02/01/2006 15:04"),
		Alerts:         stats.Alerts,
		MonthlyOrders:  stats.MonthlyOrders,
		OrderChange:    FormatPercent(stats.OrderChangePercent),
		MonthlyRevenue: FormatVND(stats.MonthlyRevenue),
		DomainCount:    stats.DomainCount,
		HostingCount:   stats.HostingCount,
		VpsCount:       stats.VpsCount,
	}
}

func renderTemplate(tmplStr string, data any) (string, error) {
	tmpl, err := template.New("notify").Parse(tmplStr)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// =============================================================================
// Queues and workers
// =============================================================================

func (n *NotifierService) sendToChannels(settings *domain.NotificationSettings, msg string) {
	if settings.TelegramReady() {
		select {
		case n.tgQueue <- telegramJob{Token: settings.TelegramBotToken, ChatID: settings.TelegramChatID, Message: msg}:
			notificationsTotal.WithLabelValues("telegram", "queued").Inc()
		default:
			notificationsTotal.WithLabelValues("telegram", "dropped").Inc()
			logrus.Warn("[Notifier] telegram queue full, message dropped")
		}
	}
	if settings.WebhookReady() {
		select {
		case n.webhookQueue <- webhookJob{URL: settings.WebhookURL, Message: msg, User: settings.WebhookUser, Password: settings.WebhookPassword}:
			notificationsTotal.WithLabelValues("webhook", "queued").Inc()
		default:
			notificationsTotal.WithLabelValues("webhook", "dropped").Inc()
			logrus.Warn("[Notifier] webhook queue full, message dropped")
		}
	}
}

// Telegram rate-limits bots, so each worker waits between sends.
func (n *NotifierService) startTelegramWorker() {
	logrus.Info("[Notifier] telegram worker started")
	for job := range n.tgQueue {
		if err := n.sendTelegram(context.Background(), job.Token, job.ChatID, job.Message); err != nil {
			notificationsTotal.WithLabelValues("telegram", "failed").Inc()
			logrus.Errorf("[Notifier] telegram send failed: %v", err)
		} else {
			notificationsTotal.WithLabelValues("telegram", "sent").Inc()
		}
		time.Sleep(n.sendInterval)
	}
}

func (n *NotifierService) startWebhookWorker() {
	logrus.Info("[Notifier] webhook worker started")
	for job := range n.webhookQueue {
		if err := n.sendWebhook(context.Background(), job.URL, job.Message, job.User, job.Password); err != nil {
			notificationsTotal.WithLabelValues("webhook", "failed").Inc()
			logrus.Errorf("[Notifier] webhook send failed: %v", err)
		} else {
			notificationsTotal.WithLabelValues("webhook", "sent").Inc()
		}
		time.Sleep(n.sendInterval)
	}
}

func (n *NotifierService) sendWebhook(ctx context.Context, url, message, user, password string) error {
	jsonBytes, err := json.Marshal(map[string]string{"text": message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if user != "" || password != "" {
		req.SetBasicAuth(user, password)
	}

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("status code %d", resp.StatusCode)
	}
	return nil
}

func (n *NotifierService) sendTelegram(ctx context.Context, token, chatID, message string) error {
	apiURL := fmt.Sprintf("%s/bot%s/sendMessage", n.telegramAPI, token)
	jsonBytes, err := json.Marshal(map[string]string{
		"chat_id":    chatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(jsonBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("telegram status code %d", resp.StatusCode)
	}
	return nil
}
