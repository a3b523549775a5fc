package domain

import "time"

const DefaultDigestCooldown = 24 * time.Hour

type NotificationSettings struct {
	// Webhook
	WebhookEnabled  bool   `bson:"webhook_enabled" json:"webhook_enabled"`
	WebhookURL      string `bson:"webhook_url" json:"webhook_url"`
	WebhookUser     string `bson:"webhook_user" json:"webhook_user"`
	WebhookPassword string `bson:"webhook_password" json:"webhook_password"`

	// Telegram
	TelegramEnabled  bool   `bson:"telegram_enabled" json:"telegram_enabled"`
	TelegramBotToken string `bson:"telegram_bot_token" json:"telegram_bot_token"`
	TelegramChatID   string `bson:"telegram_chat_id" json:"telegram_chat_id"`

	// Scheduled refresh of the dashboard stats
	RefreshEnabled  bool   `bson:"refresh_enabled" json:"refresh_enabled"`
	RefreshSchedule string `bson:"refresh_schedule" json:"refresh_schedule"` // cron, e.g. "*/10 * * * *"

	// Alert digest. Empty template means the built-in one.
	DigestEnabled       bool   `bson:"digest_enabled" json:"digest_enabled"`
	DigestSchedule      string `bson:"digest_schedule" json:"digest_schedule"`
	DigestTemplate      string `bson:"digest_tpl" json:"digest_tpl"`
	DigestCooldownHours int    `bson:"digest_cooldown_hours" json:"digest_cooldown_hours"`

	// Digest bookkeeping, written only by the notifier.
	LastDigestAt          time.Time `bson:"last_digest_at" json:"last_digest_at,omitzero"`
	LastDigestFingerprint string    `bson:"last_digest_fingerprint" json:"-"`
}

func (s NotificationSettings) DigestCooldown() time.Duration {
	if s.DigestCooldownHours <= 0 {
		return DefaultDigestCooldown
	}
	return time.Duration(s.DigestCooldownHours) * time.Hour
}

// HasChannel reports whether at least one delivery channel is fully configured.
func (s NotificationSettings) HasChannel() bool {
	return s.TelegramReady() || s.WebhookReady()
}

func (s NotificationSettings) TelegramReady() bool {
	return s.TelegramEnabled && s.TelegramBotToken != "" && s.TelegramChatID != ""
}

func (s NotificationSettings) WebhookReady() bool {
	return s.WebhookEnabled && s.WebhookURL != ""
}
