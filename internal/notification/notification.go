package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/wonny/orion/internal/contracts"
	"github.com/wonny/orion/pkg/config"
	"github.com/wonny/orion/pkg/httputil"
	"github.com/wonny/orion/pkg/logger"
)

// ErrNotConfigured is returned when no alert channel is configured
var ErrNotConfigured = errors.New("no notification channel configured")

// Message is a formatted alert ready for delivery
type Message struct {
	Subject string                      `json:"subject"`
	Text    string                      `json:"text"`
	Results []contracts.ScreeningResult `json:"results"`
}

// Channel delivers a message to one destination
type Channel interface {
	Name() string
	Send(ctx context.Context, msg Message) error
}

// Service fans alerts out to every configured channel
// ⭐ SSOT: 알림 발송은 이 서비스를 통해서만
type Service struct {
	channels []Channel
	logger   *logger.Logger
}

// IsConfigured reports whether at least one channel has enough settings to send
func IsConfigured(cfg config.NotificationConfig) bool {
	return emailConfigured(cfg) || telegramConfigured(cfg) || cfg.WebhookURL != ""
}

func emailConfigured(cfg config.NotificationConfig) bool {
	return cfg.SMTPHost != "" && cfg.FromAddress != "" && len(cfg.ToAddresses) > 0
}

func telegramConfigured(cfg config.NotificationConfig) bool {
	return cfg.TelegramToken != "" && cfg.TelegramChatID != 0
}

// New builds the channels present in cfg
func New(cfg config.NotificationConfig, httpClient *httputil.Client, log *logger.Logger) (*Service, error) {
	if !IsConfigured(cfg) {
		return nil, ErrNotConfigured
	}

	var channels []Channel
	if emailConfigured(cfg) {
		channels = append(channels, NewEmailChannel(cfg))
	}
	if telegramConfigured(cfg) {
		tg, err := NewTelegramChannel(cfg.TelegramToken, cfg.TelegramChatID)
		if err != nil {
			return nil, fmt.Errorf("telegram channel: %w", err)
		}
		channels = append(channels, tg)
	}
	if cfg.WebhookURL != "" {
		channels = append(channels, NewWebhookChannel(cfg.WebhookURL, httpClient))
	}

	return NewService(log, channels...), nil
}

// NewService creates a service over explicit channels
func NewService(log *logger.Logger, channels ...Channel) *Service {
	return &Service{channels: channels, logger: log}
}

// Channels returns the names of the configured channels
func (s *Service) Channels() []string {
	names := make([]string, 0, len(s.channels))
	for _, ch := range s.channels {
		names = append(names, ch.Name())
	}
	return names
}

// SendAlert notifies about a single match and returns the number of channels delivered
func (s *Service) SendAlert(ctx context.Context, result contracts.ScreeningResult) int {
	return s.dispatch(ctx, FormatAlert(result))
}

// SendBatch notifies about several matches in one message per channel
func (s *Service) SendBatch(ctx context.Context, results []contracts.ScreeningResult) int {
	if len(results) == 0 {
		return 0
	}
	return s.dispatch(ctx, FormatBatch(results))
}

// Notify picks a single alert for one match and a batch otherwise
func (s *Service) Notify(ctx context.Context, matches []contracts.ScreeningResult) int {
	if len(matches) == 1 {
		return s.SendAlert(ctx, matches[0])
	}
	return s.SendBatch(ctx, matches)
}

func (s *Service) dispatch(ctx context.Context, msg Message) int {
	delivered := 0
	for _, ch := range s.channels {
		if err := ch.Send(ctx, msg); err != nil {
			s.logger.WithError(err).WithField("channel", ch.Name()).Warn("Notification failed")
			continue
		}
		delivered++
	}

	s.logger.WithFields(map[string]interface{}{
		"subject":   msg.Subject,
		"delivered": delivered,
		"channels":  len(s.channels),
	}).Info("Notification dispatched")
	return delivered
}
