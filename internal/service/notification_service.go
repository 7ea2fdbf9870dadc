package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/clientflow-auth/internal/config"
	"github.com/spec-kit/clientflow-auth/internal/events"
)

// NotificationService handles emitting notifications for auth events.
// Delivery is stubbed: messages are logged instead of sent.
type NotificationService struct {
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	cfg         config.NotificationConfig
	frontendURL string
	exposeLinks bool
}

// NewNotificationService creates the service. Reset links are only written
// to the debug log outside production.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig, app config.AppConfig) *NotificationService {
	return &NotificationService{
		dispatcher:  dispatcher,
		logger:      logger,
		cfg:         cfg,
		frontendURL: app.FrontendURL,
		exposeLinks: !app.IsProduction(),
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventUserRegistered, n.handleUserRegistered)
	n.dispatcher.Subscribe(events.EventPasswordResetRequested, n.handlePasswordResetRequested)
	n.dispatcher.Subscribe(events.EventPasswordResetCompleted, n.handlePasswordResetCompleted)
	n.dispatcher.Subscribe(events.EventSessionsRevoked, n.handleSessionsRevoked)
}

func (n *NotificationService) handleUserRegistered(ctx context.Context, event events.Event) error {
	n.logger.Info("UserRegistered", zap.String("user_id", event.UserID))
	n.sendEmailNotificationStub(ctx, event, "welcome")
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handlePasswordResetRequested(ctx context.Context, event events.Event) error {
	n.logger.Info("PasswordResetRequested", zap.String("user_id", event.UserID))
	payload, ok := event.Payload.(events.PasswordResetRequestedPayload)
	if ok && n.exposeLinks {
		n.logger.Debug("password reset link", zap.String("link", n.ResetLink(payload.Token)))
	}
	n.sendEmailNotificationStub(ctx, event, "password_reset")
	return nil
}

func (n *NotificationService) handlePasswordResetCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("PasswordResetCompleted", zap.String("user_id", event.UserID))
	n.sendEmailNotificationStub(ctx, event, "password_changed")
	return nil
}

func (n *NotificationService) handleSessionsRevoked(ctx context.Context, event events.Event) error {
	n.logger.Info("SessionsRevoked", zap.String("user_id", event.UserID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

// ResetLink builds the frontend URL a user follows to choose a new password.
func (n *NotificationService) ResetLink(token string) string {
	return n.frontendURL + "/reset-password?token=" + url.QueryEscape(token)
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event, template string) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" || event.Email == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("to", event.Email),
		zap.String("template", template),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("user_id", event.UserID),
		zap.String("event_type", string(event.Type)))
}
