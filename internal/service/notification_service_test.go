package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spec-kit/clientflow-auth/internal/config"
	"github.com/spec-kit/clientflow-auth/internal/domain"
	"github.com/spec-kit/clientflow-auth/internal/events"
)

func TestResetLinkEscapesToken(t *testing.T) {
	n := NewNotificationService(nil, zap.NewNop(), config.NotificationConfig{}, config.AppConfig{FrontendURL: "https://crm.example.com"})
	require.Equal(t, "https://crm.example.com/reset-password?token=a.b%2Bc", n.ResetLink("a.b+c"))
}

func TestNotificationHandlersLogResetLinkOutsideProduction(t *testing.T) {
	for _, env := range []string{"development", "production"} {
		t.Run(env, func(t *testing.T) {
			core, logs := observer.New(zap.DebugLevel)
			dispatcher := events.NewInMemoryDispatcher()
			n := NewNotificationService(dispatcher, zap.New(core),
				config.NotificationConfig{EmailFrom: "noreply@clientflow.com"},
				config.AppConfig{Env: env, FrontendURL: "http://localhost:3000"})
			n.RegisterHandlers()

			user := &domain.User{ID: "u1", Email: "rep@clientflow.com"}
			event := events.NewEvent(events.EventPasswordResetRequested, user,
				events.PasswordResetRequestedPayload{Token: "tok", Expires: time.Now().Add(time.Minute)})
			require.NoError(t, dispatcher.Publish(context.Background(), event))

			links := logs.FilterMessage("password reset link").Len()
			if env == "production" {
				require.Zero(t, links)
			} else {
				require.Equal(t, 1, links)
			}
			require.Equal(t, 1, logs.FilterMessage("sendEmailNotificationStub").Len())
		})
	}
}
