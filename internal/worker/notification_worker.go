package worker

import (
	"github.com/spec-kit/clientflow-auth/internal/service"
)

// StartNotificationWorker subscribes the notification handlers to auth events.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}
