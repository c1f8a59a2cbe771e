// Package notify glues the durable notification inbox to the live
// connection registry. The durable write always happens first; the
// real-time push is strictly supplementary.
package notify

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/models"
	"github.com/your-org/brandtrack/internal/observability"
	"github.com/your-org/brandtrack/internal/storage"
)

// Pusher delivers a payload to a recipient's live connection, best-effort.
// *ws.Registry satisfies it.
type Pusher interface {
	SendJSON(recipient string, v any) bool
}

type Service struct {
	inbox  *storage.NotificationStore
	pusher Pusher
}

func NewService(inbox *storage.NotificationStore, pusher Pusher) *Service {
	return &Service{inbox: inbox, pusher: pusher}
}

// Notify writes the event to the recipient's inbox and then attempts a
// real-time push. A false delivered result never loses the notification:
// the recipient sees it on the next poll or reconnect.
func (s *Service) Notify(recipient, sender string, senderKind models.SenderKind, eventType, message string, payload map[string]any) (models.NotificationEvent, bool) {
	event := s.inbox.Create(recipient, sender, senderKind, eventType, message, payload)
	observability.NotificationsCreated.WithLabelValues(eventType).Inc()

	delivered := false
	if s.pusher != nil {
		delivered = s.pusher.SendJSON(recipient, event)
	}

	outcome := "missed"
	if delivered {
		outcome = "delivered"
	}
	observability.NotificationsPushed.WithLabelValues(outcome).Inc()

	slog.Debug("notification created",
		"type", eventType,
		"recipient", recipient,
		"sender", sender,
		"delivered", delivered,
	)
	return event, delivered
}

// AnalysisComplete notifies the owner of a finished analysis.
func (s *Service) AnalysisComplete(rec models.AnalysisRecord) (models.NotificationEvent, bool) {
	title, _ := rec.VideoInfo["title"].(string)

	brands := make([]string, 0, len(rec.BrandTimeline))
	for brand := range rec.BrandTimeline {
		brands = append(brands, brand)
	}

	payload := map[string]any{
		"analysis_id": rec.ID.String(),
		"brands":      brands,
		"title":       title,
	}
	return s.Notify(rec.Owner, "", models.SenderKindSystem,
		models.NotificationAnalysisComplete, "Your video analysis is ready", payload)
}

// Inbox passthroughs, so the handler layer depends on one service.

func (s *Service) List(recipient string, limit int, unreadOnly bool) []models.NotificationEvent {
	return s.inbox.List(recipient, limit, unreadOnly)
}

func (s *Service) MarkRead(recipient string, id uuid.UUID) bool {
	return s.inbox.MarkRead(recipient, id)
}

func (s *Service) MarkAllRead(recipient string) int {
	return s.inbox.MarkAllRead(recipient)
}

func (s *Service) Delete(recipient string, id uuid.UUID) bool {
	return s.inbox.Delete(recipient, id)
}

func (s *Service) UnreadCount(recipient string) int {
	return s.inbox.UnreadCount(recipient)
}
