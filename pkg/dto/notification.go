package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/models"
)

type CollaborationRequest struct {
	To         string         `json:"to" binding:"required"`
	SenderKind string         `json:"sender_kind" binding:"required,oneof=creator company"`
	Message    string         `json:"message" binding:"required"`
	Payload    map[string]any `json:"payload,omitempty"`
}

type NotificationResponse struct {
	ID         uuid.UUID      `json:"id"`
	Type       string         `json:"type"`
	Sender     string         `json:"sender"`
	SenderKind string         `json:"sender_kind"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  string         `json:"created_at"`
	Read       bool           `json:"read"`
}

type NotificationListResponse struct {
	Notifications []NotificationResponse `json:"notifications"`
	Total         int                    `json:"total"`
	UnreadCount   int                    `json:"unread_count"`
}

// NotificationSentResponse reports a created notification plus whether it
// also reached the recipient's live connection. Delivered false still means
// the notification is durably stored.
type NotificationSentResponse struct {
	Notification NotificationResponse `json:"notification"`
	Delivered    bool                 `json:"delivered"`
}

func NotificationToResponse(event models.NotificationEvent) NotificationResponse {
	return NotificationResponse{
		ID:         event.ID,
		Type:       event.Type,
		Sender:     event.Sender,
		SenderKind: string(event.SenderKind),
		Message:    event.Message,
		Payload:    event.Payload,
		CreatedAt:  event.CreatedAt.Format(time.RFC3339),
		Read:       event.Read,
	}
}
