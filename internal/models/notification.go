package models

import (
	"time"

	"github.com/google/uuid"
)

type SenderKind string

const (
	SenderKindCreator SenderKind = "creator"
	SenderKindCompany SenderKind = "company"
	SenderKindSystem  SenderKind = "system"
)

// Notification event types.
const (
	NotificationCollaborationRequest = "collaboration_request"
	NotificationAnalysisComplete     = "analysis_complete"
)

// NotificationEvent is one inbox entry for a recipient. Created once by a
// sender action; only the Read flag changes afterwards.
type NotificationEvent struct {
	ID         uuid.UUID      `json:"id"`
	Recipient  string         `json:"recipient"`
	Type       string         `json:"type"`
	Sender     string         `json:"sender"`
	SenderKind SenderKind     `json:"sender_kind"`
	Message    string         `json:"message"`
	Payload    map[string]any `json:"payload"`
	CreatedAt  time.Time      `json:"created_at"`
	Read       bool           `json:"read"`
}
