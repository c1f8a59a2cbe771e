package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/models"
)

// NotificationStore is the durable per-user notification inbox. Each
// recipient's list is stored most-recent-first; List takes a prefix of that
// stored order. Like the analysis store, the whole map is rewritten on every
// mutation and persistence failures degrade to log lines.
type NotificationStore struct {
	mu      sync.RWMutex
	path    string
	inboxes map[string][]models.NotificationEvent
}

// NewNotificationStore opens (or creates) the inbox file under dir.
func NewNotificationStore(dir, file string) (*NotificationStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &NotificationStore{
		path:    filepath.Join(dir, file),
		inboxes: make(map[string][]models.NotificationEvent),
	}

	raw, err := os.ReadFile(s.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(raw, &s.inboxes); err != nil {
			slog.Error("notification file unreadable, starting empty", "path", s.path, "error", err)
			s.inboxes = make(map[string][]models.NotificationEvent)
		}
	case os.IsNotExist(err):
		if err := s.persistLocked(); err != nil {
			return nil, fmt.Errorf("initialize notification file: %w", err)
		}
	default:
		return nil, fmt.Errorf("read notification file: %w", err)
	}

	return s, nil
}

// Create assigns a fresh id and timestamp and inserts the event at the head
// of the recipient's inbox.
func (s *NotificationStore) Create(recipient, sender string, senderKind models.SenderKind, eventType, message string, payload map[string]any) models.NotificationEvent {
	if payload == nil {
		payload = map[string]any{}
	}

	event := models.NotificationEvent{
		ID:         uuid.New(),
		Recipient:  recipient,
		Type:       eventType,
		Sender:     sender,
		SenderKind: senderKind,
		Message:    message,
		Payload:    payload,
		CreatedAt:  time.Now().UTC(),
		Read:       false,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.inboxes[recipient] = append([]models.NotificationEvent{event}, s.inboxes[recipient]...)
	if err := s.persistLocked(); err != nil {
		slog.Error("persist notification", "id", event.ID, "recipient", recipient, "error", err)
	}
	return event
}

// List returns a prefix of the recipient's stored order, optionally filtered
// to unread events before truncation. An unknown recipient yields an empty
// slice.
func (s *NotificationStore) List(recipient string, limit int, unreadOnly bool) []models.NotificationEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inbox := s.inboxes[recipient]
	out := make([]models.NotificationEvent, 0, len(inbox))
	for _, event := range inbox {
		if unreadOnly && event.Read {
			continue
		}
		out = append(out, event)
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// MarkRead flips the event to read. Returns whether a matching event exists
// for the recipient; marking an already-read event is a no-op that still
// reports true.
func (s *NotificationStore) MarkRead(recipient string, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inbox := s.inboxes[recipient]
	for i := range inbox {
		if inbox[i].ID != id {
			continue
		}
		if !inbox[i].Read {
			inbox[i].Read = true
			if err := s.persistLocked(); err != nil {
				slog.Error("persist notification read flag", "id", id, "error", err)
			}
		}
		return true
	}
	return false
}

// MarkAllRead flips every unread event for the recipient and returns how
// many were flipped.
func (s *NotificationStore) MarkAllRead(recipient string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	inbox := s.inboxes[recipient]
	count := 0
	for i := range inbox {
		if !inbox[i].Read {
			inbox[i].Read = true
			count++
		}
	}
	if count > 0 {
		if err := s.persistLocked(); err != nil {
			slog.Error("persist notification inbox", "recipient", recipient, "error", err)
		}
	}
	return count
}

// Delete removes the event from the recipient's inbox. Returns whether a
// removal occurred.
func (s *NotificationStore) Delete(recipient string, id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	inbox := s.inboxes[recipient]
	for i := range inbox {
		if inbox[i].ID != id {
			continue
		}
		s.inboxes[recipient] = append(inbox[:i], inbox[i+1:]...)
		if err := s.persistLocked(); err != nil {
			slog.Error("persist notification inbox after delete", "id", id, "error", err)
		}
		return true
	}
	return false
}

// UnreadCount reports how many unread events the recipient has.
func (s *NotificationStore) UnreadCount(recipient string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, event := range s.inboxes[recipient] {
		if !event.Read {
			count++
		}
	}
	return count
}

func (s *NotificationStore) persistLocked() error {
	raw, err := json.MarshalIndent(s.inboxes, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal inboxes: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("write inboxes: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace inboxes: %w", err)
	}
	return nil
}
