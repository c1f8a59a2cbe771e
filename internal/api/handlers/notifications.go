package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/your-org/brandtrack/internal/auth"
	"github.com/your-org/brandtrack/internal/models"
	"github.com/your-org/brandtrack/internal/notify"
	"github.com/your-org/brandtrack/pkg/dto"
)

type NotificationHandler struct {
	svc *notify.Service
}

func NewNotificationHandler(svc *notify.Service) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

// List returns the caller's inbox, newest first.
func (h *NotificationHandler) List(c *gin.Context) {
	user, _ := auth.UserID(c)

	limit := 50
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = n
	}
	unreadOnly := c.Query("unread_only") == "true"

	events := h.svc.List(user, limit, unreadOnly)
	resp := make([]dto.NotificationResponse, 0, len(events))
	for _, event := range events {
		resp = append(resp, dto.NotificationToResponse(event))
	}

	c.JSON(http.StatusOK, dto.NotificationListResponse{
		Notifications: resp,
		Total:         len(resp),
		UnreadCount:   h.svc.UnreadCount(user),
	})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	user, _ := auth.UserID(c)
	c.JSON(http.StatusOK, gin.H{"unread_count": h.svc.UnreadCount(user)})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	user, _ := auth.UserID(c)
	if !h.svc.MarkRead(user, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	user, _ := auth.UserID(c)
	count := h.svc.MarkAllRead(user)
	c.JSON(http.StatusOK, gin.H{"status": "read", "updated": count})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid notification id"})
		return
	}

	user, _ := auth.UserID(c)
	if !h.svc.Delete(user, id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// CreateCollaboration sends a collaboration request from the caller to
// another user's inbox, with a live push when the recipient is connected.
func (h *NotificationHandler) CreateCollaboration(c *gin.Context) {
	var req dto.CollaborationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sender, _ := auth.UserID(c)
	if req.To == sender {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot send a collaboration request to yourself"})
		return
	}

	event, delivered := h.svc.Notify(req.To, sender, models.SenderKind(req.SenderKind),
		models.NotificationCollaborationRequest, req.Message, req.Payload)

	c.JSON(http.StatusCreated, dto.NotificationSentResponse{
		Notification: dto.NotificationToResponse(event),
		Delivered:    delivered,
	})
}
