package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/brandtrack/internal/auth"
	"github.com/your-org/brandtrack/internal/models"
	"github.com/your-org/brandtrack/internal/notify"
	"github.com/your-org/brandtrack/internal/storage"
	"github.com/your-org/brandtrack/pkg/dto"
)

// testRouter wires the read/write paths that don't need NATS or MinIO.
func testRouter(t *testing.T) (*gin.Engine, *storage.AnalysisStore, *notify.Service) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	analyses, err := storage.NewAnalysisStore(dir, "history.json", 100)
	require.NoError(t, err)
	inbox, err := storage.NewNotificationStore(dir, "inbox.json")
	require.NoError(t, err)

	notifier := notify.NewService(inbox, nil)

	r := gin.New()
	v1 := r.Group("/v1")
	v1.Use(auth.Middleware())

	analysisH := NewAnalysisHandler(analyses, nil, nil)
	v1.GET("/analyses", analysisH.List)
	v1.GET("/analyses/:id", analysisH.Get)
	v1.GET("/analyses/:id/thumbnail", analysisH.Thumbnail)
	v1.DELETE("/analyses/:id", analysisH.Delete)
	v1.GET("/statistics", analysisH.Statistics)

	authed := v1.Group("")
	authed.Use(auth.RequireUser())

	notifH := NewNotificationHandler(notifier)
	authed.GET("/notifications", notifH.List)
	authed.GET("/notifications/unread-count", notifH.UnreadCount)
	authed.POST("/notifications/:id/read", notifH.MarkRead)
	authed.POST("/notifications/read-all", notifH.MarkAllRead)
	authed.DELETE("/notifications/:id", notifH.Delete)
	authed.POST("/collaborations", notifH.CreateCollaboration)

	return r, analyses, notifier
}

func doRequest(r *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func sampleRecord(owner string) models.AnalysisRecord {
	return models.AnalysisRecord{
		Owner: owner,
		Type:  models.AnalysisTypeYouTube,
		VideoInfo: map[string]any{
			"title": "Champions League Final",
		},
		BrandTimeline: map[string]models.BrandTimelineEntry{
			"nike": {
				Appearances:      3,
				TotalSeconds:     3,
				Timestamps:       []float64{0, 0.5, 1},
				ConfidenceScores: []float64{0.8, 0.9, 0.85},
			},
		},
		AnalysisTimeSeconds: 12.5,
	}
}

func TestGetAnalysisScopedToOwner(t *testing.T) {
	r, analyses, _ := testRouter(t)

	id, _ := analyses.Save(sampleRecord("alice@example.com"))

	w := doRequest(r, http.MethodGet, "/v1/analyses/"+id.String(), "alice@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.AnalysisResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, id, resp.ID)
	assert.Contains(t, resp.BrandTimeline, "nike")

	_, err := time.Parse(time.RFC3339, resp.Timestamp)
	assert.NoError(t, err, "timestamp must be RFC3339")

	// Another caller gets 404, not 403, for the same id.
	w = doRequest(r, http.MethodGet, "/v1/analyses/"+id.String(), "bob@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetAnalysisInvalidID(t *testing.T) {
	r, _, _ := testRouter(t)
	w := doRequest(r, http.MethodGet, "/v1/analyses/not-a-uuid", "alice@example.com", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAnalysesFiltersAndLimits(t *testing.T) {
	r, analyses, _ := testRouter(t)

	for i := 0; i < 3; i++ {
		analyses.Save(sampleRecord("alice@example.com"))
	}
	analyses.Save(sampleRecord("bob@example.com"))

	w := doRequest(r, http.MethodGet, "/v1/analyses?limit=2", "alice@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.AnalysisListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)

	w = doRequest(r, http.MethodGet, "/v1/analyses?limit=bogus", "alice@example.com", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteAnalysisScopedToOwner(t *testing.T) {
	r, analyses, _ := testRouter(t)

	id, _ := analyses.Save(sampleRecord("alice@example.com"))

	w := doRequest(r, http.MethodDelete, "/v1/analyses/"+id.String(), "bob@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodDelete, "/v1/analyses/"+id.String(), "alice@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// Gone for the owner too now.
	w = doRequest(r, http.MethodGet, "/v1/analyses/"+id.String(), "alice@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestThumbnailMissingAndScoped(t *testing.T) {
	r, analyses, _ := testRouter(t)

	// Record analyzed before thumbnails existed (or upload failed): 404,
	// not an error page.
	id, _ := analyses.Save(sampleRecord("alice@example.com"))
	w := doRequest(r, http.MethodGet, "/v1/analyses/"+id.String()+"/thumbnail", "alice@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Ownership collapses to 404 before any object lookup.
	w = doRequest(r, http.MethodGet, "/v1/analyses/"+id.String()+"/thumbnail", "bob@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodGet, "/v1/analyses/not-a-uuid/thumbnail", "alice@example.com", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStatisticsEndpoint(t *testing.T) {
	r, analyses, _ := testRouter(t)
	analyses.Save(sampleRecord("alice@example.com"))

	w := doRequest(r, http.MethodGet, "/v1/statistics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp storage.StatisticsSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.TotalAnalyses)
	require.Len(t, resp.MostCommonBrands, 1)
	assert.Equal(t, "nike", resp.MostCommonBrands[0].Name)
}

func TestNotificationsRequireAuth(t *testing.T) {
	r, _, _ := testRouter(t)
	w := doRequest(r, http.MethodGet, "/v1/notifications", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCollaborationFlow(t *testing.T) {
	r, _, _ := testRouter(t)

	body := dto.CollaborationRequest{
		To:         "creator@example.com",
		SenderKind: "company",
		Message:    "We'd like to sponsor your next video",
		Payload:    map[string]any{"budget": 5000},
	}
	w := doRequest(r, http.MethodPost, "/v1/collaborations", "brand@example.com", body)
	require.Equal(t, http.StatusCreated, w.Code)

	var sent dto.NotificationSentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &sent))
	// No live connection: stored but not delivered.
	assert.False(t, sent.Delivered)
	assert.Equal(t, "collaboration_request", sent.Notification.Type)
	assert.Equal(t, "brand@example.com", sent.Notification.Sender)

	_, err := time.Parse(time.RFC3339, sent.Notification.CreatedAt)
	assert.NoError(t, err, "created_at must be RFC3339")

	// The recipient sees it in their inbox.
	w = doRequest(r, http.MethodGet, "/v1/notifications", "creator@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list dto.NotificationListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	assert.Equal(t, 1, list.UnreadCount)

	// Mark read, then unread count drops.
	id := list.Notifications[0].ID
	w = doRequest(r, http.MethodPost, fmt.Sprintf("/v1/notifications/%s/read", id), "creator@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/v1/notifications/unread-count", "creator@example.com", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unread_count":0}`, w.Body.String())
}

func TestCollaborationToSelfRejected(t *testing.T) {
	r, _, _ := testRouter(t)

	body := dto.CollaborationRequest{
		To:         "brand@example.com",
		SenderKind: "company",
		Message:    "hello me",
	}
	w := doRequest(r, http.MethodPost, "/v1/collaborations", "brand@example.com", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteNotificationScopedToRecipient(t *testing.T) {
	r, _, notifier := testRouter(t)

	event, _ := notifier.Notify("creator@example.com", "brand@example.com",
		models.SenderKindCompany, models.NotificationCollaborationRequest, "hi", nil)

	// Someone else's inbox doesn't hold this id.
	w := doRequest(r, http.MethodDelete, "/v1/notifications/"+event.ID.String(), "other@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(r, http.MethodDelete, "/v1/notifications/"+event.ID.String(), "creator@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
