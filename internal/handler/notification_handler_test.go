package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	appErrors "github.com/tutorfinder/tutorfinder-api/pkg/errors"
)

type notificationServiceMock struct {
	userID  string
	unread  bool
	limit   int
	markErr error
}

func (m *notificationServiceMock) List(_ context.Context, userID string, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.userID = userID
	m.unread = unreadOnly
	m.limit = limit
	return []models.Notification{{ID: "n1", UserID: userID, Title: "New booking request"}}, nil
}

func (m *notificationServiceMock) MarkRead(context.Context, string, string) error {
	return m.markErr
}

func TestNotificationHandlerList(t *testing.T) {
	svc := &notificationServiceMock{}
	handler := NewNotificationHandler(svc)

	c, rec := newTestContext(http.MethodGet, "/notifications?unread=true&limit=5", nil, signedIn("user-1", access.RoleStudent))
	handler.List(c)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", svc.userID)
	assert.True(t, svc.unread)
	assert.Equal(t, 5, svc.limit)

	var items []models.Notification
	decodeData(t, rec, &items)
	require.Len(t, items, 1)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	handler := NewNotificationHandler(&notificationServiceMock{})
	c, rec := newTestContext(http.MethodPost, "/notifications/n1/read", nil, signedIn("user-1", access.RoleStudent))
	c.AddParam("id", "n1")
	handler.MarkRead(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, rec.Code)

	handler = NewNotificationHandler(&notificationServiceMock{markErr: appErrors.Clone(appErrors.ErrNotFound, "notification not found")})
	c, rec = newTestContext(http.MethodPost, "/notifications/n2/read", nil, signedIn("user-1", access.RoleStudent))
	c.AddParam("id", "n2")
	handler.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
