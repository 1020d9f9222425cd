package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/handler"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
)

type staticResolver struct{ session access.Session }

func (r staticResolver) Resolve(context.Context, string) access.Session { return r.session }

func newTestRouter(session access.Session) (*gin.Engine, *service.MetricsService) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := NewRouter(Options{}, Dependencies{
		Sessions:      staticResolver{session: session},
		Metrics:       metrics,
		Auth:          handler.NewAuthHandler(nil, handler.CookieConfig{}),
		Tutors:        handler.NewTutorHandler(nil),
		Profile:       handler.NewProfileHandler(nil),
		Bookings:      handler.NewBookingHandler(nil, nil),
		Exports:       handler.NewExportHandler(nil),
		Applications:  handler.NewSubjectApplicationHandler(nil),
		Notifications: handler.NewNotificationHandler(nil),
		Pages:         handler.NewPageHandler(nil, nil, nil, nil),
		System:        handler.NewMetricsHandler(metrics, nil),
	})
	return router, metrics
}

func serve(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouterAPIGuards(t *testing.T) {
	tests := []struct {
		name    string
		session access.Session
		method  string
		path    string
		status  int
	}{
		{"anonymous booking", access.Anonymous(), http.MethodPost, "/api/v1/bookings", http.StatusUnauthorized},
		{"pending session", access.Pending(), http.MethodGet, "/api/v1/bookings", http.StatusServiceUnavailable},
		{"role not chosen", access.Session{Authenticated: true, UserID: "u1"}, http.MethodGet, "/api/v1/bookings", http.StatusForbidden},
		{"tutor creating booking", access.Session{Authenticated: true, UserID: "u1", Role: access.RoleTutor}, http.MethodPost, "/api/v1/bookings", http.StatusForbidden},
		{"student exporting", access.Session{Authenticated: true, UserID: "u1", Role: access.RoleStudent}, http.MethodPost, "/api/v1/bookings/export", http.StatusForbidden},
		{"student in admin area", access.Session{Authenticated: true, UserID: "u1", Role: access.RoleStudent}, http.MethodGet, "/api/v1/admin/system", http.StatusForbidden},
		{"anonymous notifications", access.Anonymous(), http.MethodGet, "/api/v1/notifications", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(tt.session)
			rec := serve(router, tt.method, tt.path)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRouterPendingAPISessionAdvertisesRetry(t *testing.T) {
	router, _ := newTestRouter(access.Pending())

	rec := serve(router, http.MethodGet, "/api/v1/profile")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestRouterPageRedirects(t *testing.T) {
	router, metrics := newTestRouter(access.Session{Authenticated: true, UserID: "u1", Role: access.RoleStudent})

	rec := serve(router, http.MethodGet, "/admin/applications")
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, access.PathStudentHome, rec.Header().Get("Location"))
	assert.EqualValues(t, 1, metrics.Snapshot().GuardDecisions["redirect"])
}

func TestRouterAdminSystem(t *testing.T) {
	router, _ := newTestRouter(access.Session{Authenticated: true, UserID: "admin", Role: access.RoleAdmin})

	rec := serve(router, http.MethodGet, "/api/v1/admin/system")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "guard_decisions")
}

func TestRouterHealthIsNotObserved(t *testing.T) {
	router, metrics := newTestRouter(access.Anonymous())

	rec := serve(router, http.MethodGet, "/health")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 0, metrics.Snapshot().RequestsTotal)
}
