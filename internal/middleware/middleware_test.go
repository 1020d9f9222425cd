package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorfinder/tutorfinder-api/internal/access"
	"github.com/tutorfinder/tutorfinder-api/internal/models"
	"github.com/tutorfinder/tutorfinder-api/internal/service"
)

type stubResolver map[string]access.Session

func (s stubResolver) Resolve(ctx context.Context, token string) access.Session {
	if session, ok := s[token]; ok {
		return session
	}
	return access.Anonymous()
}

type countingRecorder map[string]int

func (r countingRecorder) RecordGuardDecision(outcome string) { r[outcome]++ }

var testSessions = stubResolver{
	"student": {Authenticated: true, Role: access.RoleStudent, UserID: "s1"},
	"tutor":   {Authenticated: true, Role: access.RoleTutor, UserID: "t1"},
	"new":     {Authenticated: true, UserID: "n1"},
	"pending": access.Pending(),
}

func newGuardedRouter(recorder GuardRecorder, guard gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Session(testSessions, "access_token"))
	router.GET("/protected", guard, func(c *gin.Context) {
		c.String(http.StatusOK, "content")
	})
	return router
}

func serve(router *gin.Engine, token string, cookie bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		if cookie {
			req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
		} else {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestPageGuardOutcomes(t *testing.T) {
	recorder := countingRecorder{}
	router := newGuardedRouter(recorder, PageGuard(recorder, access.RoleTutor))

	w := serve(router, "tutor", true)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "content", w.Body.String())

	w = serve(router, "", false)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, access.PathSignIn, w.Header().Get("Location"))

	w = serve(router, "student", true)
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, access.PathStudentHome, w.Header().Get("Location"))

	w = serve(router, "new", true)
	assert.Equal(t, access.PathRoleSelection, w.Header().Get("Location"))

	w = serve(router, "pending", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	assert.NotContains(t, w.Body.String(), "content")
	assert.Empty(t, w.Header().Get("Location"))

	assert.Equal(t, 1, recorder[string(access.OutcomeRender)])
	assert.Equal(t, 3, recorder[string(access.OutcomeRedirect)])
	assert.Equal(t, 1, recorder[string(access.OutcomePlaceholder)])
}

func TestPageGuardWithoutRolesAdmitsUnassigned(t *testing.T) {
	router := newGuardedRouter(nil, PageGuard(nil))
	assert.Equal(t, http.StatusOK, serve(router, "new", false).Code)
	assert.Equal(t, http.StatusFound, serve(router, "", false).Code)
}

func TestRequireRolesStatusCodes(t *testing.T) {
	router := newGuardedRouter(nil, RequireRoles(nil, access.RoleStudent))

	assert.Equal(t, http.StatusOK, serve(router, "student", false).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "", false).Code)
	assert.Equal(t, http.StatusForbidden, serve(router, "tutor", false).Code)

	w := serve(router, "new", false)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "choose a role first")

	w = serve(router, "pending", false)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
	var body map[string]map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "SESSION_PENDING", body["error"]["code"])
}

func TestRequireSession(t *testing.T) {
	router := newGuardedRouter(nil, RequireSession(nil))
	assert.Equal(t, http.StatusOK, serve(router, "new", false).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(router, "", false).Code)
}

func TestSessionHeaderTakesPrecedenceOverCookie(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Session(testSessions, "access_token"))
	var got access.Session
	router.GET("/", func(c *gin.Context) {
		got = SessionFromContext(c)
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token student")
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "tutor"})
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.False(t, got.Authenticated)

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: "tutor"})
	router.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, access.RoleTutor, got.Role)
}

func TestSessionFromContextDefaultsToAnonymous(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, access.Anonymous(), SessionFromContext(c))
	c.Set(ContextSessionKey, "garbage")
	assert.Equal(t, access.Anonymous(), SessionFromContext(c))
}

type auditSink struct{ logs []*models.AuditLog }

func (a *auditSink) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestAuditRecordsSuccessfulRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	sink := &auditSink{}
	router := gin.New()
	router.Use(Session(testSessions, ""))
	router.PATCH("/bookings/:id/status", Audit(sink, nil, models.AuditActionBookingTransition, "booking", "id"), func(c *gin.Context) {
		if c.Query("fail") != "" {
			c.Status(http.StatusConflict)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPatch, "/bookings/b1/status", nil)
	req.Header.Set("Authorization", "Bearer tutor")
	router.ServeHTTP(httptest.NewRecorder(), req)

	req = httptest.NewRequest(http.MethodPatch, "/bookings/b1/status?fail=1", nil)
	router.ServeHTTP(httptest.NewRecorder(), req)

	require.Len(t, sink.logs, 1)
	assert.Equal(t, "t1", *sink.logs[0].UserID)
	assert.Equal(t, "b1", *sink.logs[0].ResourceID)
	assert.Equal(t, models.AuditActionBookingTransition, sink.logs[0].Action)
}

func TestResponseMeta(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(WithResponseMeta())
	var meta map[string]interface{}
	router.GET("/", func(c *gin.Context) {
		assert.Nil(t, ExtractMeta(c))
		SetMeta(c, "snapshot_size", 3)
		meta = ExtractMeta(c)
		c.Status(http.StatusNoContent)
	})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, 3, meta["snapshot_size"])
	assert.Contains(t, meta, "processing_time_ms")
}

func TestMetricsLabelsUnmatchedRoutes(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	router := gin.New()
	router.Use(Metrics(metrics, "/metrics"))
	router.GET("/metrics", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/tutors", func(c *gin.Context) { c.Status(http.StatusOK) })

	for _, path := range []string{"/metrics", "/tutors", "/random/123"} {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Equal(t, uint64(2), metrics.Snapshot().RequestsTotal)
}
