package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddlewareRecordsRoutePattern(t *testing.T) {
	router := chi.NewRouter()
	router.Use(Middleware)
	router.Get("/api/v1/interview/session/{session_id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/interview/session/{session_id}", "418"))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/interview/session/session_abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusTeapot, rec.Code)
	after := testutil.ToFloat64(httpRequests.WithLabelValues(http.MethodGet, "/api/v1/interview/session/{session_id}", "418"))
	assert.Equal(t, before+1, after)
}

func TestHandlerExposesDomainMetrics(t *testing.T) {
	SessionsStarted.WithLabelValues("技术一面").Inc()
	ObserveCollaborator("scoring", time.Now().Add(-time.Second))

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "interview_sessions_started_total"))
	assert.True(t, strings.Contains(body, "interview_collaborator_duration_seconds"))
}
