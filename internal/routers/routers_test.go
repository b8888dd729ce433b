package routers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/handlers"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/questionbank"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
	"github.com/lettersontherocks/AI-Interview/internal/scoring"
	"github.com/lettersontherocks/AI-Interview/internal/session"
	"github.com/lettersontherocks/AI-Interview/internal/testhelpers"
	"github.com/lettersontherocks/AI-Interview/internal/wechat"
)

func newRouter(t *testing.T) *chi.Mux {
	t.Helper()
	logger := zap.NewNop()
	db := testhelpers.SetupTestDB(t)
	catalog, styles, plans, err := questionbank.Load()
	if err != nil {
		t.Fatalf("failed to load question bank: %v", err)
	}
	ledger := entitlement.NewLedger(db, entitlement.Limits{FreeDaily: 1, NormalDaily: 5}, time.UTC, logger)
	bank := questionbank.NewBank(catalog, styles, plans, nil, questionbank.DefaultPolicy(8, 5), questionbank.Options{Fallback: true}, logger)
	orch := session.NewOrchestrator(
		&repositories.SessionRepository{DB: db},
		&repositories.ReportRepository{DB: db},
		ledger, bank,
		scoring.NewEngine(scoring.KeywordScorer{}, time.Second, time.Hour, logger),
		nil, nil, session.Options{}, logger)

	router := chi.NewRouter()
	HealthRoutes(router, handlers.NewHealthHandler(db, nil, catalog, true))
	APIRoutes(router,
		CatalogRoutes(handlers.NewCatalogHandler(catalog, styles)),
		InterviewRoutes(handlers.NewInterviewHandler(orch, false, logger), middleware.Authenticate("secret", false)),
		UserRoutes(handlers.NewUserHandler(&repositories.UserRepository{DB: db}, ledger, wechat.NewClient("", "", "", logger), "secret", logger)),
		PaymentRoutes(handlers.NewPaymentHandler(entitlement.NewPurchases(ledger, &repositories.PaymentRepository{DB: db}, logger), logger), "s3cret"),
	)
	return router
}

func TestRoutesRegistered(t *testing.T) {
	router := newRouter(t)

	paths := map[string]bool{}
	if err := chi.Walk(router, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		paths[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("failed walking routes: %v", err)
	}

	business := []string{
		"GET /positions",
		"GET /positions/search",
		"GET /interviewer-styles",
		"POST /interview/start",
		"POST /interview/answer",
		"GET /interview/session/{session_id}",
		"GET /interview/report/{session_id}",
		"GET /user/{user_id}/history",
		"POST /user/register",
		"POST /user/wx-login",
		"GET /user/{user_id}",
		"POST /payment/apply",
	}
	for _, route := range business {
		if !paths[route] {
			t.Errorf("expected route %s to be registered", route)
		}
		method, path, _ := strings.Cut(route, " ")
		prefixed := method + " /api/v1" + path
		if !paths[prefixed] {
			t.Errorf("expected route %s to be registered", prefixed)
		}
	}
	for _, route := range []string{"GET /healthz", "GET /health", "GET /readyz"} {
		if !paths[route] {
			t.Errorf("expected route %s to be registered", route)
		}
	}
}

func TestRoutesServe(t *testing.T) {
	router := newRouter(t)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/readyz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/positions", http.StatusOK},
		{http.MethodGet, "/api/v1/positions", http.StatusOK},
		{http.MethodGet, "/api/v1/positions/search", http.StatusBadRequest},
		{http.MethodGet, "/api/v1/user/user_missing", http.StatusNotFound},
		{http.MethodGet, "/interview/session/session_missing", http.StatusNotFound},
		{http.MethodPost, "/payment/apply", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d", tc.method, tc.path, tc.want, rec.Code)
		}
	}
}
