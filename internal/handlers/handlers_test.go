package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/questionbank"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
	"github.com/lettersontherocks/AI-Interview/internal/scoring"
	"github.com/lettersontherocks/AI-Interview/internal/session"
	"github.com/lettersontherocks/AI-Interview/internal/testhelpers"
	"github.com/lettersontherocks/AI-Interview/internal/wechat"
)

const testSecret = "test-secret"

type stubExchanger struct {
	openID string
	err    error
}

func (s *stubExchanger) Code2Session(context.Context, string) (*wechat.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &wechat.Session{OpenID: s.openID}, nil
}

type testEnv struct {
	router    *chi.Mux
	db        *gorm.DB
	ledger    *entitlement.Ledger
	exchanger *stubExchanger
}

// newTestEnv wires the handlers the way the server does, with fallback
// questions and keyword scoring so no provider is needed.
func newTestEnv(t *testing.T, authRequired bool) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	db := testhelpers.SetupTestDB(t)

	ledger := entitlement.NewLedger(db, entitlement.Limits{FreeDaily: 1, NormalDaily: 5}, time.UTC, logger)
	catalog, styles, plans, err := questionbank.Load()
	require.NoError(t, err)
	bank := questionbank.NewBank(catalog, styles, plans, nil, questionbank.DefaultPolicy(3, 2),
		questionbank.Options{MaxQuestions: 3, Fallback: true}, logger)

	orch := session.NewOrchestrator(
		&repositories.SessionRepository{DB: db},
		&repositories.ReportRepository{DB: db},
		ledger,
		bank,
		scoring.NewEngine(scoring.KeywordScorer{}, time.Second, time.Hour, logger),
		session.NewKeyedMutex(),
		nil,
		session.Options{MaxQuestions: 3, ReservationTTL: 5 * time.Minute},
		logger,
	)

	exchanger := &stubExchanger{openID: "wx_openid"}
	interview := NewInterviewHandler(orch, authRequired, logger)
	users := NewUserHandler(&repositories.UserRepository{DB: db}, ledger, exchanger, testSecret, logger)
	payments := NewPaymentHandler(entitlement.NewPurchases(ledger, &repositories.PaymentRepository{DB: db}, logger), logger)
	catalogHandler := NewCatalogHandler(catalog, styles)

	router := chi.NewRouter()
	router.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(testSecret, authRequired))
		r.With(middleware.ValidateRequest[*models.StartInterviewRequest]()).Post("/interview/start", interview.StartHandler)
		r.With(middleware.ValidateRequest[*models.AnswerRequest]()).Post("/interview/answer", interview.AnswerHandler)
		r.Get("/interview/session/{session_id}", interview.SessionHandler)
		r.Get("/interview/report/{session_id}", interview.ReportHandler)
		r.Get("/user/{user_id}/history", interview.HistoryHandler)
	})
	router.With(middleware.ValidateRequest[*models.RegisterRequest]()).Post("/user/register", users.RegisterHandler)
	router.With(middleware.ValidateRequest[*models.WxLoginRequest]()).Post("/user/wx-login", users.WxLoginHandler)
	router.Get("/user/{user_id}", users.GetUserHandler)
	router.With(middleware.ValidateRequest[*models.PurchaseRequest]()).Post("/payment/apply", payments.ApplyHandler)
	router.Get("/positions", catalogHandler.PositionsHandler)
	router.Get("/positions/search", catalogHandler.SearchHandler)
	router.Get("/interviewer-styles", catalogHandler.StylesHandler)

	return &testEnv{router: router, db: db, ledger: ledger, exchanger: exchanger}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func (e *testEnv) register(t *testing.T, openID string) models.UserInfo {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/user/register", models.RegisterRequest{OpenID: openID, Nickname: "tester"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.UserInfo](t, rec)
}
