package handlers

import (
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettersontherocks/AI-Interview/internal/models"
)

func startBody(userID string) models.StartInterviewRequest {
	return models.StartInterviewRequest{UserID: userID, PositionID: "backend-go", Round: "technical-1"}
}

func TestInterviewFlow(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.register(t, "openid-1")

	rec := env.do(t, http.MethodPost, "/interview/start", startBody(user.UserID), "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	start := decode[models.StartInterviewResponse](t, rec)
	assert.True(t, strings.HasPrefix(start.SessionID, "session_"))
	assert.NotEmpty(t, start.Question)
	assert.Equal(t, models.StyleFriendly, start.InterviewerStyle)

	rec = env.do(t, http.MethodGet, "/interview/report/"+start.SessionID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "report_not_found", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/interview/answer", models.AnswerRequest{SessionID: start.SessionID, Answer: "我用Go写过gRPC服务，处理过高并发和缓存问题"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	answer := decode[models.AnswerResponse](t, rec)
	assert.False(t, answer.IsFinished)
	require.NotNil(t, answer.NextQuestion)
	require.NotNil(t, answer.InstantScore)

	rec = env.do(t, http.MethodGet, "/interview/session/"+start.SessionID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	snapshot := decode[models.SessionSnapshot](t, rec)
	assert.Equal(t, 2, snapshot.QuestionCount)
	assert.Len(t, snapshot.Transcript, 3)
	require.NotNil(t, snapshot.CurrentQuestion)
	assert.Equal(t, *answer.NextQuestion, *snapshot.CurrentQuestion)

	rec = env.do(t, http.MethodPost, "/interview/answer", models.AnswerRequest{SessionID: start.SessionID, Answer: "没有了", FinishInterview: true}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"next_question":null`)
	assert.True(t, decode[models.AnswerResponse](t, rec).IsFinished)

	rec = env.do(t, http.MethodGet, "/interview/report/"+start.SessionID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[models.Report](t, rec)
	assert.Equal(t, start.SessionID, report.SessionID)
	assert.NotEmpty(t, report.Suggestions)
	assert.Len(t, report.Transcript, 4)

	rec = env.do(t, http.MethodGet, "/user/"+user.UserID+"/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	history := decode[[]models.HistoryItem](t, rec)
	require.Len(t, history, 1)
	require.NotNil(t, history[0].TotalScore)
	assert.Equal(t, report.TotalScore, *history[0].TotalScore)
	assert.Equal(t, "后端工程师 - Go后端", history[0].Position)
}

func TestStartErrors(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.register(t, "openid-1")

	rec := env.do(t, http.MethodPost, "/interview/start", models.StartInterviewRequest{UserID: user.UserID, Round: "HR面"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_position", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/interview/start", models.StartInterviewRequest{UserID: user.UserID, PositionID: "chef", Round: "HR面"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown_position", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/interview/start", startBody("user_unknown"), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/start", startBody(user.UserID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodPost, "/interview/start", startBody(user.UserID), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode[models.ErrorResponse](t, rec)
	assert.Equal(t, "quota_exhausted", body.Code)
	assert.NotEmpty(t, body.Detail)
}

func TestAnswerErrors(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.register(t, "openid-1")
	start := decode[models.StartInterviewResponse](t, env.do(t, http.MethodPost, "/interview/start", startBody(user.UserID), ""))

	rec := env.do(t, http.MethodPost, "/interview/answer", models.AnswerRequest{SessionID: "session_nope", Answer: "a"}, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session_not_found", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/interview/answer", models.AnswerRequest{SessionID: start.SessionID}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_answer", decode[models.ErrorResponse](t, rec).Code)

	seq := 5
	rec = env.do(t, http.MethodPost, "/interview/answer", models.AnswerRequest{SessionID: start.SessionID, Answer: "a", QuestionSeq: &seq}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "stale_turn", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodGet, "/interview/session/session_nope", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDuplicateAnswerOverHTTP(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.register(t, "openid-1")
	start := decode[models.StartInterviewResponse](t, env.do(t, http.MethodPost, "/interview/start", startBody(user.UserID), ""))

	body := models.AnswerRequest{SessionID: start.SessionID, Answer: "同样的回答", RequestID: "req-42"}
	first := env.do(t, http.MethodPost, "/interview/answer", body, "")
	second := env.do(t, http.MethodPost, "/interview/answer", body, "")
	require.Equal(t, http.StatusOK, first.Code)
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, first.Body.String(), second.Body.String())
}

func TestInterviewAuthRequired(t *testing.T) {
	env := newTestEnv(t, true)
	alice := env.register(t, "openid-alice")
	bob := env.register(t, "openid-bob")

	rec := env.do(t, http.MethodPost, "/interview/start", startBody(alice.UserID), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/start", startBody(alice.UserID), bob.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "not_authenticated", decode[models.ErrorResponse](t, rec).Code)

	rec = env.do(t, http.MethodPost, "/interview/start", startBody(alice.UserID), alice.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	start := decode[models.StartInterviewResponse](t, rec)

	rec = env.do(t, http.MethodGet, "/interview/session/"+start.SessionID, nil, bob.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/interview/session/"+start.SessionID, nil, alice.Token)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodPost, "/interview/answer", models.AnswerRequest{SessionID: start.SessionID, Answer: "a"}, bob.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, http.MethodGet, "/user/"+alice.UserID+"/history", nil, bob.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	rec = env.do(t, http.MethodGet, "/user/"+alice.UserID+"/history", nil, alice.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}
