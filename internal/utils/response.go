package utils

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
	"github.com/lettersontherocks/AI-Interview/internal/session"
)

func JSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// JSONError writes a uniform error body.
func JSONError(w http.ResponseWriter, statusCode int, code, detail string) {
	JSON(w, statusCode, models.ErrorResponse{Code: code, Detail: detail})
}

// ErrorStatus maps a domain error onto its HTTP status and body.
func ErrorStatus(err error) (int, models.ErrorResponse) {
	var resp *models.ErrorResponse
	switch {
	case errors.As(err, &resp):
		return http.StatusBadRequest, *resp
	case errors.Is(err, entitlement.ErrNotAuthenticated):
		return http.StatusUnauthorized, models.ErrorResponse{Code: "not_authenticated", Detail: "请先登录"}
	case errors.Is(err, entitlement.ErrQuotaExhausted):
		return http.StatusForbidden, models.ErrorResponse{Code: "quota_exhausted", Detail: "今日面试次数已用完，请升级会员或购买单次面试"}
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, repositories.ErrSessionNotFound):
		return http.StatusNotFound, models.ErrorResponse{Code: "session_not_found", Detail: "面试会话不存在"}
	case errors.Is(err, session.ErrReportNotFound), errors.Is(err, repositories.ErrReportNotFound):
		return http.StatusNotFound, models.ErrorResponse{Code: "report_not_found", Detail: "面试报告尚未生成"}
	case errors.Is(err, repositories.ErrUserNotFound):
		return http.StatusNotFound, models.ErrorResponse{Code: "user_not_found", Detail: "用户不存在"}
	case errors.Is(err, session.ErrStaleTurn):
		return http.StatusConflict, models.ErrorResponse{Code: "stale_turn", Detail: "该问题已回答，请刷新面试进度"}
	case errors.Is(err, session.ErrTemporarilyUnavailable),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, models.ErrorResponse{Code: "temporarily_unavailable", Detail: "面试官暂时无法出题，请稍后重试"}
	}
	return http.StatusInternalServerError, models.ErrorResponse{Code: "internal_error", Detail: "服务器内部错误"}
}

// WriteError writes the mapped error; unexpected errors are logged.
func WriteError(w http.ResponseWriter, logger *zap.Logger, err error) {
	status, body := ErrorStatus(err)
	if status >= http.StatusInternalServerError && logger != nil {
		logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
	}
	JSON(w, status, body)
}
