package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lettersontherocks/AI-Interview/internal/entitlement"
	"github.com/lettersontherocks/AI-Interview/internal/middleware"
	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/repositories"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
	"github.com/lettersontherocks/AI-Interview/internal/wechat"
)

// CodeExchanger turns a mini-program login code into a WeChat session.
type CodeExchanger interface {
	Code2Session(ctx context.Context, code string) (*wechat.Session, error)
}

// UserHandler manages identity endpoints.
type UserHandler struct {
	users     *repositories.UserRepository
	ledger    *entitlement.Ledger
	wechat    CodeExchanger
	jwtSecret string
	now       func() time.Time
	logger    *zap.Logger
}

func NewUserHandler(users *repositories.UserRepository, ledger *entitlement.Ledger, wx CodeExchanger, jwtSecret string, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, ledger: ledger, wechat: wx, jwtSecret: jwtSecret, now: time.Now, logger: logger}
}

func newUserID() string {
	return "user_" + strings.ReplaceAll(uuid.New().String(), "-", "")[:16]
}

// findOrCreate returns the user for openID, creating it and its entitlement row
// on first sight. Existing users get non-empty profile fields updated when
// updateProfile is set.
func (h *UserHandler) findOrCreate(ctx context.Context, openID, nickname, avatar string, updateProfile bool) (*models.User, error) {
	user, err := h.users.GetUserByOpenID(ctx, openID)
	switch {
	case err == nil:
		if updateProfile {
			if user, err = h.users.UpdateProfile(ctx, user.UserID, nickname, avatar); err != nil {
				return nil, err
			}
		}
	case errors.Is(err, repositories.ErrUserNotFound):
		user = &models.User{UserID: newUserID(), OpenID: openID, Nickname: nickname, Avatar: avatar}
		if createErr := h.users.CreateUser(ctx, user); createErr != nil {
			// lost a race with a concurrent registration of the same openid
			existing, getErr := h.users.GetUserByOpenID(ctx, openID)
			if getErr != nil {
				return nil, createErr
			}
			user = existing
		} else {
			h.logger.Info("User registered", zap.String("user_id", user.UserID))
		}
	default:
		return nil, err
	}

	if err := h.ledger.Open(ctx, user.UserID); err != nil {
		return nil, err
	}
	return user, nil
}

func (h *UserHandler) userInfo(ctx context.Context, user *models.User) (*models.UserInfo, error) {
	status, err := h.ledger.Get(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	return &models.UserInfo{
		UserID:         user.UserID,
		OpenID:         user.OpenID,
		Nickname:       user.Nickname,
		Avatar:         user.Avatar,
		IsVIP:          status.IsVIP,
		VipType:        status.Tier,
		VipExpireDate:  status.VipExpireDate,
		FreeCountToday: status.FreeCountToday,
		DailyLimit:     status.DailyLimit,
		ExtraCredits:   status.ExtraCredits,
		CreatedAt:      user.CreatedAt,
	}, nil
}

func (h *UserHandler) respondWithToken(w http.ResponseWriter, r *http.Request, user *models.User) {
	info, err := h.userInfo(r.Context(), user)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	token, err := utils.IssueToken(h.jwtSecret, user.UserID, h.now())
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	info.Token = token
	utils.JSON(w, http.StatusOK, info)
}

func (h *UserHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.RegisterRequest](r)

	user, err := h.findOrCreate(r.Context(), strings.TrimSpace(req.OpenID), req.Nickname, req.Avatar, false)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	h.respondWithToken(w, r, user)
}

func (h *UserHandler) WxLoginHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.WxLoginRequest](r)

	wx, err := h.wechat.Code2Session(r.Context(), strings.TrimSpace(req.Code))
	if err != nil {
		if errors.Is(err, wechat.ErrInvalidCode) {
			utils.JSONError(w, http.StatusBadRequest, "invalid_code", "微信登录凭证无效，请重新登录")
			return
		}
		h.logger.Error("WeChat code exchange failed", zap.Error(err))
		utils.JSONError(w, http.StatusBadGateway, "wechat_unavailable", "微信登录失败，请稍后重试")
		return
	}

	user, err := h.findOrCreate(r.Context(), wx.OpenID, req.Nickname, req.Avatar, true)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	h.respondWithToken(w, r, user)
}

func (h *UserHandler) GetUserHandler(w http.ResponseWriter, r *http.Request) {
	user, err := h.users.GetUserByID(r.Context(), chi.URLParam(r, "user_id"))
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	info, err := h.userInfo(r.Context(), user)
	if err != nil {
		utils.WriteError(w, h.logger, err)
		return
	}
	utils.JSON(w, http.StatusOK, info)
}
