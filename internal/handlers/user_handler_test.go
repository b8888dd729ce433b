package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lettersontherocks/AI-Interview/internal/models"
	"github.com/lettersontherocks/AI-Interview/internal/utils"
	"github.com/lettersontherocks/AI-Interview/internal/wechat"
)

func TestRegisterHandler(t *testing.T) {
	env := newTestEnv(t, false)

	first := env.register(t, "openid-1")
	assert.True(t, strings.HasPrefix(first.UserID, "user_"))
	assert.Len(t, first.UserID, len("user_")+16)
	assert.Equal(t, "openid-1", first.OpenID)
	assert.Equal(t, "tester", first.Nickname)
	assert.Equal(t, models.TierNone, first.VipType)
	assert.False(t, first.IsVIP)
	assert.Equal(t, 1, first.DailyLimit)
	assert.Zero(t, first.FreeCountToday)

	userID, err := utils.VerifyToken(bearerRequest(first.Token), testSecret)
	require.NoError(t, err)
	assert.Equal(t, first.UserID, userID)

	again := env.register(t, "openid-1")
	assert.Equal(t, first.UserID, again.UserID)

	status, err := env.ledger.Get(context.Background(), first.UserID)
	require.NoError(t, err)
	assert.Zero(t, status.ExtraCredits)

	rec := env.do(t, http.MethodPost, "/user/register", map[string]string{"nickname": "x"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_openid", decode[models.ErrorResponse](t, rec).Code)
}

func bearerRequest(token string) *http.Request {
	r, _ := http.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestWxLoginHandler(t *testing.T) {
	env := newTestEnv(t, false)

	rec := env.do(t, http.MethodPost, "/user/wx-login", models.WxLoginRequest{Code: "c1", Nickname: "小王"}, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := decode[models.UserInfo](t, rec)
	assert.Equal(t, "wx_openid", created.OpenID)
	assert.Equal(t, "小王", created.Nickname)
	assert.NotEmpty(t, created.Token)

	rec = env.do(t, http.MethodPost, "/user/wx-login", models.WxLoginRequest{Code: "c2", Avatar: "https://img/a.png"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[models.UserInfo](t, rec)
	assert.Equal(t, created.UserID, updated.UserID)
	assert.Equal(t, "小王", updated.Nickname)
	assert.Equal(t, "https://img/a.png", updated.Avatar)

	env.exchanger.err = fmt.Errorf("%w: bad", wechat.ErrInvalidCode)
	rec = env.do(t, http.MethodPost, "/user/wx-login", models.WxLoginRequest{Code: "c3"}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_code", decode[models.ErrorResponse](t, rec).Code)

	env.exchanger.err = errors.New("connection reset")
	rec = env.do(t, http.MethodPost, "/user/wx-login", models.WxLoginRequest{Code: "c4"}, "")
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = env.do(t, http.MethodPost, "/user/wx-login", models.WxLoginRequest{}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "missing_code", decode[models.ErrorResponse](t, rec).Code)
}

func TestGetUserHandler(t *testing.T) {
	env := newTestEnv(t, false)
	user := env.register(t, "openid-1")

	rec := env.do(t, http.MethodGet, "/user/"+user.UserID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[models.UserInfo](t, rec)
	assert.Equal(t, user.UserID, info.UserID)
	assert.Empty(t, info.Token)

	rec = env.do(t, http.MethodGet, "/user/user_missing", nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "user_not_found", decode[models.ErrorResponse](t, rec).Code)
}
