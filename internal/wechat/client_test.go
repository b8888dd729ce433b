package wechat

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCode2Session(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sns/jscode2session", r.URL.Path)
		assert.Equal(t, "wxapp", r.URL.Query().Get("appid"))
		assert.Equal(t, "shh", r.URL.Query().Get("secret"))
		assert.Equal(t, "code-1", r.URL.Query().Get("js_code"))
		assert.Equal(t, "authorization_code", r.URL.Query().Get("grant_type"))
		w.Write([]byte(`{"openid":"o_123","session_key":"sk"}`))
	})

	client := NewClient("wxapp", "shh", srv.URL+"/", zap.NewNop())
	sess, err := client.Code2Session(context.Background(), "code-1")
	require.NoError(t, err)
	assert.Equal(t, "o_123", sess.OpenID)
	assert.Equal(t, "sk", sess.SessionKey)
}

func TestCode2SessionErrors(t *testing.T) {
	cases := []struct {
		name  string
		code  int
		body  string
		check func(t *testing.T, err error)
	}{
		{"invalid code", http.StatusOK, `{"errcode":40029,"errmsg":"invalid code"}`, func(t *testing.T, err error) {
			assert.ErrorIs(t, err, ErrInvalidCode)
		}},
		{"api error", http.StatusOK, `{"errcode":45011,"errmsg":"api minute-quota reach limit"}`, func(t *testing.T, err error) {
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, 45011, apiErr.Code)
		}},
		{"http status", http.StatusBadGateway, `oops`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "502")
		}},
		{"garbage", http.StatusOK, `not json`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "decode")
		}},
		{"missing openid", http.StatusOK, `{"session_key":"sk"}`, func(t *testing.T, err error) {
			assert.Contains(t, err.Error(), "openid")
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.code)
				w.Write([]byte(tc.body))
			})
			_, err := NewClient("wxapp", "shh", srv.URL, zap.NewNop()).Code2Session(context.Background(), "c")
			require.Error(t, err)
			tc.check(t, err)
		})
	}
}

func TestCode2SessionDevMode(t *testing.T) {
	client := NewClient("", "", "", zap.NewNop())

	a, err := client.Code2Session(context.Background(), "code-1")
	require.NoError(t, err)
	b, err := client.Code2Session(context.Background(), "code-1")
	require.NoError(t, err)
	c, err := client.Code2Session(context.Background(), "code-2")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(a.OpenID, "dev_"))
	assert.Equal(t, a.OpenID, b.OpenID)
	assert.NotEqual(t, a.OpenID, c.OpenID)
}
