// Package wechat exchanges mini-program login codes for openids.
package wechat

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrInvalidCode is returned when WeChat rejects the login code.
var ErrInvalidCode = errors.New("invalid wechat login code")

// APIError is a non-zero errcode returned by the WeChat API.
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("wechat api error %d: %s", e.Code, e.Message)
}

// Session is the result of a successful code exchange.
type Session struct {
	OpenID     string `json:"openid"`
	SessionKey string `json:"session_key"`
	UnionID    string `json:"unionid,omitempty"`
}

type code2SessionResponse struct {
	Session
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
}

// Client calls sns/jscode2session. Without credentials it runs in dev mode
// and derives a stable openid from the code.
type Client struct {
	appID      string
	appSecret  string
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(appID, appSecret, baseURL string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.weixin.qq.com"
	}
	return &Client{
		appID:      appID,
		appSecret:  appSecret,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (c *Client) configured() bool {
	return c.appID != "" && c.appSecret != ""
}

// Code2Session exchanges a login code for the user's openid.
func (c *Client) Code2Session(ctx context.Context, code string) (*Session, error) {
	if !c.configured() {
		c.logger.Warn("WeChat credentials not configured, using dev openid")
		sum := sha256.Sum256([]byte(code))
		return &Session{OpenID: "dev_" + hex.EncodeToString(sum[:8]), SessionKey: "dev_session_key"}, nil
	}

	params := url.Values{}
	params.Set("appid", c.appID)
	params.Set("secret", c.appSecret)
	params.Set("js_code", code)
	params.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/sns/jscode2session?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to call wechat: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read wechat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wechat returned status %d", resp.StatusCode)
	}

	var out code2SessionResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("failed to decode wechat response: %w", err)
	}
	switch out.ErrCode {
	case 0:
	case 40029, 40163:
		// invalid or already used code
		return nil, fmt.Errorf("%w: %s", ErrInvalidCode, out.ErrMsg)
	default:
		return nil, &APIError{Code: out.ErrCode, Message: out.ErrMsg}
	}
	if out.OpenID == "" {
		return nil, errors.New("wechat response missing openid")
	}
	return &out.Session, nil
}
