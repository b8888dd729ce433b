package gemini

import (
	"errors"
	"strings"

	"github.com/lettersontherocks/AI-Interview/internal/llm"
)

const defaultModel = "gemini-2.5-flash"

var errMissingAPIKey = errors.New("gemini: GEMINI_API_KEY is required")

type Config struct {
	APIKey string
	Model  string
	// BaseURL overrides the Gemini endpoint, mostly for proxies and tests.
	BaseURL string
}

func init() {
	llm.RegisterProvider(providerName, func(s llm.Settings) (llm.Provider, error) {
		cfg, err := NewConfig(s)
		if err != nil {
			return nil, err
		}
		return NewClient(cfg)
	})
}

func NewConfig(s llm.Settings) (*Config, error) {
	key := strings.TrimSpace(s.APIKey)
	if key == "" {
		return nil, errMissingAPIKey
	}
	model := strings.TrimSpace(s.Model)
	if model == "" {
		model = defaultModel
	}
	return &Config{APIKey: key, Model: model, BaseURL: strings.TrimRight(s.BaseURL, "/")}, nil
}
