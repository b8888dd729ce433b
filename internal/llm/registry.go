package llm

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var ErrUnknownProvider = errors.New("unsupported provider")

// Settings carries the provider options read from the app config.
type Settings struct {
	APIKey  string
	Model   string
	BaseURL string
}

type ProviderFactory func(Settings) (Provider, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]ProviderFactory)
)

// RegisterProvider makes a provider available under name. Providers register
// themselves from init so that importing the package is enough.
func RegisterProvider(name string, factory ProviderFactory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = factory
}

func NewProvider(name string, settings Settings) (Provider, error) {
	mu.RLock()
	factory, ok := factories[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownProvider, name, Registered())
	}
	return factory(settings)
}

// Registered lists provider names in sorted order.
func Registered() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
