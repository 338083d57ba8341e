// Package provider implements extractor clients and their infrastructure
// retry wrapper.
package provider

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/docarena/docarena/internal/extract"
)

// ErrUnknownProvider indicates a provider name with no registered factory.
var ErrUnknownProvider = errors.New("unknown provider")

// Options carries the settings a factory needs to build a client.
type Options struct {
	// Provider is the registered provider name.
	Provider string

	// Model is the model identifier sent with each call.
	Model string

	// Endpoint overrides the provider's default API endpoint.
	Endpoint string

	// APIKey authenticates calls. Usually sourced from the environment.
	APIKey string

	// Logger receives client-level events.
	Logger *slog.Logger
}

// Factory builds an extractor from options.
type Factory func(opts Options) (extract.Extractor, error)

var (
	registryMu sync.RWMutex
	registry   = make(map[string]Factory)
)

// Register adds a provider factory under the given name. Later registrations
// replace earlier ones.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	registry[name] = factory
}

// New builds an extractor for the named provider.
func New(opts Options) (extract.Extractor, error) {
	registryMu.RLock()
	factory, ok := registry[opts.Provider]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q (known: %v)", ErrUnknownProvider, opts.Provider, Known())
	}

	return factory(opts)
}

// Known returns the registered provider names in sorted order.
func Known() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
