// Package adapter builds vendor models by provider name and reports the
// capabilities of each provider.
package adapter

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/qiangli/lm/api"
	"github.com/qiangli/lm/config"
)

// Factory builds a model from a merged model config.
type Factory func(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error)

type entry struct {
	factory      Factory
	capabilities api.Capabilities
}

// Row is one provider of the capability matrix.
type Row struct {
	Provider     string           `json:"provider" yaml:"provider"`
	Capabilities api.Capabilities `json:"capabilities" yaml:"capabilities"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]entry
}

func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]entry),
	}
}

// Register adds or replaces a provider. caps is the full set the
// provider supports when fully configured.
func (r *Registry) Register(name string, caps api.Capabilities, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries[name] = entry{
		factory:      f,
		capabilities: api.NewCapabilities(caps.List()...),
	}
}

func (r *Registry) Get(name string) (Factory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, api.NewNotFoundError("provider " + name)
	}
	return e.factory, nil
}

func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// New builds the model of mc.Provider.
func (r *Registry) New(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error) {
	if mc.Provider == "" {
		return nil, api.NewConfigError("provider", "is required, one of %v", r.Names())
	}
	f, err := r.Get(mc.Provider)
	if err != nil {
		return nil, err
	}
	return f(ctx, mc)
}

// Matrix lists the capabilities of every provider sorted by name.
func (r *Registry) Matrix() []Row {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rows := make([]Row, 0, len(r.entries))
	for name, e := range r.entries {
		rows = append(rows, Row{
			Provider:     name,
			Capabilities: api.NewCapabilities(e.capabilities.List()...),
		})
	}
	slices.SortFunc(rows, func(a, b Row) int {
		return strings.Compare(a.Provider, b.Provider)
	})
	return rows
}

var defaultRegistry = NewRegistry()

func init() {
	registerBuiltins(defaultRegistry)
}

func Register(name string, caps api.Capabilities, f Factory) {
	defaultRegistry.Register(name, caps, f)
}

func Get(name string) (Factory, error) {
	return defaultRegistry.Get(name)
}

func Names() []string {
	return defaultRegistry.Names()
}

func New(ctx context.Context, mc *config.ModelConfig) (api.LanguageModel, error) {
	return defaultRegistry.New(ctx, mc)
}

func Matrix() []Row {
	return defaultRegistry.Matrix()
}
