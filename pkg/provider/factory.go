package provider

import (
	"context"
	"fmt"
	"sync"

	"github.com/studyhall-ai/studyhall/pkg/models"
	"github.com/studyhall-ai/studyhall/pkg/registry"
)

// Factory builds and caches provider instances from the registry's
// connection configs. The set of backend types is a static switch, not
// runtime reflection; adding a backend means adding a case.
type Factory struct {
	reg *registry.Registry

	mu        sync.Mutex
	instances map[string]Provider
}

// NewFactory creates a Factory over the given registry.
func NewFactory(reg *registry.Registry) *Factory {
	return &Factory{
		reg:       reg,
		instances: make(map[string]Provider),
	}
}

// ForModel resolves the provider serving the given model id.
func (f *Factory) ForModel(modelID string) (Provider, error) {
	cfg, ok := f.reg.Model(modelID)
	if !ok {
		return nil, fmt.Errorf("model %q not in registry", modelID)
	}
	return f.provider(cfg.Provider)
}

func (f *Factory) provider(id string) (Provider, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if p, ok := f.instances[id]; ok {
		return p, nil
	}

	cfg, ok := f.reg.Provider(id)
	if !ok {
		return nil, fmt.Errorf("provider %q not in registry", id)
	}

	var p Provider
	switch cfg.Type {
	case "ollama":
		p = NewOllama(id, cfg)
	default:
		return nil, fmt.Errorf("unsupported provider type %q", cfg.Type)
	}

	f.instances[id] = p
	return p, nil
}

// HealthAll runs a health check against every configured provider.
func (f *Factory) HealthAll(ctx context.Context) []models.ModelHealth {
	ids := f.reg.ProviderIDs()
	health := make([]models.ModelHealth, 0, len(ids))
	for _, id := range ids {
		p, err := f.provider(id)
		if err != nil {
			health = append(health, models.ModelHealth{
				Provider: id,
				Status:   models.StatusUnavailable,
				Message:  err.Error(),
			})
			continue
		}
		health = append(health, p.HealthCheck(ctx))
	}
	return health
}

// Close releases every cached provider.
func (f *Factory) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	var firstErr error
	for id, p := range f.instances {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close provider %s: %w", id, err)
		}
		delete(f.instances, id)
	}
	return firstErr
}
