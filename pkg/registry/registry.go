// Package registry loads and serves model configurations. Readers share an
// immutable snapshot behind an atomic pointer; reloads and administrative
// hot-swaps build a fresh snapshot and swap it in whole, so in-flight
// requests never observe a partial update.
package registry

import (
	"fmt"
	"os"
	"sort"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// ModelConfig is an immutable registry record for one model id. Routing
// reads it but never mutates it at request time.
type ModelConfig struct {
	Name            string  `yaml:"-"`
	Provider        string  `yaml:"provider"`
	ModelName       string  `yaml:"model_name"`
	MaxTokens       int     `yaml:"max_tokens"`
	Temperature     float64 `yaml:"temperature"`
	SystemPrompt    string  `yaml:"system_prompt"`
	CostPer1KTokens float64 `yaml:"cost_per_1k_tokens"`
}

// ProviderConfig holds connection parameters for one backend.
type ProviderConfig struct {
	Type            string        `yaml:"type"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	HealthCheckPath string        `yaml:"health_check_path"`
}

type fileSchema struct {
	Models struct {
		Default   string                    `yaml:"default"`
		Providers map[string]ProviderConfig `yaml:"providers"`
		Registry  map[string]ModelConfig    `yaml:"model_registry"`
	} `yaml:"models"`
}

// snapshot is one immutable view of the registry. Never mutated after
// construction.
type snapshot struct {
	models    map[string]ModelConfig
	providers map[string]ProviderConfig
	defaultID string
}

// Registry resolves model and provider ids to their configurations.
type Registry struct {
	path string
	snap atomic.Pointer[snapshot]
}

// Load reads the models file at path. A missing file falls back to a
// built-in single-model Ollama configuration so a fresh checkout serves
// requests without any setup.
func Load(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the models file and swaps in a fresh snapshot.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		r.snap.Store(defaultSnapshot())
		return nil
	}
	if err != nil {
		return fmt.Errorf("read models config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var file fileSchema
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return fmt.Errorf("parse models config: %w", err)
	}

	snap := &snapshot{
		models:    make(map[string]ModelConfig, len(file.Models.Registry)),
		providers: file.Models.Providers,
		defaultID: file.Models.Default,
	}
	for id, cfg := range file.Models.Registry {
		cfg.Name = id
		snap.models[id] = cfg
	}
	if snap.defaultID == "" {
		return fmt.Errorf("models config %s: default model is required", r.path)
	}
	if _, ok := snap.models[snap.defaultID]; !ok {
		return fmt.Errorf("models config %s: default model %q not in registry", r.path, snap.defaultID)
	}
	for id, cfg := range snap.models {
		if _, ok := snap.providers[cfg.Provider]; !ok {
			return fmt.Errorf("models config %s: model %q references unknown provider %q", r.path, id, cfg.Provider)
		}
	}

	r.snap.Store(snap)
	return nil
}

// DefaultModel returns the configured default model id.
func (r *Registry) DefaultModel() string {
	return r.snap.Load().defaultID
}

// ModelIDs returns all configured model ids, sorted.
func (r *Registry) ModelIDs() []string {
	snap := r.snap.Load()
	ids := make([]string, 0, len(snap.models))
	for id := range snap.models {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Model resolves a model id to its configuration.
func (r *Registry) Model(id string) (ModelConfig, bool) {
	cfg, ok := r.snap.Load().models[id]
	return cfg, ok
}

// Provider resolves a provider id to its connection configuration.
func (r *Registry) Provider(id string) (ProviderConfig, bool) {
	cfg, ok := r.snap.Load().providers[id]
	return cfg, ok
}

// ProviderIDs returns all configured provider ids, sorted.
func (r *Registry) ProviderIDs() []string {
	snap := r.snap.Load()
	ids := make([]string, 0, len(snap.providers))
	for id := range snap.providers {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SwapModel replaces one model's configuration wholesale. The current
// snapshot is copied, modified, and swapped in; concurrent readers keep
// the old view until the swap lands.
func (r *Registry) SwapModel(id string, cfg ModelConfig) {
	for {
		old := r.snap.Load()
		next := &snapshot{
			models:    make(map[string]ModelConfig, len(old.models)+1),
			providers: old.providers,
			defaultID: old.defaultID,
		}
		for k, v := range old.models {
			next.models[k] = v
		}
		cfg.Name = id
		next.models[id] = cfg
		if r.snap.CompareAndSwap(old, next) {
			return
		}
	}
}

// defaultSnapshot mirrors the shipped models.yaml: a single educational
// model on a local Ollama.
func defaultSnapshot() *snapshot {
	baseURL := os.Getenv("OLLAMA_URL")
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	return &snapshot{
		defaultID: "phi3-mini-educational",
		providers: map[string]ProviderConfig{
			"ollama-local": {
				Type:            "ollama",
				BaseURL:         baseURL,
				Timeout:         30 * time.Second,
				HealthCheckPath: "/api/tags",
			},
		},
		models: map[string]ModelConfig{
			"phi3-mini-educational": {
				Name:            "phi3-mini-educational",
				Provider:        "ollama-local",
				ModelName:       "phi3:mini",
				MaxTokens:       1024,
				Temperature:     0.7,
				SystemPrompt:    "You are a patient, encouraging tutor for K-12 and college students.",
				CostPer1KTokens: 0.0001,
			},
		},
	}
}
