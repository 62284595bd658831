// Package provider abstracts text-generation backends behind a single
// capability interface. Backends are resolved through a static factory
// built from the model registry at startup.
package provider

import (
	"context"

	"github.com/studyhall-ai/studyhall/pkg/models"
	"github.com/studyhall-ai/studyhall/pkg/registry"
)

// StreamChunk is one increment of a streaming generation. Err is set on
// the final chunk when the stream fails mid-way.
type StreamChunk struct {
	Content string
	Done    bool
	Err     error
}

// Provider is the contract every backend adapter satisfies. Generate and
// StreamGenerate must respect context cancellation and classify failures
// with the package's sentinel errors.
type Provider interface {
	Generate(ctx context.Context, prompt string, cfg registry.ModelConfig) (*models.GenerationResult, error)
	// StreamGenerate yields chunks until the generation completes or the
	// context is cancelled. The caller must drain the channel.
	StreamGenerate(ctx context.Context, prompt string, cfg registry.ModelConfig) (<-chan StreamChunk, error)
	HealthCheck(ctx context.Context) models.ModelHealth
	Name() string
	Close() error
}
