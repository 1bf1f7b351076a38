package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/saint0x/ghscribe/pkg/log"
)

// ErrEmptyPrompt is returned when a request carries no prompt
var ErrEmptyPrompt = errors.New("prompt is required")

// Generator wraps a Backend with defaults, clamping and retries
type Generator struct {
	logger  *log.Logger
	backend Backend
	retry   RetryConfig
}

// Option configures a Generator
type Option func(*Generator)

// WithRetry overrides the backoff configuration
func WithRetry(cfg RetryConfig) Option {
	return func(g *Generator) {
		g.retry = cfg
	}
}

// New creates a new Generator instance
func New(logger *log.Logger, backend Backend, opts ...Option) *Generator {
	g := &Generator{
		logger:  logger,
		backend: backend,
		retry:   DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Backend returns the wrapped backend
func (g *Generator) Backend() Backend {
	return g.backend
}

// ClampTemperature limits t to [0,1]
func ClampTemperature(t float32) float32 {
	switch {
	case t < 0:
		return 0
	case t > 1:
		return 1
	default:
		return t
	}
}

// Generate performs one generation call. Network and quota failures surface
// as errors; the caller decides what to do with them.
func (g *Generator) Generate(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, ErrEmptyPrompt
	}

	cfg := DefaultConfig().Merge(req.Overrides)
	cfg.Temperature = ClampTemperature(req.Temperature)

	tool := "none"
	if req.Tool != nil {
		tool = req.Tool.Name
	}
	g.logger.Generate("Calling %s (temperature %.2f, tool %s, %d prompt bytes)", g.backend.Name(), cfg.Temperature, tool, len(req.Prompt))

	resp, err := retryWithBackoff(ctx, g.logger, g.retry, g.backend.Name(), func() (*Response, error) {
		return g.backend.Generate(ctx, req, cfg)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if resp == nil {
		resp = &Response{}
	}

	g.logger.Debug("Received %d text bytes and %d function calls", len(resp.Text), len(resp.FunctionCalls))
	return resp, nil
}
