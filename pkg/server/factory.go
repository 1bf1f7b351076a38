package server

import (
	"context"
	"fmt"

	"github.com/saint0x/ghscribe/pkg/ai"
	"github.com/saint0x/ghscribe/pkg/config"
	"github.com/saint0x/ghscribe/pkg/gemini"
	"github.com/saint0x/ghscribe/pkg/generate"
	"github.com/saint0x/ghscribe/pkg/github"
	"github.com/saint0x/ghscribe/pkg/log"
	"github.com/saint0x/ghscribe/pkg/openai"
)

// Credentials are user-supplied overrides of the environment defaults
type Credentials struct {
	GitHubToken   string
	GenerationKey string
}

// SessionFactory builds a session for the given credentials
type SessionFactory func(ctx context.Context, creds Credentials) (*generate.Session, error)

// NewSessionFactory returns a factory backed by the real GitHub API and the
// configured generation backend
func NewSessionFactory(logger *log.Logger, env *config.Environment) SessionFactory {
	return func(ctx context.Context, creds Credentials) (*generate.Session, error) {
		token, err := env.ResolveGitHubToken(creds.GitHubToken)
		if err != nil {
			return nil, err
		}
		gh, err := github.New(logger, token, github.WithRateLimit(env.GitHubRateLimit))
		if err != nil {
			return nil, fmt.Errorf("failed to create github client: %w", err)
		}

		backend, err := NewBackend(ctx, logger, env, creds.GenerationKey)
		if err != nil {
			return nil, err
		}

		return generate.NewSession(logger, gh, ai.New(logger, backend),
			generate.WithTimeouts(env.GenerationTimeout, env.SubmitTimeout),
		), nil
	}
}

// NewBackend creates the generation backend selected by the environment
func NewBackend(ctx context.Context, logger *log.Logger, env *config.Environment, keyOverride string) (ai.Backend, error) {
	key, err := env.ResolveGenerationKey(keyOverride)
	if err != nil {
		return nil, err
	}

	switch env.Backend {
	case config.BackendOpenAI:
		return openai.New(logger, openai.Options{APIKey: key, Model: env.Model})
	default:
		return gemini.New(ctx, logger, gemini.Options{APIKey: key, Model: env.Model})
	}
}
