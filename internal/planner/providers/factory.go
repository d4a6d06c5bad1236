// Package providers builds the configured planner backend.
package providers

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagepilot/internal/config"
	"github.com/xkilldash9x/pagepilot/internal/planner"
	"github.com/xkilldash9x/pagepilot/internal/planner/gemini"
	"github.com/xkilldash9x/pagepilot/internal/planner/openai"
)

// NewBackend creates the backend for cfg.Provider.
func NewBackend(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (planner.Backend, error) {
	modelCfg, ok := cfg.ModelConfig()
	if !ok {
		return nil, fmt.Errorf("no model settings for provider %q", cfg.Provider)
	}

	var (
		backend planner.Backend
		err     error
	)
	switch cfg.Provider {
	case config.ProviderGemini:
		backend, err = gemini.New(ctx, modelCfg, logger)
	case config.ProviderOpenAI:
		backend, err = openai.New(modelCfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: %v", cfg.Provider, config.SupportedProviders)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %s backend: %w", cfg.Provider, err)
	}
	return backend, nil
}

// NewPlanner creates a Gateway around the configured backend, with the configured throttle.
func NewPlanner(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*planner.Gateway, error) {
	backend, err := NewBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	return planner.NewGateway(backend, logger, planner.WithRequestsPerMinute(cfg.RequestsPerMinute)), nil
}
