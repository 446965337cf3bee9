package gemini

import (
	"context"
	"fmt"

	"evai/internal/config"
	"evai/internal/logging"
)

// OptionsFromConfig converts the LLM section of cfg into transport options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		APIKey:         cfg.LLM.APIKey,
		BaseURL:        cfg.LLM.BaseURL,
		PlanModel:      cfg.LLM.PlanModel,
		ChatModel:      cfg.LLM.ChatModel,
		TTSModel:       cfg.LLM.TTSModel,
		Voice:          cfg.LLM.Voice,
		Timeout:        cfg.GetLLMTimeout(),
		ThinkingBudget: cfg.LLM.ThinkingBudget,
		MaxRetries:     cfg.LLM.MaxRetries,
		MinInterval:    cfg.GetMinRequestInterval(),
		ChatMaps:       cfg.Grounding.ChatMaps,
	}
}

// New creates the Generator selected by cfg.LLM.Backend.
func New(ctx context.Context, cfg *config.Config) (Generator, error) {
	opts := OptionsFromConfig(cfg)
	if opts.BaseURL == "" {
		opts.BaseURL = config.DefaultBaseURL
	}

	logging.Boot("generation backend: %s (plan=%s chat=%s tts=%s)", cfg.LLM.Backend, opts.PlanModel, opts.ChatModel, opts.TTSModel)

	switch cfg.LLM.Backend {
	case config.BackendREST, "":
		return NewRESTClient(opts), nil
	case config.BackendGenAI:
		return NewGenAIClient(ctx, opts)
	default:
		return nil, fmt.Errorf("unknown backend: %s (valid: %v)", cfg.LLM.Backend, config.ValidBackends)
	}
}
