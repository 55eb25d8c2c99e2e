package roles

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"google.golang.org/genai"

	"github.com/tripflow-core/server/internal/planner/model"
	logx "github.com/tripflow-core/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey    string
	BaseURL   string
	Generator *model.GeneratorModelConfig
	Validator *model.ValidatorModelConfig
}

// ChatModels holds the two backends for the planner's asymmetric roles.
// The generator runs warm for varied phrasing; the validator runs cold
// so its judgments stay stable across retries.
type ChatModels struct {
	Generator *gemini.ChatModel
	Validator *gemini.ChatModel
}

// NewChatModels creates both role backends against one Gemini client.
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	generatorModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Generator.Model,
		Temperature: &config.Generator.Temperature,
		MaxTokens:   &config.Generator.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating generator model")
		return nil, fmt.Errorf("error creating generator model: %w", err)
	}

	validatorModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.Validator.Model,
		Temperature: &config.Validator.Temperature,
		MaxTokens:   &config.Validator.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating validator model")
		return nil, fmt.Errorf("error creating validator model: %w", err)
	}

	return &ChatModels{
		Generator: generatorModel,
		Validator: validatorModel,
	}, nil
}

// modelCompleter adapts an eino chat model to the role capability,
// bounding every call with a deadline so a hung backend surfaces as a
// timeout instead of stalling the turn.
type modelCompleter struct {
	backend einomodel.BaseChatModel
	timeout time.Duration
}

// NewCompleter wraps an eino chat model as a model.Completer with the
// given per-call timeout in seconds.
func NewCompleter(backend einomodel.BaseChatModel, timeoutSec int) model.Completer {
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	return &modelCompleter{backend: backend, timeout: time.Duration(timeoutSec) * time.Second}
}

func (c *modelCompleter) Complete(ctx context.Context, messages []*schema.Message) (*schema.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	return c.backend.Generate(ctx, messages)
}
