package agent

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	"google.golang.org/genai"

	logx "github.com/agente-usados/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation.
type ChatModelConfig struct {
	APIKey      string
	BaseURL     string
	AgentConfig *ModelConfig
	TopicConfig *TopicModelConfig
}

// ChatModels holds the tool-calling sales model and the small topic model.
type ChatModels struct {
	Sales          *gemini.ChatModel
	Topic          *gemini.ChatModel
	SalesModelName string
	TopicModelName string
}

// NewChatModels creates both chat models over one shared Gemini client.
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

	salesModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.AgentConfig.Model,
		Temperature: &config.AgentConfig.Temperature,
		MaxTokens:   &config.AgentConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: true,
			ThinkingBudget:  genai.Ptr(int32(2000)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating sales model")
		return nil, fmt.Errorf("error creating sales model: %w", err)
	}

	topicModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.TopicConfig.Model,
		Temperature: &config.TopicConfig.Temperature,
		MaxTokens:   &config.TopicConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating topic model")
		return nil, fmt.Errorf("error creating topic model: %w", err)
	}

	return &ChatModels{
		Sales:          salesModel,
		Topic:          topicModel,
		SalesModelName: config.AgentConfig.Model,
		TopicModelName: config.TopicConfig.Model,
	}, nil
}
