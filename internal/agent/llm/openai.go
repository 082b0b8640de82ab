package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAI talks to an OpenAI-compatible chat completion API through eino.
type OpenAI struct {
	chatModel model.BaseChatModel
	modelName string
	logger    logger.Logger
}

func NewOpenAI(ctx context.Context, cfg Config, log logger.Logger) (*OpenAI, error) {
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("openai api key required")
	}
	modelName := cfg.OpenAIModel
	if modelName == "" {
		modelName = defaultOpenAIModel
	}

	mc := &openai.ChatModelConfig{
		APIKey:  cfg.OpenAIAPIKey,
		BaseURL: cfg.OpenAIBaseURL,
		Model:   modelName,
		Timeout: cfg.Timeout,
	}
	if cfg.MaxTokens > 0 {
		maxTokens := cfg.MaxTokens
		mc.MaxTokens = &maxTokens
	}
	if cfg.Temperature > 0 {
		temperature := float32(cfg.Temperature)
		mc.Temperature = &temperature
	}

	chatModel, err := openai.NewChatModel(ctx, mc)
	if err != nil {
		return nil, fmt.Errorf("init openai chat model: %w", err)
	}
	return newOpenAIWithModel(chatModel, modelName, log), nil
}

func newOpenAIWithModel(chatModel model.BaseChatModel, modelName string, log logger.Logger) *OpenAI {
	return &OpenAI{
		chatModel: chatModel,
		modelName: modelName,
		logger:    log.Named("openai"),
	}
}

func (o *OpenAI) Complete(ctx context.Context, req Request) (string, error) {
	messages := make([]*schema.Message, 0, 2)
	if req.System != "" {
		messages = append(messages, schema.SystemMessage(req.System))
	}
	messages = append(messages, schema.UserMessage(req.Prompt))

	start := time.Now()
	resp, err := o.chatModel.Generate(ctx, messages)
	if err != nil {
		o.logger.Error("Completion failed",
			logger.String("model", o.modelName),
			logger.Error(err),
		)
		return "", fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	o.logger.Debug("Completion finished",
		logger.String("model", o.modelName),
		logger.Duration("took", time.Since(start)),
	)
	return strings.TrimSpace(resp.Content), nil
}
