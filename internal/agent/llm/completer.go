// Package llm adapts chat-completion providers to a single Complete call.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

var (
	// ErrUnavailable means no provider is configured.
	ErrUnavailable = errors.New("completion provider not configured")
	// ErrCompletion wraps every provider failure.
	ErrCompletion = errors.New("completion failed")
)

const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// Request is one system + user exchange.
type Request struct {
	System string
	Prompt string
}

// Completer returns the model's reply to a request.
type Completer interface {
	Complete(ctx context.Context, req Request) (string, error)
}

type Config struct {
	Provider string `yaml:"provider"`

	OpenAIAPIKey  string `yaml:"openaiApiKey"`
	OpenAIBaseURL string `yaml:"openaiBaseUrl"`
	OpenAIModel   string `yaml:"openaiModel"`

	OllamaEndpoint string `yaml:"ollamaEndpoint"`
	OllamaModel    string `yaml:"ollamaModel"`

	MaxTokens   int           `yaml:"maxTokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
}

// New builds the completer selected by cfg.Provider. An empty or "none"
// provider yields Disabled.
func New(ctx context.Context, cfg Config, log logger.Logger) (Completer, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", ProviderNone:
		log.Warn("No completion provider configured; analysis and chat are disabled")
		return Disabled{}, nil
	case ProviderOpenAI:
		return NewOpenAI(ctx, cfg, log)
	case ProviderOllama:
		return NewOllama(cfg, log), nil
	default:
		return nil, fmt.Errorf("unknown completion provider: %s", cfg.Provider)
	}
}

// Disabled fails every request with ErrUnavailable.
type Disabled struct{}

func (Disabled) Complete(context.Context, Request) (string, error) {
	return "", ErrUnavailable
}
