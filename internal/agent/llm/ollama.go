package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

const (
	defaultOllamaEndpoint = "http://localhost:11434"
	defaultOllamaModel    = "llama3"
)

// OllamaResponse 定义 Ollama API 响应结构
type OllamaResponse struct {
	Response      string `json:"response"`
	Model         string `json:"model"`
	Done          bool   `json:"done"`
	TotalDuration int64  `json:"total_duration,omitempty"`
	EvalCount     int    `json:"eval_count,omitempty"`
	Error         string `json:"error,omitempty"`
}

type ollamaOptions struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	System  string        `json:"system,omitempty"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

// Ollama calls a local Ollama server's /api/generate endpoint.
type Ollama struct {
	endpoint    string
	model       string
	maxTokens   int
	temperature float64
	httpClient  *http.Client
	logger      logger.Logger
}

func NewOllama(cfg Config, log logger.Logger) *Ollama {
	endpoint := strings.TrimRight(cfg.OllamaEndpoint, "/")
	if endpoint == "" {
		endpoint = defaultOllamaEndpoint
	}
	modelName := cfg.OllamaModel
	if modelName == "" {
		modelName = defaultOllamaModel
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Ollama{
		endpoint:    endpoint,
		model:       modelName,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      log.Named("ollama"),
	}
}

func (c *Ollama) Complete(ctx context.Context, req Request) (string, error) {
	reqData, err := json.Marshal(ollamaRequest{
		Model:  c.model,
		System: req.System,
		Prompt: req.Prompt,
		Options: ollamaOptions{
			NumPredict:  c.maxTokens,
			Temperature: c.temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("%w: marshal request: %w", ErrCompletion, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(reqData))
	if err != nil {
		return "", fmt.Errorf("%w: create request: %w", ErrCompletion, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("Failed to reach ollama", logger.Error(err))
		return "", fmt.Errorf("%w: send request: %w", ErrCompletion, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: unexpected status code %d: %s", ErrCompletion, resp.StatusCode, string(body))
	}

	var result OllamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decode response: %w", ErrCompletion, err)
	}
	if result.Error != "" {
		return "", fmt.Errorf("%w: ollama error: %s", ErrCompletion, result.Error)
	}

	return strings.TrimSpace(result.Response), nil
}

func (c *Ollama) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
