package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feichai0017/policy-decoder/pkg/logger"
)

type fakeChatModel struct {
	reply    string
	err      error
	received []*schema.Message
}

func (f *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	f.received = input
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestOpenAI_Complete(t *testing.T) {
	fake := &fakeChatModel{reply: "  The excess is $500.  "}
	o := newOpenAIWithModel(fake, "test-model", logger.NewNop())

	got, err := o.Complete(context.Background(), Request{System: "be brief", Prompt: "what is the excess?"})
	require.NoError(t, err)
	assert.Equal(t, "The excess is $500.", got)

	require.Len(t, fake.received, 2)
	assert.Equal(t, schema.System, fake.received[0].Role)
	assert.Equal(t, schema.User, fake.received[1].Role)
	assert.Equal(t, "what is the excess?", fake.received[1].Content)
}

func TestOpenAI_CompleteError(t *testing.T) {
	o := newOpenAIWithModel(&fakeChatModel{err: errors.New("429")}, "test-model", logger.NewNop())

	_, err := o.Complete(context.Background(), Request{Prompt: "q"})
	assert.ErrorIs(t, err, ErrCompletion)
}

func TestNewOpenAI_RequiresKey(t *testing.T) {
	_, err := NewOpenAI(context.Background(), Config{}, logger.NewNop())
	assert.Error(t, err)
}

func TestOllama_Complete(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/generate", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(OllamaResponse{Response: " covered ", Done: true})
	}))
	defer srv.Close()

	c := NewOllama(Config{OllamaEndpoint: srv.URL + "/", OllamaModel: "llama3", MaxTokens: 500, Temperature: 0.7}, logger.NewNop())
	defer c.Close()

	answer, err := c.Complete(context.Background(), Request{System: "sys", Prompt: "is flood covered?"})
	require.NoError(t, err)
	assert.Equal(t, "covered", answer)

	assert.Equal(t, "llama3", got.Model)
	assert.Equal(t, "sys", got.System)
	assert.False(t, got.Stream)
	assert.Equal(t, 500, got.Options.NumPredict)
}

func TestOllama_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewOllama(Config{OllamaEndpoint: srv.URL}, logger.NewNop())
	_, err := c.Complete(context.Background(), Request{Prompt: "q"})
	assert.ErrorIs(t, err, ErrCompletion)

	bodyErr := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(OllamaResponse{Error: "out of memory"})
	}))
	defer bodyErr.Close()

	c = NewOllama(Config{OllamaEndpoint: bodyErr.URL}, logger.NewNop())
	_, err = c.Complete(context.Background(), Request{Prompt: "q"})
	assert.ErrorIs(t, err, ErrCompletion)
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNop()

	c, err := New(ctx, Config{}, log)
	require.NoError(t, err)
	_, err = c.Complete(ctx, Request{Prompt: "q"})
	assert.ErrorIs(t, err, ErrUnavailable)

	c, err = New(ctx, Config{Provider: "ollama"}, log)
	require.NoError(t, err)
	assert.IsType(t, &Ollama{}, c)

	_, err = New(ctx, Config{Provider: "carrier-pigeon"}, log)
	assert.Error(t, err)
}
