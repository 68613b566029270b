// Package llm adapts an OpenAI-compatible chat endpoint (such as a local
// llama.cpp server) to the orchestrator's ChatBackend interface. It also
// exposes plain text generation for nested model calls and embedding
// generation for the knowledge store.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"salesagent/internal/agent"
	"salesagent/internal/session"
	"salesagent/internal/tool"
)

// Config holds the client's connection and sampling settings.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	Temperature    float64
	MaxTokens      int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// Client talks to one OpenAI-compatible endpoint. Safe for concurrent use.
type Client struct {
	api     openai.Client
	cfg     Config
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New builds a client for the configured endpoint.
func New(cfg Config) *Client {
	opts := []option.RequestOption{option.WithBaseURL(cfg.BaseURL)}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		api:     openai.NewClient(opts...),
		cfg:     cfg,
		limiter: rate.NewLimiter(10, 30),
		logger:  logger,
	}
}

// Complete implements agent.ChatBackend. When req.OnDelta is set the
// response is streamed and text fragments are forwarded as they arrive;
// the returned Completion always carries the full accumulated message.
func (c *Client) Complete(ctx context.Context, req agent.CompletionRequest) (*agent.Completion, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.cfg.Model),
		Messages: toParams(req.System, req.Messages),
	}
	if tools, err := toToolParams(req.Tools); err != nil {
		return nil, err
	} else if len(tools) > 0 {
		params.Tools = tools
	}
	c.applySampling(&params)

	start := time.Now()
	var msg openai.ChatCompletionMessage
	if req.OnDelta != nil {
		m, err := c.completeStreaming(ctx, params, req.OnDelta)
		if err != nil {
			return nil, err
		}
		msg = m
	} else {
		completion, err := c.api.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, fmt.Errorf("chat completion: %w", err)
		}
		if len(completion.Choices) == 0 {
			return nil, fmt.Errorf("chat completion: no choices returned")
		}
		msg = completion.Choices[0].Message
	}

	out := &agent.Completion{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, session.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	c.logger.Debug("completion received",
		"model", c.cfg.Model,
		"tool_calls", len(out.ToolCalls),
		"latency", time.Since(start))
	return out, nil
}

func (c *Client) completeStreaming(ctx context.Context, params openai.ChatCompletionNewParams, onDelta func(string)) (openai.ChatCompletionMessage, error) {
	stream := c.api.Chat.Completions.NewStreaming(ctx, params)
	defer func() { _ = stream.Close() }()

	var acc openai.ChatCompletionAccumulator
	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			onDelta(chunk.Choices[0].Delta.Content)
		}
	}
	if err := stream.Err(); err != nil {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion stream: %w", err)
	}
	if len(acc.Choices) == 0 {
		return openai.ChatCompletionMessage{}, fmt.Errorf("chat completion stream: no choices returned")
	}
	return acc.Choices[0].Message, nil
}

// GenerateText issues a single non-streaming completion with no tools.
// Used for nested model calls such as SQL generation.
func (c *Client) GenerateText(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.cfg.Model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(user),
		},
	}
	c.applySampling(&params)

	completion, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("text generation: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("text generation: no choices returned")
	}
	return completion.Choices[0].Message.Content, nil
}

// Embed returns one embedding vector per input text, in input order.
// The vectors come back as float32 for direct use with pgvector.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	resp, err := c.api.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(c.cfg.EmbeddingModel),
		Input: openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: texts},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding: got %d vectors for %d inputs", len(resp.Data), len(texts))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		vec := make([]float32, len(d.Embedding))
		for i, v := range d.Embedding {
			vec[i] = float32(v)
		}
		out[d.Index] = vec
	}
	return out, nil
}

// EmbeddingModel returns the configured embedding model identifier.
func (c *Client) EmbeddingModel() string {
	return c.cfg.EmbeddingModel
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.cfg.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.cfg.RequestTimeout)
}

func (c *Client) applySampling(params *openai.ChatCompletionNewParams) {
	params.Temperature = openai.Float(c.cfg.Temperature)
	if c.cfg.MaxTokens > 0 {
		params.MaxTokens = openai.Int(c.cfg.MaxTokens)
	}
}

// toParams converts the session message log to the wire format.
// Role mapping is one to one; assistant tool-call requests and tool results
// keep their ID linkage.
func toParams(system string, msgs []session.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(msgs)+1)
	if system != "" {
		out = append(out, openai.SystemMessage(system))
	}
	for _, m := range msgs {
		switch m.Role {
		case session.RoleUser:
			out = append(out, openai.UserMessage(m.Content))
		case session.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				out = append(out, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
				})
			}
			out = append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case session.RoleTool:
			out = append(out, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}
	return out
}

// toToolParams converts registry specs to the wire tool catalogue,
// preserving order. Each input schema is rendered to the generic
// map form the API expects.
func toToolParams(specs []tool.Spec) ([]openai.ChatCompletionToolParam, error) {
	out := make([]openai.ChatCompletionToolParam, 0, len(specs))
	for _, spec := range specs {
		fn := openai.FunctionDefinitionParam{
			Name:        spec.Name,
			Description: openai.String(spec.Description),
		}
		if spec.InputSchema != nil {
			raw, err := json.Marshal(spec.InputSchema)
			if err != nil {
				return nil, fmt.Errorf("marshaling schema for %s: %w", spec.Name, err)
			}
			var params openai.FunctionParameters
			if err := json.Unmarshal(raw, &params); err != nil {
				return nil, fmt.Errorf("converting schema for %s: %w", spec.Name, err)
			}
			fn.Parameters = params
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out, nil
}
