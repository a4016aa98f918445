// Package genai implements the inference boundary on top of the Go SDK for the
// Gemini API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/config"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/providers/retry"
)

// Client adapts a *genai.Client to core.StreamingBoundary.
type Client struct {
	sdk         *genai.Client
	model       string
	maxTokens   int
	temperature float32
	retry       retry.Config
	logger      *slog.Logger
}

func New(ctx context.Context, mc config.ModelConfig, logger *slog.Logger) (*Client, error) {
	if mc.APIKey == "" {
		return nil, fmt.Errorf("%w: model %s", moderr.ErrMissingAPIKey, mc.Model)
	}
	if logger == nil {
		logger = slog.Default()
	}
	opts := []option.ClientOption{option.WithAPIKey(mc.APIKey)}
	if mc.BaseURL != "" {
		opts = append(opts, option.WithEndpoint(mc.BaseURL))
	}
	sdk, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	rc := mc.Retry
	if rc.MaxAttempts == 0 {
		rc = retry.DefaultConfig()
	}
	return &Client{
		sdk:         sdk,
		model:       mc.Model,
		maxTokens:   mc.MaxOutputTokens,
		temperature: mc.Temperature,
		retry:       rc,
		logger:      logger,
	}, nil
}

func (c *Client) Close() error { return c.sdk.Close() }

func (c *Client) Send(ctx context.Context, req core.Request) (core.Response, error) {
	model, contents, err := c.prepare(req)
	if err != nil {
		return core.Response{}, err
	}

	var resp *genai.GenerateContentResponse
	err = retry.Do(ctx, c.retry, c.logger, "genai.SendMessage", func(ctx context.Context) error {
		cs, last := startChat(model, contents)
		r, err := cs.SendMessage(ctx, last...)
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return core.Response{}, fmt.Errorf("genai send: %w", err)
	}

	chunk := fromResponse(resp)
	return core.Response{Parts: chunk.Parts, Usage: chunk.Usage, FinishReason: chunk.FinishReason, Done: true}, nil
}

func (c *Client) Stream(ctx context.Context, req core.Request) iter.Seq2[core.ResponseChunk, error] {
	return func(yield func(core.ResponseChunk, error) bool) {
		model, contents, err := c.prepare(req)
		if err != nil {
			yield(core.ResponseChunk{}, err)
			return
		}
		cs, last := startChat(model, contents)
		it := cs.SendMessageStream(ctx, last...)
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				yield(core.ResponseChunk{}, fmt.Errorf("genai stream: %w", err))
				return
			}
			if !yield(fromResponse(resp), nil) {
				return
			}
		}
	}
}

// prepare configures a model for req and converts its turns. The SDK sends the
// final turn as user content, so a conversation ending in a model turn is
// rejected rather than having its role rewritten.
func (c *Client) prepare(req core.Request) (*genai.GenerativeModel, []*genai.Content, error) {
	name := req.Model
	if name == "" {
		name = c.model
	}
	model := c.sdk.GenerativeModel(name)

	n := req.MaxTokens
	if n <= 0 {
		n = c.maxTokens
	}
	if n > 0 {
		model.SetMaxOutputTokens(int32(n))
	}
	if req.Temperature > 0 {
		model.SetTemperature(req.Temperature)
	} else if c.temperature > 0 {
		model.SetTemperature(c.temperature)
	}
	if req.TopP > 0 {
		model.SetTopP(req.TopP)
	}
	if req.SystemInstruction != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.SystemInstruction))
	}

	tools, err := toTools(req.Tools)
	if err != nil {
		return nil, nil, err
	}
	if len(tools) > 0 {
		model.Tools = tools
		model.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{Mode: toMode(req.Mode)},
		}
	}

	if len(req.Turns) == 0 {
		return nil, nil, fmt.Errorf("%w: request has no turns", moderr.ErrShape)
	}
	if req.Turns[len(req.Turns)-1].Role == core.RoleModel {
		return nil, nil, fmt.Errorf("%w: conversation ends with a model turn", moderr.ErrShape)
	}
	return model, toContents(req.Turns), nil
}

// startChat opens a chat session whose history is every content but the last
// and returns the parts of the last one. SendMessage appends to History, so
// each attempt gets its own session over a copy of contents.
func startChat(model *genai.GenerativeModel, contents []*genai.Content) (*genai.ChatSession, []genai.Part) {
	cs := model.StartChat()
	cs.History = slices.Clone(contents[:len(contents)-1])
	return cs, contents[len(contents)-1].Parts
}
