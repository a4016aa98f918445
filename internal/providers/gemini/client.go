package gemini

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/lizzyg/toolflow/internal/config"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/providers/retry"
)

const (
	DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	providerName   = "gemini"
	maxEventSize   = 4 << 20
)

// Client talks to the Gemini REST API. It implements core.StreamingBoundary.
type Client struct {
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	temperature float32
	retry       retry.Config
	httpClient  *http.Client
	logger      *slog.Logger
}

func New(mc config.ModelConfig, hc *http.Client, logger *slog.Logger) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	baseURL := strings.TrimRight(mc.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	rc := mc.Retry
	if rc.MaxAttempts == 0 {
		rc = retry.DefaultConfig()
	}
	return &Client{
		apiKey:      mc.APIKey,
		baseURL:     baseURL,
		model:       mc.Model,
		maxTokens:   mc.MaxOutputTokens,
		temperature: mc.Temperature,
		retry:       rc,
		httpClient:  hc,
		logger:      logger,
	}
}

func (c *Client) Send(ctx context.Context, req core.Request) (core.Response, error) {
	body, err := json.Marshal(c.payload(req))
	if err != nil {
		return core.Response{}, fmt.Errorf("encode gemini request: %w", err)
	}

	var gr generateResponse
	err = retry.Do(ctx, c.retry, c.logger, "gemini.generateContent", func(ctx context.Context) error {
		resp, err := c.post(ctx, c.endpoint(req, "generateContent"), body)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		gr = generateResponse{}
		return json.NewDecoder(resp.Body).Decode(&gr)
	})
	if err != nil {
		return core.Response{}, err
	}

	chunk, err := toChunk(gr)
	if err != nil {
		return core.Response{}, err
	}
	return core.Response{
		Parts:        chunk.Parts,
		Usage:        chunk.Usage,
		FinishReason: chunk.FinishReason,
		Done:         true,
	}, nil
}

// Stream issues a streamGenerateContent call and yields one chunk per server-sent
// event. Only establishing the connection is retried.
func (c *Client) Stream(ctx context.Context, req core.Request) iter.Seq2[core.ResponseChunk, error] {
	return func(yield func(core.ResponseChunk, error) bool) {
		body, err := json.Marshal(c.payload(req))
		if err != nil {
			yield(core.ResponseChunk{}, fmt.Errorf("encode gemini request: %w", err))
			return
		}

		var resp *http.Response
		err = retry.Do(ctx, c.retry, c.logger, "gemini.streamGenerateContent", func(ctx context.Context) error {
			r, err := c.post(ctx, c.endpoint(req, "streamGenerateContent")+"?alt=sse", body)
			if err != nil {
				return err
			}
			resp = r
			return nil
		})
		if err != nil {
			yield(core.ResponseChunk{}, err)
			return
		}
		defer resp.Body.Close()

		sc := bufio.NewScanner(resp.Body)
		sc.Buffer(make([]byte, 0, 64<<10), maxEventSize)
		for sc.Scan() {
			data, ok := strings.CutPrefix(sc.Text(), "data:")
			if !ok {
				continue
			}
			var gr generateResponse
			if err := json.Unmarshal([]byte(strings.TrimSpace(data)), &gr); err != nil {
				yield(core.ResponseChunk{}, fmt.Errorf("decode gemini stream event: %w", err))
				return
			}
			chunk, err := toChunk(gr)
			if !yield(chunk, err) || err != nil {
				return
			}
		}
		if err := sc.Err(); err != nil {
			yield(core.ResponseChunk{}, fmt.Errorf("read gemini stream: %w", err))
		}
	}
}

func (c *Client) endpoint(req core.Request, method string) string {
	model := req.Model
	if model == "" {
		model = c.model
	}
	return fmt.Sprintf("%s/models/%s:%s", c.baseURL, model, method)
}

// post sends body and returns the response when the status is 2xx. Other
// statuses are turned into *retry.StatusError.
func (c *Client) post(ctx context.Context, url string, body []byte) (*http.Response, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(hreq)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return nil, retry.NewStatusError(resp.StatusCode, strings.TrimSpace(string(b)), providerName)
	}
	return resp, nil
}

func (c *Client) payload(req core.Request) generateRequest {
	p := generateRequest{
		Contents: toWireContents(req.Turns),
		Tools:    toWireTools(req.Tools),
	}
	if req.SystemInstruction != "" {
		p.SystemInstruction = &content{Parts: []part{{Text: req.SystemInstruction}}}
	}
	if len(p.Tools) > 0 {
		p.ToolConfig = &toolConfig{FunctionCallingConfig: functionCallingConfig{Mode: wireMode(req.Mode)}}
	}

	gc := generationConfig{MaxOutputTokens: c.maxTokens}
	if req.MaxTokens > 0 {
		gc.MaxOutputTokens = req.MaxTokens
	}
	if t := req.Temperature; t > 0 {
		gc.Temperature = &t
	} else if c.temperature > 0 {
		t := c.temperature
		gc.Temperature = &t
	}
	if tp := req.TopP; tp > 0 {
		gc.TopP = &tp
	}
	if gc != (generationConfig{}) {
		p.GenerationConfig = &gc
	}
	return p
}

func toChunk(gr generateResponse) (core.ResponseChunk, error) {
	if len(gr.Candidates) == 0 && gr.PromptFeedback != nil && gr.PromptFeedback.BlockReason != "" {
		return core.ResponseChunk{}, fmt.Errorf("gemini blocked the prompt: %s", gr.PromptFeedback.BlockReason)
	}
	chunk := core.ResponseChunk{Usage: gr.UsageMetadata.toCore()}
	if len(gr.Candidates) > 0 {
		cand := gr.Candidates[0]
		chunk.Parts = fromWireParts(cand.Content.Parts)
		chunk.FinishReason = cand.FinishReason
	}
	return chunk, nil
}
