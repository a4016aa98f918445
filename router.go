package toolflow

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/config"
	"github.com/lizzyg/toolflow/internal/metrics"
	provfactory "github.com/lizzyg/toolflow/internal/providers"
	"github.com/lizzyg/toolflow/internal/toolloop"
)

type router struct {
	models       map[string]config.ModelConfig
	defaultModel string
	loop         LoopConfig
	registry     *toolloop.Registry

	mu         sync.Mutex
	boundaries map[string]Boundary // model key -> boundary
	overrides  map[string]Boundary // provider -> injected boundary

	logger     *slog.Logger
	httpClient *http.Client
	metrics    *metrics.Metrics
}

// Option allows functional configuration.
type Option func(*router)

// WithLogger sets a custom slog logger.
func WithLogger(l *slog.Logger) Option { return func(r *router) { r.logger = l } }

// WithHTTPClient sets the http.Client used by REST providers.
func WithHTTPClient(c *http.Client) Option { return func(r *router) { r.httpClient = c } }

// WithMetrics registers the session, remote call and tool collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(r *router) { r.metrics = metrics.New(reg) }
}

// WithBoundary makes every model of provider use b instead of a built-in adapter.
func WithBoundary(provider string, b Boundary) Option {
	return func(r *router) { r.overrides[provider] = b }
}

// NewFromFile loads config via internal/config.Load and returns a Client.
func NewFromFile(opts ...Option) (Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return New(*cfg, opts...), nil
}

// New builds a client from cfg. A zero Loop in cfg is replaced by DefaultLoopConfig.
func New(cfg Config, opts ...Option) Client {
	r := &router{
		models:       cfg.Models,
		defaultModel: cfg.DefaultModel,
		loop:         cfg.Loop,
		registry:     &toolloop.Registry{},
		boundaries:   make(map[string]Boundary),
		overrides:    make(map[string]Boundary),
		logger:       slog.Default(),
		httpClient:   &http.Client{Timeout: 120 * time.Second},
	}
	if r.loop == (LoopConfig{}) {
		r.loop = DefaultLoopConfig()
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *router) Register(t Tool) error {
	lt, err := adaptTool(t)
	if err != nil {
		return err
	}
	return r.registry.Register(lt)
}

func (r *router) Run(ctx context.Context, req Request) (Result, error) {
	mc, modelKey, err := r.selectModel(req.Model)
	if err != nil {
		return Result{}, err
	}
	b, err := r.boundary(modelKey, mc)
	if err != nil {
		return Result{}, err
	}
	registry, err := r.sessionRegistry(req.Tools)
	if err != nil {
		return Result{}, err
	}

	loop := r.loop
	if req.Loop != nil {
		loop = *req.Loop
	}
	temperature := req.Temperature
	if temperature == 0 {
		temperature = mc.Temperature
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	o := toolloop.New(b,
		toolloop.WithLogger(r.logger.With(slog.String("model_key", modelKey), slog.String("provider", mc.Provider))),
		toolloop.WithMetrics(r.metrics),
		toolloop.WithModel(mc.Model),
		toolloop.WithGeneration(toolloop.Generation{
			SystemInstruction: req.SystemInstruction,
			MaxTokens:         boundedInt(req.MaxTokens, mc.MaxOutputTokens),
			Temperature:       temperature,
			TopP:              req.TopP,
		}),
	)
	return o.Run(ctx, req.Input, registry, loop)
}

// Close releases provider clients that hold resources.
func (r *router) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for key, b := range r.boundaries {
		if c, ok := b.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close %s: %w", key, err))
			}
		}
		delete(r.boundaries, key)
	}
	return errors.Join(errs...)
}

// sessionRegistry returns the shared registry, or a copy extended with the
// per-request tools.
func (r *router) sessionRegistry(extra []Tool) (*toolloop.Registry, error) {
	if len(extra) == 0 {
		return r.registry, nil
	}
	snap := r.registry.Snapshot()
	reg, err := toolloop.NewRegistry()
	if err != nil {
		return nil, err
	}
	for _, d := range snap.Declarations() {
		t, _ := snap.Lookup(d.Name)
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	for _, t := range extra {
		lt, err := adaptTool(t)
		if err != nil {
			return nil, err
		}
		if err := reg.Register(lt); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func (r *router) boundary(modelKey string, mc config.ModelConfig) (Boundary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.overrides[mc.Provider]; ok {
		return b, nil
	}
	if b, ok := r.boundaries[modelKey]; ok {
		return b, nil
	}
	b, err := provfactory.NewProviderClient(mc, r.httpClient, r.logger)
	if err != nil {
		return nil, err
	}
	r.boundaries[modelKey] = b
	return b, nil
}

// selectModel resolves key, falling back to the configured default and then to
// the first model in key order.
func (r *router) selectModel(key string) (config.ModelConfig, string, error) {
	if key == "" {
		key = r.defaultModel
	}
	if key == "" {
		keys := make([]string, 0, len(r.models))
		for k := range r.models {
			keys = append(keys, k)
		}
		if len(keys) == 0 {
			return config.ModelConfig{}, "", fmt.Errorf("%w: no models configured", moderr.ErrNoMatchingModel)
		}
		sort.Strings(keys)
		key = keys[0]
	}
	mc, ok := r.models[key]
	if !ok {
		return config.ModelConfig{}, "", fmt.Errorf("%w: %s", moderr.ErrNoMatchingModel, key)
	}
	return mc, key, nil
}

func boundedInt(req, max int) int {
	if max <= 0 {
		return req
	}
	if req <= 0 {
		return max
	}
	if req > max {
		return max
	}
	return req
}
