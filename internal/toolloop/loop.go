package toolloop

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/metrics"
	"github.com/lizzyg/toolflow/internal/normalize"
)

// Orchestrator alternates model inference with local tool execution.
// It holds no per-session state and may run many sessions concurrently.
type Orchestrator struct {
	boundary core.Boundary
	model    string
	gen      Generation
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Generation carries the per-call generation settings forwarded to the boundary.
type Generation struct {
	SystemInstruction string
	MaxTokens         int
	Temperature       float32
	TopP              float32
}

type Option func(*Orchestrator)

func WithLogger(l *slog.Logger) Option { return func(o *Orchestrator) { o.logger = l } }

func WithMetrics(m *metrics.Metrics) Option { return func(o *Orchestrator) { o.metrics = m } }

// WithModel sets the model name sent with every request.
func WithModel(model string) Option { return func(o *Orchestrator) { o.model = model } }

func WithGeneration(g Generation) Option { return func(o *Orchestrator) { o.gen = g } }

func New(b core.Boundary, opts ...Option) *Orchestrator {
	o := &Orchestrator{boundary: b, logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

// Result is the outcome of a session.
type Result struct {
	SessionID string
	State     State
	// Turns is the full conversation, including the final model turn on success.
	Turns []core.Turn
	// Response is the last response received from the model.
	Response    core.Response
	RemoteCalls int
}

func (r Result) Text() string { return r.Response.Text() }

func (r Result) FunctionCalls() []core.FunctionCall { return r.Response.FunctionCalls() }

// session is owned by a single Run invocation and never shared.
type session struct {
	id          string
	cfg         core.LoopConfig
	tools       *Snapshot
	decls       []core.ToolDecl
	turns       []core.Turn
	remoteCalls int
	state       State
	resp        core.Response
}

func (s *session) result() Result {
	return Result{
		SessionID:   s.id,
		State:       s.state,
		Turns:       s.turns,
		Response:    s.resp,
		RemoteCalls: s.remoteCalls,
	}
}

// Run drives one session until the model answers without function calls, automatic
// calling is disabled, the remote call budget or forced tool mode is violated, or ctx
// is cancelled. The registry is snapshotted before the first call.
//
// Tool failures never end the session; they are returned to the model as
// {"error": message} results.
func (o *Orchestrator) Run(ctx context.Context, input any, registry *Registry, cfg core.LoopConfig) (Result, error) {
	s := &session{id: uuid.NewString(), cfg: cfg, state: AwaitingResponse}
	if err := cfg.Validate(); err != nil {
		return o.fail(s, err)
	}
	turns, err := normalize.Normalize(input)
	if err != nil {
		return o.fail(s, err)
	}
	if len(turns) == 0 {
		return o.fail(s, fmt.Errorf("%w: input has no content", moderr.ErrShape))
	}
	s.turns = turns
	s.tools = registry.Snapshot()
	s.decls = s.tools.Declarations()

	for {
		if err := ctx.Err(); err != nil {
			return o.fail(s, fmt.Errorf("session cancelled in state %s: %w", s.state, err))
		}

		switch s.state {
		case AwaitingResponse:
			if s.remoteCalls+1 > cfg.MaxRemoteCalls {
				return o.fail(s, fmt.Errorf("%w: limit is %d", moderr.ErrRemoteCallBudgetExceeded, cfg.MaxRemoteCalls))
			}
			s.remoteCalls++
			resp, err := o.infer(ctx, s)
			if err != nil {
				return o.fail(s, err)
			}
			s.resp = resp
			s.state = InspectingResponse

		case InspectingResponse:
			calls := s.resp.FunctionCalls()
			if cfg.ForcedToolMode && len(calls) == 0 {
				return o.fail(s, fmt.Errorf("%w: response %d has no function call", moderr.ErrProtocolViolation, s.remoteCalls))
			}
			if len(calls) == 0 || !cfg.AutomaticCalling {
				s.turns = append(s.turns, core.Turn{Role: core.RoleModel, Parts: s.resp.Parts})
				s.state = Done
				o.metrics.SessionFinished(s.state.String())
				return s.result(), nil
			}
			s.state = ExecutingTools

		case ExecutingTools:
			calls := assignCallIDs(s.resp.FunctionCalls())
			// Text emitted next to function calls is not carried into the history.
			callTurn, err := normalize.Normalize(callParts(calls))
			if err != nil {
				return o.fail(s, err)
			}
			resultTurn, err := normalize.Normalize(o.executeCalls(ctx, s, calls))
			if err != nil {
				return o.fail(s, err)
			}
			s.turns = append(s.turns, callTurn...)
			s.turns = append(s.turns, resultTurn...)
			s.state = AwaitingResponse

		default:
			return o.fail(s, fmt.Errorf("unexpected session state %s", s.state))
		}
	}
}

func (o *Orchestrator) fail(s *session, err error) (Result, error) {
	s.state = Failed
	o.logger.Warn("session failed",
		slog.String("session_id", s.id),
		slog.Int("remote_calls", s.remoteCalls),
		slog.String("error", err.Error()),
	)
	o.metrics.SessionFinished(s.state.String())
	return s.result(), err
}

func (o *Orchestrator) infer(ctx context.Context, s *session) (core.Response, error) {
	req := core.Request{
		Model:             o.model,
		Turns:             append([]core.Turn(nil), s.turns...),
		Tools:             s.decls,
		Mode:              s.cfg.Mode(),
		SystemInstruction: o.gen.SystemInstruction,
		MaxTokens:         o.gen.MaxTokens,
		Temperature:       o.gen.Temperature,
		TopP:              o.gen.TopP,
	}

	start := time.Now()
	var (
		resp core.Response
		err  error
	)
	if sb, ok := o.boundary.(core.StreamingBoundary); ok && s.cfg.Stream {
		resp, err = core.Accumulate(sb.Stream(ctx, req))
	} else {
		resp, err = o.boundary.Send(ctx, req)
	}
	latency := time.Since(start)

	o.logger.Info("inference call",
		slog.String("session_id", s.id),
		slog.Int("remote_call", s.remoteCalls),
		slog.String("model", o.model),
		slog.Int("function_calls", len(resp.FunctionCalls())),
		slog.Int("prompt_tokens", resp.Usage.PromptTokens),
		slog.Int("completion_tokens", resp.Usage.CompletionTokens),
		slog.Duration("latency", latency),
		slog.Bool("error", err != nil),
	)
	o.metrics.RemoteCall(o.model, latency, err)

	if err != nil {
		return core.Response{}, fmt.Errorf("inference call %d: %w", s.remoteCalls, err)
	}
	return resp, nil
}

func assignCallIDs(calls []core.FunctionCall) []core.FunctionCall {
	out := make([]core.FunctionCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = uuid.NewString()
		}
		out[i] = c
	}
	return out
}

func callParts(calls []core.FunctionCall) []core.Part {
	parts := make([]core.Part, len(calls))
	for i, c := range calls {
		parts[i] = c
	}
	return parts
}
