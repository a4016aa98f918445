package toolloop

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/core"
)

// executeCalls runs every call and returns one FunctionResult part per call, in call
// order regardless of completion order. Tools run on a context detached from
// cancellation so an in-flight invocation is never cut short by the caller.
func (o *Orchestrator) executeCalls(ctx context.Context, s *session, calls []core.FunctionCall) []core.Part {
	results := make([]core.Part, len(calls))
	toolCtx := context.WithoutCancel(ctx)

	var g errgroup.Group
	g.SetLimit(max(s.cfg.MaxParallelTools, 1))
	for i, c := range calls {
		g.Go(func() error {
			results[i] = o.invoke(toolCtx, s, c)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (o *Orchestrator) invoke(ctx context.Context, s *session, call core.FunctionCall) (res core.FunctionResult) {
	res = core.FunctionResult{ID: call.ID, Name: call.Name}

	tool, ok := s.tools.Lookup(call.Name)
	if !ok {
		res.Response = map[string]any{"error": moderr.ErrUnknownTool.Error()}
		o.toolDone(s, call, fmt.Errorf("%w: %s", moderr.ErrUnknownTool, call.Name))
		return res
	}

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("tool %s panicked: %v", call.Name, r)
			res.Response = map[string]any{"error": err.Error()}
			o.toolDone(s, call, err)
		}
	}()

	out, err := tool.Invoke(ctx, cloneArgs(call.Args))
	if err != nil {
		res.Response = map[string]any{"error": err.Error()}
	} else {
		res.Response = map[string]any{"result": out}
	}
	o.toolDone(s, call, err)
	return res
}

func (o *Orchestrator) toolDone(s *session, call core.FunctionCall, err error) {
	attrs := []any{
		slog.String("session_id", s.id),
		slog.String("tool", call.Name),
		slog.String("call_id", call.ID),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	o.logger.Debug("tool executed", attrs...)
	o.metrics.ToolInvoked(call.Name, err != nil)
}

func cloneArgs(args map[string]any) map[string]any {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	return out
}
