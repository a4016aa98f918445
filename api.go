package toolflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/config"
	"github.com/lizzyg/toolflow/internal/core"
	"github.com/lizzyg/toolflow/internal/toolloop"
	"github.com/lizzyg/toolflow/internal/util"
)

type (
	Turn              = core.Turn
	Part              = core.Part
	Text              = core.Text
	BinaryRef         = core.BinaryRef
	FunctionCall      = core.FunctionCall
	FunctionResult    = core.FunctionResult
	Role              = core.Role
	Response          = core.Response
	Usage             = core.Usage
	LoopConfig        = core.LoopConfig
	Boundary          = core.Boundary
	StreamingBoundary = core.StreamingBoundary
	BoundaryRequest   = core.Request
	ResponseChunk     = core.ResponseChunk

	Config      = config.Config
	ModelConfig = config.ModelConfig

	// Result is the outcome of Run: the final state, the full conversation and the
	// last model response.
	Result = toolloop.Result
	State  = toolloop.State
)

const (
	RoleUser  = core.RoleUser
	RoleModel = core.RoleModel
	RoleTool  = core.RoleTool

	StateDone   = toolloop.Done
	StateFailed = toolloop.Failed
)

// DefaultLoopConfig returns automatic calling with a budget of 10 remote calls.
func DefaultLoopConfig() LoopConfig { return core.DefaultLoopConfig() }

// Tool is implemented by any callable function the model can invoke.
// Parameters must return a pointer to a zero-value struct; its JSON schema is
// declared to the model and the call arguments are decoded into it.
type Tool interface {
	Name() string
	Description() string
	Parameters() any
	Execute(ctx context.Context, args any) (any, error)
}

// Client runs orchestration sessions against the configured models.
type Client interface {
	Run(ctx context.Context, req Request) (Result, error)
	// Register adds a tool available to every later Run.
	Register(t Tool) error
	Close() error
}

// Request describes one session.
type Request struct {
	// Model is a key of the configured models. Empty selects the default model.
	Model string
	// Input is a string, []string, Turn, []Turn, Part, []Part or []any mixing them.
	Input any
	// Tools are added to the registered tools for this session only.
	Tools []Tool
	// Loop overrides the configured loop policy.
	Loop *LoopConfig

	SystemInstruction string
	MaxTokens         int
	Temperature       float32
	TopP              float32

	// Timeout bounds the whole session.
	Timeout time.Duration
}

// Execute runs req and decodes the final answer into T.
func Execute[T any](ctx context.Context, c Client, req Request) (T, error) {
	res, err := c.Run(ctx, req)
	if err != nil {
		var zero T
		return zero, err
	}
	return Decode[T](res)
}

// Decode extracts a T from a finished session. If T is string the final text is
// returned. Otherwise the arguments of the first function call are preferred,
// which is how forced tool mode returns structured data, then the text with
// markdown fences and surrounding prose stripped.
func Decode[T any](res Result) (T, error) {
	var out T
	if util.IsStringType[T]() {
		return any(res.Text()).(T), nil
	}
	if calls := res.FunctionCalls(); len(calls) > 0 {
		raw, err := json.Marshal(calls[0].Args)
		if err == nil && json.Unmarshal(raw, &out) == nil {
			return out, nil
		}
		out = *new(T)
	}

	text := res.Text()
	if err := json.Unmarshal([]byte(text), &out); err == nil {
		return out, nil
	}
	if repaired, ok := util.RepairJSON(text); ok {
		out = *new(T)
		if err := json.Unmarshal([]byte(repaired), &out); err == nil {
			return out, nil
		}
	}
	var zero T
	return zero, fmt.Errorf("%w: decode %T", moderr.ErrStructuredOutput, zero)
}
