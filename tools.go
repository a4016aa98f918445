package toolflow

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lizzyg/toolflow/internal/toolloop"
	"github.com/lizzyg/toolflow/internal/util"
)

// FunctionTool is a Tool over a plain function taking the raw argument map.
type FunctionTool struct {
	name        string
	description string
	schema      string
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

// NewFunctionTool declares a tool with an explicit JSON schema. An empty schema
// declares a tool without parameters.
func NewFunctionTool(name, description, schema string, fn func(ctx context.Context, args map[string]any) (any, error)) *FunctionTool {
	return &FunctionTool{name: name, description: description, schema: schema, fn: fn}
}

func (f *FunctionTool) Name() string        { return f.name }
func (f *FunctionTool) Description() string { return f.description }
func (f *FunctionTool) Parameters() any     { return &map[string]any{} }
func (f *FunctionTool) Schema() string      { return f.schema }

func (f *FunctionTool) Execute(ctx context.Context, args any) (any, error) {
	switch a := args.(type) {
	case *map[string]any:
		return f.fn(ctx, *a)
	case map[string]any:
		return f.fn(ctx, a)
	default:
		return nil, fmt.Errorf("tool %s: unexpected arguments %T", f.name, args)
	}
}

// structTool adapts a Tool to the orchestrator by decoding the call arguments
// into a fresh Parameters value on every invocation.
type structTool struct {
	Tool
	schema string
}

func adaptTool(t Tool) (toolloop.Tool, error) {
	if t == nil {
		return nil, fmt.Errorf("nil tool")
	}
	if f, ok := t.(*FunctionTool); ok {
		return &structTool{Tool: t, schema: f.schema}, nil
	}
	params := t.Parameters()
	if params == nil {
		return &structTool{Tool: t}, nil
	}
	schema, err := util.GenerateJSONSchema(params)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", t.Name(), err)
	}
	return &structTool{Tool: t, schema: schema}, nil
}

func (s *structTool) Schema() string { return s.schema }

func (s *structTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	params := s.Parameters()
	if params == nil {
		return s.Execute(ctx, args)
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("encode arguments: %w", err)
	}
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, fmt.Errorf("invalid arguments for %s: %w", s.Name(), err)
	}
	return s.Execute(ctx, params)
}
