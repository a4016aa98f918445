package toolloop

import (
	"context"
	"fmt"
	"sort"
	"sync"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/core"
)

const emptyObjectSchema = `{"type":"object","properties":{}}`

// Tool is a named, schema-described callable the model may invoke.
type Tool interface {
	Name() string
	Description() string
	// Schema returns the JSON Schema object describing the arguments.
	Schema() string
	Invoke(ctx context.Context, args map[string]any) (any, error)
}

// FuncTool adapts a plain function to Tool.
type FuncTool struct {
	name        string
	description string
	schema      string
	fn          func(ctx context.Context, args map[string]any) (any, error)
}

func NewFuncTool(name, description, schema string, fn func(ctx context.Context, args map[string]any) (any, error)) *FuncTool {
	return &FuncTool{name: name, description: description, schema: schema, fn: fn}
}

func (f *FuncTool) Name() string        { return f.name }
func (f *FuncTool) Description() string { return f.description }
func (f *FuncTool) Schema() string      { return f.schema }
func (f *FuncTool) Invoke(ctx context.Context, args map[string]any) (any, error) {
	return f.fn(ctx, args)
}

// Registry holds the tools available to sessions, keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]Tool
}

// NewRegistry creates a registry holding tools, failing on the first invalid or duplicate one.
func NewRegistry(tools ...Tool) (*Registry, error) {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds t. Names must be non-empty and unique.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return fmt.Errorf("register tool: nil tool")
	}
	name := t.Name()
	if name == "" {
		return fmt.Errorf("register tool: empty name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tools == nil {
		r.tools = make(map[string]Tool)
	}
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("%w: %s", moderr.ErrDuplicateTool, name)
	}
	r.tools[name] = t
	return nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.tools)
}

// Snapshot returns an immutable copy of the current tool set. Tools registered
// afterwards are not visible through it.
func (r *Registry) Snapshot() *Snapshot {
	if r == nil {
		return &Snapshot{}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := &Snapshot{tools: make(map[string]Tool, len(r.tools))}
	for name, t := range r.tools {
		s.tools[name] = t
	}
	return s
}

// Snapshot is a read-only view of a Registry, safe to share between sessions.
type Snapshot struct {
	tools map[string]Tool
}

func (s *Snapshot) Lookup(name string) (Tool, bool) {
	t, ok := s.tools[name]
	return t, ok
}

func (s *Snapshot) Len() int { return len(s.tools) }

// Declarations describes every tool to the model, ordered by name.
func (s *Snapshot) Declarations() []core.ToolDecl {
	names := make([]string, 0, len(s.tools))
	for name := range s.tools {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]core.ToolDecl, 0, len(names))
	for _, name := range names {
		t := s.tools[name]
		schema := t.Schema()
		if schema == "" {
			schema = emptyObjectSchema
		}
		out = append(out, core.ToolDecl{
			Name:        name,
			Description: t.Description(),
			JSONSchema:  schema,
		})
	}
	return out
}
