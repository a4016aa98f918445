// Package normalize converts caller-supplied conversation input into canonical turns.
//
// Rules, applied in order:
//   - a string becomes one user turn with one text part;
//   - a sequence of strings becomes one user turn with one text part per string;
//   - a canonical Turn is passed through unchanged;
//   - in a mixed sequence, Turns are kept as-is and runs of bare parts between them are
//     grouped: consecutive function calls form one model turn, consecutive non-call parts
//     form one user turn, or one tool turn when the run holds only function results;
//   - a nested sequence may only hold bare parts and always forms exactly one turn.
package normalize

import (
	"fmt"

	moderr "github.com/lizzyg/toolflow/errors"
	"github.com/lizzyg/toolflow/internal/core"
)

// Normalize maps input to an ordered sequence of canonical turns.
// It is pure and deterministic; for input that already is a []core.Turn the
// result equals the input.
func Normalize(input any) ([]core.Turn, error) {
	switch v := input.(type) {
	case nil:
		return nil, fmt.Errorf("%w: nil content", moderr.ErrShape)
	case string:
		return []core.Turn{userText(v)}, nil
	case []string:
		if len(v) == 0 {
			return nil, nil
		}
		return []core.Turn{userText(v...)}, nil
	case core.Turn:
		return []core.Turn{cloneTurn(v)}, nil
	case *core.Turn:
		if v == nil {
			return nil, fmt.Errorf("%w: nil turn", moderr.ErrShape)
		}
		return []core.Turn{cloneTurn(*v)}, nil
	case []core.Turn:
		out := make([]core.Turn, len(v))
		for i, t := range v {
			out[i] = cloneTurn(t)
		}
		return out, nil
	case core.Part:
		return normalizeItems([]any{v})
	case []core.Part:
		items := make([]any, len(v))
		for i, p := range v {
			items[i] = p
		}
		return normalizeItems(items)
	case []any:
		return normalizeItems(v)
	default:
		return nil, fmt.Errorf("%w: unsupported content type %T", moderr.ErrShape, input)
	}
}

// Append normalizes input and appends the resulting turns to a copy of history.
func Append(history []core.Turn, input any) ([]core.Turn, error) {
	turns, err := Normalize(input)
	if err != nil {
		return nil, err
	}
	out := make([]core.Turn, 0, len(history)+len(turns))
	out = append(out, history...)
	return append(out, turns...), nil
}

func normalizeItems(items []any) ([]core.Turn, error) {
	var (
		out []core.Turn
		run []core.Part
	)
	flush := func() {
		if len(run) == 0 {
			return
		}
		out = append(out, groupRun(run))
		run = nil
	}
	add := func(p core.Part) {
		if len(run) > 0 && core.IsFunctionCall(run[0]) != core.IsFunctionCall(p) {
			flush()
		}
		run = append(run, p)
	}

	for i, item := range items {
		switch v := item.(type) {
		case core.Turn:
			flush()
			out = append(out, cloneTurn(v))
		case *core.Turn:
			if v == nil {
				return nil, fmt.Errorf("%w: nil turn at index %d", moderr.ErrShape, i)
			}
			flush()
			out = append(out, cloneTurn(*v))
		case string:
			add(core.Text{Text: v})
		case core.Part:
			add(v)
		case []core.Part, []string, []any:
			inner, err := nestedParts(v, i)
			if err != nil {
				return nil, err
			}
			t, err := groupNested(inner, i)
			if err != nil {
				return nil, err
			}
			flush()
			out = append(out, t)
		default:
			return nil, fmt.Errorf("%w: unsupported element %T at index %d", moderr.ErrShape, item, i)
		}
	}
	flush()
	return out, nil
}

// nestedParts flattens a one-level nested sequence into bare parts.
func nestedParts(seq any, index int) ([]core.Part, error) {
	var parts []core.Part
	switch v := seq.(type) {
	case []core.Part:
		parts = append(parts, v...)
	case []string:
		for _, s := range v {
			parts = append(parts, core.Text{Text: s})
		}
	case []any:
		for j, e := range v {
			switch ev := e.(type) {
			case string:
				parts = append(parts, core.Text{Text: ev})
			case core.Turn, *core.Turn:
				return nil, fmt.Errorf("%w: nested sequence at index %d contains a turn at position %d", moderr.ErrShape, index, j)
			case core.Part:
				parts = append(parts, ev)
			case []core.Part, []string, []any:
				return nil, fmt.Errorf("%w: nesting deeper than one level at index %d", moderr.ErrShape, index)
			default:
				return nil, fmt.Errorf("%w: unsupported element %T in nested sequence at index %d", moderr.ErrShape, e, index)
			}
		}
	}
	for _, p := range parts {
		if p == nil {
			return nil, fmt.Errorf("%w: nil part in nested sequence at index %d", moderr.ErrShape, index)
		}
	}
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: empty nested sequence at index %d", moderr.ErrShape, index)
	}
	return parts, nil
}

// groupNested turns a nested sequence into exactly one turn. A nested sequence has no
// internal boundaries, so mixing calls with other parts cannot be grouped.
func groupNested(parts []core.Part, index int) (core.Turn, error) {
	calls := 0
	for _, p := range parts {
		if core.IsFunctionCall(p) {
			calls++
		}
	}
	if calls > 0 && calls < len(parts) {
		return core.Turn{}, fmt.Errorf("%w: nested sequence at index %d mixes function calls with other parts", moderr.ErrShape, index)
	}
	return groupRun(parts), nil
}

// groupRun builds the turn for a homogeneous run of bare parts.
func groupRun(run []core.Part) core.Turn {
	parts := append([]core.Part(nil), run...)
	if core.IsFunctionCall(parts[0]) {
		return core.Turn{Role: core.RoleModel, Parts: parts}
	}
	for _, p := range parts {
		if _, ok := p.(core.FunctionResult); !ok {
			return core.Turn{Role: core.RoleUser, Parts: parts}
		}
	}
	return core.Turn{Role: core.RoleTool, Parts: parts}
}

func userText(texts ...string) core.Turn {
	parts := make([]core.Part, len(texts))
	for i, s := range texts {
		parts[i] = core.Text{Text: s}
	}
	return core.Turn{Role: core.RoleUser, Parts: parts}
}

func cloneTurn(t core.Turn) core.Turn {
	if t.Parts == nil {
		return t
	}
	parts := make([]core.Part, len(t.Parts))
	copy(parts, t.Parts)
	return core.Turn{Role: t.Role, Parts: parts}
}
