package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"

	"github.com/lizzyg/toolflow/internal/core"
)

func toContents(turns []core.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == core.RoleModel {
			role = "model"
		}
		c := &genai.Content{Role: role, Parts: make([]genai.Part, 0, len(t.Parts))}
		for _, p := range t.Parts {
			if gp := toPart(p); gp != nil {
				c.Parts = append(c.Parts, gp)
			}
		}
		out = append(out, c)
	}
	return out
}

func toPart(p core.Part) genai.Part {
	switch v := p.(type) {
	case core.Text:
		return genai.Text(v.Text)
	case core.BinaryRef:
		if v.URI != "" {
			return genai.FileData{MIMEType: v.MIMEType, URI: v.URI}
		}
		return genai.Blob{MIMEType: v.MIMEType, Data: v.Data}
	case core.FunctionCall:
		return genai.FunctionCall{Name: v.Name, Args: v.Args}
	case core.FunctionResult:
		return genai.FunctionResponse{Name: v.Name, Response: v.Response}
	default:
		return nil
	}
}

func fromResponse(resp *genai.GenerateContentResponse) core.ResponseChunk {
	var chunk core.ResponseChunk
	if resp == nil {
		return chunk
	}
	if u := resp.UsageMetadata; u != nil {
		chunk.Usage = core.Usage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}
	if len(resp.Candidates) == 0 {
		return chunk
	}
	cand := resp.Candidates[0]
	if cand.FinishReason != genai.FinishReasonUnspecified {
		chunk.FinishReason = cand.FinishReason.String()
	}
	if cand.Content == nil {
		return chunk
	}
	for _, p := range cand.Content.Parts {
		switch v := p.(type) {
		case genai.Text:
			if v != "" {
				chunk.Parts = append(chunk.Parts, core.Text{Text: string(v)})
			}
		case genai.FunctionCall:
			chunk.Parts = append(chunk.Parts, core.FunctionCall{Name: v.Name, Args: v.Args})
		case genai.Blob:
			chunk.Parts = append(chunk.Parts, core.BinaryRef{Data: v.Data, MIMEType: v.MIMEType})
		case genai.FileData:
			chunk.Parts = append(chunk.Parts, core.BinaryRef{URI: v.URI, MIMEType: v.MIMEType})
		}
	}
	return chunk
}

func toMode(m core.ToolMode) genai.FunctionCallingMode {
	switch m {
	case core.ToolModeAny:
		return genai.FunctionCallingAny
	case core.ToolModeNone:
		return genai.FunctionCallingNone
	default:
		return genai.FunctionCallingAuto
	}
}

func toTools(decls []core.ToolDecl) ([]*genai.Tool, error) {
	if len(decls) == 0 {
		return nil, nil
	}
	fds := make([]*genai.FunctionDeclaration, 0, len(decls))
	for _, d := range decls {
		schema, err := schemaFromJSON(d.JSONSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", d.Name, err)
		}
		fds = append(fds, &genai.FunctionDeclaration{Name: d.Name, Description: d.Description, Parameters: schema})
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}, nil
}

// schemaFromJSON converts a JSON Schema document into the OpenAPI subset the SDK
// accepts. Keywords without an equivalent are ignored.
func schemaFromJSON(raw string) (*genai.Schema, error) {
	if strings.TrimSpace(raw) == "" {
		return &genai.Schema{Type: genai.TypeObject}, nil
	}
	var doc map[string]any
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("parse parameter schema: %w", err)
	}
	return convertSchema(doc), nil
}

func convertSchema(doc map[string]any) *genai.Schema {
	s := &genai.Schema{}
	switch t := doc["type"].(type) {
	case string:
		s.Type = schemaType(t)
	case []any:
		// ["string", "null"]
		for _, v := range t {
			name, _ := v.(string)
			if name == "null" {
				s.Nullable = true
			} else if s.Type == genai.TypeUnspecified {
				s.Type = schemaType(name)
			}
		}
	}
	if s.Type == genai.TypeUnspecified {
		if _, ok := doc["properties"]; ok {
			s.Type = genai.TypeObject
		} else {
			s.Type = genai.TypeString
		}
	}
	s.Description, _ = doc["description"].(string)
	s.Format, _ = doc["format"].(string)

	if enum, ok := doc["enum"].([]any); ok {
		for _, e := range enum {
			s.Enum = append(s.Enum, fmt.Sprint(e))
		}
	}
	if items, ok := doc["items"].(map[string]any); ok {
		s.Items = convertSchema(items)
	}
	if props, ok := doc["properties"].(map[string]any); ok {
		s.Properties = make(map[string]*genai.Schema, len(props))
		for name, p := range props {
			if pm, ok := p.(map[string]any); ok {
				s.Properties[name] = convertSchema(pm)
			}
		}
	}
	if req, ok := doc["required"].([]any); ok {
		for _, r := range req {
			if name, ok := r.(string); ok {
				s.Required = append(s.Required, name)
			}
		}
	}
	return s
}

func schemaType(name string) genai.Type {
	switch name {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeUnspecified
	}
}
