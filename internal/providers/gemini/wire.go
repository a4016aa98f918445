package gemini

import (
	"encoding/json"

	"github.com/lizzyg/toolflow/internal/core"
)

// Wire types of the generativelanguage v1beta REST API.

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text             string            `json:"text,omitempty"`
	Thought          bool              `json:"thought,omitempty"`
	InlineData       *blob             `json:"inlineData,omitempty"`
	FileData         *fileData         `json:"fileData,omitempty"`
	FunctionCall     *functionCall     `json:"functionCall,omitempty"`
	FunctionResponse *functionResponse `json:"functionResponse,omitempty"`
}

type blob struct {
	MIMEType string `json:"mimeType"`
	Data     []byte `json:"data"`
}

type fileData struct {
	MIMEType string `json:"mimeType,omitempty"`
	FileURI  string `json:"fileUri"`
}

type functionCall struct {
	ID   string         `json:"id,omitempty"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type functionResponse struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type functionDeclaration struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description,omitempty"`
	ParametersJSONSchema json.RawMessage `json:"parametersJsonSchema,omitempty"`
}

type tool struct {
	FunctionDeclarations []functionDeclaration `json:"functionDeclarations"`
}

type functionCallingConfig struct {
	Mode string `json:"mode"`
}

type toolConfig struct {
	FunctionCallingConfig functionCallingConfig `json:"functionCallingConfig"`
}

type generationConfig struct {
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	Temperature     *float32 `json:"temperature,omitempty"`
	TopP            *float32 `json:"topP,omitempty"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	Tools             []tool            `json:"tools,omitempty"`
	ToolConfig        *toolConfig       `json:"toolConfig,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type candidate struct {
	Content      content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

type usageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type generateResponse struct {
	Candidates     []candidate   `json:"candidates"`
	UsageMetadata  usageMetadata `json:"usageMetadata"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
}

func wireRole(r core.Role) string {
	if r == core.RoleModel {
		return "model"
	}
	// function responses are sent back under the user role
	return "user"
}

func wireMode(m core.ToolMode) string {
	switch m {
	case core.ToolModeAny:
		return "ANY"
	case core.ToolModeNone:
		return "NONE"
	default:
		return "AUTO"
	}
}

func toWireContents(turns []core.Turn) []content {
	out := make([]content, 0, len(turns))
	for _, t := range turns {
		c := content{Role: wireRole(t.Role), Parts: make([]part, 0, len(t.Parts))}
		for _, p := range t.Parts {
			c.Parts = append(c.Parts, toWirePart(p))
		}
		out = append(out, c)
	}
	return out
}

func toWirePart(p core.Part) part {
	switch v := p.(type) {
	case core.Text:
		return part{Text: v.Text}
	case core.BinaryRef:
		if v.URI != "" {
			return part{FileData: &fileData{MIMEType: v.MIMEType, FileURI: v.URI}}
		}
		return part{InlineData: &blob{MIMEType: v.MIMEType, Data: v.Data}}
	case core.FunctionCall:
		return part{FunctionCall: &functionCall{ID: v.ID, Name: v.Name, Args: v.Args}}
	case core.FunctionResult:
		return part{FunctionResponse: &functionResponse{ID: v.ID, Name: v.Name, Response: v.Response}}
	default:
		return part{}
	}
}

func toWireTools(decls []core.ToolDecl) []tool {
	if len(decls) == 0 {
		return nil
	}
	fds := make([]functionDeclaration, len(decls))
	for i, d := range decls {
		fds[i] = functionDeclaration{
			Name:                 d.Name,
			Description:          d.Description,
			ParametersJSONSchema: json.RawMessage(d.JSONSchema),
		}
	}
	return []tool{{FunctionDeclarations: fds}}
}

// fromWireParts drops thought summaries and empty parts.
func fromWireParts(parts []part) []core.Part {
	out := make([]core.Part, 0, len(parts))
	for _, p := range parts {
		switch {
		case p.Thought:
		case p.FunctionCall != nil:
			out = append(out, core.FunctionCall{ID: p.FunctionCall.ID, Name: p.FunctionCall.Name, Args: p.FunctionCall.Args})
		case p.InlineData != nil:
			out = append(out, core.BinaryRef{Data: p.InlineData.Data, MIMEType: p.InlineData.MIMEType})
		case p.FileData != nil:
			out = append(out, core.BinaryRef{URI: p.FileData.FileURI, MIMEType: p.FileData.MIMEType})
		case p.Text != "":
			out = append(out, core.Text{Text: p.Text})
		}
	}
	return out
}

func (u usageMetadata) toCore() core.Usage {
	return core.Usage{
		PromptTokens:     u.PromptTokenCount,
		CompletionTokens: u.CandidatesTokenCount,
		TotalTokens:      u.TotalTokenCount,
	}
}
