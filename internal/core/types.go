package core

// Role identifies the author of a Turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// Part is one unit of content inside a Turn. The set of variants is closed:
// Text, BinaryRef, FunctionCall and FunctionResult.
type Part interface{ isPart() }

// Text is a plain text segment.
type Text struct {
	Text string
}

func (Text) isPart() {}

// BinaryRef references binary content either by URI or by inline bytes.
type BinaryRef struct {
	URI      string
	Data     []byte
	MIMEType string
}

func (BinaryRef) isPart() {}

// FunctionCall is a tool invocation requested by the model.
// ID is optional; the orchestrator fills it in when the model omits it.
type FunctionCall struct {
	ID   string
	Name string
	Args map[string]any
}

func (FunctionCall) isPart() {}

// FunctionResult carries the outcome of a FunctionCall back to the model.
// Response holds either {"result": value} or {"error": message}.
type FunctionResult struct {
	ID       string
	Name     string
	Response map[string]any
}

func (FunctionResult) isPart() {}

// IsError reports whether the result carries an error payload.
func (r FunctionResult) IsError() bool {
	_, ok := r.Response["error"]
	return ok
}

// Turn is one canonical conversation entry.
type Turn struct {
	Role  Role
	Parts []Part
}

// FunctionCalls returns the function-call parts of the turn in order.
func (t Turn) FunctionCalls() []FunctionCall {
	var out []FunctionCall
	for _, p := range t.Parts {
		if fc, ok := p.(FunctionCall); ok {
			out = append(out, fc)
		}
	}
	return out
}

// IsFunctionCall reports whether p is a FunctionCall part.
func IsFunctionCall(p Part) bool {
	_, ok := p.(FunctionCall)
	return ok
}

// ToolDecl describes a tool to the model in a provider-agnostic form.
// JSONSchema holds a JSON Schema object document for the tool arguments.
type ToolDecl struct {
	Name        string
	Description string
	JSONSchema  string
}

// ToolMode controls how the model may use declared tools.
type ToolMode string

const (
	ToolModeAuto ToolMode = "auto"
	// ToolModeAny forces the model to answer with at least one function call.
	ToolModeAny  ToolMode = "any"
	ToolModeNone ToolMode = "none"
)
