package core

import (
	"context"
	"iter"
	"strings"
)

// Boundary is implemented by inference provider adapters.
type Boundary interface {
	Send(ctx context.Context, req Request) (Response, error)
}

// StreamingBoundary is a Boundary that can also deliver a response as a lazy,
// finite sequence of chunks. The sequence can be ranged over only once.
type StreamingBoundary interface {
	Boundary
	Stream(ctx context.Context, req Request) iter.Seq2[ResponseChunk, error]
}

// Request is one inference call.
type Request struct {
	Model             string
	Turns             []Turn
	Tools             []ToolDecl
	Mode              ToolMode
	SystemInstruction string
	MaxTokens         int
	Temperature       float32
	TopP              float32
}

// Response is a complete model answer.
type Response struct {
	Parts        []Part
	Usage        Usage
	FinishReason string
	// Done is set once the whole answer has been received.
	Done bool
}

// Text concatenates the text parts of the response.
func (r Response) Text() string {
	var b strings.Builder
	for _, p := range r.Parts {
		if t, ok := p.(Text); ok {
			b.WriteString(t.Text)
		}
	}
	return b.String()
}

// FunctionCalls returns the function calls in the order the model emitted them.
func (r Response) FunctionCalls() []FunctionCall {
	return Turn{Parts: r.Parts}.FunctionCalls()
}

// ResponseChunk is a partial response delivered by a stream.
type ResponseChunk struct {
	Parts        []Part
	Usage        Usage
	FinishReason string
}

type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

func (u Usage) isZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}
