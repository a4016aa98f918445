package core

import "iter"

// Accumulate drains stream and rebuilds the complete Response.
//
// Adjacent text deltas are merged into a single Text part, every other part is
// kept in arrival order, and the last non-empty usage and finish reason win.
// Function calls can only be inspected on the returned value, never mid-stream.
func Accumulate(stream iter.Seq2[ResponseChunk, error]) (Response, error) {
	var out Response
	for chunk, err := range stream {
		if err != nil {
			return Response{}, err
		}
		for _, p := range chunk.Parts {
			out.Parts = appendPart(out.Parts, p)
		}
		if !chunk.Usage.isZero() {
			out.Usage = chunk.Usage
		}
		if chunk.FinishReason != "" {
			out.FinishReason = chunk.FinishReason
		}
	}
	out.Done = true
	return out, nil
}

func appendPart(parts []Part, p Part) []Part {
	t, ok := p.(Text)
	if !ok || len(parts) == 0 {
		return append(parts, p)
	}
	if last, ok := parts[len(parts)-1].(Text); ok {
		parts[len(parts)-1] = Text{Text: last.Text + t.Text}
		return parts
	}
	return append(parts, p)
}
