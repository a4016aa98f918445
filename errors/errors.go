package errors

import "errors"

var (
	ErrShape                    = errors.New("malformed conversation input")
	ErrRemoteCallBudgetExceeded = errors.New("remote call budget exceeded")
	ErrProtocolViolation        = errors.New("model response violates forced tool mode")
	ErrUnknownTool              = errors.New("unknown tool")
	ErrDuplicateTool            = errors.New("duplicate tool name")
	ErrInvalidLoopConfig        = errors.New("invalid loop config")
	ErrNoMatchingModel          = errors.New("no matching model found")
	ErrUnknownProvider          = errors.New("unknown provider")
	ErrMissingAPIKey            = errors.New("api key not set")
	ErrStructuredOutput         = errors.New("structured output required but invalid")
)
