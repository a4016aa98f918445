// Package tools holds fixture tools shared by the integration tests.
package tools

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/lizzyg/toolflow"
)

type GetUserLocationArgs struct{}

type GetUserLocationTool struct{ Calls atomic.Int32 }

func (t *GetUserLocationTool) Name() string { return "GetUserLocation" }
func (t *GetUserLocationTool) Description() string {
	return "Returns the user's current city and state"
}
func (t *GetUserLocationTool) Parameters() any { return &GetUserLocationArgs{} }
func (t *GetUserLocationTool) Execute(ctx context.Context, args any) (any, error) {
	t.Calls.Add(1)
	return map[string]any{"location": "Portland, Oregon"}, nil
}

type GetWeatherArgs struct {
	Location string `json:"location" jsonschema:"description=City and state, e.g. Portland, Oregon"`
}

type GetWeatherInLocationTool struct{ Calls atomic.Int32 }

func (t *GetWeatherInLocationTool) Name() string { return "GetWeatherInLocation" }
func (t *GetWeatherInLocationTool) Description() string {
	return "Returns current weather for a location"
}
func (t *GetWeatherInLocationTool) Parameters() any { return &GetWeatherArgs{} }
func (t *GetWeatherInLocationTool) Execute(ctx context.Context, args any) (any, error) {
	t.Calls.Add(1)
	a := args.(*GetWeatherArgs)
	if a.Location == "" {
		return nil, fmt.Errorf("location is required")
	}
	return map[string]any{"weather": "Sunny and mild in " + a.Location}, nil
}

// LocationWeatherTools returns both tools in the order a model should call them.
func LocationWeatherTools() []toolflow.Tool {
	return []toolflow.Tool{&GetUserLocationTool{}, &GetWeatherInLocationTool{}}
}
