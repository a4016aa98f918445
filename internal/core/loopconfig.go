package core

import (
	"fmt"

	moderr "github.com/lizzyg/toolflow/errors"
)

// LoopConfig is the caller policy for one orchestration session.
type LoopConfig struct {
	AutomaticCalling bool `koanf:"automatic_calling"`
	MaxRemoteCalls   int  `koanf:"max_remote_calls"`
	ForcedToolMode   bool `koanf:"forced_tool_mode"`
	Stream           bool `koanf:"stream"`
	// MaxParallelTools bounds concurrent tool invocations within one model
	// response. Values <= 1 run tools sequentially.
	MaxParallelTools int `koanf:"max_parallel_tools"`
}

func DefaultLoopConfig() LoopConfig {
	return LoopConfig{
		AutomaticCalling: true,
		MaxRemoteCalls:   10,
		MaxParallelTools: 1,
	}
}

func (c LoopConfig) Validate() error {
	if c.MaxRemoteCalls < 1 {
		return fmt.Errorf("%w: max_remote_calls must be >= 1, got %d", moderr.ErrInvalidLoopConfig, c.MaxRemoteCalls)
	}
	if c.MaxParallelTools < 0 {
		return fmt.Errorf("%w: max_parallel_tools must be >= 0, got %d", moderr.ErrInvalidLoopConfig, c.MaxParallelTools)
	}
	return nil
}

// Mode returns the tool mode every inference call of the session must request.
func (c LoopConfig) Mode() ToolMode {
	if c.ForcedToolMode {
		return ToolModeAny
	}
	return ToolModeAuto
}
