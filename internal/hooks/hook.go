package hooks

import "context"

// Hook is a handler invoked when a lifecycle event occurs.
type Hook interface {
	Execute(ctx context.Context, event Event) error
	Type() string
	ID() string
}

// Config configures the hook manager.
type Config struct {
	// Timeout bounds a single hook execution (default: 10s).
	Timeout string `json:"timeout"`
	// Concurrency bounds simultaneous hook executions (default: 4).
	Concurrency int `json:"concurrency"`
	// StdioFormat enables structured stderr output: "json", "env", or "".
	StdioFormat string `json:"stdio_format"`
}

// DefaultConfig returns sensible defaults. The server has at most
// max_clients connect/disconnect events plus two server events, so the
// concurrency and timeout budgets are far smaller than a media relay's.
func DefaultConfig() Config {
	return Config{
		Timeout:     "10s",
		Concurrency: 4,
		StdioFormat: "",
	}
}
