package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// version is injected at build time with -ldflags "-X main.version=...".
var version = "dev"

// cliConfig holds user supplied flag values prior to translation into
// chatserver.Config so main.go can validate and map (spec.md §6).
type cliConfig struct {
	listenAddr  string
	logLevel    string
	maxClients  int
	videoFPS    int
	audioRate   int
	enableAudio bool
	showVersion bool

	// Hook configuration, all optional.
	hookScripts     []string // event_type=script_path pairs
	hookWebhooks    []string // event_type=webhook_url pairs
	hookStdioFormat string   // "json", "env", or "" (disabled)
	hookTimeout     string
	hookConcurrency int
}

func parseFlags(args []string) (*cliConfig, error) {
	fs := flag.NewFlagSet("asciichat-server", flag.ContinueOnError)
	fs.SetOutput(os.Stdout)

	cfg := &cliConfig{}
	var hookScripts stringSliceFlag
	var hookWebhooks stringSliceFlag

	fs.StringVar(&cfg.listenAddr, "listen", ":27224", "TCP listen address (e.g. :27224 or 0.0.0.0:27224)")
	fs.StringVar(&cfg.logLevel, "log-level", "info", "Log level: debug|info|warn|error")
	fs.IntVar(&cfg.maxClients, "max-clients", 9, "Maximum concurrent clients")
	fs.IntVar(&cfg.videoFPS, "video-fps", 60, "Video render tick rate, per client")
	fs.IntVar(&cfg.audioRate, "audio-rate", 172, "Audio render tick rate, per client")
	fs.BoolVar(&cfg.enableAudio, "enable-audio", true, "Enable audio mixing and relay")
	fs.BoolVar(&cfg.showVersion, "version", false, "Print version and exit")

	fs.Var(&hookScripts, "hook-script", "Hook script in format event_type=script_path (can be specified multiple times)")
	fs.Var(&hookWebhooks, "hook-webhook", "Hook webhook in format event_type=webhook_url (can be specified multiple times)")
	fs.StringVar(&cfg.hookStdioFormat, "hook-stdio-format", "", "Enable structured stdio output: json|env (empty=disabled)")
	fs.StringVar(&cfg.hookTimeout, "hook-timeout", "10s", "Timeout for hook execution")
	fs.IntVar(&cfg.hookConcurrency, "hook-concurrency", 4, "Maximum concurrent hook executions")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg.hookScripts = hookScripts
	cfg.hookWebhooks = hookWebhooks

	switch cfg.logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, fmt.Errorf("invalid log-level %q", cfg.logLevel)
	}

	if cfg.maxClients < 1 {
		return nil, fmt.Errorf("max-clients must be at least 1, got %d", cfg.maxClients)
	}
	if cfg.videoFPS < 1 {
		return nil, fmt.Errorf("video-fps must be at least 1, got %d", cfg.videoFPS)
	}
	if cfg.audioRate < 1 {
		return nil, fmt.Errorf("audio-rate must be at least 1, got %d", cfg.audioRate)
	}

	if err := validateHookConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// stringSliceFlag implements flag.Value for multiple string values.
type stringSliceFlag []string

func (s *stringSliceFlag) String() string { return strings.Join(*s, ", ") }

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, value)
	return nil
}

// validateHookConfig validates hook configuration settings.
func validateHookConfig(cfg *cliConfig) error {
	if cfg.hookStdioFormat != "" && cfg.hookStdioFormat != "json" && cfg.hookStdioFormat != "env" {
		return fmt.Errorf("invalid hook-stdio-format %q, must be 'json' or 'env'", cfg.hookStdioFormat)
	}
	if cfg.hookTimeout != "" {
		if _, err := parseTimeDuration(cfg.hookTimeout); err != nil {
			return fmt.Errorf("invalid hook-timeout %q: %w", cfg.hookTimeout, err)
		}
	}
	if cfg.hookConcurrency < 1 || cfg.hookConcurrency > 100 {
		return fmt.Errorf("hook-concurrency must be between 1 and 100, got %d", cfg.hookConcurrency)
	}
	for _, script := range cfg.hookScripts {
		if err := validateHookAssignment("hook-script", script); err != nil {
			return err
		}
	}
	for _, webhook := range cfg.hookWebhooks {
		if err := validateHookAssignment("hook-webhook", webhook); err != nil {
			return err
		}
	}
	return nil
}

// parseTimeDuration validates a duration-looking string without pulling in
// time.ParseDuration's full grammar, matching the main config parser's
// separate validation pass.
func parseTimeDuration(s string) (string, error) {
	if len(s) < 2 {
		return "", fmt.Errorf("duration too short")
	}
	suffix := s[len(s)-1:]
	if suffix != "s" && suffix != "m" && suffix != "h" {
		return "", fmt.Errorf("duration must end with s, m, or h")
	}
	return s, nil
}

// validEventTypes are the events the hook manager will actually dispatch
// (spec.md's out-of-scope notification boundary, carried as ambient
// infrastructure regardless).
var validEventTypes = map[string]bool{
	"server_start":       true,
	"server_stop":        true,
	"client_connect":     true,
	"client_disconnect":  true,
}

// validateHookAssignment validates event_type=value format.
func validateHookAssignment(flagName, assignment string) error {
	parts := strings.SplitN(assignment, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("invalid %s format %q, expected event_type=value", flagName, assignment)
	}
	eventType, value := parts[0], parts[1]
	if eventType == "" {
		return fmt.Errorf("invalid %s: event type cannot be empty", flagName)
	}
	if value == "" {
		return fmt.Errorf("invalid %s: value cannot be empty", flagName)
	}
	if !validEventTypes[eventType] {
		return fmt.Errorf("invalid %s: unknown event type %q", flagName, eventType)
	}
	return nil
}
