package chatserver

import "github.com/zfogg/asciichat-server/internal/hooks"

// Config holds the server's recognized configuration options (spec.md §6).
type Config struct {
	ListenAddr   string
	MaxClients   int
	VideoFPS     int
	AudioRate    int
	EnableAudio  bool
	RingCapacity int

	HookConfig hooks.Config
}

// applyDefaults fills zero values with the defaults from spec.md §6.
func (c *Config) applyDefaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":27224"
	}
	if c.MaxClients == 0 {
		c.MaxClients = 9
	}
	if c.VideoFPS == 0 {
		c.VideoFPS = 60
	}
	if c.AudioRate == 0 {
		c.AudioRate = 172
	}
	if c.HookConfig == (hooks.Config{}) {
		c.HookConfig = hooks.DefaultConfig()
	}
}
