package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/zfogg/asciichat-server/internal/chatserver"
	"github.com/zfogg/asciichat-server/internal/hooks"
	"github.com/zfogg/asciichat-server/internal/logger"
)

func main() {
	cfg, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if cfg.showVersion {
		fmt.Println(version)
		return
	}

	logger.Init()
	if err := logger.SetLevel(cfg.logLevel); err != nil {
		fmt.Printf("Warning: invalid log level %q, using default\n", cfg.logLevel)
	}
	log := logger.Logger().With("component", "cli")

	hookCfg := hooks.DefaultConfig()
	hookCfg.Timeout = cfg.hookTimeout
	hookCfg.Concurrency = cfg.hookConcurrency
	hookCfg.StdioFormat = cfg.hookStdioFormat

	server := chatserver.New(chatserver.Config{
		ListenAddr:  cfg.listenAddr,
		MaxClients:  cfg.maxClients,
		VideoFPS:    cfg.videoFPS,
		AudioRate:   cfg.audioRate,
		EnableAudio: cfg.enableAudio,
		HookConfig:  hookCfg,
	}, log)

	if err := registerHooks(server, cfg); err != nil {
		log.Error("failed to register hooks", "error", err)
		os.Exit(2)
	}

	if err := server.Start(); err != nil {
		log.Error("failed to start server", "error", err)
		os.Exit(1)
	}

	log.Info("server started", "addr", server.Addr().String(), "version", version)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan struct{})
	go func() {
		if err := server.Stop(); err != nil {
			log.Error("server stop error", "error", err)
		}
		close(done)
	}()

	select {
	case <-done:
		log.Info("server stopped cleanly")
	case <-shutdownCtx.Done():
		log.Error("forced exit after timeout")
	}
}

// registerHooks parses -hook-script/-hook-webhook assignments and registers
// the corresponding hooks.Hook implementations with the server's manager.
func registerHooks(server *chatserver.Server, cfg *cliConfig) error {
	timeout, err := time.ParseDuration(cfg.hookTimeout)
	if err != nil {
		timeout = 10 * time.Second
	}

	for i, assignment := range cfg.hookScripts {
		eventType, path, ok := splitAssignment(assignment)
		if !ok {
			return fmt.Errorf("invalid hook-script %q", assignment)
		}
		hook := hooks.NewShellHook(fmt.Sprintf("shell-%d", i), path, timeout)
		if err := server.RegisterHook(hooks.EventType(eventType), hook); err != nil {
			return err
		}
	}

	for i, assignment := range cfg.hookWebhooks {
		eventType, url, ok := splitAssignment(assignment)
		if !ok {
			return fmt.Errorf("invalid hook-webhook %q", assignment)
		}
		hook := hooks.NewWebhookHook(fmt.Sprintf("webhook-%d", i), url, timeout)
		if err := server.RegisterHook(hooks.EventType(eventType), hook); err != nil {
			return err
		}
	}

	return nil
}

func splitAssignment(s string) (eventType, value string, ok bool) {
	parts := strings.SplitN(s, "=", 2)
	if len(parts) != 2 {
		return "", "", false
	}
	return parts[0], parts[1], true
}
