// Package chatserver implements the listener/accept loop and shutdown
// coordinator from spec.md §4.8 and §5: it admits sockets, runs the
// handshake, registers clients, spawns their four tasks, and tears
// everything down in the prescribed order.
package chatserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/zfogg/asciichat-server/internal/asciikernel"
	"github.com/zfogg/asciichat-server/internal/bufpool"
	"github.com/zfogg/asciichat-server/internal/client"
	"github.com/zfogg/asciichat-server/internal/hooks"
	"github.com/zfogg/asciichat-server/internal/registry"
	"github.com/zfogg/asciichat-server/internal/wire"
)

// handshakeTimeout bounds the blocking handshake exchange (spec.md §5
// socket timeout).
const handshakeTimeout = 10 * time.Second

// Server ties together the listener, client registry, and hook manager.
type Server struct {
	cfg    Config
	log    *slog.Logger
	reg    *registry.Registry
	pool   *bufpool.Pool
	kernel asciikernel.Kernel
	hookMgr *hooks.Manager

	mu          sync.Mutex
	ln          net.Listener
	closing     bool
	acceptingWg sync.WaitGroup
	nextID      uint32
}

// New creates an unstarted Server.
func New(cfg Config, log *slog.Logger) *Server {
	cfg.applyDefaults()
	if log == nil {
		log = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		log:     log,
		reg:     registry.New(cfg.MaxClients),
		pool:    bufpool.New(),
		kernel:  asciikernel.New(),
		hookMgr: hooks.NewManager(cfg.HookConfig, log),
	}
}

// Start binds the listener and launches the accept loop. Safe to call once.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.ln != nil {
		s.mu.Unlock()
		return errors.New("chatserver: already started")
	}
	ln, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("chatserver: listen %s: %w", s.cfg.ListenAddr, err)
	}
	s.ln = ln
	s.mu.Unlock()

	s.log.Info("listening", "addr", ln.Addr().String(), "max_clients", s.cfg.MaxClients)
	s.hookMgr.TriggerEvent(context.Background(), *hooks.NewEvent(hooks.EventServerStart).
		WithData("addr", ln.Addr().String()))

	s.acceptingWg.Add(1)
	go s.acceptLoop()
	return nil
}

// Addr returns the bound listener address, or nil if not started.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// ClientCount returns the number of currently registered clients.
func (s *Server) ClientCount() int { return s.reg.Count() }

// RegisterHook registers hook for eventType with the server's hook manager,
// e.g. the shell/webhook hooks the CLI builds from -hook-script/-hook-webhook.
func (s *Server) RegisterHook(eventType hooks.EventType, hook hooks.Hook) error {
	return s.hookMgr.RegisterHook(eventType, hook)
}

func (s *Server) acceptLoop() {
	defer s.acceptingWg.Done()
	for {
		s.mu.Lock()
		ln := s.ln
		s.mu.Unlock()
		if ln == nil {
			return
		}

		conn, err := ln.Accept()
		if err != nil {
			s.mu.Lock()
			closing := s.closing
			s.mu.Unlock()
			if closing || errors.Is(err, net.ErrClosed) {
				return
			}
			s.log.Warn("accept error", "error", err)
			continue
		}

		go s.handleConn(conn)
	}
}

// handleConn performs the handshake and, on success, registers a Client
// and spawns its four tasks (spec.md §4.8).
func (s *Server) handleConn(conn net.Conn) {
	_ = conn.SetDeadline(time.Now().Add(handshakeTimeout))
	hs, err := s.readHandshake(conn)
	if err != nil {
		s.log.Info("handshake failed", "remote", conn.RemoteAddr(), "error", err)
		_ = conn.Close()
		return
	}

	if hs.Version != wire.ProtocolVersion {
		s.rejectHandshake(conn, wire.RejectVersionMismatch, "protocol version mismatch")
		return
	}

	id := s.allocateID()
	c := client.New(id, conn, hs.DisplayName, int(hs.Width), int(hs.Height), hs.HasVideo(), hs.HasAudio(),
		s.log.With("client_id", id, "display_name", hs.DisplayName))

	if err := s.reg.Add(c); err != nil {
		s.rejectHandshake(conn, wire.RejectRegistryFull, "registry full")
		s.log.Info("registry full, rejecting handshake", "remote", conn.RemoteAddr())
		return
	}

	if err := s.acceptHandshake(conn, id); err != nil {
		s.log.Warn("failed to send handshake accept", "client_id", id, "error", err)
		s.reg.Remove(c)
		_ = conn.Close()
		return
	}
	_ = conn.SetDeadline(time.Time{})

	s.log.Info("client connected", "client_id", id, "remote", conn.RemoteAddr())
	s.hookMgr.TriggerEvent(context.Background(), *hooks.NewEvent(hooks.EventClientConnect).
		WithClientID(strconv.FormatUint(uint64(id), 10)).
		WithData("display_name", hs.DisplayName))

	c.StartReceiveTask(s.pool)
	c.StartSendTask()
	c.StartVideoRenderTask(s.reg, s.kernel, s.cfg.VideoFPS)
	if s.cfg.EnableAudio {
		c.StartAudioRenderTask(s.reg, s.cfg.AudioRate)
	}

	s.waitAndRemove(c)
}

// waitAndRemove blocks until the client's receive task exits (the signal
// that this client is done, whether by disconnect, error, or global
// shutdown), then tears it down in the prescribed order (spec.md §4.8):
// mark the registry slot empty, join the four tasks (receive, send,
// video-render, audio-render), then close the socket.
func (s *Server) waitAndRemove(c *client.Client) {
	c.JoinReceive()

	s.reg.Remove(c)

	c.Cancel()
	c.JoinSend()
	c.JoinVideo()
	if s.cfg.EnableAudio {
		c.JoinAudio()
	}
	_ = c.Conn.Close()

	s.log.Info("client disconnected", "client_id", c.ID)
	s.hookMgr.TriggerEvent(context.Background(), *hooks.NewEvent(hooks.EventClientDisconnect).
		WithClientID(strconv.FormatUint(uint64(c.ID), 10)))
}

func (s *Server) allocateID() uint32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

func (s *Server) readHandshake(conn net.Conn) (wire.Handshake, error) {
	p, err := wire.ReadPacket(conn, s.pool)
	if err != nil {
		return wire.Handshake{}, err
	}
	defer s.pool.Put(p.Payload)

	if p.Type != wire.TypeHandshake {
		return wire.Handshake{}, fmt.Errorf("chatserver: expected handshake packet, got %v", p.Type)
	}
	return wire.DecodeHandshake(p.Payload)
}

func (s *Server) acceptHandshake(conn net.Conn, id uint32) error {
	payload := wire.EncodeHandshakeAccept(wire.HandshakeAccept{ClientID: id, RegistrySize: uint32(s.cfg.MaxClients)})
	return wire.WritePacket(conn, &wire.Packet{Type: wire.TypeHandshakeAccept, Payload: payload})
}

func (s *Server) rejectHandshake(conn net.Conn, reason byte, message string) {
	payload := wire.EncodeHandshakeReject(reason, message)
	_ = wire.WritePacket(conn, &wire.Packet{Type: wire.TypeHandshakeReject, Payload: payload})
	_ = conn.Close()
}

// Stop closes the listener (interrupting Accept) and waits for the accept
// loop to exit. It then sets every registered client's exit flag and closes
// its socket, so that client's handleConn goroutine runs its own teardown
// via waitAndRemove, and finally closes the hook manager. Stop returns
// without waiting for those per-client teardowns to finish, and it has no
// registry teardown step.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.ln == nil {
		s.mu.Unlock()
		return nil
	}
	s.closing = true
	ln := s.ln
	s.ln = nil
	s.mu.Unlock()

	s.hookMgr.TriggerEvent(context.Background(), *hooks.NewEvent(hooks.EventServerStop))

	_ = ln.Close()
	s.acceptingWg.Wait()

	for _, c := range s.reg.Snapshot() {
		c.SetShouldExit()
		_ = c.Conn.Close() // unblocks the receive task's in-flight read immediately
	}

	_ = s.hookMgr.Close()
	s.log.Info("server stopped")
	return nil
}
