// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package coap

import (
	"context"
	"log/slog"
	"net/netip"
	"sync"
	"time"

	"github.com/absmach/mcoap/pkg/errors"
	"github.com/absmach/mcoap/pkg/handler"
	"github.com/absmach/mcoap/pkg/observe"
	"github.com/absmach/mcoap/pkg/resource"
	"github.com/absmach/mcoap/pkg/transport"
	"github.com/google/uuid"
	"github.com/plgd-dev/go-coap/v3/message"
)

const (
	// DefaultPort is the IANA-assigned CoAP port.
	DefaultPort = 5683

	// DefaultPollInterval is how long ListenAndServe idles when the
	// transport has nothing to read.
	DefaultPollInterval = 10 * time.Millisecond
)

// Config holds the CoAP server configuration.
type Config struct {
	// ID identifies this server instance in logs and hook contexts.
	// If empty, a random UUID is used.
	ID string

	// Port is passed to the transport on Start.
	// If 0, uses DefaultPort.
	Port int

	// PollInterval is the idle wait between empty transport reads.
	// If 0, uses DefaultPollInterval.
	PollInterval time.Duration

	// Logger for server events
	Logger *slog.Logger
}

var _ resource.Notifier = (*Server)(nil)

// Server routes CoAP requests to registered resources, keeps Observe
// registrations and sends notifications. Each Server owns its registries,
// so independent servers can coexist in one process.
//
// Registry access is serialized by an internal mutex. Resource handlers
// run outside of it and may call NotifyObservers.
type Server struct {
	config    Config
	transport transport.Transport
	handler   handler.Handler

	mu        sync.Mutex
	resources *resource.Registry
	observers *observe.Registry
}

// New creates a server reading from and writing to t. A nil transport
// gives a server whose Start, Stop and sends are no-ops; Dispatch still
// works. A nil handler is replaced by handler.NoopHandler.
func New(cfg Config, t transport.Transport, h handler.Handler) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Port == 0 {
		cfg.Port = DefaultPort
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if h == nil {
		h = &handler.NoopHandler{}
	}

	return &Server{
		config:    cfg,
		transport: t,
		handler:   h,
		resources: resource.NewRegistry(),
		observers: observe.NewRegistry(),
	}
}

// ID returns the server instance identifier.
func (s *Server) ID() string {
	return s.config.ID
}

// Port returns the port the transport is started on.
func (s *Server) Port() int {
	return s.config.Port
}

// CreateResource creates and registers a FunctionalResource owned by the
// server. It is released by Close.
func (s *Server) CreateResource(name string, format message.MediaType, observable bool) *resource.FunctionalResource {
	s.mu.Lock()
	f := s.resources.Create(name, format, observable)
	s.mu.Unlock()

	f.Bind(s)
	return f
}

// AddResource registers a resource the caller keeps owning, replacing any
// resource registered under the same name. The server never frees it.
func (s *Server) AddResource(r resource.Resource) {
	s.mu.Lock()
	s.resources.Add(r)
	s.mu.Unlock()

	if b, ok := r.(resource.Binder); ok {
		b.Bind(s)
	}
}

// RemoveResource unregisters the resource registered under r's name and
// drops its observers. Unknown resources are ignored.
func (s *Server) RemoveResource(r resource.Resource) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.resources.Lookup(r.Name()); !ok {
		return
	}
	s.resources.Remove(r)
	s.observers.RemovePath(r.Name())
}

// Resource returns the resource registered at path.
func (s *Server) Resource(path string) (resource.Resource, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources.Lookup(path)
}

// Resources returns the registered resources in registration order.
func (s *Server) Resources() []resource.Resource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resources.All()
}

// ObserverCount returns the number of observers of path, or of all paths
// when path is empty.
func (s *Server) ObserverCount(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if path == "" {
		return s.observers.Len()
	}
	return len(s.observers.Observers(path))
}

// Start starts the transport on the configured port.
func (s *Server) Start() error {
	if s.transport == nil {
		return nil
	}
	if err := s.transport.Start(s.config.Port); err != nil {
		return errors.Wrap(err, "failed to start transport")
	}
	s.config.Logger.Info("CoAP server started",
		slog.String("server", s.config.ID),
		slog.Int("port", s.config.Port))
	return nil
}

// Stop stops the transport.
func (s *Server) Stop() error {
	if s.transport == nil {
		return nil
	}
	if err := s.transport.Stop(); err != nil {
		return errors.Wrap(err, "failed to stop transport")
	}
	s.config.Logger.Info("CoAP server stopped", slog.String("server", s.config.ID))
	return nil
}

// Close stops the transport, releases server-owned resources and forgets
// all observers. Caller-added resources are unregistered only.
func (s *Server) Close() error {
	err := s.Stop()

	s.mu.Lock()
	s.resources.Close()
	s.observers = observe.NewRegistry()
	s.mu.Unlock()

	return err
}

// Process handles at most one pending datagram. It reports whether a
// datagram was read. Failures are logged and never returned: the datagram
// is simply dropped.
func (s *Server) Process(ctx context.Context) bool {
	if s.transport == nil {
		return false
	}

	d, ok := s.transport.Read()
	if !ok {
		return false
	}

	reply, err := s.Dispatch(ctx, d.Data, d.Addr)
	if err != nil {
		s.config.Logger.Debug("datagram dropped",
			slog.String("client", d.Addr.String()),
			slog.String("error", err.Error()))
		return true
	}
	if reply != nil {
		s.send(reply, d.Addr)
	}
	return true
}

// ListenAndServe starts the transport and processes datagrams until ctx
// is cancelled, then stops the transport.
func (s *Server) ListenAndServe(ctx context.Context) error {
	if s.transport == nil {
		return errors.ErrNoTransport
	}
	if err := s.Start(); err != nil {
		return err
	}
	defer func() {
		if err := s.Stop(); err != nil {
			s.config.Logger.Error("error stopping server", slog.String("error", err.Error()))
		}
	}()

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		for ctx.Err() == nil && s.Process(ctx) {
		}

		select {
		case <-ctx.Done():
			s.config.Logger.Info("shutdown signal received, stopping server",
				slog.String("server", s.config.ID))
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Server) send(data []byte, addr netip.AddrPort) {
	if s.transport == nil {
		return
	}
	if err := s.transport.Send(data, addr); err != nil {
		s.config.Logger.Warn("failed to send CoAP message",
			slog.String("client", addr.String()),
			slog.String("error", err.Error()))
	}
}

// hook runs a handler callback, logging its error.
func (s *Server) hook(name string, fn func() error) {
	if err := fn(); err != nil {
		s.config.Logger.Error("handler error",
			slog.String("hook", name),
			slog.String("error", err.Error()))
	}
}
