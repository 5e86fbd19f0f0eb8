// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/netip"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	mcerrors "github.com/absmach/mcoap/pkg/errors"
	"github.com/absmach/mcoap/pkg/ratelimit"
	"github.com/absmach/mcoap/pkg/transport"
)

const (
	// MaxDatagramSize is the maximum size of a UDP datagram.
	MaxDatagramSize = 65535

	// DefaultBufferSize is the default buffer size for UDP packets.
	// CoAP messages should fit an IP packet without fragmentation, so this
	// leaves ample room.
	DefaultBufferSize = 1500

	// DefaultQueueSize is the default number of datagrams buffered between
	// the socket reader and Read.
	DefaultQueueSize = 256

	// DefaultSweepInterval is how often idle rate limiter entries are dropped.
	DefaultSweepInterval = 5 * time.Minute
)

// ErrAlreadyStarted is returned by Start on a running transport.
var ErrAlreadyStarted = errors.New("transport already started")

// Config holds the UDP transport configuration.
type Config struct {
	// Host is the address to bind; empty binds all interfaces.
	Host string

	// BufferSize is the size of datagram read buffers in bytes.
	// If 0, uses DefaultBufferSize. Must not exceed MaxDatagramSize.
	BufferSize int

	// QueueSize bounds the datagrams waiting for Read. Datagrams arriving
	// while the queue is full are dropped.
	// If 0, uses DefaultQueueSize.
	QueueSize int

	// ReadBufferSize sets the socket receive buffer size (SO_RCVBUF).
	// If 0, uses system default.
	ReadBufferSize int

	// WriteBufferSize sets the socket send buffer size (SO_SNDBUF).
	// If 0, uses system default.
	WriteBufferSize int

	// Limiter throttles datagrams per client address. Nil disables it.
	Limiter *ratelimit.Limiter

	// SweepInterval is how often idle Limiter entries are forgotten.
	// If 0, uses DefaultSweepInterval.
	SweepInterval time.Duration

	// OnDrop, when set, is called from the reader goroutine for every
	// datagram discarded before it is queued, with ErrRateLimited or
	// ErrQueueFull.
	OnDrop func(addr netip.AddrPort, err error)

	// Logger for transport events
	Logger *slog.Logger
}

var _ transport.Transport = (*Transport)(nil)

// Transport is a UDP socket with a non-blocking Read. One goroutine pulls
// datagrams off the socket into a bounded queue that Read drains.
type Transport struct {
	config     Config
	bufferPool *sync.Pool

	mu       sync.Mutex
	conn     *net.UDPConn
	queue    chan transport.Datagram
	done     chan struct{}
	workerWg sync.WaitGroup

	dropped atomic.Uint64
}

// New creates a stopped UDP transport.
func New(cfg Config) *Transport {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.BufferSize == 0 {
		cfg.BufferSize = DefaultBufferSize
	}
	if cfg.BufferSize > MaxDatagramSize {
		cfg.BufferSize = MaxDatagramSize
	}
	if cfg.QueueSize == 0 {
		cfg.QueueSize = DefaultQueueSize
	}
	if cfg.SweepInterval == 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	bufferPool := &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, cfg.BufferSize)
			return &buf
		},
	}

	return &Transport{
		config:     cfg,
		bufferPool: bufferPool,
	}
}

// Start binds the socket to port and starts the reader. Port 0 picks a
// free port, see LocalAddr.
func (t *Transport) Start(port int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.conn != nil {
		return ErrAlreadyStarted
	}

	address := net.JoinHostPort(t.config.Host, strconv.Itoa(port))
	addr, err := net.ResolveUDPAddr("udp", address)
	if err != nil {
		return fmt.Errorf("failed to resolve address %s: %w", address, err)
	}

	conn, err := net.ListenUDP("udp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", address, err)
	}

	if t.config.ReadBufferSize > 0 {
		if err := conn.SetReadBuffer(t.config.ReadBufferSize); err != nil {
			t.config.Logger.Warn("failed to set read buffer size",
				slog.String("error", err.Error()))
		}
	}
	if t.config.WriteBufferSize > 0 {
		if err := conn.SetWriteBuffer(t.config.WriteBufferSize); err != nil {
			t.config.Logger.Warn("failed to set write buffer size",
				slog.String("error", err.Error()))
		}
	}

	t.conn = conn
	t.queue = make(chan transport.Datagram, t.config.QueueSize)
	t.done = make(chan struct{})

	t.workerWg.Add(1)
	go t.readLoop(conn, t.queue, t.done)

	if t.config.Limiter != nil {
		t.workerWg.Add(1)
		go t.sweepLoop(t.done)
	}

	t.config.Logger.Info("UDP transport started",
		slog.String("address", conn.LocalAddr().String()),
		slog.Int("queue_size", t.config.QueueSize),
		slog.Int("buffer_size", t.config.BufferSize))

	return nil
}

// Stop closes the socket and waits for the reader to exit. Stopping a
// stopped transport is a no-op.
func (t *Transport) Stop() error {
	t.mu.Lock()
	conn, done := t.conn, t.done
	t.conn, t.queue, t.done = nil, nil, nil
	t.mu.Unlock()

	if conn == nil {
		return nil
	}

	close(done)
	err := conn.Close()
	t.workerWg.Wait()

	t.config.Logger.Info("UDP transport stopped",
		slog.Uint64("dropped", t.dropped.Load()))

	if err != nil {
		return fmt.Errorf("failed to close socket: %w", err)
	}
	return nil
}

// Read returns the next queued datagram without blocking.
func (t *Transport) Read() (transport.Datagram, bool) {
	t.mu.Lock()
	queue := t.queue
	t.mu.Unlock()

	select {
	case d := <-queue:
		return d, true
	default:
		return transport.Datagram{}, false
	}
}

// Send writes data to addr.
func (t *Transport) Send(data []byte, addr netip.AddrPort) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()

	if conn == nil {
		return mcerrors.ErrTransportClosed
	}
	if _, err := conn.WriteToUDPAddrPort(data, addr); err != nil {
		return fmt.Errorf("failed to send to %s: %w", addr, err)
	}
	return nil
}

// LocalAddr returns the bound address, or the zero value when stopped.
func (t *Transport) LocalAddr() netip.AddrPort {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.conn == nil {
		return netip.AddrPort{}
	}
	return t.conn.LocalAddr().(*net.UDPAddr).AddrPort()
}

// Dropped returns the number of datagrams discarded because the queue was
// full or the sender was rate limited.
func (t *Transport) Dropped() uint64 {
	return t.dropped.Load()
}

func (t *Transport) readLoop(conn *net.UDPConn, queue chan<- transport.Datagram, done <-chan struct{}) {
	defer t.workerWg.Done()

	for {
		bufPtr := t.bufferPool.Get().(*[]byte)
		buffer := *bufPtr

		n, addr, err := conn.ReadFromUDPAddrPort(buffer)
		if err != nil {
			t.bufferPool.Put(bufPtr)
			select {
			case <-done:
				// Expected error during shutdown
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			t.config.Logger.Error("failed to read UDP packet",
				slog.String("error", err.Error()))
			continue
		}

		// IPv4 senders on a dual-stack socket show up as v4-mapped v6.
		addr = netip.AddrPortFrom(addr.Addr().Unmap(), addr.Port())

		if !t.config.Limiter.Allow(addr.Addr()) {
			t.bufferPool.Put(bufPtr)
			t.drop(addr, mcerrors.ErrRateLimited)
			t.config.Logger.Debug("rate limited, dropping packet",
				slog.String("client", addr.String()))
			continue
		}

		datagram := make([]byte, n)
		copy(datagram, buffer[:n])
		t.bufferPool.Put(bufPtr)

		select {
		case queue <- transport.Datagram{Data: datagram, Addr: addr}:
		case <-done:
			return
		default:
			t.drop(addr, mcerrors.ErrQueueFull)
			t.config.Logger.Warn("receive queue full, dropping packet",
				slog.String("client", addr.String()))
		}
	}
}

func (t *Transport) drop(addr netip.AddrPort, err error) {
	t.dropped.Add(1)
	if t.config.OnDrop != nil {
		t.config.OnDrop(addr, err)
	}
}

func (t *Transport) sweepLoop(done <-chan struct{}) {
	defer t.workerWg.Done()

	ticker := time.NewTicker(t.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := t.config.Limiter.Sweep(t.config.SweepInterval); n > 0 {
				t.config.Logger.Debug("forgot idle clients", slog.Int("count", n))
			}
		}
	}
}
