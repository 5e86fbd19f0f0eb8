// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package transport defines the datagram transport the CoAP server reads
// requests from and writes responses to.
package transport

import (
	"net/netip"
	"sync"

	"github.com/absmach/mcoap/pkg/errors"
)

// Datagram is one received packet and its sender.
type Datagram struct {
	Data []byte
	Addr netip.AddrPort
}

// Transport moves raw datagrams. Read must not block: it returns false
// when nothing is pending.
type Transport interface {
	// Start binds the transport to port.
	Start(port int) error

	// Stop releases the transport. Pending datagrams are discarded.
	Stop() error

	// Read returns the next pending datagram, if any.
	Read() (Datagram, bool)

	// Send writes data to addr.
	Send(data []byte, addr netip.AddrPort) error
}

var _ Transport = (*Memory)(nil)

// Memory is an in-process Transport. Datagrams are injected with Deliver
// and everything sent is recorded. It is meant for tests and for embedding
// the server behind a custom I/O loop.
type Memory struct {
	mu      sync.Mutex
	running bool
	port    int
	inbox   []Datagram
	sent    []Datagram
}

// NewMemory creates a stopped in-memory transport.
func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Start(port int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = true
	m.port = port
	return nil
}

func (m *Memory) Stop() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.running = false
	m.inbox = nil
	return nil
}

// Port returns the port passed to Start.
func (m *Memory) Port() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.port
}

// Running reports whether Start was called without a later Stop.
func (m *Memory) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Deliver queues data as if it was received from addr.
func (m *Memory) Deliver(data []byte, addr netip.AddrPort) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inbox = append(m.inbox, Datagram{Data: data, Addr: addr})
}

func (m *Memory) Read() (Datagram, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.inbox) == 0 {
		return Datagram{}, false
	}
	d := m.inbox[0]
	m.inbox = m.inbox[1:]
	return d, true
}

func (m *Memory) Send(data []byte, addr netip.AddrPort) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return errors.ErrTransportClosed
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	m.sent = append(m.sent, Datagram{Data: buf, Addr: addr})
	return nil
}

// Sent returns everything sent so far, oldest first.
func (m *Memory) Sent() []Datagram {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Datagram, len(m.sent))
	copy(out, m.sent)
	return out
}

// Reset forgets recorded sends.
func (m *Memory) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}
