// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package udp

import (
	"log/slog"
	"net"
	"net/netip"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/absmach/mcoap/pkg/errors"
	"github.com/absmach/mcoap/pkg/ratelimit"
	"github.com/absmach/mcoap/pkg/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTransport(t *testing.T, cfg Config) *Transport {
	t.Helper()
	cfg.Host = "127.0.0.1"
	cfg.Logger = slog.New(slog.NewTextHandler(os.Stdout, nil))
	tr := New(cfg)
	require.NoError(t, tr.Start(0))
	t.Cleanup(func() { tr.Stop() })
	return tr
}

func dialTransport(t *testing.T, tr *Transport) *net.UDPConn {
	t.Helper()
	conn, err := net.DialUDP("udp", nil, net.UDPAddrFromAddrPort(tr.LocalAddr()))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEventually(t *testing.T, tr *Transport) transport.Datagram {
	t.Helper()
	var d transport.Datagram
	require.Eventually(t, func() bool {
		var ok bool
		d, ok = tr.Read()
		return ok
	}, 2*time.Second, 5*time.Millisecond)
	return d
}

func TestNew_DefaultConfig(t *testing.T) {
	tr := New(Config{})

	assert.NotNil(t, tr.config.Logger)
	assert.Equal(t, DefaultBufferSize, tr.config.BufferSize)
	assert.Equal(t, DefaultQueueSize, tr.config.QueueSize)
	assert.Equal(t, DefaultSweepInterval, tr.config.SweepInterval)

	tr = New(Config{BufferSize: 1 << 20})
	assert.Equal(t, MaxDatagramSize, tr.config.BufferSize)
}

func TestTransport_ReadIsNonBlocking(t *testing.T) {
	tr := newTestTransport(t, Config{})

	start := time.Now()
	_, ok := tr.Read()
	assert.False(t, ok)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestTransport_ReceiveAndSend(t *testing.T) {
	tr := newTestTransport(t, Config{})
	client := dialTransport(t, tr)

	_, err := client.Write([]byte("hello"))
	require.NoError(t, err)

	d := readEventually(t, tr)
	assert.Equal(t, []byte("hello"), d.Data)
	assert.Equal(t, client.LocalAddr().(*net.UDPAddr).AddrPort(), d.Addr)

	require.NoError(t, tr.Send([]byte("world"), d.Addr))

	buf := make([]byte, 64)
	require.NoError(t, client.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, err := client.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))
}

func TestTransport_StartTwice(t *testing.T) {
	tr := newTestTransport(t, Config{})
	assert.ErrorIs(t, tr.Start(0), ErrAlreadyStarted)
}

func TestTransport_Stop(t *testing.T) {
	tr := New(Config{Host: "127.0.0.1"})

	// Stopping a stopped transport is a no-op.
	require.NoError(t, tr.Stop())

	require.NoError(t, tr.Start(0))
	addr := tr.LocalAddr()
	assert.True(t, addr.IsValid())

	require.NoError(t, tr.Stop())
	assert.False(t, tr.LocalAddr().IsValid())

	_, ok := tr.Read()
	assert.False(t, ok)
	assert.ErrorIs(t, tr.Send([]byte("x"), addr), errors.ErrTransportClosed)
}

func TestTransport_InvalidAddress(t *testing.T) {
	tr := New(Config{Host: "invalid:address"})
	assert.Error(t, tr.Start(99999))
}

func TestTransport_RateLimited(t *testing.T) {
	var (
		mu    sync.Mutex
		drops []error
	)
	tr := newTestTransport(t, Config{
		Limiter: ratelimit.NewLimiter(1, 0, 10),
		OnDrop: func(_ netip.AddrPort, err error) {
			mu.Lock()
			drops = append(drops, err)
			mu.Unlock()
		},
	})
	client := dialTransport(t, tr)

	_, err := client.Write([]byte("one"))
	require.NoError(t, err)
	_, err = client.Write([]byte("two"))
	require.NoError(t, err)

	d := readEventually(t, tr)
	assert.Equal(t, "one", string(d.Data))

	require.Eventually(t, func() bool { return tr.Dropped() == 1 }, 2*time.Second, 5*time.Millisecond)
	_, ok := tr.Read()
	assert.False(t, ok)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, drops, 1)
	assert.ErrorIs(t, drops[0], errors.ErrRateLimited)
}

func TestTransport_QueueFull(t *testing.T) {
	var full atomic.Int32
	tr := newTestTransport(t, Config{
		QueueSize: 1,
		OnDrop: func(_ netip.AddrPort, err error) {
			if errors.Is(err, errors.ErrQueueFull) {
				full.Add(1)
			}
		},
	})
	client := dialTransport(t, tr)

	for _, msg := range []string{"a", "b", "c"} {
		_, err := client.Write([]byte(msg))
		require.NoError(t, err)
	}

	require.Eventually(t, func() bool { return tr.Dropped() == 2 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, int32(2), full.Load())

	d, ok := tr.Read()
	require.True(t, ok)
	assert.Equal(t, "a", string(d.Data))
}
