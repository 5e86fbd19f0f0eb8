// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package ratelimit provides per-client token bucket rate limiting for
// inbound datagrams.
package ratelimit

import (
	"net/netip"
	"sync"
	"time"
)

// TokenBucket implements the token bucket algorithm.
type TokenBucket struct {
	mu         sync.Mutex
	capacity   int64
	tokens     int64
	refillRate int64 // tokens per second
	lastRefill time.Time
	now        func() time.Time
}

// NewTokenBucket creates a full bucket holding capacity tokens and gaining
// refillRate tokens per second.
func NewTokenBucket(capacity, refillRate int64) *TokenBucket {
	return newTokenBucket(capacity, refillRate, time.Now)
}

func newTokenBucket(capacity, refillRate int64, now func() time.Time) *TokenBucket {
	return &TokenBucket{
		capacity:   capacity,
		tokens:     capacity,
		refillRate: refillRate,
		lastRefill: now(),
		now:        now,
	}
}

// Allow takes one token if available.
func (tb *TokenBucket) Allow() bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()

	tb.refill()
	if tb.tokens < 1 {
		return false
	}
	tb.tokens--
	return true
}

func (tb *TokenBucket) refill() {
	now := tb.now()
	add := int64(now.Sub(tb.lastRefill).Seconds() * float64(tb.refillRate))
	if add <= 0 {
		return
	}
	tb.tokens = min(tb.tokens+add, tb.capacity)
	tb.lastRefill = now
}

func (tb *TokenBucket) idleSince(t time.Time) bool {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	return tb.lastRefill.Before(t)
}

// Limiter keeps one bucket per client address. Buckets not touched for
// longer than the idle window are dropped by Sweep.
type Limiter struct {
	mu         sync.Mutex
	buckets    map[netip.Addr]*TokenBucket
	capacity   int64
	refillRate int64
	maxClients int
	now        func() time.Time
}

// NewLimiter creates a Limiter. A zero capacity disables limiting.
// maxClients bounds the number of tracked addresses; new clients beyond
// it are refused until Sweep frees room.
func NewLimiter(capacity, refillRate int64, maxClients int) *Limiter {
	if maxClients <= 0 {
		maxClients = 10000
	}
	return &Limiter{
		buckets:    make(map[netip.Addr]*TokenBucket),
		capacity:   capacity,
		refillRate: refillRate,
		maxClients: maxClients,
		now:        time.Now,
	}
}

// Allow reports whether one more datagram from addr is accepted.
func (l *Limiter) Allow(addr netip.Addr) bool {
	if l == nil || l.capacity <= 0 {
		return true
	}

	l.mu.Lock()
	tb, ok := l.buckets[addr]
	if !ok {
		if len(l.buckets) >= l.maxClients {
			l.mu.Unlock()
			return false
		}
		tb = newTokenBucket(l.capacity, l.refillRate, l.now)
		l.buckets[addr] = tb
	}
	l.mu.Unlock()

	return tb.Allow()
}

// Sweep forgets clients idle for longer than idle and returns how many
// were removed.
func (l *Limiter) Sweep(idle time.Duration) int {
	if l == nil {
		return 0
	}
	cutoff := l.now().Add(-idle)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for addr, tb := range l.buckets {
		if tb.idleSince(cutoff) {
			delete(l.buckets, addr)
			removed++
		}
	}
	return removed
}

// Clients returns the number of tracked addresses.
func (l *Limiter) Clients() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
