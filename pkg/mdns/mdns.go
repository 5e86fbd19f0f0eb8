// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package mdns advertises and discovers CoAP servers over mDNS/DNS-SD.
package mdns

import (
	"context"
	"fmt"
	"log/slog"
	"net/netip"
	"strings"
	"sync"
	"time"

	"github.com/grandcat/zeroconf"
)

const (
	// ServiceType is the DNS-SD service type of CoAP over UDP (RFC 7252 section 12.8).
	ServiceType = "_coap._udp"

	// ServiceDomain is the mDNS domain.
	ServiceDomain = "local."

	// DefaultScanTimeout bounds a Scan when the context has no deadline.
	DefaultScanTimeout = 5 * time.Second

	// TXT record keys.
	txtID    = "id"
	txtPaths = "paths"
)

// Advertiser publishes one server instance until Shutdown.
type Advertiser struct {
	server *zeroconf.Server
	logger *slog.Logger
}

// Info describes the advertised instance.
type Info struct {
	// Instance is the DNS-SD instance name, e.g. "coapd-kitchen".
	Instance string

	// Port is the CoAP UDP port.
	Port int

	// ServerID is published as the "id" TXT key.
	ServerID string

	// Paths are published, comma separated, as the "paths" TXT key.
	Paths []string
}

// Advertise registers the instance on all multicast interfaces.
func Advertise(info Info, logger *slog.Logger) (*Advertiser, error) {
	if logger == nil {
		logger = slog.Default()
	}

	server, err := zeroconf.Register(info.Instance, ServiceType, ServiceDomain, info.Port, txtRecords(info), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to register mDNS service: %w", err)
	}

	logger.Info("mDNS service registered",
		slog.String("instance", info.Instance),
		slog.String("service", ServiceType),
		slog.Int("port", info.Port))

	return &Advertiser{server: server, logger: logger}, nil
}

// Shutdown withdraws the advertisement.
func (a *Advertiser) Shutdown() {
	a.server.Shutdown()
	a.logger.Info("mDNS service withdrawn")
}

func txtRecords(info Info) []string {
	var txt []string
	if info.ServerID != "" {
		txt = append(txt, txtID+"="+info.ServerID)
	}
	if len(info.Paths) > 0 {
		txt = append(txt, txtPaths+"="+strings.Join(info.Paths, ","))
	}
	return txt
}

// Peer is a CoAP server found on the local network.
type Peer struct {
	Instance string
	Host     string
	Addr     netip.AddrPort
	ServerID string
	Paths    []string
}

// Scan browses for CoAP servers until ctx is done or timeout elapses.
func Scan(ctx context.Context, timeout time.Duration) ([]Peer, error) {
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resolver, err := zeroconf.NewResolver(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create mDNS resolver: %w", err)
	}

	var (
		mu    sync.Mutex
		peers []Peer
	)
	entries := make(chan *zeroconf.ServiceEntry)
	go func() {
		for entry := range entries {
			if p, ok := parseEntry(entry); ok {
				mu.Lock()
				peers = append(peers, p)
				mu.Unlock()
			}
		}
	}()

	if err := resolver.Browse(ctx, ServiceType, ServiceDomain, entries); err != nil {
		return nil, fmt.Errorf("failed to browse for mDNS services: %w", err)
	}
	<-ctx.Done()

	mu.Lock()
	defer mu.Unlock()
	return append([]Peer(nil), peers...), nil
}

// parseEntry converts a service entry, preferring IPv4. Entries without
// an address are skipped.
func parseEntry(entry *zeroconf.ServiceEntry) (Peer, bool) {
	var addr netip.Addr
	for _, ip := range entry.AddrIPv4 {
		if a, ok := netip.AddrFromSlice(ip.To4()); ok {
			addr = a
			break
		}
	}
	if !addr.IsValid() {
		for _, ip := range entry.AddrIPv6 {
			if a, ok := netip.AddrFromSlice(ip); ok {
				addr = a
				break
			}
		}
	}
	if !addr.IsValid() {
		return Peer{}, false
	}

	p := Peer{
		Instance: entry.Instance,
		Host:     entry.HostName,
		Addr:     netip.AddrPortFrom(addr, uint16(entry.Port)),
	}
	for _, txt := range entry.Text {
		key, value, _ := strings.Cut(txt, "=")
		switch key {
		case txtID:
			p.ServerID = value
		case txtPaths:
			if value != "" {
				p.Paths = strings.Split(value, ",")
			}
		}
	}
	return p, true
}
