// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package mdns

import (
	"net"
	"net/netip"
	"testing"

	"github.com/grandcat/zeroconf"
	"github.com/stretchr/testify/assert"
)

func TestTxtRecords(t *testing.T) {
	tests := []struct {
		name string
		info Info
		want []string
	}{
		{
			name: "empty",
			info: Info{Instance: "coapd", Port: 5683},
			want: nil,
		},
		{
			name: "id and paths",
			info: Info{ServerID: "b1946ac9", Paths: []string{"temp", "led"}},
			want: []string{"id=b1946ac9", "paths=temp,led"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, txtRecords(tt.info))
		})
	}
}

func newEntry(ipv4, ipv6 []net.IP, port int, txt ...string) *zeroconf.ServiceEntry {
	entry := zeroconf.NewServiceEntry("coapd-kitchen", ServiceType, ServiceDomain)
	entry.HostName = "kitchen.local."
	entry.Port = port
	entry.AddrIPv4 = ipv4
	entry.AddrIPv6 = ipv6
	entry.Text = txt
	return entry
}

func TestParseEntry(t *testing.T) {
	tests := []struct {
		name   string
		entry  *zeroconf.ServiceEntry
		wantOK bool
		want   Peer
	}{
		{
			name:   "ipv4 with txt",
			entry:  newEntry([]net.IP{net.ParseIP("192.168.4.16")}, nil, 5683, "id=b1946ac9", "paths=temp,led"),
			wantOK: true,
			want: Peer{
				Instance: "coapd-kitchen",
				Host:     "kitchen.local.",
				Addr:     netip.MustParseAddrPort("192.168.4.16:5683"),
				ServerID: "b1946ac9",
				Paths:    []string{"temp", "led"},
			},
		},
		{
			name:   "ipv6 fallback",
			entry:  newEntry(nil, []net.IP{net.ParseIP("fe80::1")}, 5683),
			wantOK: true,
			want: Peer{
				Instance: "coapd-kitchen",
				Host:     "kitchen.local.",
				Addr:     netip.MustParseAddrPort("[fe80::1]:5683"),
			},
		},
		{
			name:   "ipv4 preferred",
			entry:  newEntry([]net.IP{net.ParseIP("10.0.0.5")}, []net.IP{net.ParseIP("fe80::1")}, 5684, "paths="),
			wantOK: true,
			want: Peer{
				Instance: "coapd-kitchen",
				Host:     "kitchen.local.",
				Addr:     netip.MustParseAddrPort("10.0.0.5:5684"),
			},
		},
		{
			name:  "no address",
			entry: newEntry(nil, nil, 5683),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseEntry(tt.entry)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}
