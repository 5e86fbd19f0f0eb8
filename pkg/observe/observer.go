// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"net/netip"

	"github.com/plgd-dev/go-coap/v3/message"
)

// Observer is one client registration on a resource.
//
// Its identity is the (endpoint, token) pair. The notification message ID
// and the Observe sequence number are per-observer counters that wrap at
// 16 bits and never take part in identity.
type Observer struct {
	addr  netip.AddrPort
	token message.Token

	messageID uint16
	sequence  uint16
}

// New creates an observer for the client at addr using token. The token
// is copied. The message ID counter starts at a random value.
func New(addr netip.AddrPort, token []byte) *Observer {
	return &Observer{
		addr:      addr,
		token:     bytes.Clone(token),
		messageID: uint16(rand.UintN(1 << 16)),
	}
}

// Addr returns the client endpoint notifications are sent to.
func (o *Observer) Addr() netip.AddrPort {
	return o.addr
}

// Token returns the token echoed in every notification.
func (o *Observer) Token() message.Token {
	return o.token
}

// NextMessageID advances and returns the notification message ID.
func (o *Observer) NextMessageID() uint16 {
	o.messageID++
	return o.messageID
}

// NextSequence advances and returns the Observe option value.
func (o *Observer) NextSequence() uint16 {
	o.sequence++
	return o.sequence
}

// Is reports whether o and other have the same identity.
func (o *Observer) Is(other *Observer) bool {
	return o.addr == other.addr && bytes.Equal(o.token, other.token)
}

// String returns a string representation of the observer identity.
func (o *Observer) String() string {
	return fmt.Sprintf("%s#%x", o.addr, []byte(o.token))
}
