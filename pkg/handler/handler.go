// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"net/netip"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

// Context describes the exchange a hook is called for.
type Context struct {
	// ServerID identifies the server instance that handled the exchange.
	ServerID string

	// RemoteAddr is the client endpoint.
	RemoteAddr netip.AddrPort

	// Type is the CoAP message type of the inbound message, or of the
	// notification for OnNotify.
	Type message.Type

	// Method is the request code (GET, PUT, ...). Codes.Empty for pings
	// and resets.
	Method codes.Code

	// Path is the target resource path without the leading slash.
	Path string

	// Token is the request or observation token.
	Token message.Token

	// Code is the response code. Zero when no response was produced.
	Code codes.Code
}

// Handler receives dispatch lifecycle notifications for audit logging,
// metrics or post-processing. Hooks run after the fact: returned errors
// are logged by the server and never change the response.
type Handler interface {
	// OnRequest is called once a request has been answered.
	OnRequest(ctx context.Context, hctx *Context) error

	// OnSubscribe is called after an observer is registered or refreshed.
	OnSubscribe(ctx context.Context, hctx *Context) error

	// OnUnsubscribe is called after an observer is removed, either by a
	// GET with Observe=1 or by a Reset message (Path is empty then).
	OnUnsubscribe(ctx context.Context, hctx *Context) error

	// OnNotify is called for each notification sent to an observer.
	OnNotify(ctx context.Context, hctx *Context) error

	// OnDrop is called when an inbound datagram is discarded without reply.
	OnDrop(ctx context.Context, hctx *Context, err error) error
}

// NoopHandler is a Handler implementation that ignores every event.
type NoopHandler struct{}

var _ Handler = (*NoopHandler)(nil)

func (h *NoopHandler) OnRequest(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnSubscribe(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnUnsubscribe(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnNotify(ctx context.Context, hctx *Context) error {
	return nil
}

func (h *NoopHandler) OnDrop(ctx context.Context, hctx *Context, err error) error {
	return nil
}
