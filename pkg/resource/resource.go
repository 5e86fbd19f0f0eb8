// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"net/netip"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

// Resource is a named CoAP endpoint served by the dispatcher.
// Metadata methods feed the /.well-known/core directory, the method
// handlers produce the response code and payload.
type Resource interface {
	// Name is the resource path without the leading slash, e.g. "sensors/temp".
	Name() string

	// ContentFormat is the media type attached to every response.
	ContentFormat() message.MediaType

	// Observable reports whether clients may register with the Observe option.
	Observable() bool

	// ResourceType is the "rt" link attribute, empty when unset.
	ResourceType() string

	// InterfaceDescription is the "if" link attribute, empty when unset.
	InterfaceDescription() string

	// Title is the "title" link attribute, empty when unset.
	Title() string

	// MaxSizeEstimate is the "sz" link attribute, zero when unknown.
	MaxSizeEstimate() uint64

	Get(req *Request) Status
	Put(req *Request) Status
	Post(req *Request) Status
	Delete(req *Request) Status
}

// Notifier pushes a state change of a resource to its observers.
type Notifier interface {
	NotifyObservers(ctx context.Context, r Resource, st Status)
}

// Binder is implemented by resources that want a handle on the server
// they are registered with, so they can notify observers themselves.
type Binder interface {
	Bind(n Notifier)
}

// Status is the outcome of a method handler.
type Status struct {
	Code    codes.Code
	Payload []byte
}

// Content returns a 2.05 status carrying payload.
func Content(payload []byte) Status {
	return Status{Code: codes.Content, Payload: payload}
}

// Changed returns a 2.04 status carrying payload.
func Changed(payload []byte) Status {
	return Status{Code: codes.Changed, Payload: payload}
}

// Created returns a 2.01 status carrying payload.
func Created(payload []byte) Status {
	return Status{Code: codes.Created, Payload: payload}
}

// Deleted returns an empty 2.02 status.
func Deleted() Status {
	return Status{Code: codes.Deleted}
}

// BadRequest returns a 4.00 status carrying a diagnostic payload.
func BadRequest(diag string) Status {
	return Status{Code: codes.BadRequest, Payload: []byte(diag)}
}

// NotFound returns an empty 4.04 status.
func NotFound() Status {
	return Status{Code: codes.NotFound}
}

// MethodNotAllowed returns an empty 4.05 status.
func MethodNotAllowed() Status {
	return Status{Code: codes.MethodNotAllowed}
}

// IsError reports whether the status code is in the client or server error class.
func (s Status) IsError() bool {
	return s.Code >= codes.BadRequest
}

// Request is a decoded inbound request. It is a copy detached from the
// receive buffer and must be treated as read-only by handlers.
type Request struct {
	Type      message.Type
	Code      codes.Code
	MessageID uint16
	Token     message.Token
	Options   message.Options
	Payload   []byte
	Path      string
	From      netip.AddrPort
}

// Queries returns the URI-Query option values in order.
func (r *Request) Queries() []string {
	var q []string
	for _, opt := range r.Options {
		if opt.ID == message.URIQuery {
			q = append(q, string(opt.Value))
		}
	}
	return q
}

// Option returns the value of the first option with the given number.
func (r *Request) Option(id message.OptionID) ([]byte, bool) {
	for _, opt := range r.Options {
		if opt.ID == id {
			return opt.Value, true
		}
	}
	return nil, false
}
