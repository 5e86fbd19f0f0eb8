// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package errors provides structured error handling for mcoap.
package errors

import (
	"errors"
	"fmt"
)

// Common error types
var (
	// ErrMalformedPacket indicates a datagram that could not be decoded as CoAP.
	ErrMalformedPacket = errors.New("malformed packet")

	// ErrUnknownResource indicates that no resource is registered at the path.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrObserveNotSupported indicates an Observe request on a non-observable resource.
	ErrObserveNotSupported = errors.New("observe not supported")

	// ErrUnsupportedCode indicates a message code the server does not handle.
	ErrUnsupportedCode = errors.New("unsupported code")

	// ErrNoTransport indicates that no transport is configured.
	ErrNoTransport = errors.New("no transport configured")

	// ErrTransportClosed indicates the transport is not running.
	ErrTransportClosed = errors.New("transport closed")

	// ErrRateLimited indicates rate limit exceeded.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrQueueFull indicates the inbound datagram queue is full.
	ErrQueueFull = errors.New("queue full")
)

// DispatchError wraps an error with the context of the datagram being handled.
type DispatchError struct {
	Op         string // Operation that failed
	RemoteAddr string // Sender address
	Path       string // Target path, if known
	Err        error  // Underlying error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("coap %s %s /%s: %v", e.Op, e.RemoteAddr, e.Path, e.Err)
	}
	return fmt.Sprintf("coap %s %s: %v", e.Op, e.RemoteAddr, e.Err)
}

// Unwrap returns the underlying error.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// New creates a new DispatchError.
func New(op, remoteAddr, path string, err error) error {
	if err == nil {
		return nil
	}
	return &DispatchError{
		Op:         op,
		RemoteAddr: remoteAddr,
		Path:       path,
		Err:        err,
	}
}

// Wrap wraps an error with context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
