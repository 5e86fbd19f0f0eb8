// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package handler provides the hooks the CoAP server calls as it processes
// traffic.
//
// # Data Flow
//
//	Client → Transport → Server (dispatch) → Resource → Server → Client
//	                          ↓
//	                       Handler (OnRequest, OnSubscribe, OnDrop, ...)
//
// # Handler Methods
//
//   - OnRequest: a request was answered (Code holds the response code)
//   - OnSubscribe: an observer was registered or refreshed
//   - OnUnsubscribe: an observer was removed
//   - OnNotify: a notification was sent to one observer
//   - OnDrop: a datagram was discarded (malformed, unsupported code)
//
// Hooks are informational. The server logs their errors and carries on.
//
// # Context
//
// The Context struct carries the exchange metadata: server instance ID,
// client endpoint, message type, method, path, token and response code.
//
// # Example
//
//	type AuditHandler struct {
//		handler.NoopHandler
//		log *slog.Logger
//	}
//
//	func (h *AuditHandler) OnSubscribe(ctx context.Context, hctx *handler.Context) error {
//		h.log.Info("observe", slog.String("path", hctx.Path))
//		return nil
//	}
package handler
