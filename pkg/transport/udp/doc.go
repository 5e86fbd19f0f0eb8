// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package udp implements the CoAP server's UDP transport.
//
// # Overview
//
// The transport owns one UDP socket. A reader goroutine copies each
// datagram out of a pooled buffer into a bounded queue; Read drains that
// queue without blocking, which is what the server's poll loop expects.
//
//	┌────────┐  UDP  ┌────────────┐  queue  ┌──────┐  Dispatch  ┌────────┐
//	│ Client │ ────→ │ readLoop   │ ──────→ │ Read │ ─────────→ │ Server │
//	└────────┘       └────────────┘         └──────┘            └────────┘
//	     ↑                                                           │
//	     └──────────────────────── Send ─────────────────────────────┘
//
// # Dropping
//
// UDP delivery is best effort and CoAP clients retransmit Confirmable
// requests, so the transport sheds load by dropping instead of blocking:
//
//   - the queue is full
//   - the sender exceeds its ratelimit.Limiter budget
//
// Dropped counts both.
//
// # Example
//
//	t := udp.New(udp.Config{
//		Host:    "0.0.0.0",
//		Limiter: ratelimit.NewLimiter(100, 10, 10000),
//	})
//	srv := coap.New(coap.Config{Port: 5683}, t, nil)
//	if err := srv.ListenAndServe(ctx); err != nil {
//		log.Fatal(err)
//	}
package udp
