// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package coap implements a CoAP (RFC 7252) server with Observe (RFC 7641)
// and resource discovery (RFC 6690).
//
// # Dispatch
//
// Every inbound datagram is decoded and routed by code and type:
//
//   - Empty CON: answered with an empty Reset (CoAP ping)
//   - Empty RST: every observation held by the sender is cancelled
//   - GET/PUT/POST/DELETE: looked up by URI path and handed to the resource
//   - GET /.well-known/core: the link-format directory, unless a resource
//     is registered at that path
//   - Anything else: dropped, reported through Handler.OnDrop
//
// Replies to CON requests are piggybacked ACKs, replies to NON requests are
// NON. Message ID and token are echoed. Responses from a resource always
// carry its Content-Format. 4.04 responses carry no options.
//
// # Observe
//
// A GET with Observe=0 on an observable resource registers (or refreshes)
// the (endpoint, token) pair and the response carries Observe=1. A GET
// with Observe=1 cancels. Observe on a non-observable resource yields 4.05.
//
// Notifications are CON messages sent by NotifyObservers. Each carries the
// observer's next message ID and sequence number, the resource path as
// URI-Path options and its Content-Format.
//
// # Usage
//
//	t := udp.New(udp.Config{Logger: logger})
//	srv := coap.New(coap.Config{Logger: logger}, t, nil)
//	temp := srv.CreateResource("temp", message.TextPlain, true).
//		OnGet(func(req *resource.Request) resource.Status {
//			return resource.Content([]byte("21.5"))
//		})
//	go srv.ListenAndServe(ctx)
//	temp.Notify(ctx, resource.Content([]byte("22.0")))
package coap
