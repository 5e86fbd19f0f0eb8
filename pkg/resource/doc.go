// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package resource defines the CoAP resource model and the registry the
// dispatcher routes requests through.
//
// # Resources
//
// A Resource exposes four method handlers (Get, Put, Post, Delete) and the
// metadata published by RFC 6690 discovery: content format, observability,
// resource type, interface description, title and size estimate.
// FunctionalResource is the ready-made implementation whose handlers are
// plain functions:
//
//	temp := resource.NewFunctional("temp", message.TextPlain, true).
//		SetResourceType("temperature").
//		OnGet(func(*resource.Request) resource.Status {
//			return resource.Content([]byte("21.5"))
//		})
//
// # Ownership
//
// Resources enter a Registry two ways, and the registry records which:
//
//   - Create allocates a FunctionalResource that the registry owns. Close
//     releases it.
//   - Add registers a resource the caller keeps owning. Close only drops
//     the registry's reference; the caller remains responsible for it.
//
// Lookup is exact string matching on the path. There are no wildcards.
package resource
