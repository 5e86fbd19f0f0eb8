// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package observe keeps track of RFC 7641 Observe registrations.
//
// An Observer is identified by the client endpoint (address and port) and
// the request token. Registering the same identity twice on a path
// replaces the first registration. Each Observer carries its own
// notification message ID and Observe sequence counters, so clients
// observing the same resource never share numbering.
//
// Removing with an empty path removes the identity from every path. This
// is how a Reset message cancels all of a client's registrations.
package observe
