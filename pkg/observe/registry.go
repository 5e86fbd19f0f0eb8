// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package observe

import (
	"net/netip"
	"slices"
	"sort"
)

// Registry maps resource paths to their observers in registration order.
// A path never maps to an empty list.
//
// Registry does no locking; the owning server serializes access.
type Registry struct {
	paths map[string][]*Observer
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		paths: make(map[string][]*Observer),
	}
}

// Add registers o on path. An observer with the same identity already on
// path is replaced so a single notification never reaches a client twice.
func (r *Registry) Add(path string, o *Observer) {
	r.Remove(path, o)
	r.paths[path] = append(r.paths[path], o)
}

// Remove drops the observer with o's identity from path. With an empty
// path it is dropped from every path. Returns the number removed.
func (r *Registry) Remove(path string, o *Observer) int {
	return r.removeFunc(path, o.Is)
}

// RemoveEndpoint drops every observer registered from addr, regardless of
// token, using the same path rules as Remove. Returns the number removed.
func (r *Registry) RemoveEndpoint(path string, addr netip.AddrPort) int {
	return r.removeFunc(path, func(o *Observer) bool {
		return o.addr == addr
	})
}

func (r *Registry) removeFunc(path string, match func(*Observer) bool) int {
	if path != "" {
		return r.prune(path, match)
	}

	removed := 0
	for p := range r.paths {
		removed += r.prune(p, match)
	}
	return removed
}

func (r *Registry) prune(path string, match func(*Observer) bool) int {
	list, ok := r.paths[path]
	if !ok {
		return 0
	}

	before := len(list)
	list = slices.DeleteFunc(list, match)
	if len(list) == 0 {
		delete(r.paths, path)
	} else {
		r.paths[path] = list
	}
	return before - len(list)
}

// RemovePath drops all observers of path.
func (r *Registry) RemovePath(path string) int {
	n := len(r.paths[path])
	delete(r.paths, path)
	return n
}

// Observers returns the observers of path in registration order.
// The returned slice must not be modified.
func (r *Registry) Observers(path string) []*Observer {
	return r.paths[path]
}

// Paths returns the observed paths in lexical order.
func (r *Registry) Paths() []string {
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Len returns the total number of registrations across all paths.
func (r *Registry) Len() int {
	n := 0
	for _, list := range r.paths {
		n += len(list)
	}
	return n
}
