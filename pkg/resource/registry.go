// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package resource

import "github.com/plgd-dev/go-coap/v3/message"

// Ownership tells who is responsible for a registered resource's lifetime.
type Ownership int

const (
	// Borrowed resources were added by the caller, who keeps ownership.
	// The registry only drops its reference to them.
	Borrowed Ownership = iota

	// Owned resources were allocated by Registry.Create and are released
	// by Registry.Close.
	Owned
)

// String returns a string representation of the ownership.
func (o Ownership) String() string {
	switch o {
	case Borrowed:
		return "borrowed"
	case Owned:
		return "owned"
	default:
		return "unknown"
	}
}

type entry struct {
	res Resource
	own Ownership
}

// Registry maps paths to resources. Registration order is preserved and
// drives the order of the discovery listing.
//
// Registry does no locking; the owning server serializes access.
type Registry struct {
	entries map[string]*entry
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*entry),
	}
}

// Create allocates a FunctionalResource, registers it and returns it.
// The registry owns the returned resource.
func (r *Registry) Create(name string, format message.MediaType, observable bool) *FunctionalResource {
	f := NewFunctional(name, format, observable)
	r.put(f, Owned)
	return f
}

// Add registers a caller-owned resource under its name, silently replacing
// any resource already registered at that path.
func (r *Registry) Add(res Resource) {
	r.put(res, Borrowed)
}

func (r *Registry) put(res Resource, own Ownership) {
	name := res.Name()
	if e, ok := r.entries[name]; ok {
		e.res, e.own = res, own
		return
	}
	r.entries[name] = &entry{res: res, own: own}
	r.order = append(r.order, name)
}

// Remove unregisters whatever is registered under res's name.
// Removing an unknown resource is a no-op.
func (r *Registry) Remove(res Resource) {
	r.remove(res.Name())
}

func (r *Registry) remove(name string) {
	if _, ok := r.entries[name]; !ok {
		return
	}
	delete(r.entries, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Lookup returns the resource registered at exactly path.
func (r *Registry) Lookup(path string) (Resource, bool) {
	e, ok := r.entries[path]
	if !ok {
		return nil, false
	}
	return e.res, true
}

// Ownership reports who owns the resource registered at path.
func (r *Registry) Ownership(path string) (Ownership, bool) {
	e, ok := r.entries[path]
	if !ok {
		return Borrowed, false
	}
	return e.own, true
}

// All returns the registered resources in registration order.
func (r *Registry) All() []Resource {
	res := make([]Resource, 0, len(r.order))
	for _, name := range r.order {
		res = append(res, r.entries[name].res)
	}
	return res
}

// Len returns the number of registered resources.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Close empties the registry. Owned resources are released; borrowed
// resources are only unregistered and stay usable by their owner.
func (r *Registry) Close() {
	for _, name := range r.order {
		e := r.entries[name]
		if e.own != Owned {
			continue
		}
		if f, ok := e.res.(*FunctionalResource); ok {
			f.release()
		}
	}
	r.entries = make(map[string]*entry)
	r.order = nil
}
