// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"

	"github.com/plgd-dev/go-coap/v3/message"
)

// HandlerFunc handles one method of a FunctionalResource.
type HandlerFunc func(req *Request) Status

var (
	_ Resource = (*FunctionalResource)(nil)
	_ Binder   = (*FunctionalResource)(nil)
)

// FunctionalResource is a Resource whose method behavior is supplied by
// the caller as plain functions. Methods without a handler answer 4.05.
//
// Configure a FunctionalResource before the server starts serving; it is
// not safe to swap handlers while requests are being dispatched.
type FunctionalResource struct {
	name         string
	format       message.MediaType
	observable   bool
	rt           string
	iface        string
	title        string
	sizeEstimate uint64

	get    HandlerFunc
	put    HandlerFunc
	post   HandlerFunc
	delete HandlerFunc

	notifier Notifier
}

// NewFunctional creates a FunctionalResource with no method handlers.
func NewFunctional(name string, format message.MediaType, observable bool) *FunctionalResource {
	return &FunctionalResource{
		name:       name,
		format:     format,
		observable: observable,
	}
}

func (f *FunctionalResource) Name() string                     { return f.name }
func (f *FunctionalResource) ContentFormat() message.MediaType { return f.format }
func (f *FunctionalResource) Observable() bool                 { return f.observable }
func (f *FunctionalResource) ResourceType() string             { return f.rt }
func (f *FunctionalResource) InterfaceDescription() string     { return f.iface }
func (f *FunctionalResource) Title() string                    { return f.title }
func (f *FunctionalResource) MaxSizeEstimate() uint64          { return f.sizeEstimate }

// SetResourceType sets the "rt" link attribute.
func (f *FunctionalResource) SetResourceType(rt string) *FunctionalResource {
	f.rt = rt
	return f
}

// SetInterfaceDescription sets the "if" link attribute.
func (f *FunctionalResource) SetInterfaceDescription(iface string) *FunctionalResource {
	f.iface = iface
	return f
}

// SetTitle sets the "title" link attribute.
func (f *FunctionalResource) SetTitle(title string) *FunctionalResource {
	f.title = title
	return f
}

// SetMaxSizeEstimate sets the "sz" link attribute.
func (f *FunctionalResource) SetMaxSizeEstimate(sz uint64) *FunctionalResource {
	f.sizeEstimate = sz
	return f
}

func (f *FunctionalResource) OnGet(h HandlerFunc) *FunctionalResource {
	f.get = h
	return f
}

func (f *FunctionalResource) OnPut(h HandlerFunc) *FunctionalResource {
	f.put = h
	return f
}

func (f *FunctionalResource) OnPost(h HandlerFunc) *FunctionalResource {
	f.post = h
	return f
}

func (f *FunctionalResource) OnDelete(h HandlerFunc) *FunctionalResource {
	f.delete = h
	return f
}

func (f *FunctionalResource) Get(req *Request) Status    { return call(f.get, req) }
func (f *FunctionalResource) Put(req *Request) Status    { return call(f.put, req) }
func (f *FunctionalResource) Post(req *Request) Status   { return call(f.post, req) }
func (f *FunctionalResource) Delete(req *Request) Status { return call(f.delete, req) }

// Bind implements Binder.
func (f *FunctionalResource) Bind(n Notifier) {
	f.notifier = n
}

// Notify sends st to every observer of this resource. It does nothing
// until the resource is registered with a server.
func (f *FunctionalResource) Notify(ctx context.Context, st Status) {
	if f.notifier == nil {
		return
	}
	f.notifier.NotifyObservers(ctx, f, st)
}

// release drops handlers and the server binding.
func (f *FunctionalResource) release() {
	f.get, f.put, f.post, f.delete = nil, nil, nil, nil
	f.notifier = nil
}

func call(h HandlerFunc, req *Request) Status {
	if h == nil {
		return MethodNotAllowed()
	}
	return h(req)
}
