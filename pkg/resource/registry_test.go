// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package resource

import (
	"context"
	"testing"

	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	calls []Status
}

func (n *recordingNotifier) NotifyObservers(ctx context.Context, r Resource, st Status) {
	n.calls = append(n.calls, st)
}

func TestRegistry_CreateAndLookup(t *testing.T) {
	reg := NewRegistry()

	temp := reg.Create("temp", message.TextPlain, true)
	require.NotNil(t, temp)

	got, ok := reg.Lookup("temp")
	require.True(t, ok)
	assert.Same(t, temp, got)

	own, ok := reg.Ownership("temp")
	require.True(t, ok)
	assert.Equal(t, Owned, own)
}

func TestRegistry_AddIsBorrowed(t *testing.T) {
	reg := NewRegistry()
	led := NewFunctional("led", message.TextPlain, false)

	reg.Add(led)

	got, ok := reg.Lookup("led")
	require.True(t, ok)
	assert.Same(t, led, got)

	own, _ := reg.Ownership("led")
	assert.Equal(t, Borrowed, own)
}

func TestRegistry_AddOverwrites(t *testing.T) {
	reg := NewRegistry()
	first := NewFunctional("led", message.TextPlain, false)
	second := NewFunctional("led", message.AppJSON, false)

	reg.Add(first)
	reg.Add(second)

	got, ok := reg.Lookup("led")
	require.True(t, ok)
	assert.Same(t, second, got)
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_RemoveUnknownIsNoop(t *testing.T) {
	reg := NewRegistry()
	reg.Create("temp", message.TextPlain, true)

	reg.Remove(NewFunctional("missing", message.TextPlain, false))

	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_Remove(t *testing.T) {
	reg := NewRegistry()
	temp := reg.Create("temp", message.TextPlain, true)
	reg.Create("led", message.TextPlain, false)

	reg.Remove(temp)

	_, ok := reg.Lookup("temp")
	assert.False(t, ok)
	require.Len(t, reg.All(), 1)
	assert.Equal(t, "led", reg.All()[0].Name())
}

func TestRegistry_LookupIsExact(t *testing.T) {
	reg := NewRegistry()
	reg.Create("sensors/temp", message.TextPlain, true)

	for _, path := range []string{"sensors", "sensors/", "/sensors/temp", "sensors/temp/x", "Sensors/Temp"} {
		_, ok := reg.Lookup(path)
		assert.False(t, ok, path)
	}
}

func TestRegistry_AllKeepsRegistrationOrder(t *testing.T) {
	reg := NewRegistry()
	for _, name := range []string{"temp", "led", "alpha"} {
		reg.Create(name, message.TextPlain, false)
	}

	var names []string
	for _, r := range reg.All() {
		names = append(names, r.Name())
	}
	assert.Equal(t, []string{"temp", "led", "alpha"}, names)
}

func TestRegistry_Close(t *testing.T) {
	reg := NewRegistry()
	owned := reg.Create("temp", message.TextPlain, true).
		OnGet(func(*Request) Status { return Content([]byte("21")) })
	borrowed := NewFunctional("led", message.TextPlain, false).
		OnGet(func(*Request) Status { return Content([]byte("on")) })
	reg.Add(borrowed)

	n := &recordingNotifier{}
	owned.Bind(n)
	borrowed.Bind(n)

	reg.Close()

	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.All())

	// Owned resources are released.
	assert.Equal(t, codes.MethodNotAllowed, owned.Get(&Request{}).Code)
	owned.Notify(context.Background(), Content(nil))
	assert.Empty(t, n.calls)

	// Borrowed resources are left alone.
	assert.Equal(t, "on", string(borrowed.Get(&Request{}).Payload))
	borrowed.Notify(context.Background(), Content(nil))
	assert.Len(t, n.calls, 1)
}

func TestFunctionalResource_Handlers(t *testing.T) {
	f := NewFunctional("led", message.TextPlain, false).
		OnPut(func(req *Request) Status { return Changed(req.Payload) }).
		OnPost(func(*Request) Status { return Created(nil) }).
		OnDelete(func(*Request) Status { return Deleted() })

	tests := []struct {
		name string
		call func(*Request) Status
		code codes.Code
	}{
		{name: "GET without handler", call: f.Get, code: codes.MethodNotAllowed},
		{name: "PUT", call: f.Put, code: codes.Changed},
		{name: "POST", call: f.Post, code: codes.Created},
		{name: "DELETE", call: f.Delete, code: codes.Deleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := tt.call(&Request{Payload: []byte("1")})
			assert.Equal(t, tt.code, st.Code)
		})
	}
}

func TestFunctionalResource_Metadata(t *testing.T) {
	f := NewFunctional("temp", message.AppJSON, true).
		SetResourceType("temperature").
		SetInterfaceDescription("sensor").
		SetTitle("Room").
		SetMaxSizeEstimate(64)

	assert.Equal(t, "temp", f.Name())
	assert.Equal(t, message.AppJSON, f.ContentFormat())
	assert.True(t, f.Observable())
	assert.Equal(t, "temperature", f.ResourceType())
	assert.Equal(t, "sensor", f.InterfaceDescription())
	assert.Equal(t, "Room", f.Title())
	assert.Equal(t, uint64(64), f.MaxSizeEstimate())
}

func TestStatus_IsError(t *testing.T) {
	assert.False(t, Content(nil).IsError())
	assert.False(t, Changed(nil).IsError())
	assert.True(t, NotFound().IsError())
	assert.True(t, MethodNotAllowed().IsError())
	assert.True(t, Status{Code: codes.InternalServerError}.IsError())
}

func TestRequest_Queries(t *testing.T) {
	req := &Request{
		Options: message.Options{
			{ID: message.URIPath, Value: []byte("temp")},
			{ID: message.URIQuery, Value: []byte("unit=c")},
			{ID: message.URIQuery, Value: []byte("precision=1")},
		},
	}

	assert.Equal(t, []string{"unit=c", "precision=1"}, req.Queries())

	v, ok := req.Option(message.URIPath)
	require.True(t, ok)
	assert.Equal(t, "temp", string(v))

	_, ok = req.Option(message.Observe)
	assert.False(t, ok)
}
