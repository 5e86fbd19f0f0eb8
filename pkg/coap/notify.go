// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package coap

import (
	"context"
	"log/slog"
	"net/netip"

	"github.com/absmach/mcoap/pkg/handler"
	"github.com/absmach/mcoap/pkg/resource"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
)

type notification struct {
	data  []byte
	addr  netip.AddrPort
	token message.Token
}

// NotifyObservers sends st as a confirmable notification to every observer
// of r. Each observer gets its own message ID and Observe sequence number.
// A zero status code is sent as 2.05 Content. An error-class status ends
// the observation: the path's observers are removed after delivery.
func (s *Server) NotifyObservers(ctx context.Context, r resource.Resource, st resource.Status) {
	path := r.Name()
	code := st.Code
	if code == codes.Empty {
		code = codes.Content
	}

	s.mu.Lock()
	observers := s.observers.Observers(path)
	if len(observers) == 0 {
		s.mu.Unlock()
		return
	}

	out := make([]notification, 0, len(observers))
	for _, o := range observers {
		opts := message.Options{ObserveOption(uint32(o.NextSequence()))}
		opts = append(opts, URIPathOptions(path)...)
		opts = append(opts, ContentFormatOption(r.ContentFormat()))

		data, err := encode(ctx, reply{
			typ:       message.Confirmable,
			code:      code,
			messageID: o.NextMessageID(),
			token:     o.Token(),
			options:   opts,
			payload:   st.Payload,
		})
		if err != nil {
			s.config.Logger.Warn("failed to encode notification",
				slog.String("observer", o.String()),
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		out = append(out, notification{data: data, addr: o.Addr(), token: o.Token()})
	}
	if code >= codes.BadRequest {
		s.observers.RemovePath(path)
	}
	s.mu.Unlock()

	for _, n := range out {
		s.send(n.data, n.addr)
		hctx := &handler.Context{
			ServerID:   s.config.ID,
			RemoteAddr: n.addr,
			Type:       message.Confirmable,
			Path:       path,
			Token:      n.token,
			Code:       code,
		}
		s.hook("OnNotify", func() error { return s.handler.OnNotify(ctx, hctx) })
	}
}
