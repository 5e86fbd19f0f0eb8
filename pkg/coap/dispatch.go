// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package coap

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/netip"

	"github.com/absmach/mcoap/pkg/errors"
	"github.com/absmach/mcoap/pkg/handler"
	"github.com/absmach/mcoap/pkg/linkformat"
	"github.com/absmach/mcoap/pkg/observe"
	"github.com/absmach/mcoap/pkg/resource"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp/coder"
)

// reply is an outbound message before encoding.
type reply struct {
	typ       message.Type
	code      codes.Code
	messageID uint16
	token     message.Token
	options   message.Options
	payload   []byte
}

// Dispatch decodes one inbound datagram from the client at from and
// returns the encoded reply, or nil when nothing must be sent back.
//
// Malformed datagrams and unsupported codes are reported as errors and
// produce no reply. Resource-level failures are not errors: they become
// 4.xx responses.
func (s *Server) Dispatch(ctx context.Context, data []byte, from netip.AddrPort) ([]byte, error) {
	req, err := decode(ctx, data, from)
	if err != nil {
		err = errors.New("decode", from.String(), "", err)
		s.drop(ctx, &handler.Context{ServerID: s.config.ID, RemoteAddr: from}, err)
		return nil, err
	}

	switch req.Code {
	case codes.Empty:
		return s.dispatchEmpty(ctx, req)
	case codes.GET, codes.PUT, codes.POST, codes.DELETE:
		return s.dispatchRequest(ctx, req)
	default:
		err := errors.New("dispatch", from.String(), req.Path,
			fmt.Errorf("%w: %v", errors.ErrUnsupportedCode, req.Code))
		s.drop(ctx, s.hookContext(req), err)
		return nil, err
	}
}

// dispatchEmpty answers a CON ping with a Reset and treats an inbound
// Reset as the cancellation of every observation held by the sender.
func (s *Server) dispatchEmpty(ctx context.Context, req *resource.Request) ([]byte, error) {
	hctx := s.hookContext(req)

	switch req.Type {
	case message.Confirmable:
		data, err := encode(ctx, reply{
			typ:       message.Reset,
			code:      codes.Empty,
			messageID: req.MessageID,
			token:     req.Token,
		})
		if err != nil {
			return nil, errors.New("ping", req.From.String(), "", err)
		}
		s.hook("OnRequest", func() error { return s.handler.OnRequest(ctx, hctx) })
		return data, nil

	case message.Reset:
		s.mu.Lock()
		removed := s.observers.RemoveEndpoint("", req.From)
		s.mu.Unlock()

		if removed > 0 {
			s.config.Logger.Debug("observations cancelled by reset",
				slog.String("client", req.From.String()),
				slog.Int("removed", removed))
			s.hook("OnUnsubscribe", func() error { return s.handler.OnUnsubscribe(ctx, hctx) })
		}
		return nil, nil

	default:
		return nil, nil
	}
}

func (s *Server) dispatchRequest(ctx context.Context, req *resource.Request) ([]byte, error) {
	rep := reply{
		typ:       message.NonConfirmable,
		messageID: req.MessageID,
		token:     req.Token,
	}
	if req.Type == message.Confirmable {
		rep.typ = message.Acknowledgement
	}
	hctx := s.hookContext(req)

	s.mu.Lock()
	res, ok := s.resources.Lookup(req.Path)
	if !ok {
		if req.Code == codes.GET && req.Path == linkformat.Path {
			rep.code = codes.Content
			rep.options = message.Options{ContentFormatOption(message.AppLinkFormat)}
			rep.payload = []byte(linkformat.Encode(s.resources.All()))
		} else {
			rep.code = codes.NotFound
			s.config.Logger.Debug("request rejected",
				slog.String("error", errors.New("lookup", req.From.String(), req.Path, errors.ErrUnknownResource).Error()))
		}
		s.mu.Unlock()
		return s.respond(ctx, hctx, rep)
	}
	s.mu.Unlock()

	var st resource.Status
	switch req.Code {
	case codes.GET:
		st = s.get(ctx, res, req, hctx, &rep)
	case codes.PUT:
		st = res.Put(req)
	case codes.POST:
		st = res.Post(req)
	case codes.DELETE:
		st = res.Delete(req)
	}

	rep.code = st.Code
	rep.payload = st.Payload
	rep.options = append(rep.options, ContentFormatOption(res.ContentFormat()))
	return s.respond(ctx, hctx, rep)
}

// get handles Observe registration and cancellation before invoking the
// GET handler. A successful registration adds the initial Observe option
// to rep.
func (s *Server) get(ctx context.Context, res resource.Resource, req *resource.Request, hctx *handler.Context, rep *reply) resource.Status {
	opt, observing := observeOption(req.Options)
	if !observing {
		return res.Get(req)
	}
	if !res.Observable() {
		s.config.Logger.Debug("observe rejected",
			slog.String("client", req.From.String()),
			slog.String("path", req.Path),
			slog.String("error", errors.ErrObserveNotSupported.Error()))
		return resource.MethodNotAllowed()
	}

	o := observe.New(req.From, req.Token)
	if isObserveCancel(opt) {
		s.mu.Lock()
		removed := s.observers.Remove(req.Path, o)
		s.mu.Unlock()

		if removed > 0 {
			s.hook("OnUnsubscribe", func() error { return s.handler.OnUnsubscribe(ctx, hctx) })
		}
		return res.Get(req)
	}

	seq := o.NextSequence()
	s.mu.Lock()
	s.observers.Add(req.Path, o)
	s.mu.Unlock()

	rep.options = append(rep.options, ObserveOption(uint32(seq)))
	s.hook("OnSubscribe", func() error { return s.handler.OnSubscribe(ctx, hctx) })
	return res.Get(req)
}

func (s *Server) respond(ctx context.Context, hctx *handler.Context, rep reply) ([]byte, error) {
	data, err := encode(ctx, rep)
	if err != nil {
		return nil, errors.New("respond", hctx.RemoteAddr.String(), hctx.Path, err)
	}
	hctx.Code = rep.code
	s.hook("OnRequest", func() error { return s.handler.OnRequest(ctx, hctx) })
	return data, nil
}

func (s *Server) drop(ctx context.Context, hctx *handler.Context, err error) {
	if hookErr := s.handler.OnDrop(ctx, hctx, err); hookErr != nil {
		s.config.Logger.Error("handler error",
			slog.String("hook", "OnDrop"),
			slog.String("error", hookErr.Error()))
	}
}

func (s *Server) hookContext(req *resource.Request) *handler.Context {
	return &handler.Context{
		ServerID:   s.config.ID,
		RemoteAddr: req.From,
		Type:       req.Type,
		Method:     req.Code,
		Path:       req.Path,
		Token:      req.Token,
	}
}

// decode parses data into a Request detached from the pooled message.
func decode(ctx context.Context, data []byte, from netip.AddrPort) (*resource.Request, error) {
	msg := pool.NewMessage(ctx)
	defer msg.Reset()

	if _, err := msg.UnmarshalWithDecoder(coder.DefaultCoder, data); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedPacket, err)
	}

	payload, err := msg.ReadBody()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedPacket, err)
	}

	opts := make(message.Options, 0, len(msg.Options()))
	for _, opt := range msg.Options() {
		opts = append(opts, message.Option{ID: opt.ID, Value: bytes.Clone(opt.Value)})
	}

	return &resource.Request{
		Type:      msg.Type(),
		Code:      msg.Code(),
		MessageID: uint16(msg.MessageID()),
		Token:     message.Token(bytes.Clone(msg.Token())),
		Options:   opts,
		Payload:   bytes.Clone(payload),
		Path:      requestPath(opts),
		From:      from,
	}, nil
}

func encode(ctx context.Context, rep reply) ([]byte, error) {
	msg := pool.NewMessage(ctx)
	defer msg.Reset()

	msg.SetType(rep.typ)
	msg.SetCode(rep.code)
	msg.SetMessageID(int32(rep.messageID))
	msg.SetToken(rep.token)
	for _, opt := range rep.options {
		msg.AddOptionBytes(opt.ID, opt.Value)
	}
	if len(rep.payload) > 0 {
		msg.SetBody(bytes.NewReader(rep.payload))
	}

	data, err := msg.MarshalWithEncoder(coder.DefaultCoder)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal CoAP message: %w", err)
	}
	return bytes.Clone(data), nil
}
