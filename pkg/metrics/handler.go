// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"context"

	"github.com/absmach/mcoap/pkg/handler"
)

var _ handler.Handler = (*Handler)(nil)

// Handler records dispatch events and forwards them to the next handler.
type Handler struct {
	next    handler.Handler
	metrics *Metrics
}

// NewHandler wraps next with instrumentation. A nil next is replaced by
// handler.NoopHandler.
func NewHandler(next handler.Handler, m *Metrics) *Handler {
	if next == nil {
		next = &handler.NoopHandler{}
	}
	return &Handler{next: next, metrics: m}
}

func (h *Handler) OnRequest(ctx context.Context, hctx *handler.Context) error {
	h.metrics.RequestsTotal.WithLabelValues(hctx.Method.String(), hctx.Code.String()).Inc()
	return h.forward("OnRequest", h.next.OnRequest(ctx, hctx))
}

func (h *Handler) OnSubscribe(ctx context.Context, hctx *handler.Context) error {
	h.metrics.SubscriptionsTotal.WithLabelValues("subscribe").Inc()
	return h.forward("OnSubscribe", h.next.OnSubscribe(ctx, hctx))
}

func (h *Handler) OnUnsubscribe(ctx context.Context, hctx *handler.Context) error {
	h.metrics.SubscriptionsTotal.WithLabelValues("unsubscribe").Inc()
	return h.forward("OnUnsubscribe", h.next.OnUnsubscribe(ctx, hctx))
}

func (h *Handler) OnNotify(ctx context.Context, hctx *handler.Context) error {
	h.metrics.NotificationsTotal.WithLabelValues(hctx.Path, hctx.Code.String()).Inc()
	return h.forward("OnNotify", h.next.OnNotify(ctx, hctx))
}

func (h *Handler) OnDrop(ctx context.Context, hctx *handler.Context, err error) error {
	h.metrics.Drop(err)
	return h.forward("OnDrop", h.next.OnDrop(ctx, hctx, err))
}

func (h *Handler) forward(hook string, err error) error {
	if err != nil {
		h.metrics.HandlerErrors.WithLabelValues(hook).Inc()
	}
	return err
}
