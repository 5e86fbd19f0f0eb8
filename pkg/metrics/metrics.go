// Copyright (c) Abstract Machines
// SPDX-License-Identifier: Apache-2.0

// Package metrics provides Prometheus instrumentation for the CoAP server.
package metrics

import (
	"github.com/absmach/mcoap/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const defaultNamespace = "mcoap"

// Metrics holds all Prometheus metrics for the CoAP server.
type Metrics struct {
	// Exchange metrics
	RequestsTotal *prometheus.CounterVec
	DroppedTotal  *prometheus.CounterVec

	// Observe metrics
	SubscriptionsTotal *prometheus.CounterVec
	NotificationsTotal *prometheus.CounterVec

	// Hook metrics
	HandlerErrors *prometheus.CounterVec

	factory   promauto.Factory
	namespace string
}

// New creates the server metrics and registers them with reg. A nil reg
// registers with the default Prometheus registry.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of CoAP requests answered",
			},
			[]string{"method", "code"},
		),
		DroppedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dropped_total",
				Help:      "Total number of inbound datagrams dropped without reply",
			},
			[]string{"reason"},
		),
		SubscriptionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "subscriptions_total",
				Help:      "Total number of observe registrations and cancellations",
			},
			[]string{"event"},
		),
		NotificationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "notifications_total",
				Help:      "Total number of notifications sent to observers",
			},
			[]string{"path", "code"},
		),
		HandlerErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "handler_errors_total",
				Help:      "Total number of errors returned by the wrapped handler",
			},
			[]string{"hook"},
		),
		factory:   factory,
		namespace: namespace,
	}
}

// Gauge registers a gauge sampled from fn at scrape time, e.g. the number
// of active observers.
func (m *Metrics) Gauge(name, help string, fn func() float64) prometheus.GaugeFunc {
	return m.factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// Counter registers a counter sampled from fn at scrape time, e.g. the
// datagrams a transport dropped.
func (m *Metrics) Counter(name, help string, fn func() float64) prometheus.CounterFunc {
	return m.factory.NewCounterFunc(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      name,
		Help:      help,
	}, fn)
}

// Drop counts a datagram the transport discarded before dispatch.
func (m *Metrics) Drop(err error) {
	m.DroppedTotal.WithLabelValues(dropReason(err)).Inc()
}

// dropReason maps a drop error to a low-cardinality label value.
func dropReason(err error) string {
	switch {
	case errors.Is(err, errors.ErrMalformedPacket):
		return "malformed"
	case errors.Is(err, errors.ErrUnsupportedCode):
		return "unsupported_code"
	case errors.Is(err, errors.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, errors.ErrQueueFull):
		return "queue_full"
	default:
		return "other"
	}
}
