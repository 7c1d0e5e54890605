package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymail_events_total",
		Help: "Events consumed from notification channels, by outcome.",
	}, []string{"tenant", "outcome"})

	sendsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymail_sends_total",
		Help: "Outbound mail submissions, by result.",
	}, []string{"tenant", "result"})

	reconnectsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymail_reconnects_total",
		Help: "Subscription connection losses that forced a reconnect.",
	}, []string{"tenant"})

	workerRestartsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymail_worker_restarts_total",
		Help: "Tenant workers restarted by the supervisor.",
	}, []string{"tenant"})

	tokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relaymail_token_refreshes_total",
		Help: "Client-credentials grants performed, by identity tenant.",
	}, []string{"identity_tenant"})
)

const (
	outcomeSent         = "sent"
	outcomeDecodeError  = "decode_error"
	outcomeNotFound     = "not_found"
	outcomeResolveError = "resolve_error"
	outcomeSendError    = "send_error"
)
