package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	keysIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyward_keys_issued_total",
		Help: "Number of API keys issued.",
	})
	keysRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "keyward_keys_revoked_total",
		Help: "Number of API key revocations accepted.",
	})
)
