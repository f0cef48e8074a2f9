package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sessions_created_total",
		Help: "Total number of sessions created",
	})

	sessionValidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "session_validations_total",
			Help: "Session validations by result",
		},
		[]string{"result"},
	)

	quotaDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "quota_denials_total",
			Help: "Requests rejected because a plan quota was exhausted",
		},
		[]string{"feature"},
	)
)
