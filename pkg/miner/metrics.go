package miner

import "github.com/prometheus/client_golang/prometheus"

var (
	candidatesEvaluated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "migration",
		Subsystem: "miner",
		Name:      "candidates_evaluated_total",
		Help:      "Number of obsolete tag candidates hashed.",
	})

	jobOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "migration",
		Subsystem: "miner",
		Name:      "jobs_total",
		Help:      "Number of mining jobs by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(candidatesEvaluated, jobOutcomes)
}
