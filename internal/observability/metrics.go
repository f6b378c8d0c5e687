package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	instancesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chores",
		Subsystem: "generator",
		Name:      "instances_created_total",
		Help:      "Number of chore instances materialised, by trigger.",
	}, []string{"trigger"})

	generationRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chores",
		Subsystem: "generator",
		Name:      "runs_total",
		Help:      "Number of generation runs grouped by outcome.",
	}, []string{"outcome"})

	lastGenerationGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "chores",
		Subsystem: "generator",
		Name:      "last_run_timestamp_seconds",
		Help:      "Unix timestamp of the most recent generation run.",
	})

	instancesMissed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chores",
		Subsystem: "generator",
		Name:      "instances_missed_total",
		Help:      "Number of pending instances swept to missed.",
	})

	ratingsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "chores",
		Subsystem: "rewards",
		Name:      "ratings_total",
		Help:      "Number of participant ratings grouped by quality.",
	}, []string{"quality"})

	creditedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "chores",
		Subsystem: "rewards",
		Name:      "credited_minor_units_total",
		Help:      "Sum of rewards credited to child balances, in minor currency units.",
	})
)

func init() {
	prometheus.MustRegister(instancesGenerated, generationRuns, lastGenerationGauge, instancesMissed, ratingsCounter, creditedCounter)
}

// RecordGeneration records one generator run.
func RecordGeneration(trigger string, created int, failed bool, at time.Time) {
	outcome := "ok"
	if failed {
		outcome = "error"
	}
	generationRuns.WithLabelValues(outcome).Inc()
	if created > 0 {
		instancesGenerated.WithLabelValues(trigger).Add(float64(created))
	}
	if !at.IsZero() {
		lastGenerationGauge.Set(float64(at.Unix()))
	}
}

func RecordMissed(n int64) {
	if n > 0 {
		instancesMissed.Add(float64(n))
	}
}

// RecordRating counts one settled participant and the amount credited.
func RecordRating(quality string, credited int64) {
	ratingsCounter.WithLabelValues(quality).Inc()
	if credited > 0 {
		creditedCounter.Add(float64(credited))
	}
}
