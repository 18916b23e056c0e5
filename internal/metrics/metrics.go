package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Submissions by configuration and interpretation tier
	Submissions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_submissions_total",
			Help: "Total number of scored assessments",
		},
		[]string{"config", "tier"},
	)

	// Persistence outcomes: status is success, failure or skipped
	Persistence = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_persist_total",
			Help: "Result writes to the row store",
		},
		[]string{"config", "status"},
	)

	// Narrative outcomes: status is success, empty, failure or skipped
	Narratives = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_narrative_total",
			Help: "Action plan generation attempts",
		},
		[]string{"config", "status"},
	)

	NarrativeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readiness_narrative_duration_seconds",
			Help:    "Time spent waiting for the text-generation service",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		},
		[]string{"config"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readiness_sessions_active",
			Help: "Sessions currently held in memory",
		},
	)

	// Answer selections that no longer resolve against the catalog
	AnswerMismatches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readiness_answer_mismatch_total",
			Help: "Selections that did not match any option of the question",
		},
		[]string{"config"},
	)
)

func Handler() http.Handler { return promhttp.Handler() }
