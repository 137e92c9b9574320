package rules

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// evaluationsTotal counts criteria-set evaluations.
	// Labels: source (default or inline), outcome (overall outcome)
	evaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trialgate",
		Subsystem: "rules",
		Name:      "evaluations_total",
		Help:      "Criteria-set evaluations by overall outcome",
	}, []string{"source", "outcome"})

	// criterionOutcomes counts per-criterion verdicts.
	// Labels: rule, outcome
	criterionOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "trialgate",
		Subsystem: "rules",
		Name:      "criterion_outcomes_total",
		Help:      "Criterion verdicts by rule and outcome",
	}, []string{"rule", "outcome"})

	// evaluationLatency measures one criteria-set evaluation.
	evaluationLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "trialgate",
		Subsystem: "rules",
		Name:      "evaluation_seconds",
		Help:      "Criteria-set evaluation latency in seconds",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
)

func recordEvaluation(source string, report *Report, elapsed time.Duration) {
	evaluationsTotal.WithLabelValues(source, report.Overall.Outcome().String()).Inc()
	for _, r := range report.Results {
		criterionOutcomes.WithLabelValues(string(r.Rule), r.Verdict.Outcome().String()).Inc()
	}
	evaluationLatency.Observe(elapsed.Seconds())
}
