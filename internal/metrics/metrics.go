// Package metrics holds the process-wide Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "rounds"

var (
	// llmLatency labels: purpose (question-gen, grading), status (ok, error).
	llmLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "llm",
		Name:      "request_duration_seconds",
		Help:      "LLM request latency in seconds",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
	}, []string{"purpose", "status"})

	questionsGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "questions",
		Name:      "generated_total",
		Help:      "Questions generated, by difficulty level",
	}, []string{"level"})

	retrievalFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "retrieval",
		Name:      "fallbacks_total",
		Help:      "Retrievals that fell back to unrestricted chunk kinds",
	})

	// gradeScores observes the clamped total score of each graded answer.
	gradeScores = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "grading",
		Name:      "total_score",
		Help:      "Distribution of graded total scores",
		Buckets:   []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	// levelTransitions labels: direction (advance, hold, regress).
	levelTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "transitions_total",
		Help:      "Mastery level decisions by direction",
	}, []string{"direction"})

	snapshotConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "mastery",
		Name:      "snapshot_conflicts_total",
		Help:      "Optimistic snapshot updates that lost a race and were retried",
	})

	// chunkCache labels: result (hit, miss, error).
	chunkCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "chunkcache",
		Name:      "lookups_total",
		Help:      "Chunk cache lookups by result",
	}, []string{"result"})

	// httpRequests labels: route, method, code.
	httpRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   prometheus.DefBuckets,
	}, []string{"route", "method", "code"})
)

func status(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}

func ObserveLLMRequest(purpose string, ok bool, elapsed time.Duration) {
	llmLatency.WithLabelValues(purpose, status(ok)).Observe(elapsed.Seconds())
}

func QuestionGenerated(level int, fallback bool) {
	questionsGenerated.WithLabelValues(levelLabel(level)).Inc()
	if fallback {
		retrievalFallbacks.Inc()
	}
}

func AnswerGraded(total float64, levelDelta int) {
	gradeScores.Observe(total)
	switch {
	case levelDelta > 0:
		levelTransitions.WithLabelValues("advance").Inc()
	case levelDelta < 0:
		levelTransitions.WithLabelValues("regress").Inc()
	default:
		levelTransitions.WithLabelValues("hold").Inc()
	}
}

func SnapshotConflict() {
	snapshotConflicts.Inc()
}

// ChunkCacheLookup records a cache lookup; result is hit, miss or error.
func ChunkCacheLookup(result string) {
	chunkCache.WithLabelValues(result).Inc()
}

func ObserveHTTPRequest(route, method, code string, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, code).Observe(elapsed.Seconds())
}

func levelLabel(level int) string {
	if level < 1 || level > 5 {
		return "unknown"
	}
	return string(rune('0' + level))
}
