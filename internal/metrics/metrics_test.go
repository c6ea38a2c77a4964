package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestAnswerGraded_Direction(t *testing.T) {
	before := testutil.ToFloat64(levelTransitions.WithLabelValues("regress"))
	AnswerGraded(3, -1)
	if got := testutil.ToFloat64(levelTransitions.WithLabelValues("regress")); got != before+1 {
		t.Errorf("regress counter = %v, want %v", got, before+1)
	}

	before = testutil.ToFloat64(levelTransitions.WithLabelValues("hold"))
	AnswerGraded(7, 0)
	if got := testutil.ToFloat64(levelTransitions.WithLabelValues("hold")); got != before+1 {
		t.Errorf("hold counter = %v, want %v", got, before+1)
	}
}

func TestQuestionGenerated_CountsFallback(t *testing.T) {
	before := testutil.ToFloat64(retrievalFallbacks)
	QuestionGenerated(4, true)
	QuestionGenerated(4, false)
	if got := testutil.ToFloat64(retrievalFallbacks); got != before+1 {
		t.Errorf("fallbacks = %v, want %v", got, before+1)
	}
	if got := testutil.ToFloat64(questionsGenerated.WithLabelValues("4")); got < 2 {
		t.Errorf("level 4 questions = %v, want >= 2", got)
	}
}

func TestLevelLabel(t *testing.T) {
	for level, want := range map[int]string{1: "1", 5: "5", 0: "unknown", 6: "unknown"} {
		if got := levelLabel(level); got != want {
			t.Errorf("levelLabel(%d) = %q, want %q", level, got, want)
		}
	}
}

func TestObserveLLMRequest(t *testing.T) {
	ObserveLLMRequest("grading", false, 150*time.Millisecond)
	if n := testutil.CollectAndCount(llmLatency); n == 0 {
		t.Error("expected at least one llm latency series")
	}
}
