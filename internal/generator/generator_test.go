package generator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/verte-zerg/marsfocus/internal/model"
)

type stubSource struct {
	plan  model.Plan
	err   error
	calls int
	wait  bool
}

func (s *stubSource) GeneratePlan(ctx context.Context, _ string, _ int) (model.Plan, error) {
	s.calls++
	if s.wait {
		<-ctx.Done()
		return model.Plan{}, ctx.Err()
	}
	return s.plan, s.err
}

func TestFallbackAlgebra(t *testing.T) {
	plan := Fallback("Algebra", 45)
	if len(plan.Tasks) != 5 {
		t.Fatalf("expected 5 tasks, got %d", len(plan.Tasks))
	}
	for _, task := range plan.Tasks {
		if !strings.Contains(task, "Algebra") {
			t.Fatalf("task %q does not mention topic", task)
		}
	}
	if len(plan.QuizQuestions) != 2 {
		t.Fatalf("expected 2 quiz questions, got %d", len(plan.QuizQuestions))
	}
	for _, q := range plan.QuizQuestions {
		if len(q.Options) != 4 || q.CorrectAnswer != 0 || q.Completed || q.Answer != "" {
			t.Fatalf("unexpected question %+v", q)
		}
	}
	if plan.Source != model.PlanSourceFallback {
		t.Fatalf("expected fallback source, got %q", plan.Source)
	}
}

func TestFallbackTaskCount(t *testing.T) {
	cases := map[int]int{0: 0, 1: 1, 10: 1, 11: 2, 25: 3, 40: 4, 120: 5}
	for minutes, want := range cases {
		if got := len(Fallback("Go", minutes).Tasks); got != want {
			t.Fatalf("Fallback(%d) tasks = %d, want %d", minutes, got, want)
		}
	}
}

func TestPlanWithoutSourceFallsBack(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	g := New(WithLogger(zap.New(core)))
	plan := g.Plan(context.Background(), "Physics", 20)
	if plan.Source != model.PlanSourceFallback || len(plan.Tasks) != 2 {
		t.Fatalf("expected fallback plan with 2 tasks, got %+v", plan)
	}
	if logs.FilterMessage("using fallback study plan").Len() != 1 {
		t.Fatalf("expected fallback to be logged once, got %d entries", logs.Len())
	}
}

func TestPlanUsesSource(t *testing.T) {
	src := &stubSource{plan: model.Plan{
		Tasks: []string{"Read chapter 3"},
		QuizQuestions: []model.QuizQuestion{
			{ID: "q1", Question: "What is 2+2?", Options: []string{"4", "5", "6", "7"}},
		},
	}}
	plan := New(WithSource(src)).Plan(context.Background(), "Math", 30)
	if plan.Source != model.PlanSourceAI || plan.Tasks[0] != "Read chapter 3" {
		t.Fatalf("expected AI plan, got %+v", plan)
	}
}

func TestPlanSourceErrorFallsBackOnce(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	src := &stubSource{err: errors.New("quota exceeded")}
	plan := New(WithSource(src), WithLogger(zap.New(core))).Plan(context.Background(), "Chemistry", 30)
	if src.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", src.calls)
	}
	if plan.Source != model.PlanSourceFallback {
		t.Fatalf("expected fallback plan, got %q", plan.Source)
	}
	entries := logs.All()
	if len(entries) != 1 {
		t.Fatalf("expected one log entry, got %d", len(entries))
	}
	if got := entries[0].ContextMap()["error"]; got != "quota exceeded" {
		t.Fatalf("expected logged reason, got %v", got)
	}
}

func TestPlanSourceMalformedFallsBack(t *testing.T) {
	src := &stubSource{plan: model.Plan{
		Tasks: []string{"ok"},
		QuizQuestions: []model.QuizQuestion{
			{ID: "q1", Question: "Broken", Options: []string{"a", "b"}},
		},
	}}
	plan := New(WithSource(src)).Plan(context.Background(), "Biology", 10)
	if plan.Source != model.PlanSourceFallback {
		t.Fatalf("expected fallback for schema mismatch, got %q", plan.Source)
	}
}

func TestPlanSourceTimeoutFallsBack(t *testing.T) {
	src := &stubSource{wait: true}
	g := New(WithSource(src), WithTimeout(10*time.Millisecond))
	plan := g.Plan(context.Background(), "History", 10)
	if plan.Source != model.PlanSourceFallback {
		t.Fatalf("expected fallback on timeout, got %q", plan.Source)
	}
}

func TestParsePlanStripsFencesAndNormalizes(t *testing.T) {
	text := "Sure! Here it is:\n```json\n{\n  \"tasks\": [\"Review vectors\", \"  \", \"Solve 5 problems\"],\n  \"quizQuestions\": [\n    {\"question\": \"What is a vector?\", \"correctAnswer\": 2, \"answer\": \"x\", \"completed\": true},\n    {\"id\": \"custom\", \"question\": \"Dot product?\", \"options\": [\"a\", \"b\", \"c\", \"d\"]}\n  ]\n}\n```"
	plan, err := ParsePlan(text)
	if err != nil {
		t.Fatalf("ParsePlan: %v", err)
	}
	if len(plan.Tasks) != 2 {
		t.Fatalf("expected blank tasks dropped, got %v", plan.Tasks)
	}
	q1 := plan.QuizQuestions[0]
	if q1.ID != "q1" || len(q1.Options) != 4 || q1.CorrectAnswer != 2 || q1.Answer != "" || q1.Completed {
		t.Fatalf("unexpected normalized question %+v", q1)
	}
	if plan.QuizQuestions[1].ID != "custom" || plan.QuizQuestions[1].CorrectAnswer != 0 {
		t.Fatalf("unexpected second question %+v", plan.QuizQuestions[1])
	}
}

func TestParsePlanRejectsGarbage(t *testing.T) {
	for _, text := range []string{"", "no json here", "{\"tasks\": []}", "{not json}"} {
		if _, err := ParsePlan(text); !errors.Is(err, ErrMalformedPlan) {
			t.Fatalf("ParsePlan(%q) expected ErrMalformedPlan, got %v", text, err)
		}
	}
}

func TestResponseText(t *testing.T) {
	if _, err := responseText(nil); err == nil {
		t.Fatalf("expected error for nil response")
	}
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text("{\"tasks\":"), genai.Text("[\"a\"]}")}}},
		},
	}
	text, err := responseText(resp)
	if err != nil {
		t.Fatalf("responseText: %v", err)
	}
	if text != "{\"tasks\":[\"a\"]}" {
		t.Fatalf("unexpected text %q", text)
	}
}
