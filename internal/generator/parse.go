package generator

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/verte-zerg/marsfocus/internal/model"
)

const optionsPerQuestion = 4

var placeholderOptions = []string{"Option A", "Option B", "Option C", "Option D"}

// ErrMalformedPlan is returned when a collaborator response does not match the plan schema.
var ErrMalformedPlan = errors.New("malformed plan")

type rawQuestion struct {
	ID            string   `json:"id"`
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer *int     `json:"correctAnswer"`
}

type rawPlan struct {
	Tasks         []string      `json:"tasks"`
	QuizQuestions []rawQuestion `json:"quizQuestions"`
}

// ParsePlan extracts a plan from model output that may be wrapped in markdown fences or prose.
func ParsePlan(text string) (model.Plan, error) {
	body := cleanModelOutput(text)
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return model.Plan{}, fmt.Errorf("no JSON object in response: %w", ErrMalformedPlan)
	}
	var raw rawPlan
	if err := json.Unmarshal([]byte(body[start:end+1]), &raw); err != nil {
		return model.Plan{}, fmt.Errorf("decode plan: %v: %w", err, ErrMalformedPlan)
	}

	plan := model.Plan{}
	for _, task := range raw.Tasks {
		task = strings.TrimSpace(task)
		if task != "" {
			plan.Tasks = append(plan.Tasks, task)
		}
	}
	for i, q := range raw.QuizQuestions {
		id := strings.TrimSpace(q.ID)
		if id == "" {
			id = fmt.Sprintf("q%d", i+1)
		}
		options := q.Options
		if len(options) == 0 {
			options = placeholderOptions
		}
		correct := 0
		if q.CorrectAnswer != nil {
			correct = *q.CorrectAnswer
		}
		plan.QuizQuestions = append(plan.QuizQuestions, model.QuizQuestion{
			ID:            id,
			Question:      strings.TrimSpace(q.Question),
			Options:       append([]string(nil), options...),
			CorrectAnswer: correct,
		})
	}
	if err := Validate(plan); err != nil {
		return model.Plan{}, err
	}
	return plan, nil
}

// Validate checks a plan against the schema the mission screen relies on.
func Validate(plan model.Plan) error {
	if len(plan.Tasks) == 0 {
		return fmt.Errorf("plan has no tasks: %w", ErrMalformedPlan)
	}
	for _, q := range plan.QuizQuestions {
		if q.Question == "" {
			return fmt.Errorf("question %s is empty: %w", q.ID, ErrMalformedPlan)
		}
		if len(q.Options) != optionsPerQuestion {
			return fmt.Errorf("question %s has %d options: %w", q.ID, len(q.Options), ErrMalformedPlan)
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %s answer index %d out of range: %w", q.ID, q.CorrectAnswer, ErrMalformedPlan)
		}
	}
	return nil
}

func cleanModelOutput(text string) string {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```JSON", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	return strings.TrimSpace(cleaned)
}
