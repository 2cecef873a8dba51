package generator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/verte-zerg/marsfocus/internal/model"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-1.5-flash"

const planPrompt = `Create a study plan for %q that takes %d minutes. Return ONLY a valid JSON object (no markdown, no explanation) with:
1. "tasks": array of 3-5 specific study tasks
2. "quizQuestions": array of 2-3 quiz questions with structure {id, question, options: [4 options], correctAnswer: index, answer: "", completed: false}

Example format:
{
  "tasks": ["Review key concepts", "Practice 5 problems", "Summarize notes"],
  "quizQuestions": [
    {
      "id": "q1",
      "question": "What is the main concept?",
      "options": ["Option A", "Option B", "Option C", "Option D"],
      "correctAnswer": 0,
      "answer": "",
      "completed": false
    }
  ]
}`

// Gemini generates plans with the Gemini API.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini plan source.
func NewGemini(ctx context.Context, apiKey, modelName string) (*Gemini, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("gemini api key is empty")
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{client: client, model: modelName}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	return g.client.Close()
}

// GeneratePlan implements PlanSource.
func (g *Gemini) GeneratePlan(ctx context.Context, topic string, durationMinutes int) (model.Plan, error) {
	gm := g.client.GenerativeModel(g.model)
	gm.SetTemperature(0.7)
	gm.SetMaxOutputTokens(1024)
	gm.ResponseMIMEType = "application/json"

	resp, err := gm.GenerateContent(ctx, genai.Text(fmt.Sprintf(planPrompt, topic, durationMinutes)))
	if err != nil {
		return model.Plan{}, fmt.Errorf("gemini request failed: %w", err)
	}
	text, err := responseText(resp)
	if err != nil {
		return model.Plan{}, err
	}
	return ParsePlan(text)
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no candidates in gemini response")
	}
	cand := resp.Candidates[0]
	if cand.Content == nil {
		return "", errors.New("no content in gemini response")
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in gemini response")
	}
	return b.String(), nil
}
