package generator

import (
	"fmt"

	"github.com/verte-zerg/marsfocus/internal/model"
)

const maxFallbackTasks = 5

var taskTemplates = [maxFallbackTasks]string{
	"Review core concepts of %s",
	"Study examples and applications of %s",
	"Practice problems or exercises on %s",
	"Create summary notes or flashcards for %s",
	"Test your understanding of %s with practice questions",
}

// Fallback returns the deterministic template plan for a topic.
func Fallback(topic string, durationMinutes int) model.Plan {
	count := 0
	if durationMinutes > 0 {
		count = (durationMinutes + 9) / 10
	}
	if count > maxFallbackTasks {
		count = maxFallbackTasks
	}
	tasks := make([]string, 0, count)
	for i := 0; i < count; i++ {
		tasks = append(tasks, fmt.Sprintf(taskTemplates[i], topic))
	}
	return model.Plan{
		Tasks: tasks,
		QuizQuestions: []model.QuizQuestion{
			{
				ID:            "q1",
				Question:      fmt.Sprintf("What are the key concepts in %s?", topic),
				Options:       []string{"Concept A", "Concept B", "Concept C", "Concept D"},
				CorrectAnswer: 0,
			},
			{
				ID:            "q2",
				Question:      fmt.Sprintf("How can you apply %s in real-world scenarios?", topic),
				Options:       []string{"Application A", "Application B", "Application C", "Application D"},
				CorrectAnswer: 0,
			},
		},
		Source: model.PlanSourceFallback,
	}
}
