package game

import (
	"context"
	"fmt"
	"log"

	"quiz-game-service/internal/domain"
)

// PlaceholderSetID marks synthesized questions; real question sets always
// have positive IDs, so callers can recognize fallback content.
const PlaceholderSetID int64 = -1

// QuestionPool resolves the question list for a new game. It degrades in
// steps (requested sets, then the default set, then synthesized placeholders)
// so that starting a game can never fail on missing content.
type QuestionPool struct {
	source       QuestionSource
	defaultSetID int64
}

func NewQuestionPool(source QuestionSource, defaultSetID int64) *QuestionPool {
	return &QuestionPool{source: source, defaultSetID: defaultSetID}
}

// Questions returns up to count questions for the given sets. The result may
// be shorter than count but is never empty.
func (p *QuestionPool) Questions(ctx context.Context, questionSetIDs []int64, language string, count int) []domain.Question {
	questions, err := p.source.GetRandom(ctx, questionSetIDs, language, count)
	if err != nil {
		log.Printf("question pool: primary sets %v: %v", questionSetIDs, err)
	}
	if len(questions) > 0 {
		return questions
	}

	questions, err = p.source.GetRandom(ctx, []int64{p.defaultSetID}, language, count)
	if err != nil {
		log.Printf("question pool: default set %d: %v", p.defaultSetID, err)
	}
	if len(questions) > 0 {
		return questions
	}

	log.Printf("question pool: no questions for sets %v, synthesizing %d placeholders", questionSetIDs, count)
	return placeholderQuestions(count)
}

func placeholderQuestions(count int) []domain.Question {
	questions := make([]domain.Question, count)
	for i := range questions {
		questions[i] = domain.Question{
			ID:            int64(-(i + 1)),
			Text:          fmt.Sprintf("Placeholder question %d", i+1),
			Options:       []string{"Option A", "Option B", "Option C", "Option D"},
			CorrectAnswer: "Option A",
			QuestionSetID: PlaceholderSetID,
			Explanation:   "This question was generated because no question set content was available.",
		}
	}
	return questions
}
