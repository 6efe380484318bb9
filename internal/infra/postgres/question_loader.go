package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"quiz-game-service/internal/domain"
)

const fallbackLanguage = "en"

// QuestionLoader reads question sets from Postgres. Questions are stored
// with a JSONB translations column (language -> content); this layer
// collapses that to the session's single working language, falling back to
// English when the requested language is missing.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

type questionTranslation struct {
	Text          string   `json:"text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correctAnswer"`
	Explanation   string   `json:"explanation"`
}

func (l *QuestionLoader) LoadQuestionSet(ctx context.Context, questionSetID int64, language string) ([]domain.Question, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, question_set_id, translations FROM questions WHERE question_set_id = $1`,
		questionSetID)
	if err != nil {
		return nil, fmt.Errorf("load question set %d: %w", questionSetID, err)
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		var (
			id    int64
			setID int64
			raw   []byte
		)
		if err := rows.Scan(&id, &setID, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		var translations map[string]questionTranslation
		if err := json.Unmarshal(raw, &translations); err != nil {
			return nil, fmt.Errorf("unmarshal question %d: %w", id, err)
		}
		content, ok := translations[language]
		if !ok {
			content, ok = translations[fallbackLanguage]
		}
		if !ok || content.Text == "" {
			// Untranslated rows are skipped rather than served half-empty.
			continue
		}
		questions = append(questions, domain.Question{
			ID:            id,
			Text:          content.Text,
			Options:       content.Options,
			CorrectAnswer: content.CorrectAnswer,
			QuestionSetID: setID,
			Explanation:   content.Explanation,
		})
	}
	return questions, rows.Err()
}
