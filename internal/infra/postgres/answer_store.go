package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"

	"textinput-service/internal/domain"
)

// AnswerStore persists answers in the append-only answers table.
type AnswerStore struct {
	pool *pgxpool.Pool
}

func NewAnswerStore(pool *pgxpool.Pool) *AnswerStore {
	return &AnswerStore{pool: pool}
}

func (s *AnswerStore) Append(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if err := answer.Validate(); err != nil {
		return domain.Answer{}, err
	}
	answer.ID = uuid.Must(uuid.NewV7()).String()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO answers
		(id, exercise_id, question_uid, answeree, session_id, type, submit_date, submission, confidence)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		answer.ID,
		answer.ExerciseID,
		answer.QuestionUID,
		answer.Answeree,
		answer.SessionID,
		answer.Type,
		answer.SubmitDate,
		answer.Submission,
		answer.Confidence,
	)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("insert answer: %w", err)
	}
	return answer, nil
}

// LatestPerParticipant picks one row per (question, answeree) with DISTINCT ON.
// Rows sharing the greatest submit_date are picked arbitrarily by Postgres.
func (s *AnswerStore) LatestPerParticipant(ctx context.Context, sessionID string, questionIDs []string) ([]domain.QuestionSubmissions, error) {
	if len(questionIDs) == 0 {
		return []domain.QuestionSubmissions{}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT question_uid, answeree, submit_date, submission FROM (
			SELECT DISTINCT ON (question_uid, answeree) question_uid, answeree, submit_date, submission
			FROM answers
			WHERE session_id = $1 AND question_uid = ANY($2)
			ORDER BY question_uid, answeree, submit_date DESC
		) latest
		ORDER BY submit_date`,
		sessionID, questionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("query latest answers: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.Submission)
	for rows.Next() {
		var (
			questionUID string
			sub         domain.Submission
			submitDate  time.Time
		)
		if err := rows.Scan(&questionUID, &sub.Answeree, &submitDate, &sub.Submission); err != nil {
			return nil, fmt.Errorf("scan latest answer: %w", err)
		}
		sub.SubmitDate = submitDate.UTC()
		grouped[questionUID] = append(grouped[questionUID], sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest answers: %w", err)
	}

	out := make([]domain.QuestionSubmissions, 0, len(grouped))
	for _, qid := range questionIDs {
		subs, ok := grouped[qid]
		if !ok {
			continue
		}
		out = append(out, domain.QuestionSubmissions{QuestionUID: qid, Submissions: subs})
		delete(grouped, qid)
	}
	return out, nil
}
