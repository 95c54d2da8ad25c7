// Package sqlite provides a single-file answer log for standalone deployments.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"textinput-service/internal/domain"
)

const schema = `
CREATE TABLE IF NOT EXISTS answers (
	id           TEXT PRIMARY KEY,
	exercise_id  TEXT NOT NULL DEFAULT '',
	question_uid TEXT NOT NULL,
	answeree     TEXT NOT NULL,
	session_id   TEXT NOT NULL,
	type         TEXT NOT NULL,
	submit_date  INTEGER NOT NULL,
	submission   TEXT NOT NULL,
	confidence   INTEGER
);
CREATE INDEX IF NOT EXISTS answers_latest_idx
	ON answers (session_id, question_uid, answeree, submit_date DESC);
`

// AnswerStore persists the answer log in SQLite.
type AnswerStore struct {
	db *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*AnswerStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps appends serialised without SQLITE_BUSY retries.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &AnswerStore{db: db}, nil
}

// Close closes the SQLite handle.
func (s *AnswerStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *AnswerStore) Append(ctx context.Context, answer domain.Answer) (domain.Answer, error) {
	if err := ctx.Err(); err != nil {
		return domain.Answer{}, err
	}
	if err := answer.Validate(); err != nil {
		return domain.Answer{}, err
	}
	answer.ID = uuid.Must(uuid.NewV7()).String()

	var confidence sql.NullInt64
	if answer.Confidence != nil {
		confidence = sql.NullInt64{Int64: int64(*answer.Confidence), Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO answers (
		   id, exercise_id, question_uid, answeree, session_id, type, submit_date, submission, confidence
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		answer.ID,
		answer.ExerciseID,
		answer.QuestionUID,
		answer.Answeree,
		answer.SessionID,
		answer.Type,
		toMillis(answer.SubmitDate),
		answer.Submission,
		confidence,
	)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("insert answer: %w", err)
	}
	return answer, nil
}

func (s *AnswerStore) LatestPerParticipant(ctx context.Context, sessionID string, questionIDs []string) ([]domain.QuestionSubmissions, error) {
	if len(questionIDs) == 0 {
		return []domain.QuestionSubmissions{}, nil
	}

	args := make([]any, 0, len(questionIDs)+1)
	args = append(args, sessionID)
	for _, qid := range questionIDs {
		args = append(args, qid)
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(questionIDs)), ", ")

	rows, err := s.db.QueryContext(ctx, `
		SELECT question_uid, answeree, submit_date, submission FROM (
			SELECT question_uid, answeree, submit_date, submission,
			       ROW_NUMBER() OVER (PARTITION BY question_uid, answeree ORDER BY submit_date DESC) AS rn
			FROM answers
			WHERE session_id = ? AND question_uid IN (`+placeholders+`)
		)
		WHERE rn = 1
		ORDER BY submit_date`, args...)
	if err != nil {
		return nil, fmt.Errorf("query latest answers: %w", err)
	}
	defer rows.Close()

	grouped := make(map[string][]domain.Submission)
	for rows.Next() {
		var (
			questionUID string
			sub         domain.Submission
			submitDate  int64
		)
		if err := rows.Scan(&questionUID, &sub.Answeree, &submitDate, &sub.Submission); err != nil {
			return nil, fmt.Errorf("scan latest answer: %w", err)
		}
		sub.SubmitDate = fromMillis(submitDate)
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
