package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"textinput-service/internal/domain"
)

// QuestionStore loads and stores parsed questions; data is kept as JSONB.
type QuestionStore struct {
	pool *pgxpool.Pool
}

func NewQuestionStore(pool *pgxpool.Pool) *QuestionStore {
	return &QuestionStore{pool: pool}
}

func (s *QuestionStore) GetQuestion(ctx context.Context, uid string) (domain.Question, error) {
	var (
		q   domain.Question
		raw []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT uid, type, presentation_id, position, data FROM questions WHERE uid=$1`, uid,
	).Scan(&q.UID, &q.Type, &q.PresentationID, &q.Position, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Question{}, fmt.Errorf("%w: %s", domain.ErrQuestionNotFound, uid)
	}
	if err != nil {
		return domain.Question{}, fmt.Errorf("load question: %w", err)
	}
	if err := json.Unmarshal(raw, &q.Data); err != nil {
		return domain.Question{}, fmt.Errorf("unmarshal question data: %w", err)
	}
	return q, nil
}

func (s *QuestionStore) QuestionsByType(ctx context.Context, presentationID, questionType string) ([]domain.Question, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT uid, type, presentation_id, position, data FROM questions
		WHERE presentation_id=$1 AND type=$2
		ORDER BY position, uid`,
		presentationID, questionType,
	)
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := make([]domain.Question, 0)
	for rows.Next() {
		var (
			q   domain.Question
			raw []byte
		)
		if err := rows.Scan(&q.UID, &q.Type, &q.PresentationID, &q.Position, &raw); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(raw, &q.Data); err != nil {
			return nil, fmt.Errorf("unmarshal question data: %w", err)
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SaveQuestions upserts by uid so a re-parse refreshes the stored markup.
func (s *QuestionStore) SaveQuestions(ctx context.Context, questions []domain.Question) error {
	batch := &pgx.Batch{}
	for _, q := range questions {
		raw, err := json.Marshal(q.Data)
		if err != nil {
			return fmt.Errorf("marshal question data: %w", err)
		}
		batch.Queue(`
			INSERT INTO questions (uid, type, presentation_id, position, data)
			VALUES ($1, $2, $3, $4, $5::jsonb)
			ON CONFLICT (uid) DO UPDATE SET
				type=EXCLUDED.type,
				presentation_id=EXCLUDED.presentation_id,
				position=EXCLUDED.position,
				data=EXCLUDED.data`,
			q.UID, q.Type, q.PresentationID, q.Position, string(raw),
		)
	}
	return s.sendBatch(ctx, batch, len(questions))
}

func (s *QuestionStore) sendBatch(ctx context.Context, batch *pgx.Batch, n int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	results := tx.SendBatch(ctx, batch)
	for i := 0; i < n; i++ {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("save question %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// StatsStore keeps question_stats rows; a parse replaces the rows of the
// questions it declares.
type StatsStore struct {
	pool *pgxpool.Pool
}

func NewStatsStore(pool *pgxpool.Pool) *StatsStore {
	return &StatsStore{pool: pool}
}

func (s *StatsStore) SaveStats(ctx context.Context, stats []domain.StatsConfig) error {
	if len(stats) == 0 {
		return nil
	}
	uids := make([]string, 0, len(stats))
	for _, cfg := range stats {
		uids = append(uids, cfg.QuestionUID)
	}

	return s.inTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM question_stats WHERE question_uid = ANY($1)`, uids); err != nil {
			return fmt.Errorf("clear stats: %w", err)
		}
		for _, cfg := range stats {
			_, err := tx.Exec(ctx, `
				INSERT INTO question_stats (question_uid, show_viewer, created_by, updated_by, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				cfg.QuestionUID, string(cfg.ShowViewer), cfg.CreatedBy, cfg.UpdatedBy, cfg.CreatedAt, cfg.UpdatedAt,
			)
			if err != nil {
				return fmt.Errorf("insert stats for %s: %w", cfg.QuestionUID, err)
			}
		}
		return nil
	})
}

func (s *StatsStore) ViewerVisibility(ctx context.Context, questionUID string) (domain.ShowViewer, error) {
	var all bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM question_stats WHERE question_uid=$1 AND show_viewer='all')`, questionUID,
	).Scan(&all)
	if err != nil {
		return "", fmt.Errorf("query stats: %w", err)
	}
	if all {
		return domain.ShowViewerAll, nil
	}
	return domain.ShowViewerSelf, nil
}

func (s *StatsStore) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}
