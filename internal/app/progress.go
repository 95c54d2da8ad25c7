package app

import (
	"context"
	"fmt"

	"textinput-service/internal/domain"
)

// ProgressFor returns one row per participant who answered q in the session,
// graded against q's pattern when it has one.
func (s *TextInputService) ProgressFor(ctx context.Context, sessionID string, q domain.Question) ([]domain.ProgressRow, error) {
	grouped, err := s.answers.LatestPerParticipant(ctx, sessionID, []string{q.UID})
	if err != nil {
		return nil, fmt.Errorf("latest answers for %s: %w", q.UID, err)
	}
	for _, g := range grouped {
		if g.QuestionUID == q.UID {
			return progressRows(q, g.Submissions), nil
		}
	}
	return []domain.ProgressRow{}, nil
}

// ProgressForMany runs a single store query for all questions. Each entry is
// what ProgressFor would return for that question; every requested uid is
// present in the result.
func (s *TextInputService) ProgressForMany(ctx context.Context, sessionID string, questions []domain.Question) (map[string][]domain.ProgressRow, error) {
	result := make(map[string][]domain.ProgressRow, len(questions))
	if len(questions) == 0 {
		return result, nil
	}

	byUID := make(map[string]domain.Question, len(questions))
	ids := make([]string, 0, len(questions))
	for _, q := range questions {
		if _, dup := byUID[q.UID]; dup {
			continue
		}
		byUID[q.UID] = q
		ids = append(ids, q.UID)
		result[q.UID] = []domain.ProgressRow{}
	}

	grouped, err := s.answers.LatestPerParticipant(ctx, sessionID, ids)
	if err != nil {
		return nil, fmt.Errorf("latest answers for session %s: %w", sessionID, err)
	}
	for _, g := range grouped {
		q, ok := byUID[g.QuestionUID]
		if !ok {
			continue
		}
		result[q.UID] = progressRows(q, g.Submissions)
	}
	return result, nil
}

func progressRows(q domain.Question, submissions []domain.Submission) []domain.ProgressRow {
	rows := make([]domain.ProgressRow, 0, len(submissions))
	for _, sub := range submissions {
		rows = append(rows, domain.ProgressRow{
			Answeree:   sub.Answeree,
			SubmitDate: sub.SubmitDate,
			Submission: sub.Submission,
			IsCorrect:  Evaluate(q.Data.Solution, sub.Submission),
		})
	}
	return rows
}
