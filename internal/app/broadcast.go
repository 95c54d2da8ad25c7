package app

import (
	"context"

	"textinput-service/internal/domain"
)

// broadcast fans out the progress of q after answer has been appended.
// Pushes are independent of each other and every failure is logged only.
func (s *TextInputService) broadcast(ctx context.Context, q domain.Question, answer domain.Answer, socketID string) {
	rows, err := s.ProgressFor(ctx, answer.SessionID, q)
	if err != nil {
		s.logger.Error("aggregate progress failed", "question", q.UID, "session", answer.SessionID, "err", err)
		return
	}

	progress := domain.QuestionEvent{
		QuestionType: domain.TextInputType,
		Type:         domain.EventProgress,
		Question:     domain.ProgressQuestion{UID: q.UID, Answers: rows},
	}
	s.pushToRole(ctx, answer.SessionID, domain.RolePresenter, progress)

	if socketID != "" {
		own := ownRow(rows, answer, q)
		s.push(ctx, socketID, domain.QuestionEvent{
			QuestionType: domain.TextInputType,
			Type:         domain.EventSelfProgress,
			Question: domain.SelfProgressQuestion{
				UID:    q.UID,
				Data:   domain.HintData{Hint: hintFor(q, own.IsCorrect)},
				Answer: own,
			},
		})
	}

	visibility, err := s.visibility.get(ctx, q.UID)
	if err != nil {
		s.logger.Warn("viewer visibility lookup failed", "question", q.UID, "err", err)
		return
	}
	if visibility == domain.ShowViewerAll {
		s.pushToRole(ctx, answer.SessionID, domain.RoleViewer, progress)
	}
}

// ownRow picks the submitter's effective row. A concurrent submission of the
// same answeree may already have superseded answer; the aggregate wins then.
func ownRow(rows []domain.ProgressRow, answer domain.Answer, q domain.Question) domain.ProgressRow {
	for _, row := range rows {
		if row.Answeree == answer.Answeree {
			return row
		}
	}
	return domain.ProgressRow{
		Answeree:   answer.Answeree,
		SubmitDate: answer.SubmitDate,
		Submission: answer.Submission,
		IsCorrect:  Evaluate(q.Data.Solution, answer.Submission),
	}
}
