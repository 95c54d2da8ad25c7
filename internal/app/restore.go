package app

import (
	"context"
	"fmt"

	"textinput-service/internal/domain"
)

// PresenterConnected pushes the full state of every text-input question of
// the presentation to the connecting presenter socket.
func (s *TextInputService) PresenterConnected(ctx context.Context, info domain.ConnectionInfo) (domain.ConnectionInfo, error) {
	if info.SessionID == "" {
		return info, nil
	}

	questions, progress, err := s.restoreState(ctx, info)
	if err != nil {
		return info, err
	}

	restored := make([]domain.RestoredQuestion, 0, len(questions))
	for _, q := range questions {
		restored = append(restored, domain.RestoredQuestion{
			UID:     q.UID,
			Type:    q.Type,
			Data:    q.Data,
			Answers: progress[q.UID],
		})
	}

	s.push(ctx, info.SocketID, domain.RestoreEvent{
		QuestionType: domain.TextInputType,
		Type:         domain.EventRestorePresenter,
		Questions:    restored,
	})
	return info, nil
}

// ViewerConnected pushes to the connecting viewer what it would have seen
// live: its own answer and, for questions shown to all viewers, everyone's.
func (s *TextInputService) ViewerConnected(ctx context.Context, info domain.ConnectionInfo) (domain.ConnectionInfo, error) {
	if info.SessionID == "" {
		return info, nil
	}

	questions, progress, err := s.restoreState(ctx, info)
	if err != nil {
		return info, err
	}

	restored := make([]domain.RestoredQuestion, 0, len(questions))
	for _, q := range questions {
		restored = append(restored, s.restoreForViewer(ctx, q, progress[q.UID], info.WhitelistID))
	}

	s.push(ctx, info.SocketID, domain.RestoreEvent{
		QuestionType: domain.TextInputType,
		Type:         domain.EventRestoreViewer,
		Questions:    restored,
	})
	return info, nil
}

func (s *TextInputService) restoreForViewer(ctx context.Context, q domain.Question, rows []domain.ProgressRow, answeree string) domain.RestoredQuestion {
	rq := domain.RestoredQuestion{
		UID:     q.UID,
		Type:    q.Type,
		Data:    domain.HintData{},
		Answers: []domain.ProgressRow{},
	}
	if answeree != "" {
		for i := range rows {
			if rows[i].Answeree == answeree {
				own := rows[i]
				rq.OwnAnswer = &own
				rq.Data = domain.HintData{Hint: hintFor(q, own.IsCorrect)}
				break
			}
		}
	}

	visibility, err := s.visibility.get(ctx, q.UID)
	if err != nil {
		s.logger.Warn("viewer visibility lookup failed", "question", q.UID, "err", err)
		visibility = domain.ShowViewerSelf
	}
	switch {
	case visibility == domain.ShowViewerAll:
		rq.Answers = rows
	case rq.OwnAnswer != nil:
		rq.Answers = []domain.ProgressRow{*rq.OwnAnswer}
	}
	return rq
}

func (s *TextInputService) restoreState(ctx context.Context, info domain.ConnectionInfo) ([]domain.Question, map[string][]domain.ProgressRow, error) {
	questions, err := s.questions.QuestionsByType(ctx, info.PresentationID, domain.TextInputType)
	if err != nil {
		return nil, nil, fmt.Errorf("questions of presentation %s: %w", info.PresentationID, err)
	}
	progress, err := s.ProgressForMany(ctx, info.SessionID, questions)
	if err != nil {
		return nil, nil, err
	}
	return questions, progress, nil
}
