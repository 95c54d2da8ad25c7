package app

import (
	"context"

	"textinput-service/internal/domain"
)

// OnTimeoutSignal reveals the hint of a timed-out question to the signalling
// socket. Signals for other question types are ignored.
func (s *TextInputService) OnTimeoutSignal(ctx context.Context, sig domain.TimeoutSignal) error {
	if sig.SessionID == "" || sig.QuestionType != domain.TextInputType {
		return nil
	}

	q, err := s.questions.GetQuestion(ctx, sig.QuestionUID)
	if err != nil {
		return err
	}
	if q.Type != domain.TextInputType {
		return nil
	}

	data := domain.HintData{}
	if q.HasSolution() {
		data.Hint = q.Data.Hint
	}
	s.push(ctx, sig.SocketID, domain.QuestionEvent{
		QuestionType: domain.TextInputType,
		Type:         domain.EventHintOnTimeout,
		Question:     domain.HintQuestion{UID: q.UID, Data: data},
	})
	return nil
}
