package app

import (
	"context"
	"fmt"

	"textinput-service/internal/domain"
	"textinput-service/internal/markup"
)

// Parse normalises the question markup of an authoring payload and persists
// the extracted questions and stats configs before returning the payload.
func (s *TextInputService) Parse(ctx context.Context, req domain.ParseRequest) (domain.ParseRequest, error) {
	result, err := markup.Normalize(req.HTML, s.newUID)
	if err != nil {
		return req, err
	}

	now := s.now().UTC()
	uids := make([]string, 0, len(result.Questions))
	for i := range result.Questions {
		result.Questions[i].PresentationID = req.PresentationID
		result.Questions[i].Position = i
		uids = append(uids, result.Questions[i].UID)
	}
	for i := range result.Stats {
		result.Stats[i].CreatedBy = req.UserID
		result.Stats[i].UpdatedBy = req.UserID
		result.Stats[i].CreatedAt = now
		result.Stats[i].UpdatedAt = now
	}

	if len(result.Questions) > 0 {
		if err := s.questions.SaveQuestions(ctx, result.Questions); err != nil {
			return req, fmt.Errorf("save questions: %w", err)
		}
	}
	if len(result.Stats) > 0 {
		if err := s.stats.SaveStats(ctx, result.Stats); err != nil {
			return req, fmt.Errorf("save stats: %w", err)
		}
	}
	s.visibility.invalidate(uids...)

	s.logger.Info("markup parsed", "presentation", req.PresentationID, "questions", len(result.Questions), "stats", len(result.Stats))
	req.HTML = result.HTML
	return req, nil
}
