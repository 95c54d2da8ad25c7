package domain

import (
	"fmt"
	"strings"
	"time"
)

// TextInputType is the question type discriminator handled by this service.
const TextInputType = "asq-text-input-q"

// QuestionData carries the authoring detail of a question. Solution and Hint
// never leave the service except towards presenters.
type QuestionData struct {
	HTML     string `json:"html,omitempty"`
	Stem     string `json:"stem,omitempty"`
	Solution string `json:"solution,omitempty"`
	Hint     string `json:"hint,omitempty"`
}

// Question is a parsed free-text question. UID is stable across re-parses.
type Question struct {
	UID            string       `json:"uid"`
	Type           string       `json:"type"`
	PresentationID string       `json:"presentationId,omitempty"`
	Position       int          `json:"position"`
	Data           QuestionData `json:"data"`
}

// HasSolution reports whether submissions to q are auto-graded.
func (q Question) HasSolution() bool {
	return q.Data.Solution != ""
}

// ShowViewer controls what viewers see of other participants' answers.
type ShowViewer string

const (
	ShowViewerSelf ShowViewer = "self"
	ShowViewerAll  ShowViewer = "all"
)

// ParseShowViewer maps a raw attribute value; empty means self.
func ParseShowViewer(raw string) (ShowViewer, error) {
	switch ShowViewer(strings.TrimSpace(raw)) {
	case "", ShowViewerSelf:
		return ShowViewerSelf, nil
	case ShowViewerAll:
		return ShowViewerAll, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidShowViewer, raw)
	}
}

// StatsConfig is the per-question viewer visibility declaration.
type StatsConfig struct {
	QuestionUID string     `json:"question"`
	ShowViewer  ShowViewer `json:"showViewer"`
	CreatedBy   string     `json:"createdBy,omitempty"`
	UpdatedBy   string     `json:"updatedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Answer is one append-only submission record.
type Answer struct {
	ID          string    `json:"id"`
	ExerciseID  string    `json:"exercise"`
	QuestionUID string    `json:"question"`
	Answeree    string    `json:"answeree"`
	SessionID   string    `json:"session"`
	Type        string    `json:"type"`
	SubmitDate  time.Time `json:"submitDate"`
	Submission  string    `json:"submission"`
	Confidence  *int      `json:"confidence,omitempty"`
}

// Validate checks the references every stored answer must carry.
func (a Answer) Validate() error {
	switch {
	case a.SessionID == "":
		return fmt.Errorf("%w: session is required", ErrInvalidAnswer)
	case a.QuestionUID == "":
		return fmt.Errorf("%w: question is required", ErrInvalidAnswer)
	case a.Answeree == "":
		return fmt.Errorf("%w: answeree is required", ErrInvalidAnswer)
	}
	return nil
}

// Submission is the effective answer of one participant as returned by a store.
type Submission struct {
	Answeree   string    `json:"answeree"`
	SubmitDate time.Time `json:"submitDate"`
	Submission string    `json:"submission"`
}

// QuestionSubmissions groups effective submissions by question.
type QuestionSubmissions struct {
	QuestionUID string       `json:"question"`
	Submissions []Submission `json:"submissions"`
}

// ProgressRow is a derived, non-persisted view of one participant's effective
// answer. IsCorrect is nil when the question is not auto-graded.
type ProgressRow struct {
	Answeree   string    `json:"answeree"`
	SubmitDate time.Time `json:"submitDate"`
	Submission string    `json:"submission"`
	IsCorrect  *bool     `json:"isSubmissionCorrect,omitempty"`
}

// Role is an audience of a session.
type Role string

const (
	RolePresenter Role = "presenter"
	RoleViewer    Role = "viewer"
)

// ParseRole maps a query parameter to a Role.
func ParseRole(raw string) (Role, bool) {
	switch Role(raw) {
	case RolePresenter, RoleViewer:
		return Role(raw), true
	}
	return "", false
}
