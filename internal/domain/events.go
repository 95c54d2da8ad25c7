package domain

// EventType names an outward event.
type EventType string

const (
	EventProgress         EventType = "progress"
	EventSelfProgress     EventType = "self-progress"
	EventRestorePresenter EventType = "restorePresenter"
	EventRestoreViewer    EventType = "restoreViewer"
	EventHintOnTimeout    EventType = "show-hint-on-timeout"
)

// Event is anything the service pushes to a client.
type Event interface {
	Kind() EventType
}

// QuestionEvent is the envelope for single-question events.
type QuestionEvent struct {
	QuestionType string    `json:"questionType"`
	Type         EventType `json:"type"`
	Question     any       `json:"question"`
}

func (e QuestionEvent) Kind() EventType { return e.Type }

// RestoreEvent is the envelope for restore pushes; Questions is never null.
type RestoreEvent struct {
	QuestionType string             `json:"questionType"`
	Type         EventType          `json:"type"`
	Questions    []RestoredQuestion `json:"questions"`
}

func (e RestoreEvent) Kind() EventType { return e.Type }

// ProgressQuestion is the question payload of a progress event. Authoring
// detail is never included.
type ProgressQuestion struct {
	UID     string        `json:"uid"`
	Answers []ProgressRow `json:"answers"`
}

// HintData is the stripped question data sent to answerees and viewers.
type HintData struct {
	Hint string `json:"hint,omitempty"`
}

// SelfProgressQuestion is sent to the submitting socket only.
type SelfProgressQuestion struct {
	UID    string      `json:"uid"`
	Data   HintData    `json:"data"`
	Answer ProgressRow `json:"answer"`
}

// HintQuestion is the payload of a timeout hint event.
type HintQuestion struct {
	UID  string   `json:"uid"`
	Data HintData `json:"data"`
}

// RestoredQuestion is one question in a restore payload. Data is the full
// QuestionData for presenters and a HintData for viewers.
type RestoredQuestion struct {
	UID       string        `json:"uid"`
	Type      string        `json:"type"`
	Data      any           `json:"data"`
	Answers   []ProgressRow `json:"answers"`
	OwnAnswer *ProgressRow  `json:"ownAnswer,omitempty"`
}
