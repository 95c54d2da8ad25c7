package domain

// ParseRequest is the authoring payload of the parse_html hook.
type ParseRequest struct {
	HTML           string `json:"html"`
	UserID         string `json:"user_id"`
	PresentationID string `json:"presentation_id,omitempty"`
}

// AnswerEnvelope is the answer_submission hook payload. Submission stays
// untyped so a non-string value can be rejected instead of coerced.
type AnswerEnvelope struct {
	QuestionUID string `json:"questionUid"`
	ExerciseID  string `json:"exercise_id"`
	Answeree    string `json:"answeree"`
	Session     string `json:"session"`
	Submission  any    `json:"submission"`
	Confidence  *int   `json:"confidence,omitempty"`
	SocketID    string `json:"socketId,omitempty"`
}

// ConnectionInfo is the presenter_connected / viewer_connected payload.
type ConnectionInfo struct {
	SessionID      string `json:"session_id,omitempty"`
	PresentationID string `json:"presentation_id,omitempty"`
	SocketID       string `json:"socketId,omitempty"`
	WhitelistID    string `json:"whitelistId,omitempty"`
}

// TimeoutSignal is the session-level "time's up" plugin event.
type TimeoutSignal struct {
	Type         string `json:"type"`
	SessionID    string `json:"sessionId"`
	QuestionType string `json:"questionType"`
	QuestionUID  string `json:"questionUid"`
	SocketID     string `json:"socketId,omitempty"`
}
