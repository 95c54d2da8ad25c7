package domain

import "errors"

var (
	// ErrQuestionNotFound is returned when a referenced question uid is unknown.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrInvalidSubmission indicates an answer envelope whose submission is not text.
	ErrInvalidSubmission = errors.New("invalid answer format, submission should be a string")
	// ErrInvalidAnswer indicates an answer record missing its session, question or answeree.
	ErrInvalidAnswer = errors.New("invalid answer record")
	// ErrInvalidShowViewer indicates a stats element with an unsupported show-viewer value.
	ErrInvalidShowViewer = errors.New("invalid show-viewer value")
	// ErrInvalidPayload indicates a hook payload that could not be decoded.
	ErrInvalidPayload = errors.New("invalid hook payload")
	// ErrEndpointNotFound is a delivery failure: the target socket is not connected.
	ErrEndpointNotFound = errors.New("endpoint not connected")
)
