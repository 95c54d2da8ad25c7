package app

import (
	"context"
	"encoding/json"
	"fmt"

	"textinput-service/internal/domain"
)

// Hook names an entry point invoked by the host lifecycle dispatcher.
type Hook string

const (
	HookParseHTML          Hook = "parse_html"
	HookAnswerSubmission   Hook = "answer_submission"
	HookPresenterConnected Hook = "presenter_connected"
	HookViewerConnected    Hook = "viewer_connected"
	HookPlugin             Hook = "plugin"
)

// PluginQuizTimedOut is the plugin event type carrying a timeout signal.
const PluginQuizTimedOut = "quiztimedout"

// HookFunc decodes a JSON envelope and returns the value to hand to the next hook.
type HookFunc func(ctx context.Context, payload json.RawMessage) (any, error)

// Hooks returns the capability table registered at construction.
func (s *TextInputService) Hooks() map[Hook]HookFunc {
	return s.hooks
}

// Dispatch runs the handler registered for hook.
func (s *TextInputService) Dispatch(ctx context.Context, hook Hook, payload json.RawMessage) (any, error) {
	fn, ok := s.hooks[hook]
	if !ok {
		return nil, fmt.Errorf("unknown hook %q", hook)
	}
	return fn(ctx, payload)
}

func (s *TextInputService) buildHooks() map[Hook]HookFunc {
	return map[Hook]HookFunc{
		HookParseHTML:          decodeHook(s.Parse),
		HookAnswerSubmission:   decodeHook(s.SubmitAnswer),
		HookPresenterConnected: decodeHook(s.PresenterConnected),
		HookViewerConnected:    decodeHook(s.ViewerConnected),
		HookPlugin:             decodeHook(s.onPlugin),
	}
}

func (s *TextInputService) onPlugin(ctx context.Context, sig domain.TimeoutSignal) (domain.TimeoutSignal, error) {
	if sig.Type != PluginQuizTimedOut {
		return sig, nil
	}
	return sig, s.OnTimeoutSignal(ctx, sig)
}

func decodeHook[T any](fn func(context.Context, T) (T, error)) HookFunc {
	return func(ctx context.Context, payload json.RawMessage) (any, error) {
		var in T
		if err := json.Unmarshal(payload, &in); err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
		}
		return fn(ctx, in)
	}
}
