package core

import "fmt"

type ChatErrorKind string

const (
	ChatServiceDegraded         ChatErrorKind = "service_degraded"
	ChatCompletionTimeout       ChatErrorKind = "completion_timeout"
	ChatCompletionUpstreamError ChatErrorKind = "completion_upstream_error"
	ChatCompletionEmptyResponse ChatErrorKind = "completion_empty_response"
)

// ChatError is the typed failure returned by ChatService.Chat. The API layer
// maps kinds to HTTP status codes; the core never exposes raw upstream
// errors to the boundary.
type ChatError struct {
	Kind ChatErrorKind
	Err  error
}

func (e *ChatError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("chat failed: %s", e.Kind)
	}
	return fmt.Sprintf("chat failed: %s: %v", e.Kind, e.Err)
}

func (e *ChatError) Unwrap() error {
	return e.Err
}
