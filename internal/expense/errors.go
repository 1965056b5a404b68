package expense

import "fmt"

type FetchErrorKind string

const (
	FetchNetwork           FetchErrorKind = "network"
	FetchTimeout           FetchErrorKind = "timeout"
	FetchUpstreamStatus    FetchErrorKind = "upstream_status"
	FetchMalformedResponse FetchErrorKind = "malformed_response"
)

// FetchError classifies a failed fetch from the expense data provider.
type FetchError struct {
	Kind       FetchErrorKind
	StatusCode int // set for FetchUpstreamStatus
	Err        error
}

func (e *FetchError) Error() string {
	if e.Kind == FetchUpstreamStatus {
		return fmt.Sprintf("expense fetch failed: %s (status %d)", e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("expense fetch failed: %s: %v", e.Kind, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
