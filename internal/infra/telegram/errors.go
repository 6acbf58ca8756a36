package telegram

import (
	"errors"
	"fmt"
	"strings"
)

// APIError is a Bot API call that came back with ok=false. Description is the
// raw human-readable failure text from the API.
type APIError struct {
	Method      string
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram %s: %s", e.Method, e.Description)
}

// FailureKind is the coarse category the relay core acts on.
type FailureKind int

const (
	FailureUnknown FailureKind = iota
	FailureThreadNotFound
	FailureChatNotFound
	FailureNotEnoughRights
)

// Classify maps an API failure onto a recovery category by matching the
// lowercase description text. The Bot API exposes no structured code for
// these cases, so the string contract lives here and nowhere else.
func Classify(err error) FailureKind {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return FailureUnknown
	}

	desc := strings.ToLower(apiErr.Description)
	switch {
	case strings.Contains(desc, "thread not found"), strings.Contains(desc, "topic not found"):
		return FailureThreadNotFound
	case strings.Contains(desc, "chat not found"):
		return FailureChatNotFound
	case strings.Contains(desc, "not enough rights"):
		return FailureNotEnoughRights
	default:
		return FailureUnknown
	}
}
