package telegram

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        FailureKind
	}{
		{name: "thread gone", description: "Bad Request: message thread not found", want: FailureThreadNotFound},
		{name: "topic gone", description: "Bad Request: Topic not found", want: FailureThreadNotFound},
		{name: "chat gone", description: "Bad Request: chat not found", want: FailureChatNotFound},
		{name: "missing rights", description: "Bad Request: not enough rights to manage topics", want: FailureNotEnoughRights},
		{name: "anything else", description: "Too Many Requests: retry after 30", want: FailureUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := &APIError{Method: "forwardMessage", Code: 400, Description: tt.description}
			if got := Classify(err); got != tt.want {
				t.Fatalf("unexpected kind for %q: got %v want %v", tt.description, got, tt.want)
			}
		})
	}
}

func TestClassifyWrappedError(t *testing.T) {
	apiErr := &APIError{Method: "forwardMessage", Code: 400, Description: "Bad Request: message thread not found"}
	wrapped := fmt.Errorf("forward user message: %w", apiErr)

	if got := Classify(wrapped); got != FailureThreadNotFound {
		t.Fatalf("classification must see through wrapping, got %v", got)
	}
}

func TestClassifyForeignError(t *testing.T) {
	if got := Classify(errors.New("dial tcp: connection refused")); got != FailureUnknown {
		t.Fatalf("non-API errors must classify as unknown, got %v", got)
	}
}
