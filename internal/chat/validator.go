package chat

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

const (
	maxTextLength      = 4096
	maxMessageIDLength = 255
)

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, msg := range e.Fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, msg))
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrInvalidInput
}

// ValidateMessage checks the text and message id lengths.
func ValidateMessage(msg *Message) error {
	errs := make(map[string]string)
	if strings.TrimSpace(msg.Text) == "" {
		errs["text"] = "text is required"
	} else if len(msg.Text) > maxTextLength {
		errs["text"] = fmt.Sprintf("text must be at most %d bytes", maxTextLength)
	}
	if len(msg.MessageID) > maxMessageIDLength {
		errs["message_id"] = fmt.Sprintf("message id must be at most %d characters", maxMessageIDLength)
	}
	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
