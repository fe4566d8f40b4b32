// Package settings stores per-chat reply probabilities. Chats without an
// explicit setting fall back to the configured default.
package settings

import (
	"context"
	"fmt"
	"math"

	apperrors "github.com/Adithya-Monish-Kumar-K/phrasebot/pkg/errors"
)

type Store interface {
	ReplyProbability(ctx context.Context, chatID int64) (float64, error)
	SetReplyProbability(ctx context.Context, chatID int64, p float64) error
	// ResetReplyProbability drops the chat's override.
	ResetReplyProbability(ctx context.Context, chatID int64) error
}

// ValidateProbability rejects values outside [0, 1] and NaN.
func ValidateProbability(p float64) error {
	if math.IsNaN(p) || p < 0 || p > 1 {
		return fmt.Errorf("%w: reply probability must be within [0, 1], got %v", apperrors.ErrInvalidInput, p)
	}
	return nil
}
