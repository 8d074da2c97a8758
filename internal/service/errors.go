package service

import (
	"errors"
	"fmt"

	"github.com/Fi44er/deposit_bot/internal/callback"
	"github.com/Fi44er/deposit_bot/internal/models"
)

var (
	ErrInvalidTxID      = errors.New("invalid transaction id")
	ErrDuplicateTxID    = errors.New("transaction id already submitted")
	ErrMalformedPayload = errors.New("malformed callback payload")
	ErrInvalidInput     = errors.New("invalid input")

	ErrNotFound     = errors.New("transaction not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrStorage      = errors.New("storage failure")

	// ErrDeliveryFailed is logged only; it never reaches the caller of a pipeline.
	ErrDeliveryFailed = errors.New("delivery failed")
)

// Describe renders the one-line message shown to whoever triggered err.
func Describe(err error) string {
	var (
		processed *models.AlreadyProcessedError
		input     *InputError
	)
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidTxID):
		return "⚠️ Invalid transaction ID format. Please check and try again."
	case errors.Is(err, ErrDuplicateTxID):
		return "⚠️ This transaction ID was already submitted."
	case errors.Is(err, ErrMalformedPayload), errors.Is(err, callback.ErrMalformed):
		return "⚠️ Invalid callback data"
	case errors.As(err, &input):
		return "⚠️ " + input.Reason
	case errors.Is(err, ErrNotFound):
		return "⚠️ Transaction not found!"
	case errors.As(err, &processed):
		return fmt.Sprintf("⚠️ Transaction already %s", processed.Status)
	case errors.Is(err, ErrUnauthorized):
		return "⛔ Unauthorized"
	default:
		return "⚠️ Something went wrong. Please try again."
	}
}

// InputError carries a reason that is safe to show to the sender.
type InputError struct {
	Reason string
}

func (e *InputError) Error() string { return "invalid input: " + e.Reason }

func (e *InputError) Is(target error) bool { return target == ErrInvalidInput }

func invalidInput(format string, args ...any) error {
	return &InputError{Reason: fmt.Sprintf(format, args...)}
}
