package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/Fi44er/deposit_bot/internal/audit"
	"github.com/Fi44er/deposit_bot/internal/metrics"
	"github.com/Fi44er/deposit_bot/internal/models"
)

type Submission struct {
	UserID    string
	Crypto    string
	TxID      string
	Submitter Submitter
}

// SubmitDeposit records a pending deposit claim, confirms it to the
// submitter and asks every admin for a decision.
func (s *Service) SubmitDeposit(ctx context.Context, sub Submission) (*models.Transaction, error) {
	txID := strings.TrimSpace(sub.TxID)
	if txID == "" || utf8.RuneCountInString(txID) < s.settings.MinTxIDLength {
		metrics.Submissions.WithLabelValues("invalid").Inc()
		return nil, ErrInvalidTxID
	}

	var created *models.Transaction
	_, err := s.updateAccount(ctx, sub.UserID, func(doc *models.Document) (*models.Account, error) {
		if doc.TxIDExists(txID) {
			return nil, ErrDuplicateTxID
		}
		created = doc.CreateTransaction(sub.UserID, txID, sub.Crypto, s.settings.DepositAmount, s.now())
		return doc.Account(sub.UserID), nil
	})
	if err != nil {
		metrics.Submissions.WithLabelValues(resultLabel(err)).Inc()
		return nil, err
	}

	metrics.Submissions.WithLabelValues("accepted").Inc()
	s.audit.LogTransaction(audit.EventSubmitted, sub.UserID, txID, created.Amount, created.Status)
	s.logger.Infof("Deposit %s submitted by %s (%s)", txID, sub.UserID, sub.Crypto)

	_ = s.notify(ctx, sub.UserID, submissionReceivedMessage())
	_ = s.notifyAdmins(ctx, newSubmissionMessage(sub.UserID, sub.Submitter, created))

	return created, nil
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrStorage):
		return "storage_error"
	case errors.Is(err, ErrDuplicateTxID):
		return "duplicate"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, models.ErrAlreadyProcessed):
		return "already_processed"
	default:
		return "rejected"
	}
}
