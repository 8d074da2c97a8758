package service

import (
	"context"
	"strings"

	"github.com/Fi44er/deposit_bot/internal/audit"
	"github.com/Fi44er/deposit_bot/internal/callback"
	"github.com/Fi44er/deposit_bot/internal/metrics"
	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/shopspring/decimal"
)

// HandleAction runs one admin button press. origin is the message carrying
// the button; it is edited to reflect the outcome.
func (s *Service) HandleAction(ctx context.Context, adminID string, conv Conversation, p callback.Payload, origin *Origin) (Conversation, error) {
	if !s.IsAdmin(adminID) {
		metrics.Decisions.WithLabelValues(string(p.Action), "unauthorized").Inc()
		return conv, ErrUnauthorized
	}

	switch p.Action {
	case callback.ActionApprove, callback.ActionReject:
		_, err := s.Decide(ctx, p, origin)
		return conv, err
	case callback.ActionNote:
		return s.BeginNote(ctx, adminID, conv, p, origin)
	case callback.ActionCancelNote:
		return s.CancelNote(ctx, conv, origin), nil
	default:
		return conv, ErrMalformedPayload
	}
}

// Decide approves or rejects a pending transaction. Approval credits the
// amount to the owner's confirmed total in the same write.
func (s *Service) Decide(ctx context.Context, p callback.Payload, origin *Origin) (*models.Transaction, error) {
	var (
		decided *models.Transaction
		balance decimal.Decimal
	)
	_, err := s.updateAccount(ctx, p.UserID, func(doc *models.Document) (*models.Account, error) {
		acc, tx := resolve(doc, p)
		if tx == nil {
			return nil, ErrNotFound
		}

		at := s.now()
		switch p.Action {
		case callback.ActionApprove:
			if err := tx.Approve(at); err != nil {
				return nil, err
			}
			acc.Credit(tx.Amount)
		case callback.ActionReject:
			if err := tx.Reject(at); err != nil {
				return nil, err
			}
		default:
			return nil, ErrMalformedPayload
		}
		if note := strings.TrimSpace(p.Note); note != "" {
			tx.AdminNote = note
		}

		decided, balance = tx, acc.TotalConfirmed
		return acc, nil
	})
	metrics.Decisions.WithLabelValues(string(p.Action), resultLabel(err)).Inc()
	if err != nil {
		return nil, err
	}

	event := audit.EventApproved
	if decided.Status == models.StatusRejected {
		event = audit.EventRejected
	}
	s.audit.LogTransaction(event, p.UserID, decided.TxID, decided.Amount, decided.Status)
	s.logger.Infof("Transaction %s of %s %s", decided.TxID, p.UserID, decided.Status)

	s.edit(ctx, origin, decidedAdminMessage(p.UserID, decided))
	if decided.Status == models.StatusApproved {
		_ = s.notify(ctx, p.UserID, approvedUserMessage(decided, balance))
	} else {
		_ = s.notify(ctx, p.UserID, rejectedUserMessage(decided))
	}
	return decided, nil
}

// BeginNote moves the admin's conversation into note capture for the
// referenced transaction.
func (s *Service) BeginNote(ctx context.Context, adminID string, conv Conversation, p callback.Payload, origin *Origin) (Conversation, error) {
	doc, err := s.Snapshot(ctx)
	if err != nil {
		return conv, err
	}
	_, tx := resolve(doc, p)
	if tx == nil {
		metrics.Decisions.WithLabelValues(string(p.Action), "not_found").Inc()
		return conv, ErrNotFound
	}

	// legacy payloads may carry the note text inline
	if note := strings.TrimSpace(p.Note); note != "" {
		return conv, s.attachNote(ctx, adminID, p.UserID, tx.TxID, note)
	}

	metrics.Decisions.WithLabelValues(string(p.Action), "ok").Inc()
	s.edit(ctx, origin, notePromptMessage(p.UserID, tx.TxID))
	return conv.AwaitNote(p.UserID, tx.TxID), nil
}

// CancelNote leaves note capture without attaching anything.
func (s *Service) CancelNote(ctx context.Context, conv Conversation, origin *Origin) Conversation {
	metrics.Decisions.WithLabelValues(string(callback.ActionCancelNote), "ok").Inc()
	s.edit(ctx, origin, Message{Text: "📝 Note addition cancelled."})
	return conv.Idle()
}

// CaptureNote attaches text to the transaction the conversation is waiting
// on. The conversation always leaves note capture, even on failure.
func (s *Service) CaptureNote(ctx context.Context, adminID string, conv Conversation, text string) (Conversation, error) {
	next := conv.Idle()
	if !s.IsAdmin(adminID) {
		return next, ErrUnauthorized
	}
	if conv.Stage != StageAwaitingNote || conv.NoteTxID == "" {
		return next, ErrNotFound
	}
	note := strings.TrimSpace(text)
	if note == "" {
		return next, invalidInput("Note must not be empty.")
	}

	return next, s.attachNote(ctx, adminID, conv.NoteUserID, conv.NoteTxID, note)
}

func (s *Service) attachNote(ctx context.Context, adminID, userID, txID, note string) error {
	var noted *models.Transaction
	_, err := s.updateAccount(ctx, userID, func(doc *models.Document) (*models.Account, error) {
		acc, tx := doc.FindTransaction(userID, txID)
		if tx == nil {
			return nil, ErrNotFound
		}
		tx.AdminNote = note
		noted = tx
		return acc, nil
	})
	metrics.Decisions.WithLabelValues("note_text", resultLabel(err)).Inc()
	if err != nil {
		return err
	}

	s.audit.LogTransaction(audit.EventNoted, userID, noted.TxID, noted.Amount, noted.Status)
	// pending transactions carry the note into the decision messages instead
	if noted.IsDecided() {
		_ = s.notify(ctx, userID, noteRelayMessage(note))
	}
	_ = s.notify(ctx, adminID, Message{Text: "📝 Note added to transaction!"})
	return nil
}

func resolve(doc *models.Document, p callback.Payload) (*models.Account, *models.Transaction) {
	if p.Partial {
		if acc, tx := doc.FindTransaction(p.UserID, p.TxID+callback.PartialMarker); tx != nil {
			return acc, tx
		}
		return doc.FindTransactionPrefix(p.UserID, p.TxID)
	}
	return doc.FindTransaction(p.UserID, p.TxID)
}
