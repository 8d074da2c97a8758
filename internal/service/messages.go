package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/Fi44er/deposit_bot/internal/callback"
	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/shopspring/decimal"
)

type Control struct {
	Label   string
	Payload string
}

type Message struct {
	Text     string
	Markdown bool
	Controls [][]Control
}

// Origin identifies an already sent message that should be edited in place.
type Origin struct {
	ChatID    string
	MessageID int
}

type Submitter struct {
	FirstName string
	LastName  string
	Username  string
}

func (s Submitter) display() string {
	username := "No username"
	if s.Username != "" {
		username = "@" + s.Username
	}
	name := strings.TrimSpace(s.FirstName + " " + s.LastName)
	return fmt.Sprintf("%s (%s)", name, username)
}

func shortTxID(txID string) string {
	if len(txID) <= 10 {
		return txID
	}
	return txID[:10] + "..."
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// markdown v1 has no escaping inside code spans, so backticks are dropped
func codeSpan(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

func escapeMarkdown(s string) string {
	return strings.NewReplacer("_", "\\_", "*", "\\*", "[", "\\[", "`", "\\`").Replace(s)
}

func submissionReceivedMessage() Message {
	return Message{Text: "📝 Transaction submitted for admin review. You'll be notified when processed.\n\n" +
		"⚠️ Note: Processing may take up to 24 hours."}
}

func newSubmissionMessage(userID string, submitter Submitter, tx *models.Transaction) Message {
	text := fmt.Sprintf(
		"🚨 *New Transaction Submitted!*\n\n"+
			"👤 User: %s\n"+
			"🆔 User ID: %s\n"+
			"🪙 Crypto: %s\n"+
			"🔗 TXID: %s\n"+
			"💵 Amount: $%s\n"+
			"🕐 Submitted: %s\n"+
			"📊 Status: Pending",
		escapeMarkdown(submitter.display()),
		codeSpan(userID),
		escapeMarkdown(tx.Crypto),
		codeSpan(tx.TxID),
		tx.Amount.String(),
		tx.Timestamp.Format(time.DateTime),
	)
	return Message{
		Text:     text,
		Markdown: true,
		Controls: [][]Control{
			{
				{Label: "✅ Approve", Payload: callback.Approve(userID, tx.TxID).Encode()},
				{Label: "❌ Reject", Payload: callback.Reject(userID, tx.TxID).Encode()},
			},
			{{Label: "📝 Add Note", Payload: callback.Note(userID, tx.TxID).Encode()}},
		},
	}
}

func decidedAdminMessage(userID string, tx *models.Transaction) Message {
	header, label := "✅ Transaction approved!", "📝 Add Note"
	if tx.Status == models.StatusRejected {
		header, label = "❌ Transaction rejected!", "📝 Add Reason"
	}
	text := fmt.Sprintf("%s\n• Amount: $%s\n• User: %s\n• TXID: %s", header, tx.Amount.String(), userID, shortTxID(tx.TxID))
	if tx.AdminNote != "" {
		text += "\n• Note: " + tx.AdminNote
	}
	return Message{
		Text:     text,
		Controls: [][]Control{{{Label: label, Payload: callback.Note(userID, tx.TxID).Encode()}}},
	}
}

func approvedUserMessage(tx *models.Transaction, balance decimal.Decimal) Message {
	text := fmt.Sprintf("🎉 Your transaction has been approved!\n• Amount: $%s\n• New balance: $%s", tx.Amount.String(), money(balance))
	if tx.AdminNote != "" {
		text += "\n• Note: " + tx.AdminNote
	}
	return Message{Text: text}
}

func rejectedUserMessage(tx *models.Transaction) Message {
	text := "⚠️ Your transaction was rejected.\n"
	if tx.AdminNote != "" {
		text += "Reason: " + tx.AdminNote + "\n"
	}
	text += "Please contact support if you believe this was a mistake."
	return Message{Text: text}
}

func notePromptMessage(userID, txID string) Message {
	return Message{
		Text:     "✏️ Please reply with your note for this transaction:",
		Controls: [][]Control{{{Label: "Cancel", Payload: callback.CancelNote(userID, txID).Encode()}}},
	}
}

func noteRelayMessage(note string) Message {
	return Message{Text: "📝 Admin note for your transaction:\n" + note}
}
