// Package audit writes the append-only transaction trail. Lines are meant
// for people; nothing reads them back.
package audit

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/Fi44er/deposit_bot/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const timestampFormat = "2006-01-02 15:04:05"

const (
	EventSubmitted = "Transaction Submitted"
	EventApproved  = "Transaction Approved"
	EventRejected  = "Transaction Rejected"
	EventNoted     = "Note Added"
)

type Log struct {
	logger *logrus.Logger
	closer io.Closer
}

// Open appends to path, creating it if needed.
func Open(path string) (*Log, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	return New(file, file), nil
}

func New(w io.Writer, closer io.Closer) *Log {
	logger := logrus.New()
	logger.SetOutput(w)
	logger.SetFormatter(lineFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return &Log{logger: logger, closer: closer}
}

// Discard is used when the audit file cannot be opened.
func Discard() *Log {
	return New(io.Discard, nil)
}

func (l *Log) LogTransaction(event, userID, txID string, amount decimal.Decimal, status models.Status) {
	l.logger.WithFields(logrus.Fields{
		"user":   userID,
		"txid":   txID,
		"amount": amount.String(),
		"status": string(status),
		"event":  uuid.NewString(),
	}).Info(event)
}

func (l *Log) Close() error {
	if l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

type lineFormatter struct{}

func (lineFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b bytes.Buffer
	fmt.Fprintf(&b, "%s - User %v | Action: %s | TXID: %v | Amount: $%v | Status: %v | Event: %v\n",
		entry.Time.Format(timestampFormat),
		entry.Data["user"],
		entry.Message,
		entry.Data["txid"],
		entry.Data["amount"],
		entry.Data["status"],
		entry.Data["event"],
	)
	return b.Bytes(), nil
}
