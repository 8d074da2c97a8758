package models

import (
	"errors"
	"fmt"
)

var (
	// ErrVersionConflict is returned by a store when the record changed
	// since it was loaded.
	ErrVersionConflict = errors.New("version conflict")

	// ErrDuplicateTxID is returned when a txid is already held by any account.
	ErrDuplicateTxID = errors.New("transaction id already submitted")

	ErrAlreadyProcessed = errors.New("transaction already processed")
)

type AlreadyProcessedError struct {
	Status Status
}

func (e *AlreadyProcessedError) Error() string {
	return fmt.Sprintf("transaction already %s", e.Status)
}

func (e *AlreadyProcessedError) Is(target error) bool {
	return target == ErrAlreadyProcessed
}
