package ranknear

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSource is returned when preparing a dataset without a source
	ErrNoSource = errors.New("no source to prepare the dataset from")
	// ErrUnknownTarget is returned when the configured target category has no points
	ErrUnknownTarget = errors.New("target category not found in source")
	// ErrNotReady is returned when saving a dataset that has not been prepared or loaded
	ErrNotReady = errors.New("dataset is not ready")
	// ErrNotFound is returned by stores that hold no saved dataset
	ErrNotFound = errors.New("saved dataset not found")
)

/*
PersistenceError is returned when saved dataset records are missing or
cannot be decoded. Record names the offending record, if any.
*/
type PersistenceError struct {
	Record string
	Err    error
}

func (pe *PersistenceError) Error() string {
	if pe.Record == "" {
		return fmt.Sprintf("malformed saved dataset: %v", pe.Err)
	}
	return fmt.Sprintf("malformed saved dataset record %s: %v", pe.Record, pe.Err)
}

func (pe *PersistenceError) Unwrap() error {
	return pe.Err
}
