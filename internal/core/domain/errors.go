package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Wrap with WrapError and test with IsKind.
var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrExtraction       = errors.New("pdf extraction failed")
	ErrRemoteService    = errors.New("remote service error")
	ErrTemporary        = errors.New("temporary failure")
)

var kinds = []error{ErrInvalidInput, ErrDocumentNotFound, ErrTemporary, ErrRemoteService, ErrExtraction}

// WrapError tags err with kind and the failing operation.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}

// KindOf returns the highest-priority kind err carries, or nil for untyped
// errors. Caller mistakes win over transient faults, which win over extraction.
func KindOf(err error) error {
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
