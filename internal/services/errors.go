package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConfiguration marks fatal precondition failures (missing schema,
	// absent credential). Nothing is mutated once one is raised.
	ErrConfiguration = errors.New("configuration error")
	// ErrValidation marks records or arguments rejected before any store
	// round trip.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups for entities the store does not hold.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks store or network failures that may succeed on a
	// later invocation.
	ErrTransient = errors.New("transient failure")
	// ErrExternalAPI marks failures reported by the lookup API itself.
	ErrExternalAPI = errors.New("external api error")
)

// Wrap builds an error message that includes component context while tagging
// it with the provided marker for later classification. The marker should be
// one of the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether an error should abort the whole invocation rather
// than a single batch, phase, or queue item.
func IsFatal(err error) bool {
	return errors.Is(err, ErrConfiguration)
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
