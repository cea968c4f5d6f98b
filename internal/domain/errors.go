package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrPanelNotFound signals an unknown panel id.
	ErrPanelNotFound = errors.New("panel not found")
	// ErrInvalidDefinition signals an invalid panel configuration.
	ErrInvalidDefinition = errors.New("invalid panel definition")
	// ErrInvalidWeights signals a weights payload that is not a JSON object.
	ErrInvalidWeights = errors.New("invalid weights")
	// ErrWeightsUnavailable signals an unreachable or empty weights file.
	ErrWeightsUnavailable = errors.New("weights unavailable")
	// ErrSearchBackend signals a failed search backend call.
	ErrSearchBackend = errors.New("search backend error")
	// ErrMalformedAggregation signals an aggregation response of unexpected shape.
	ErrMalformedAggregation = errors.New("malformed aggregation result")
	// ErrInspectorDisabled signals that the panel is not spyable.
	ErrInspectorDisabled = errors.New("inspector disabled")
	// ErrNoData signals that the panel has not completed a data fetch yet.
	ErrNoData = errors.New("no data")
)

// MalformedError wraps ErrMalformedAggregation with the path that failed to parse.
type MalformedError struct {
	Path string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrMalformedAggregation.Error(), e.Path)
}

func (e *MalformedError) Unwrap() error { return ErrMalformedAggregation }

// NewMalformed creates a malformed aggregation error for path.
func NewMalformed(path string) error {
	return &MalformedError{Path: path}
}
