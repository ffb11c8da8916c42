package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrQuota         = errors.New("quota exceeded")
	ErrStorage       = errors.New("storage error")
	ErrCancelled     = errors.New("cancelled")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it
// with the provided marker for later classification. The marker should be one
// of the exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsFatal reports whether a stage error must terminate the run. Quota
// exhaustion degrades the result instead of failing it, and cancellation is
// handled separately by the orchestrator.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrQuota) && !errors.Is(err, ErrCancelled)
}

// ErrorDetails captures the classification and human-readable message of an
// error produced through Wrap.
type ErrorDetails struct {
	Kind    string
	Message string
}

// Details derives a classification string and trimmed message for an error.
// Unwrapped errors are reported as transient.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: "transient"}
	}
	kind := "transient"
	switch {
	case errors.Is(err, ErrValidation):
		kind = "validation"
	case errors.Is(err, ErrConfiguration):
		kind = "configuration"
	case errors.Is(err, ErrNotFound):
		kind = "not_found"
	case errors.Is(err, ErrTimeout):
		kind = "timeout"
	case errors.Is(err, ErrQuota):
		kind = "quota"
	case errors.Is(err, ErrStorage):
		kind = "storage"
	case errors.Is(err, ErrCancelled):
		kind = "cancelled"
	case errors.Is(err, ErrExternalTool):
		kind = "external_tool"
	}
	return ErrorDetails{Kind: kind, Message: strings.TrimSpace(err.Error())}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
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
