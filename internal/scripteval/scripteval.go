// Package scripteval runs template logic scripts behind a narrow capability
// interface. Consumers hand over a script id and the chat's current state;
// the script decides status and progress. No other layer ever interprets
// script text.
package scripteval

import (
	"context"
	"errors"
)

// Result of one evaluation.
type Result struct {
	Status   string  `json:"status"`
	Progress float64 `json:"progress"`
}

// Evaluator is the capability interface consumed by the service layer.
type Evaluator interface {
	Evaluate(ctx context.Context, scriptID string, input map[string]any) (Result, error)
}

var (
	// ErrScriptNotFound means no script file exists for the id.
	ErrScriptNotFound = errors.New("script not found")

	// ErrBadScript means the script loaded but did not behave: no evaluate
	// function, a runtime failure, or malformed return values.
	ErrBadScript = errors.New("script misbehaved")
)
