package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"plotline/internal/export"
	"plotline/internal/gitstore"
	"plotline/internal/scripteval"
)

// DomainError carries an HTTP status and a stable machine code across the
// service boundary. Handlers unwrap it with mapError; everything else
// surfaces as a 500.
type DomainError struct {
	Status  int
	Code    string
	Message string
	Details any
}

func (e *DomainError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func domainError(status int, code, message string, details any) *DomainError {
	return &DomainError{
		Status:  status,
		Code:    code,
		Message: message,
		Details: details,
	}
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	switch {
	case errors.Is(err, gitstore.ErrNotFound), errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound, "NOT_FOUND", "Not found", nil
	case errors.Is(err, gitstore.ErrRevisionNotFound):
		return http.StatusNotFound, "REVISION_NOT_FOUND", "Revision not found", nil
	case errors.Is(err, gitstore.ErrDuplicateSnapshot):
		return http.StatusConflict, "SNAPSHOT_EXISTS", "Snapshot name already used", nil
	case errors.Is(err, gitstore.ErrMalformedDocument):
		return http.StatusInternalServerError, "MALFORMED_DOCUMENT", "Stored document is unreadable", nil
	case errors.Is(err, scripteval.ErrScriptNotFound):
		return http.StatusUnprocessableEntity, "SCRIPT_NOT_FOUND", "Evaluation script not found", nil
	case errors.Is(err, scripteval.ErrBadScript):
		return http.StatusUnprocessableEntity, "SCRIPT_FAILED", "Evaluation script failed", nil
	case errors.Is(err, export.ErrPDFDependencyMissing), errors.Is(err, export.ErrDOCXDependencyMissing):
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", err.Error(), nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
