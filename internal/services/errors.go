package services

import (
	"errors"
	"fmt"
)

// Request-scoped failures
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUploadNotFound     = errors.New("upload not found")
	ErrCardNotFound       = errors.New("flashcard not found")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrAuthInvalid        = errors.New("invalid or expired token")
)

// Generation pipeline failures. Any of these occurring after the upload was
// claimed also flips the upload into the error status before surfacing.
var (
	ErrUploadFileMissing    = errors.New("stored file missing")
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrModelUnavailable     = errors.New("language model unavailable")
	ErrMalformedModelOutput = errors.New("malformed model output")
	ErrGenerationInProgress = errors.New("generation already in progress")
	ErrNoCardsInModelOutput = errors.New("model output contains no cards")
)

// PermissionError is returned when a user acts on a resource they do not own.
type PermissionError struct {
	UserID     uint
	ResourceID uint
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("user %d cannot %s %s %d: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID uint, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

// IsPermissionError reports whether err is an ownership/role violation.
func IsPermissionError(err error) bool {
	var pe *PermissionError
	return errors.As(err, &pe)
}
