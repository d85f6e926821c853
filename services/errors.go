package services

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// Rule violations returned by the booking, access and query services.
// Callers match them with errors.Is; messages are safe to show to clients.
var (
	ErrMissingIdentity       = errors.New("Teacher-ID header is required")
	ErrUnknownIdentity       = errors.New("no teacher matches the Teacher-ID header")
	ErrForbidden             = errors.New("permission denied")
	ErrConflict              = errors.New("schedule already exists for this teacher, student and date")
	ErrInvalidInput          = errors.New("invalid input")
	ErrInvalidRange          = errors.New("start date cannot be later than end date")
	ErrRangeTooLong          = errors.New("end date cannot be more than 1 year from today")
	ErrInvalidFrequency      = errors.New("invalid frequency: choose either 2 or 4 weeks")
	ErrAlreadyComplete       = errors.New("schedule is already completed")
	ErrCannotDeleteCompleted = errors.New("completed schedules cannot be deleted")
	ErrNotFound              = errors.New("not found")
)

// IsDuplicateKey reports whether err is a unique index violation. gorm only
// translates it when TranslateError is on, so driver messages are checked too.
func IsDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "Duplicate entry")
}
