// Package apperr defines the business error kinds surfaced by the
// scheduling and reservation services. Store/infrastructure failures are
// wrapped with %w and propagate unchanged; they are a different tier.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies a business rule violation.
type Kind string

const (
	KindTemplateNotFound      Kind = "template_not_found"
	KindTemplateAlreadyExists Kind = "template_already_exists"
	KindTemplateOverlap       Kind = "template_overlap"
	KindInvalidTemplateTime   Kind = "invalid_template_time"
	KindInvalidInterval       Kind = "invalid_interval"
	KindNoScheduleForDate     Kind = "no_schedule_for_date"
	KindPastDate              Kind = "past_date"
	KindReservationNotFound   Kind = "reservation_not_found"
	KindReservationConflict   Kind = "reservation_conflict"
	KindReservationStatus     Kind = "reservation_status"
)

// Error is a business error with a kind and a human-readable message.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches two Errors by kind, so errors.Is(err, apperr.New(kind, ""))
// and the sentinel helpers below work through wrapping.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an error of the given kind.
func New(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the business kind of err, or "" if err is not a business
// error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is a business error of the given kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Sentinels for errors.Is checks.
var (
	ErrTemplateNotFound      = &Error{Kind: KindTemplateNotFound, Message: "schedule template not found"}
	ErrTemplateAlreadyExists = &Error{Kind: KindTemplateAlreadyExists, Message: "active schedule template already exists"}
	ErrTemplateOverlap       = &Error{Kind: KindTemplateOverlap, Message: "schedule template overlaps an existing one"}
	ErrInvalidTemplateTime   = &Error{Kind: KindInvalidTemplateTime, Message: "template start time must be before end time"}
	ErrInvalidInterval       = &Error{Kind: KindInvalidInterval, Message: "slot interval exceeds template duration"}
	ErrNoScheduleForDate     = &Error{Kind: KindNoScheduleForDate, Message: "no active schedule for requested date"}
	ErrPastDate              = &Error{Kind: KindPastDate, Message: "requested date is in the past"}
	ErrReservationNotFound   = &Error{Kind: KindReservationNotFound, Message: "reservation not found"}
	ErrReservationConflict   = &Error{Kind: KindReservationConflict, Message: "reservation conflicts with an existing one"}
	ErrReservationStatus     = &Error{Kind: KindReservationStatus, Message: "operation not allowed in current reservation status"}
)
