package narrative

import (
	"errors"
	"fmt"
)

// Kind classifies a failed generation.
type Kind string

const (
	KindNetwork Kind = "network"
	KindAuth    Kind = "auth"
	KindService Kind = "service"
)

// Sentinels for errors.Is matching against *Error.
var (
	ErrNetwork = errors.New("narrative: network error")
	ErrAuth    = errors.New("narrative: authentication error")
	ErrService = errors.New("narrative: service error")
)

// Error is returned by Generate for every failure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("narrative %s error", e.Kind)
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (%d)", msg, e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind.
func (e *Error) Is(target error) bool {
	switch target {
	case ErrNetwork:
		return e.Kind == KindNetwork
	case ErrAuth:
		return e.Kind == KindAuth
	case ErrService:
		return e.Kind == KindService
	}
	return false
}

// KindOf returns the kind carried by err, or "" when err is not a narrative error.
func KindOf(err error) Kind {
	var nerr *Error
	if errors.As(err, &nerr) {
		return nerr.Kind
	}
	return ""
}

// Notice is the user facing text shown in place of a narrative that failed.
func Notice(err error) string {
	switch KindOf(err) {
	case KindNetwork:
		return "Narrative unavailable: the text generation service could not be reached."
	case KindAuth:
		return "Narrative unavailable: the text generation service rejected the API key."
	case KindService:
		return "Narrative unavailable: the text generation service returned an error."
	default:
		return "Narrative unavailable."
	}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func serviceError(status int, message string, err error) *Error {
	return &Error{Kind: KindService, Status: status, Message: message, Err: err}
}
