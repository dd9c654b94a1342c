package drafterrors

import (
	"errors"
	"fmt"
)

// Kind classifies a draft engine failure.
type Kind string

const (
	KindLockContention        Kind = "LOCK_CONTENTION"
	KindNotFound              Kind = "NOT_FOUND"
	KindWrongTurn             Kind = "WRONG_TURN"
	KindDeadlinePassed        Kind = "DEADLINE_PASSED"
	KindInvalidState          Kind = "INVALID_STATE"
	KindNoPlayersAvailable    Kind = "NO_PLAYERS_AVAILABLE"
	KindDependencyUnavailable Kind = "DEPENDENCY_UNAVAILABLE"
	KindPlayerAlreadyDrafted  Kind = "PLAYER_ALREADY_DRAFTED"
	KindVersionConflict       Kind = "VERSION_CONFLICT"
	KindInvalidArgument       Kind = "INVALID_ARGUMENT"
	KindInternal              Kind = "INTERNAL"
)

// Sentinels for errors.Is; matching compares Kind only.
var (
	ErrLockContention        = &Error{Kind: KindLockContention, Message: "draft is locked by another request"}
	ErrNotFound              = &Error{Kind: KindNotFound, Message: "draft not found"}
	ErrWrongTurn             = &Error{Kind: KindWrongTurn, Message: "team is not on the clock"}
	ErrDeadlinePassed        = &Error{Kind: KindDeadlinePassed, Message: "pick deadline has passed"}
	ErrInvalidState          = &Error{Kind: KindInvalidState, Message: "draft is not in a valid state for this operation"}
	ErrNoPlayersAvailable    = &Error{Kind: KindNoPlayersAvailable, Message: "no players available"}
	ErrDependencyUnavailable = &Error{Kind: KindDependencyUnavailable, Message: "dependency unavailable"}
	ErrPlayerAlreadyDrafted  = &Error{Kind: KindPlayerAlreadyDrafted, Message: "player already drafted"}
	ErrVersionConflict       = &Error{Kind: KindVersionConflict, Message: "draft state changed concurrently"}
	ErrInvalidArgument       = &Error{Kind: KindInvalidArgument, Message: "invalid argument"}
	ErrInternal              = &Error{Kind: KindInternal, Message: "internal error"}
)

// Error is a classified draft engine error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error with the same Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

// New returns an error of kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies err under kind. Any *Error already in err's chain is
// folded into the message so the result carries exactly one kind.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	msg := fmt.Sprintf(format, args...)
	var inner *Error
	for errors.As(err, &inner) {
		msg += ": " + inner.Message
		err = inner.Err
	}
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Unavailable wraps a cache, store or bus failure.
func Unavailable(err error, format string, args ...any) *Error {
	return Wrap(KindDependencyUnavailable, err, format, args...)
}

// KindOf returns the Kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Retryable reports whether the caller may simply try again.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindLockContention, KindVersionConflict, KindDependencyUnavailable:
		return true
	default:
		return false
	}
}
