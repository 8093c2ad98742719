package errors

import (
	goerrors "errors"
	"fmt"
)

var (
	ErrWorkerPanic       = fmt.Errorf("worker panic")
	ErrValidation        = fmt.Errorf("validation error")
	ErrPersistence       = fmt.Errorf("persistence error")
	ErrUnknownHandle     = fmt.Errorf("unknown handle")
	ErrUnauthenticated   = fmt.Errorf("unauthenticated")
	ErrIdentityMismatch  = fmt.Errorf("%w: identity does not match session token", ErrUnauthenticated)
	ErrAnonymousSender   = fmt.Errorf("%w: anonymous session cannot send messages", ErrValidation)
	ErrSenderMismatch    = fmt.Errorf("%w: sender identity differs from session identity", ErrValidation)
	ErrEmptyRoomKey      = fmt.Errorf("%w: room key is required", ErrValidation)
	ErrPersistQueueFull  = fmt.Errorf("%w: persistence queue is full", ErrPersistence)
	ErrInvalidPayload    = fmt.Errorf("invalid payload")
	ErrUnknownEvent      = fmt.Errorf("unknown event")
	ErrSlowConsumer      = fmt.Errorf("connection buffer is full")
	ErrDispatcherStopped = fmt.Errorf("dispatcher stopped")
)

// Code maps an error to the stable code sent to clients in acknowledgments.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, ErrValidation):
		return "validation_error"
	case goerrors.Is(err, ErrPersistence):
		return "persistence_error"
	case goerrors.Is(err, ErrUnauthenticated):
		return "unauthenticated"
	case goerrors.Is(err, ErrUnknownHandle):
		return "unknown_handle"
	case goerrors.Is(err, ErrInvalidPayload), goerrors.Is(err, ErrUnknownEvent):
		return "bad_request"
	default:
		return "internal_error"
	}
}
