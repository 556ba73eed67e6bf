package errors

import (
	"errors"
	"fmt"
	"unicode"
	"unicode/utf8"
)

var (
	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")

	ErrRoomNotFound    = fmt.Errorf("room does not exist")
	ErrAlreadyInRoom   = fmt.Errorf("connection already joined a room")
	ErrNotInRoom       = fmt.Errorf("connection has not joined a room")
	ErrInvalidPayload  = fmt.Errorf("invalid payload")
	ErrUnknownEvent    = fmt.Errorf("unknown event")
	ErrUnknownSession  = fmt.Errorf("unknown connection")
	ErrCoordinatorDown = fmt.Errorf("coordinator is not accepting commands")

	ErrUnsupportedLanguage = fmt.Errorf("unsupported language")
	ErrExecutionFailure    = fmt.Errorf("execution failed")
	ErrExecutionTimeout    = fmt.Errorf("execution timed out")
	ErrSandboxBusy         = fmt.Errorf("sandbox capacity reached")

	ErrTransportFailure = fmt.Errorf("transport failure")
)

// UserMessage is the text shown to a client for err.
// Known sentinels are reported without their wrapping context.
func UserMessage(err error) string {
	msg := err.Error()
	for _, known := range []error{ErrRoomNotFound, ErrAlreadyInRoom, ErrNotInRoom} {
		if errors.Is(err, known) {
			msg = known.Error()
			break
		}
	}
	r, size := utf8.DecodeRuneInString(msg)
	if r == utf8.RuneError {
		return msg
	}
	return string(unicode.ToUpper(r)) + msg[size:]
}
