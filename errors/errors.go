package errors

import "fmt"

var (
	ErrWorkerPanic      = fmt.Errorf("worker panic")
	ErrParticipantPanic = fmt.Errorf("participant panic")
	ErrUsage            = fmt.Errorf("missing port argument")
	ErrEmptyWords       = fmt.Errorf("no censored word found")
)

// Framing errors never close a connection, the offending frame is dropped.
var (
	ErrFraming          = fmt.Errorf("framing error")
	ErrHeaderLength     = fmt.Errorf("%w: header must be 4 bytes", ErrFraming)
	ErrHeaderNotNumeric = fmt.Errorf("%w: header is not a decimal number", ErrFraming)
	ErrHeaderTooLarge   = fmt.Errorf("%w: body length exceeds 512 bytes", ErrFraming)
	ErrFrameTruncated   = fmt.Errorf("%w: body shorter than header length", ErrFraming)
)

// Transport errors are terminal for the session they happen on.
var (
	ErrConnection = fmt.Errorf("connection error")
	ErrWrite      = fmt.Errorf("write error")
)

var (
	ErrSessionClosed  = fmt.Errorf("session is not active")
	ErrSessionStarted = fmt.Errorf("session already started")
	ErrAlreadyJoined  = fmt.Errorf("participant already joined the room")
)
