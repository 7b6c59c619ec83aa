package domain

import "errors"

var (
	// ErrRoomNotFound is returned for an unknown or already closed room code.
	ErrRoomNotFound = errors.New("room not found")
	// ErrPlayerNotFound is returned when a client acts in a room it never joined.
	ErrPlayerNotFound = errors.New("player not found in room")
	// ErrRoomCodeTaken signals a code collision; callers draw a new code.
	ErrRoomCodeTaken = errors.New("room code already in use")
	// ErrRoomCodesExhausted is returned when no free code was found within the attempt bound.
	ErrRoomCodesExhausted = errors.New("no free room code")
	// ErrInvalidOptions rejects an unknown operation or difficulty.
	ErrInvalidOptions = errors.New("invalid game options")
	// ErrUnknownCommand is returned for an inbound message with an unsupported type.
	ErrUnknownCommand = errors.New("unsupported message type")
	// ErrInvalidPayload is returned when an inbound payload does not decode.
	ErrInvalidPayload = errors.New("invalid message payload")
	// ErrClientMismatch rejects a payload naming a client other than the connection's.
	ErrClientMismatch = errors.New("client id does not match connection")
	// ErrResultNotFound indicates an archived game result does not exist.
	ErrResultNotFound = errors.New("game result not found")
)

// ErrorKind is the coarse error category reported to clients.
type ErrorKind string

const (
	KindNotFound ErrorKind = "notFound"
	KindInvalid  ErrorKind = "invalid"
	KindInternal ErrorKind = "internal"
)

// KindOf classifies err for the client-facing error event.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrRoomNotFound), errors.Is(err, ErrPlayerNotFound), errors.Is(err, ErrResultNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidOptions), errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrInvalidPayload), errors.Is(err, ErrClientMismatch):
		return KindInvalid
	default:
		return KindInternal
	}
}
