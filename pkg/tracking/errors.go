package tracking

import (
	"context"
	"errors"
	"fmt"
)

type ErrorKind int

const (
	// Session never started, not surfaced to the viewer.
	MissingIdentifier ErrorKind = iota
	SnapshotFetchFailed
	SnapshotParseFailed
	ChannelTransportError
	ChannelMessageParseFailed
	// Expected on a shared channel, dropped silently.
	IdentifierMismatch
	// Snapshot query or channel open did not finish in time.
	Timeout
)

var errorKindNames = map[ErrorKind]string{
	MissingIdentifier:         "missingIdentifier",
	SnapshotFetchFailed:       "snapshotFetchFailed",
	SnapshotParseFailed:       "snapshotParseFailed",
	ChannelTransportError:     "channelTransportError",
	ChannelMessageParseFailed: "channelMessageParseFailed",
	IdentifierMismatch:        "identifierMismatch",
	Timeout:                   "timeout",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("errorKind(%d)", int(k))
}

var (
	// Returned by a SnapshotFetcher when the answer has an unexpected shape.
	ErrMalformedSnapshot = errors.New("malformed ticket snapshot")

	// Returned by Conn.ReadMessage when the peer closed the channel normally.
	ErrChannelClosed = errors.New("push channel closed")
)

// Error is the classified failure a session records for its viewer.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func newError(kind ErrorKind, message string, err error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%v: %v", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type timeoutError interface {
	Timeout() bool
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var te timeoutError
	return errors.As(err, &te) && te.Timeout()
}

// A human readable message is taken from the error when the collaborator
// provides one (e.g. the "message" field of an error body).
type messager interface {
	UserMessage() string
}

func userMessage(err error, fallback string) string {
	var m messager
	if errors.As(err, &m) && m.UserMessage() != "" {
		return m.UserMessage()
	}
	return fallback
}

func classifySnapshotError(err error) *Error {
	switch {
	case isTimeout(err):
		return newError(Timeout, "Fetching queue details timed out.", err)
	case errors.Is(err, ErrMalformedSnapshot):
		return newError(SnapshotParseFailed, "Unexpected queue details received.", err)
	default:
		return newError(SnapshotFetchFailed, userMessage(err, "Failed to fetch queue details."), err)
	}
}

func classifyChannelError(err error) *Error {
	if isTimeout(err) {
		return newError(Timeout, "Opening the live update connection timed out.", err)
	}
	return newError(ChannelTransportError, "Live update connection error.", err)
}
