package producer

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a ProducerError.
type ErrorKind int

const (
	// KindSerialization: the payload could not become a wire Message.
	KindSerialization ErrorKind = iota
	// KindConnection: the broker connection reported a failure.
	KindConnection
	// KindEngineUnavailable: the engine queue is gone or its task ended
	// before resolving the request.
	KindEngineUnavailable
	// KindOpaque: a collaborator error without a structured mapping.
	KindOpaque
)

func (k ErrorKind) String() string {
	switch k {
	case KindSerialization:
		return "serialization"
	case KindConnection:
		return "connection"
	case KindEngineUnavailable:
		return "engine unavailable"
	default:
		return "opaque"
	}
}

// ProducerError is the typed failure surfaced by every send-style call.
type ProducerError struct {
	Kind ErrorKind
	Err  error
}

func (e *ProducerError) Error() string {
	return fmt.Sprintf("producer %s error: %v", e.Kind, e.Err)
}

func (e *ProducerError) Unwrap() error {
	return e.Err
}

var (
	// ErrEngineUnavailable reports that the producer engine ended or its
	// queue endpoint is gone.
	ErrEngineUnavailable = errors.New("producer engine unexpectedly dropped")

	// ErrProducerClosed reports a send on a released producer session.
	ErrProducerClosed = errors.New("producer closed")
)

func serializationError(err error) *ProducerError {
	return &ProducerError{Kind: KindSerialization, Err: err}
}

func connectionError(err error) *ProducerError {
	return &ProducerError{Kind: KindConnection, Err: err}
}

func engineUnavailable() *ProducerError {
	return &ProducerError{Kind: KindEngineUnavailable, Err: ErrEngineUnavailable}
}
