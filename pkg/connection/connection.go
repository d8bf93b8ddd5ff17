package connection

import (
	"errors"
	"fmt"

	"github.com/downfa11-org/cursus-client/pkg/types"
)

// Connection is the broker transport consumed by producer sessions. Calls are
// synchronous; implementations must be safe for concurrent use, since the
// engine issues every call from its own short-lived goroutine.
type Connection interface {
	// LookupTopic resolves which broker endpoint currently serves a topic.
	LookupTopic(topic string, authoritative bool) (*types.LookupResult, error)

	// CreateProducer registers a producer session on the broker. An empty
	// requestedName lets the broker assign one.
	CreateProducer(topic string, producerID uint64, requestedName string) (*types.ProducerSuccess, error)

	// Send publishes one message under an established producer session.
	// numMessages is only meaningful for batch metadata; 0 means a single message.
	Send(producerID uint64, producerName string, sequenceID uint64, numMessages int32, msg *types.Message) (*types.SendReceipt, error)

	// CloseProducer releases broker-side session state. Callers treat it as
	// fire-and-forget and discard the error.
	CloseProducer(producerID uint64) error

	// IsValid reports whether the connection is still usable.
	IsValid() bool

	// Error returns the failure that invalidated the connection, if any.
	Error() error

	Close() error
}

// ConnError is a transport, lookup, creation or send failure reported by the
// broker connection.
type ConnError struct {
	Op   string
	Addr string
	Err  error
}

func (e *ConnError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("connection %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("connection %s (%s): %v", e.Op, e.Addr, e.Err)
}

func (e *ConnError) Unwrap() error {
	return e.Err
}

// ErrConnectionClosed reports an operation attempted on a closed or
// invalidated connection.
var ErrConnectionClosed = errors.New("connection closed")
