package producer

import (
	"fmt"
	"sync"

	"github.com/downfa11-org/cursus-client/pkg/config"
	"github.com/downfa11-org/cursus-client/pkg/connection"
	"github.com/downfa11-org/cursus-client/pkg/types"
	"github.com/downfa11-org/cursus-client/util"
)

const defaultQueueSize = 4096

// MultiTopicProducer publishes to any number of topics through one handle.
// Sessions are created lazily per topic, reused across calls and released on
// Close. Safe for concurrent use.
type MultiTopicProducer struct {
	clientID string
	inbound  chan sendRequest

	mu     sync.RWMutex
	closed bool
}

// NewMultiTopicProducer starts the engine goroutine over the given broker
// connection. The connection stays owned by the caller; Close stops the
// engine but does not close the connection.
func NewMultiTopicProducer(conn connection.Connection, cfg *config.ClientConfig) *MultiTopicProducer {
	if cfg == nil {
		cfg = config.DefaultClientConfig()
	}

	size := cfg.QueueSize
	if size <= 0 {
		size = defaultQueueSize
	}

	m := &MultiTopicProducer{
		clientID: util.GenerateClientID(),
		inbound:  make(chan sendRequest, size),
	}

	prefix := cfg.ProducerNamePrefix
	nameFor := func(topic string) string {
		if prefix == "" {
			return ""
		}
		return fmt.Sprintf("%s-%s", prefix, topic)
	}

	e := newEngine(conn, nameFor, m.inbound)
	go e.run()

	util.Debug("multi-topic producer %s started (queue=%d)", m.clientID, size)
	return m
}

// Send serializes a typed value and routes it to the topic's session,
// creating the session on first use. The returned channel resolves exactly
// once with a receipt or a typed error; callers may abandon it freely.
// Calls from one goroutine are enqueued in call order, but completion order
// across topics or callers is not guaranteed.
func (m *MultiTopicProducer) Send(topic string, value types.Serializable) <-chan SendResult {
	msg, err := value.SerializeMessage()
	if err != nil {
		return resolved(SendResult{Err: serializationError(err)})
	}
	return m.enqueue(topic, msg)
}

// SendJSON marshals a value with encoding/json and publishes it.
func (m *MultiTopicProducer) SendJSON(topic string, value interface{}, properties map[string]string) <-chan SendResult {
	return m.Send(topic, types.JSONMessage{Value: value, Properties: properties})
}

// SendRaw publishes bytes as-is with optional properties.
func (m *MultiTopicProducer) SendRaw(topic string, data []byte, properties map[string]string) <-chan SendResult {
	return m.Send(topic, types.RawMessage{Data: data, Properties: properties})
}

func (m *MultiTopicProducer) enqueue(topic string, msg *types.Message) <-chan SendResult {
	result := make(chan SendResult, 1)

	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return resolved(SendResult{Err: engineUnavailable()})
	}
	m.inbound <- sendRequest{topic: topic, msg: msg, result: result}
	m.mu.RUnlock()

	return result
}

// ClientID identifies this producer instance in logs.
func (m *MultiTopicProducer) ClientID() string {
	return m.clientID
}

// Close stops the engine after it drains what is already queued. Queued
// requests still resolve; requests submitted after Close resolve with the
// engine-unavailable error. Idempotent.
func (m *MultiTopicProducer) Close() {
	m.mu.Lock()
	if !m.closed {
		m.closed = true
		close(m.inbound)
	}
	m.mu.Unlock()
}

// Await blocks for the result of one send. A channel closed without a value
// means the engine ended mid-flight and maps to the engine-unavailable error.
func Await(result <-chan SendResult) (*types.SendReceipt, error) {
	r, ok := <-result
	if !ok {
		return nil, engineUnavailable()
	}
	return r.Receipt, r.Err
}

func resolved(r SendResult) <-chan SendResult {
	ch := make(chan SendResult, 1)
	ch <- r
	return ch
}
