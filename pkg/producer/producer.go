package producer

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/downfa11-org/cursus-client/pkg/connection"
	"github.com/downfa11-org/cursus-client/pkg/metrics"
	"github.com/downfa11-org/cursus-client/pkg/types"
	"github.com/downfa11-org/cursus-client/util"
)

// Producer is one broker session bound to a single topic. It holds a shared
// connection reference, a random 64-bit identity, the broker-assigned name
// and the session's sequence counter.
//
// Sessions are reference-counted: the engine's map entry and every in-flight
// send dispatch each hold one reference. When the last reference is released
// the session issues exactly one fire-and-forget CloseProducer whose outcome
// is discarded. Go has no deterministic destructors, so every owner must call
// Release; a leaked reference leaks broker-side session state.
type Producer struct {
	conn  connection.Connection
	id    uint64
	name  string
	topic string
	seq   *SequenceID

	refs   atomic.Int32
	closed atomic.Bool
}

// NewProducer performs the two-step handshake: resolve the topic's routing,
// then register the session. Failure at either step returns a connection
// error and no session object. requestedName may be empty to let the broker
// assign the name. The returned session holds one reference.
func NewProducer(conn connection.Connection, topic string, requestedName string) (*Producer, error) {
	producerID := util.GenerateProducerID()

	if _, err := conn.LookupTopic(topic, false); err != nil {
		return nil, fmt.Errorf("lookup topic %s: %w", topic, err)
	}

	success, err := conn.CreateProducer(topic, producerID, requestedName)
	if err != nil {
		return nil, fmt.Errorf("create producer for %s: %w", topic, err)
	}

	p := &Producer{
		conn:  conn,
		id:    producerID,
		name:  success.ProducerName,
		topic: topic,
		seq:   NewSequenceID(),
	}
	p.refs.Store(1)

	util.Debug("producer %d (%s) ready for topic %s", producerID, success.ProducerName, topic)
	return p, nil
}

// Send serializes a typed value and publishes it. numMessages carries batch
// metadata for pre-batched payloads; pass 0 for a single message.
func (p *Producer) Send(value types.Serializable, numMessages int32) (*types.SendReceipt, error) {
	msg, err := value.SerializeMessage()
	if err != nil {
		return nil, serializationError(err)
	}
	return p.sendMessage(msg, numMessages)
}

// SendRaw publishes bytes as-is with optional properties. Unlike Send, the
// connection error is surfaced unwrapped.
func (p *Producer) SendRaw(data []byte, properties map[string]string) (*types.SendReceipt, error) {
	if p.closed.Load() {
		return nil, ErrProducerClosed
	}

	seqID := p.seq.Next()
	start := time.Now()
	receipt, err := p.conn.Send(p.id, p.name, seqID, 0, &types.Message{Payload: data, Properties: properties})
	metrics.ObserveSend(time.Since(start).Seconds(), err)
	return receipt, err
}

// SendJSON marshals a value with encoding/json and publishes it.
func (p *Producer) SendJSON(value interface{}, properties map[string]string) (*types.SendReceipt, error) {
	msg, err := types.JSONMessage{Value: value, Properties: properties}.SerializeMessage()
	if err != nil {
		return nil, serializationError(err)
	}
	return p.sendMessage(msg, 0)
}

func (p *Producer) sendMessage(msg *types.Message, numMessages int32) (*types.SendReceipt, error) {
	if p.closed.Load() {
		return nil, &ProducerError{Kind: KindConnection, Err: ErrProducerClosed}
	}

	seqID := p.seq.Next()
	start := time.Now()
	receipt, err := p.conn.Send(p.id, p.name, seqID, numMessages, msg)
	metrics.ObserveSend(time.Since(start).Seconds(), err)
	if err != nil {
		return nil, connectionError(err)
	}
	return receipt, nil
}

// CheckConnection issues an inert topic-resolution probe. It does not touch
// the sequence counter or any session state.
func (p *Producer) CheckConnection() error {
	_, err := p.conn.LookupTopic(p.topic, false)
	return err
}

func (p *Producer) IsValid() bool {
	return p.conn.IsValid()
}

func (p *Producer) Error() error {
	return p.conn.Error()
}

func (p *Producer) Topic() string {
	return p.topic
}

func (p *Producer) Name() string {
	return p.name
}

func (p *Producer) ID() uint64 {
	return p.id
}

// Retain adds an owner reference. Every Retain must be paired with Release.
func (p *Producer) Retain() {
	p.refs.Add(1)
}

// Release drops one owner reference. When the count reaches zero the session
// asynchronously notifies the broker to close the session id; the
// notification never blocks Release and its failure is not surfaced.
func (p *Producer) Release() {
	if p.refs.Add(-1) != 0 {
		return
	}
	if !p.closed.CompareAndSwap(false, true) {
		return
	}
	go func() {
		if err := p.conn.CloseProducer(p.id); err != nil {
			util.Debug("close producer %d: %v", p.id, err)
		}
		metrics.ProducersClosed.Inc()
	}()
}
