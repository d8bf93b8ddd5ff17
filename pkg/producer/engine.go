package producer

import (
	"github.com/downfa11-org/cursus-client/pkg/connection"
	"github.com/downfa11-org/cursus-client/pkg/metrics"
	"github.com/downfa11-org/cursus-client/pkg/types"
	"github.com/downfa11-org/cursus-client/util"
)

// SendResult is the terminal value of one publish request: a receipt or a
// typed error, never both.
type SendResult struct {
	Receipt *types.SendReceipt
	Err     error
}

// sendRequest is one unit of pending work: consumed exactly once by the
// engine, resolved exactly once through result.
type sendRequest struct {
	topic  string
	msg    *types.Message
	result chan SendResult
}

// creationResult travels through the per-topic forwarding channels: either a
// ready session or the creation failure.
type creationResult struct {
	producer *Producer
	err      error
}

// engine is the single-writer actor behind a MultiTopicProducer. Both topic
// maps are touched only from run's goroutine; correctness of the
// one-creation-per-topic guarantee rests on that exclusivity, not on locks.
type engine struct {
	conn    connection.Connection
	nameFor func(topic string) string
	inbound chan sendRequest

	// wake is pinged by creation continuations after they publish into a
	// forwarding channel, so pending state is folded in promptly instead of
	// waiting for the next inbound message.
	wake chan struct{}

	// producers holds one ready session per topic. newProducers holds at
	// most one in-flight creation per topic; a topic is never in both.
	producers    map[string]*Producer
	newProducers map[string]chan creationResult
}

func newEngine(conn connection.Connection, nameFor func(string) string, inbound chan sendRequest) *engine {
	return &engine{
		conn:         conn,
		nameFor:      nameFor,
		inbound:      inbound,
		wake:         make(chan struct{}, 1),
		producers:    make(map[string]*Producer),
		newProducers: make(map[string]chan creationResult),
	}
}

// run drives the engine until the inbound queue is closed and drained.
// Per-topic failures never end the loop; only queue closure does.
func (e *engine) run() {
	for {
		e.pollPending()

		select {
		case req, ok := <-e.inbound:
			if !ok {
				e.shutdown()
				return
			}
			e.handle(req)
			metrics.QueueDepth.Set(float64(len(e.inbound)))
		case <-e.wake:
		}
	}
}

// pollPending folds every resolved creation into the topic maps without
// blocking. Success moves the session under its own topic key; failure just
// drops the pending entry so the next message starts a fresh attempt.
func (e *engine) pollPending() {
	if len(e.newProducers) == 0 {
		return
	}

	for topic, pending := range e.newProducers {
		select {
		case r := <-pending:
			delete(e.newProducers, topic)
			if r.err != nil {
				metrics.CreateFailures.Inc()
				util.Warn("producer creation for topic %s failed: %v", topic, r.err)
				continue
			}
			// the chain's base reference transfers to the map entry
			e.producers[r.producer.Topic()] = r.producer
			metrics.ProducersCreated.Inc()
			util.Info("producer for topic %s ready (name=%s)", r.producer.Topic(), r.producer.Name())
		default:
		}
	}

	metrics.ActiveProducers.Set(float64(len(e.producers)))
	metrics.PendingCreations.Set(float64(len(e.newProducers)))
}

func (e *engine) handle(req sendRequest) {
	if p, ok := e.producers[req.topic]; ok {
		e.dispatch(p, req)
		return
	}

	pending, ok := e.newProducers[req.topic]
	if !ok {
		pending = e.startCreation(req.topic)
	}
	e.chain(pending, req)
}

// dispatch fires one send as its own unit of work. The engine never waits
// for it; the session stays retained for the duration of the attempt.
func (e *engine) dispatch(p *Producer, req sendRequest) {
	p.Retain()
	go func() {
		defer p.Release()
		receipt, err := p.sendMessage(req.msg, 0)
		req.result <- SendResult{Receipt: receipt, Err: err}
	}()
}

// startCreation begins the only creation attempt for a topic in this cycle.
func (e *engine) startCreation(topic string) chan creationResult {
	attempt := make(chan creationResult, 1)
	name := e.nameFor(topic)
	go func() {
		p, err := NewProducer(e.conn, topic, name)
		attempt <- creationResult{producer: p, err: err}
	}()
	return attempt
}

// chain attaches one caller's message to a pending creation. The
// continuation re-publishes the outcome into a fresh single-use forwarding
// channel, which becomes the new map entry; pollPending consumes the final
// value exactly once. Every caller racing on the same unseen topic lands on
// this path, so exactly one creation RPC is ever issued per topic per cycle.
func (e *engine) chain(pending chan creationResult, req sendRequest) {
	forward := make(chan creationResult, 1)
	go func() {
		r := <-pending
		if r.err != nil {
			forward <- r
			e.wakeUp()
			req.result <- SendResult{Err: connectionError(r.err)}
			return
		}

		// hold a send reference before the session becomes visible to the
		// engine, so a racing shutdown cannot release it out from under us
		r.producer.Retain()
		defer r.producer.Release()
		forward <- r
		e.wakeUp()

		receipt, err := r.producer.sendMessage(req.msg, 0)
		req.result <- SendResult{Receipt: receipt, Err: err}
	}()

	e.newProducers[req.topic] = forward
	metrics.PendingCreations.Set(float64(len(e.newProducers)))
}

func (e *engine) wakeUp() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

// shutdown releases every owned session reference. References held by
// still-running dispatches and continuations drain on their own; the last
// Release triggers the close notification.
func (e *engine) shutdown() {
	for topic, pending := range e.newProducers {
		delete(e.newProducers, topic)
		go func(pending chan creationResult) {
			if r := <-pending; r.err == nil {
				r.producer.Release()
			}
		}(pending)
	}

	for topic, p := range e.producers {
		delete(e.producers, topic)
		p.Release()
	}

	metrics.ActiveProducers.Set(0)
	metrics.PendingCreations.Set(0)
	metrics.QueueDepth.Set(0)
	util.Debug("producer engine stopped")
}
