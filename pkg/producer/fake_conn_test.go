package producer_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/downfa11-org/cursus-client/pkg/types"
)

// fakeConn is an in-memory Connection that records every RPC and can be
// told to fail or stall creations per topic.
type fakeConn struct {
	mu sync.Mutex

	lookups map[string]int
	creates map[string]int
	closes  map[uint64]int
	sends   map[uint64][]uint64
	topics  map[uint64]string

	failLookups map[string]int
	failCreates map[string]int
	createGates map[string]chan struct{}
	sendErr     error
	closeErr    error

	lastErr error
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		lookups:     make(map[string]int),
		creates:     make(map[string]int),
		closes:      make(map[uint64]int),
		sends:       make(map[uint64][]uint64),
		topics:      make(map[uint64]string),
		failLookups: make(map[string]int),
		failCreates: make(map[string]int),
		createGates: make(map[string]chan struct{}),
	}
}

// gateCreations holds every creation for topic until the returned func runs.
func (f *fakeConn) gateCreations(topic string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.createGates[topic] = gate
	f.mu.Unlock()

	var once sync.Once
	return func() { once.Do(func() { close(gate) }) }
}

func (f *fakeConn) LookupTopic(topic string, authoritative bool) (*types.LookupResult, error) {
	f.mu.Lock()
	f.lookups[topic]++
	if f.failLookups[topic] > 0 {
		f.failLookups[topic]--
		f.mu.Unlock()
		return nil, fmt.Errorf("lookup refused for %s", topic)
	}
	f.mu.Unlock()
	return &types.LookupResult{BrokerAddr: "fake:9000", Authoritative: true}, nil
}

func (f *fakeConn) CreateProducer(topic string, producerID uint64, requestedName string) (*types.ProducerSuccess, error) {
	f.mu.Lock()
	f.creates[topic]++
	gate := f.createGates[topic]
	fail := false
	if f.failCreates[topic] > 0 {
		f.failCreates[topic]--
		fail = true
	}
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if fail {
		return nil, fmt.Errorf("create refused for %s", topic)
	}

	f.mu.Lock()
	f.topics[producerID] = topic
	f.mu.Unlock()

	name := requestedName
	if name == "" {
		name = "assigned-" + topic
	}
	return &types.ProducerSuccess{ProducerName: name}, nil
}

func (f *fakeConn) Send(producerID uint64, producerName string, sequenceID uint64, numMessages int32, msg *types.Message) (*types.SendReceipt, error) {
	f.mu.Lock()
	if f.sendErr != nil {
		err := f.sendErr
		f.mu.Unlock()
		return nil, err
	}
	f.sends[producerID] = append(f.sends[producerID], sequenceID)
	f.mu.Unlock()

	return &types.SendReceipt{ProducerID: producerID, SequenceID: sequenceID}, nil
}

func (f *fakeConn) CloseProducer(producerID uint64) error {
	f.mu.Lock()
	f.closes[producerID]++
	err := f.closeErr
	f.mu.Unlock()
	return err
}

func (f *fakeConn) IsValid() bool { return f.lastErr == nil }
func (f *fakeConn) Error() error  { return f.lastErr }
func (f *fakeConn) Close() error  { return nil }

func (f *fakeConn) lookupCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups[topic]
}

func (f *fakeConn) createCount(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates[topic]
}

func (f *fakeConn) sendCountForTopic(topic string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for id, seqs := range f.sends {
		if f.topics[id] == topic {
			total += len(seqs)
		}
	}
	return total
}

func (f *fakeConn) sequencesForTopic(topic string) []uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []uint64
	for id, seqs := range f.sends {
		if f.topics[id] == topic {
			all = append(all, seqs...)
		}
	}
	return all
}

func (f *fakeConn) totalCloses() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := 0
	for _, n := range f.closes {
		total += n
	}
	return total
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}
