package connection_test

import (
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"

	"github.com/downfa11-org/cursus-client/pkg/config"
	"github.com/downfa11-org/cursus-client/pkg/connection"
	"github.com/downfa11-org/cursus-client/pkg/types"
	"github.com/downfa11-org/cursus-client/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeBroker answers framed JSON commands on a loopback listener.
type fakeBroker struct {
	ln net.Listener

	mu       sync.Mutex
	received []map[string]interface{}
	conns    []net.Conn

	// handler builds the response body for one command. Returning nil sends
	// the "ERROR: ..." form from errText instead.
	handler func(cmd map[string]interface{}) interface{}
	errText string

	// keepaliveFirst prepends a zero-length frame before every response
	keepaliveFirst bool
}

func startFakeBroker(t *testing.T) *fakeBroker {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	b := &fakeBroker{ln: ln}
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			b.mu.Lock()
			b.conns = append(b.conns, conn)
			b.mu.Unlock()
			go b.serve(conn)
		}
	}()
	t.Cleanup(func() { _ = ln.Close() })
	return b
}

func (b *fakeBroker) serve(conn net.Conn) {
	defer func() { _ = conn.Close() }()
	for {
		req, err := util.ReadFrame(conn, util.DefaultMaxFrameSize)
		if err != nil {
			return
		}

		var cmd map[string]interface{}
		if err := json.Unmarshal(req, &cmd); err != nil {
			return
		}
		b.mu.Lock()
		b.received = append(b.received, cmd)
		handler := b.handler
		errText := b.errText
		keepalive := b.keepaliveFirst
		b.mu.Unlock()

		if keepalive {
			if err := util.WriteFrame(conn, nil); err != nil {
				return
			}
		}

		var body []byte
		if errText != "" {
			body = []byte(errText)
		} else if handler != nil {
			body, _ = json.Marshal(handler(cmd))
		} else {
			body = []byte("{}")
		}
		if err := util.WriteFrame(conn, body); err != nil {
			return
		}
	}
}

func (b *fakeBroker) addr() string {
	return b.ln.Addr().String()
}

// dropConnections severs every accepted stream, simulating a broker crash.
func (b *fakeBroker) dropConnections() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, c := range b.conns {
		_ = c.Close()
	}
	b.conns = nil
}

func (b *fakeBroker) commands() []map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]map[string]interface{}, len(b.received))
	copy(out, b.received)
	return out
}

func dialBroker(t *testing.T, b *fakeBroker) *connection.TCPConnection {
	t.Helper()
	cfg := config.DefaultClientConfig()
	cfg.RequestTimeoutMS = 2000
	conn, err := connection.Dial(b.addr(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestLookupTopicRoundTrip(t *testing.T) {
	b := startFakeBroker(t)
	b.handler = func(cmd map[string]interface{}) interface{} {
		return types.LookupResult{BrokerAddr: "10.0.0.7:9000", Authoritative: true}
	}
	conn := dialBroker(t, b)

	result, err := conn.LookupTopic("orders", true)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.7:9000", result.BrokerAddr)
	assert.True(t, result.Authoritative)

	cmds := b.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "lookup", cmds[0]["type"])
	assert.Equal(t, "orders", cmds[0]["topic"])
	assert.Equal(t, true, cmds[0]["authoritative"])
}

func TestCreateProducerRoundTrip(t *testing.T) {
	b := startFakeBroker(t)
	b.handler = func(cmd map[string]interface{}) interface{} {
		return types.ProducerSuccess{ProducerName: "assigned-7"}
	}
	conn := dialBroker(t, b)

	success, err := conn.CreateProducer("orders", 1234, "wanted")
	require.NoError(t, err)
	assert.Equal(t, "assigned-7", success.ProducerName)

	cmds := b.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "create_producer", cmds[0]["type"])
	assert.Equal(t, float64(1234), cmds[0]["producer_id"])
	assert.Equal(t, "wanted", cmds[0]["producer_name"])
}

func TestSendCarriesSequenceAndMessage(t *testing.T) {
	b := startFakeBroker(t)
	b.handler = func(cmd map[string]interface{}) interface{} {
		return types.SendReceipt{ProducerID: 9, SequenceID: uint64(cmd["sequence_id"].(float64))}
	}
	conn := dialBroker(t, b)

	msg := &types.Message{
		Payload:      []byte("hello"),
		Properties:   map[string]string{"a": "b"},
		PartitionKey: "k1",
	}
	receipt, err := conn.Send(9, "p-name", 0, 0, msg)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), receipt.SequenceID)

	cmds := b.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "send", cmds[0]["type"])
	// sequence 0 must still be on the wire explicitly
	assert.Equal(t, float64(0), cmds[0]["sequence_id"])
	wire := cmds[0]["message"].(map[string]interface{})
	assert.Equal(t, "k1", wire["partition_key"])
}

func TestBrokerErrorBodyBecomesConnError(t *testing.T) {
	b := startFakeBroker(t)
	b.errText = "ERROR: topic not found"
	conn := dialBroker(t, b)

	_, err := conn.LookupTopic("missing", false)
	var ce *connection.ConnError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "lookup", ce.Op)
	assert.Contains(t, ce.Error(), "topic not found")

	// a protocol-level refusal does not invalidate the transport
	assert.True(t, conn.IsValid())
	assert.NoError(t, conn.Error())
}

func TestKeepaliveFramesAreSkipped(t *testing.T) {
	b := startFakeBroker(t)
	b.keepaliveFirst = true
	b.handler = func(cmd map[string]interface{}) interface{} {
		return types.LookupResult{BrokerAddr: "x:1"}
	}
	conn := dialBroker(t, b)

	result, err := conn.LookupTopic("orders", false)
	require.NoError(t, err)
	assert.Equal(t, "x:1", result.BrokerAddr)
}

func TestTransportFailureInvalidatesConnection(t *testing.T) {
	b := startFakeBroker(t)
	conn := dialBroker(t, b)

	// sanity check before the cut
	_, err := conn.LookupTopic("alive", false)
	require.NoError(t, err)

	b.dropConnections()

	_, err = conn.Send(1, "p", 5, 0, &types.Message{Payload: []byte("x")})
	require.Error(t, err)
	assert.False(t, conn.IsValid())
	assert.Error(t, conn.Error())

	// every later call fails fast without touching the wire
	_, err = conn.LookupTopic("again", false)
	var ce *connection.ConnError
	require.ErrorAs(t, err, &ce)
	assert.True(t, errors.Is(err, connection.ErrConnectionClosed))
}

func TestCloseProducerDiscardsResponseBody(t *testing.T) {
	b := startFakeBroker(t)
	b.handler = func(cmd map[string]interface{}) interface{} {
		return map[string]string{"whatever": "ignored"}
	}
	conn := dialBroker(t, b)

	require.NoError(t, conn.CloseProducer(42))

	cmds := b.commands()
	require.Len(t, cmds, 1)
	assert.Equal(t, "close_producer", cmds[0]["type"])
	assert.Equal(t, float64(42), cmds[0]["producer_id"])
}
