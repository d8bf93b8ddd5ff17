package connection

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/downfa11-org/cursus-client/pkg/config"
	"github.com/downfa11-org/cursus-client/pkg/types"
	"github.com/downfa11-org/cursus-client/util"
)

// command is the JSON envelope for every client-to-broker request.
type command struct {
	Type          string `json:"type"`
	Topic         string `json:"topic,omitempty"`
	Authoritative bool   `json:"authoritative,omitempty"`

	ProducerID   uint64 `json:"producer_id,omitempty"`
	ProducerName string `json:"producer_name,omitempty"`
	SequenceID   uint64 `json:"sequence_id"`
	NumMessages  int32  `json:"num_messages,omitempty"`

	Message *types.Message `json:"message,omitempty"`
}

const (
	cmdLookup        = "lookup"
	cmdCreateProduce = "create_producer"
	cmdSend          = "send"
	cmdCloseProduce  = "close_producer"
)

// TCPConnection speaks the broker's length-prefixed JSON protocol over a
// single TCP or TLS stream. One request/response exchange is on the wire at a
// time; a transport failure invalidates the connection permanently.
type TCPConnection struct {
	addr         string
	reqTimeout   time.Duration
	maxFrameSize int

	mu   sync.Mutex
	conn net.Conn

	errMu   sync.RWMutex
	lastErr error
	closed  bool
}

// Dial connects to addr using the TLS settings and timeouts from cfg.
func Dial(addr string, cfg *config.ClientConfig) (*TCPConnection, error) {
	dialTimeout := time.Duration(cfg.DialTimeoutMS) * time.Millisecond

	var conn net.Conn
	var err error
	if cfg.UseTLS {
		var cert tls.Certificate
		cert, err = tls.LoadX509KeyPair(cfg.TLSCertPath, cfg.TLSKeyPath)
		if err != nil {
			return nil, &ConnError{Op: "dial", Addr: addr, Err: fmt.Errorf("load TLS cert: %w", err)}
		}
		dialer := &net.Dialer{Timeout: dialTimeout}
		conn, err = tls.DialWithDialer(dialer, "tcp", addr, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	} else {
		conn, err = net.DialTimeout("tcp", addr, dialTimeout)
	}
	if err != nil {
		return nil, &ConnError{Op: "dial", Addr: addr, Err: err}
	}

	maxFrame := cfg.MaxFrameSize
	if maxFrame <= 0 {
		maxFrame = util.DefaultMaxFrameSize
	}

	util.Debug("connected to broker %s", addr)
	return &TCPConnection{
		addr:         addr,
		conn:         conn,
		reqTimeout:   time.Duration(cfg.RequestTimeoutMS) * time.Millisecond,
		maxFrameSize: maxFrame,
	}, nil
}

func (c *TCPConnection) LookupTopic(topic string, authoritative bool) (*types.LookupResult, error) {
	var result types.LookupResult
	if err := c.roundTrip("lookup", &command{
		Type:          cmdLookup,
		Topic:         topic,
		Authoritative: authoritative,
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TCPConnection) CreateProducer(topic string, producerID uint64, requestedName string) (*types.ProducerSuccess, error) {
	var result types.ProducerSuccess
	if err := c.roundTrip("create_producer", &command{
		Type:         cmdCreateProduce,
		Topic:        topic,
		ProducerID:   producerID,
		ProducerName: requestedName,
	}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *TCPConnection) Send(producerID uint64, producerName string, sequenceID uint64, numMessages int32, msg *types.Message) (*types.SendReceipt, error) {
	var receipt types.SendReceipt
	if err := c.roundTrip("send", &command{
		Type:         cmdSend,
		ProducerID:   producerID,
		ProducerName: producerName,
		SequenceID:   sequenceID,
		NumMessages:  numMessages,
		Message:      msg,
	}, &receipt); err != nil {
		return nil, err
	}
	return &receipt, nil
}

func (c *TCPConnection) CloseProducer(producerID uint64) error {
	// The response body carries nothing the caller can act on.
	return c.roundTrip("close_producer", &command{
		Type:       cmdCloseProduce,
		ProducerID: producerID,
	}, nil)
}

func (c *TCPConnection) roundTrip(op string, cmd *command, result interface{}) error {
	c.errMu.RLock()
	if c.closed || c.lastErr != nil {
		c.errMu.RUnlock()
		return &ConnError{Op: op, Addr: c.addr, Err: ErrConnectionClosed}
	}
	c.errMu.RUnlock()

	data, err := json.Marshal(cmd)
	if err != nil {
		return &ConnError{Op: op, Addr: c.addr, Err: fmt.Errorf("encode command: %w", err)}
	}

	c.mu.Lock()
	resp, err := c.exchange(data)
	c.mu.Unlock()
	if err != nil {
		c.invalidate(err)
		return &ConnError{Op: op, Addr: c.addr, Err: err}
	}

	if strings.HasPrefix(string(resp), "ERROR:") {
		return &ConnError{Op: op, Addr: c.addr, Err: fmt.Errorf("broker: %s", strings.TrimSpace(string(resp)))}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(resp, result); err != nil {
		return &ConnError{Op: op, Addr: c.addr, Err: fmt.Errorf("invalid response format: %w", err)}
	}
	return nil
}

// exchange runs one framed request/response under c.mu.
func (c *TCPConnection) exchange(req []byte) ([]byte, error) {
	conn := c.conn
	if conn == nil {
		return nil, ErrConnectionClosed
	}

	if c.reqTimeout > 0 {
		if err := conn.SetDeadline(time.Now().Add(c.reqTimeout)); err != nil {
			return nil, fmt.Errorf("set deadline: %w", err)
		}
	}

	if err := util.WriteFrame(conn, req); err != nil {
		return nil, err
	}

	for {
		resp, err := util.ReadFrame(conn, c.maxFrameSize)
		if err != nil {
			return nil, err
		}
		// zero-length frames are broker keepalives
		if len(resp) > 0 {
			return resp, nil
		}
	}
}

func (c *TCPConnection) invalidate(err error) {
	c.errMu.Lock()
	if c.lastErr == nil {
		c.lastErr = err
		util.Warn("connection to %s invalidated: %v", c.addr, err)
	}
	c.errMu.Unlock()
}

func (c *TCPConnection) IsValid() bool {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return !c.closed && c.lastErr == nil
}

func (c *TCPConnection) Error() error {
	c.errMu.RLock()
	defer c.errMu.RUnlock()
	return c.lastErr
}

func (c *TCPConnection) Addr() string {
	return c.addr
}

func (c *TCPConnection) Close() error {
	c.errMu.Lock()
	if c.closed {
		c.errMu.Unlock()
		return nil
	}
	c.closed = true
	c.errMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}
