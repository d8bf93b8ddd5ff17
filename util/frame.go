package util

import (
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// DefaultMaxFrameSize bounds a single inbound frame. Broker responses are
// small JSON bodies; anything larger indicates a corrupt stream.
const DefaultMaxFrameSize = 8 << 20

// WriteFrame writes data with a 4-byte big-endian length prefix.
func WriteFrame(conn net.Conn, data []byte) error {
	lenBuf := make([]byte, 4)
	binary.BigEndian.PutUint32(lenBuf, uint32(len(data)))
	if _, err := conn.Write(lenBuf); err != nil {
		return fmt.Errorf("write length: %w", err)
	}
	if _, err := conn.Write(data); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	return nil
}

// ReadFrame reads one length-prefixed frame. A zero-length frame is valid and
// returns an empty slice (the broker uses it as a keepalive).
func ReadFrame(conn net.Conn, maxSize int) ([]byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(conn, lenBuf); err != nil {
		return nil, fmt.Errorf("read length: %w", err)
	}

	size := binary.BigEndian.Uint32(lenBuf)
	if size == 0 {
		return []byte{}, nil
	}
	if maxSize > 0 && int(size) > maxSize {
		return nil, fmt.Errorf("frame size %d exceeds limit %d", size, maxSize)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(conn, body); err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
