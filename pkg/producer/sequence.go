package producer

import "sync/atomic"

// SequenceID numbers outgoing messages for one producer session. Values start
// at 0, are strictly increasing and never reset for the session's lifetime.
type SequenceID struct {
	next atomic.Uint64
}

func NewSequenceID() *SequenceID {
	return &SequenceID{}
}

// Next returns the current value and increments the counter. Safe for
// concurrent use; no two calls ever observe the same value.
func (s *SequenceID) Next() uint64 {
	return s.next.Add(1) - 1
}
