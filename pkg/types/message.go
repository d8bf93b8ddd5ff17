package types

// EncryptionKey describes one key used to encrypt a message payload: the key
// name, the encrypted key material and free-form metadata about it.
type EncryptionKey struct {
	Key      string            `json:"key"`
	Value    []byte            `json:"value,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Message is the wire-ready unit handed to the connection for publishing.
// Payload is the only required field; everything else defaults to absent.
// A Message is built once per send call and never mutated afterward.
type Message struct {
	Payload    []byte            `json:"payload"`
	Properties map[string]string `json:"properties,omitempty"`

	// PartitionKey decides the partition for the message
	PartitionKey string `json:"partition_key,omitempty"`

	// ReplicateTo overrides the namespace replication clusters
	ReplicateTo []string `json:"replicate_to,omitempty"`

	Compression      int32  `json:"compression,omitempty"`
	UncompressedSize uint32 `json:"uncompressed_size,omitempty"`

	// NumMessagesInBatch differentiates single and batch message metadata
	NumMessagesInBatch int32 `json:"num_messages_in_batch,omitempty"`

	// EventTime is the timestamp that this event occurred, set by applications.
	// When omitted the broker publish time stands in for it.
	EventTime uint64 `json:"event_time,omitempty"`

	EncryptionKeys  []EncryptionKey `json:"encryption_keys,omitempty"`
	EncryptionAlgo  string          `json:"encryption_algo,omitempty"`
	EncryptionParam []byte          `json:"encryption_param,omitempty"`

	SchemaVersion []byte `json:"schema_version,omitempty"`
}

// SendReceipt is the broker acknowledgement for one published message.
type SendReceipt struct {
	ProducerID uint64 `json:"producer_id"`
	SequenceID uint64 `json:"sequence_id"`
	MessageID  string `json:"message_id,omitempty"`
}

// LookupResult is the broker endpoint currently serving a topic.
type LookupResult struct {
	BrokerAddr    string `json:"broker_addr"`
	Authoritative bool   `json:"authoritative"`
	Proxy         bool   `json:"proxy,omitempty"`
}

// ProducerSuccess is the creation handshake response. The broker assigns the
// final producer name, which may differ from the requested one.
type ProducerSuccess struct {
	ProducerName   string `json:"producer_name"`
	LastSequenceID int64  `json:"last_sequence_id,omitempty"`
}
