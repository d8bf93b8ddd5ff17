package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/downfa11-org/cursus-client/util"
	"gopkg.in/yaml.v3"
)

// ClientConfig holds the tunables for a producer client instance.
type ClientConfig struct {
	// Broker endpoints
	BrokerAddrs []string `yaml:"broker_addrs" json:"broker.addrs"`

	// Security
	UseTLS      bool   `yaml:"use_tls" json:"tls.enable"`
	TLSCertPath string `yaml:"tls_cert_path" json:"tls.cert_path"`
	TLSKeyPath  string `yaml:"tls_key_path" json:"tls.key_path"`

	// Timeouts
	DialTimeoutMS    int `yaml:"dial_timeout_ms" json:"dial.timeout.ms"`
	RequestTimeoutMS int `yaml:"request_timeout_ms" json:"request.timeout.ms"`

	// Engine settings. QueueSize <= 0 keeps the original unbounded behavior
	// by falling back to a very large buffer.
	QueueSize    int `yaml:"queue_size" json:"queue.size"`
	MaxFrameSize int `yaml:"max_frame_size" json:"max.frame.size"`

	// ProducerNamePrefix, when set, requests "<prefix>-<topic>" as the
	// producer name; the broker still has the final say. Empty lets the
	// broker assign names entirely.
	ProducerNamePrefix string `yaml:"producer_name_prefix" json:"producer.name.prefix"`

	// Observability
	LogLevel       util.LogLevel `yaml:"log_level" json:"log_level"`
	EnableExporter bool          `yaml:"enable_exporter" json:"enable.exporter"`
	ExporterPort   int           `yaml:"exporter_port" json:"exporter.port"`
}

// DefaultClientConfig returns a config with workable local defaults.
func DefaultClientConfig() *ClientConfig {
	return &ClientConfig{
		BrokerAddrs:      []string{"localhost:9000"},
		DialTimeoutMS:    5000,
		RequestTimeoutMS: 30000,
		QueueSize:        4096,
		MaxFrameSize:     util.DefaultMaxFrameSize,
		LogLevel:         util.LogLevelInfo,
		ExporterPort:     9100,
	}
}

// LoadClientConfig reads a YAML config file over the defaults. An empty path
// falls back to the CONFIG_PATH environment variable, then to pure defaults.
func LoadClientConfig(path string) (*ClientConfig, error) {
	cfg := DefaultClientConfig()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ClientConfig) Validate() error {
	if len(c.BrokerAddrs) == 0 {
		return fmt.Errorf("broker_addrs must not be empty")
	}
	for _, addr := range c.BrokerAddrs {
		if !strings.Contains(addr, ":") {
			return fmt.Errorf("broker address %q missing port", addr)
		}
	}
	if c.UseTLS && (c.TLSCertPath == "" || c.TLSKeyPath == "") {
		return fmt.Errorf("use_tls requires tls_cert_path and tls_key_path")
	}
	if c.DialTimeoutMS < 0 || c.RequestTimeoutMS < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if c.EnableExporter && (c.ExporterPort <= 0 || c.ExporterPort > 65535) {
		return fmt.Errorf("invalid exporter_port: %d", c.ExporterPort)
	}
	return nil
}
