// Package config provides loading and parsing of coordination.yaml
// configuration files. A single file configures the shared store plus
// per-component settings for queues, workers, and dead-letter handling.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents a coordination.yaml configuration file.
type Config struct {
	// Store configures the shared Redis connection.
	Store *StoreConfig `yaml:"store,omitempty"`

	// Queue configures bounded queue behavior.
	Queue *QueueConfig `yaml:"queue,omitempty"`

	// Worker configures the consumer loop.
	Worker *WorkerConfig `yaml:"worker,omitempty"`

	// DLQ configures where exhausted items are escalated.
	DLQ *DLQConfig `yaml:"dlq,omitempty"`
}

// StoreConfig defines the Redis connection settings.
type StoreConfig struct {
	// URL is the Redis connection URL (e.g., "redis://localhost:6379/0").
	URL string `yaml:"url"`

	// TLS enables TLS on the connection.
	TLS bool `yaml:"tls,omitempty"`

	// FailMode selects behavior when the store is unreachable:
	// "closed" (deny, the default) or "open" (allow).
	FailMode string `yaml:"fail_mode,omitempty"`

	// ConnectTimeout is the dial timeout.
	// Format: Go duration string (e.g., "5s")
	// Default: 5s
	ConnectTimeout string `yaml:"connect_timeout,omitempty"`
}

// GetURL returns the configured URL or the local default.
func (s *StoreConfig) GetURL() string {
	if s == nil || s.URL == "" {
		return "redis://localhost:6379/0"
	}
	return s.URL
}

// GetConnectTimeout parses the connect timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (s *StoreConfig) GetConnectTimeout() time.Duration {
	if s == nil || s.ConnectTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(s.ConnectTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// QueueConfig defines bounded queue settings.
type QueueConfig struct {
	// MaxLength is the backpressure ceiling per queue.
	// Default: 1000
	MaxLength int `yaml:"max_length,omitempty"`

	// EnableCompression compresses payloads above the threshold.
	EnableCompression bool `yaml:"enable_compression,omitempty"`

	// CompressionThreshold is the serialized size in bytes above which a
	// payload is compressed.
	// Default: 1024
	CompressionThreshold int `yaml:"compression_threshold,omitempty"`
}

// GetMaxLength returns the configured ceiling or the default value.
func (q *QueueConfig) GetMaxLength() int {
	if q == nil || q.MaxLength <= 0 {
		return 1000
	}
	return q.MaxLength
}

// GetCompressionThreshold returns the configured threshold or the default value.
func (q *QueueConfig) GetCompressionThreshold() int {
	if q == nil || q.CompressionThreshold <= 0 {
		return 1024
	}
	return q.CompressionThreshold
}

// GetEnableCompression reports whether payload compression is on.
func (q *QueueConfig) GetEnableCompression() bool {
	return q != nil && q.EnableCompression
}

// WorkerConfig defines settings for the consumer loop.
type WorkerConfig struct {
	// BatchSize selects atomic batch dequeue when > 1.
	// Default: 1
	BatchSize int `yaml:"batch_size,omitempty"`

	// MaxRetries is the number of processing attempts per item before it
	// is dead-lettered.
	// Default: 3
	MaxRetries int `yaml:"max_retries,omitempty"`

	// BackoffBase is the delay after the first failed attempt.
	// Format: Go duration string (e.g., "1s")
	// Default: 1s
	BackoffBase string `yaml:"backoff_base,omitempty"`

	// DequeueTimeout bounds each blocking dequeue.
	// Format: Go duration string (e.g., "5s")
	// Default: 5s
	DequeueTimeout string `yaml:"dequeue_timeout,omitempty"`

	// MaxConsecutiveErrors is the self-termination threshold.
	// Default: 10
	MaxConsecutiveErrors int `yaml:"max_consecutive_errors,omitempty"`
}

// GetBatchSize returns the configured batch size or the default value.
func (w *WorkerConfig) GetBatchSize() int {
	if w == nil || w.BatchSize <= 0 {
		return 1
	}
	return w.BatchSize
}

// GetMaxRetries returns the configured retry budget or the default value.
func (w *WorkerConfig) GetMaxRetries() int {
	if w == nil || w.MaxRetries <= 0 {
		return 3
	}
	return w.MaxRetries
}

// GetBackoffBase parses the backoff base string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetBackoffBase() time.Duration {
	if w == nil || w.BackoffBase == "" {
		return time.Second
	}
	d, err := time.ParseDuration(w.BackoffBase)
	if err != nil {
		return time.Second
	}
	return d
}

// GetDequeueTimeout parses the dequeue timeout string and returns a duration.
// Returns the default value if not set or invalid.
func (w *WorkerConfig) GetDequeueTimeout() time.Duration {
	if w == nil || w.DequeueTimeout == "" {
		return 5 * time.Second
	}
	d, err := time.ParseDuration(w.DequeueTimeout)
	if err != nil {
		return 5 * time.Second
	}
	return d
}

// GetMaxConsecutiveErrors returns the configured threshold or the default value.
func (w *WorkerConfig) GetMaxConsecutiveErrors() int {
	if w == nil || w.MaxConsecutiveErrors <= 0 {
		return 10
	}
	return w.MaxConsecutiveErrors
}

// DLQConfig defines where dead-lettered entries go.
type DLQConfig struct {
	// Kind is the sink backing: "redis" (default) or "file".
	Kind string `yaml:"kind,omitempty"`

	// Dir is the directory for file sinks.
	// Default: "dlq"
	Dir string `yaml:"dir,omitempty"`
}

// GetKind returns the configured sink kind or the default value.
func (d *DLQConfig) GetKind() string {
	if d == nil || d.Kind == "" {
		return "redis"
	}
	return d.Kind
}

// GetDir returns the file sink directory or the default value.
func (d *DLQConfig) GetDir() string {
	if d == nil || d.Dir == "" {
		return "dlq"
	}
	return d.Dir
}

// Load reads and parses a coordination.yaml file from the given path.
// If the path is a directory, it looks for coordination.yaml or
// coordination.yml in that directory.
func Load(path string) (*Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat path: %w", err)
	}

	var configPath string
	if info.IsDir() {
		yamlPath := filepath.Join(path, "coordination.yaml")
		if _, err := os.Stat(yamlPath); err == nil {
			configPath = yamlPath
		} else {
			ymlPath := filepath.Join(path, "coordination.yml")
			if _, err := os.Stat(ymlPath); err == nil {
				configPath = ymlPath
			} else {
				return nil, fmt.Errorf("no coordination.yaml or coordination.yml found in %s", path)
			}
		}
	} else {
		configPath = path
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// LoadFromDir searches for coordination.yaml starting from the given
// directory and walking up to parent directories until found or root is
// reached.
func LoadFromDir(dir string) (*Config, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	for {
		config, err := Load(absDir)
		if err == nil {
			return config, nil
		}

		parent := filepath.Dir(absDir)
		if parent == absDir {
			return nil, fmt.Errorf("no coordination.yaml found in %s or parent directories", dir)
		}
		absDir = parent
	}
}

// LoadFromCurrentDir loads coordination.yaml from the current working directory.
func LoadFromCurrentDir() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	return LoadFromDir(cwd)
}
