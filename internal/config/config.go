package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	HTTP          HTTPConfig          `yaml:"http"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Dispatch      DispatchConfig      `yaml:"dispatch"`
	Cache         CacheConfig         `yaml:"cache"`
	Mongo         MongoConfig         `yaml:"mongo"`
	Transcription TranscriptionConfig `yaml:"transcription"`
	Extraction    ExtractionConfig    `yaml:"extraction"`
	Resolution    ResolutionConfig    `yaml:"resolution"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// HTTPConfig contains HTTP API server configuration
type HTTPConfig struct {
	Port            int    `yaml:"port"`
	Address         string `yaml:"address"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// IngestConfig contains recording submission configuration
type IngestConfig struct {
	SpoolDir       string `yaml:"spool_dir"` // empty means the system temp dir
	MaxAudioSizeMB int    `yaml:"max_audio_size_mb"`
}

// DispatchConfig contains worker pool configuration
type DispatchConfig struct {
	Workers           int `yaml:"workers"`
	QueueSize         int `yaml:"queue_size"`
	TranscribeTimeout int `yaml:"transcribe_timeout"` // seconds
	ExtractTimeout    int `yaml:"extract_timeout"`    // seconds
	ResolveTimeout    int `yaml:"resolve_timeout"`    // seconds
	FinalizeTimeout   int `yaml:"finalize_timeout"`   // seconds
}

// CacheConfig contains in-flight question cache configuration
type CacheConfig struct {
	TTL           int `yaml:"ttl"`            // seconds
	SweepInterval int `yaml:"sweep_interval"` // seconds
}

// MongoConfig contains persistence configuration. An empty URI selects the
// in-memory store.
type MongoConfig struct {
	URI            string `yaml:"uri"`
	Database       string `yaml:"database"`
	Collection     string `yaml:"collection"`
	ConnectRetries int    `yaml:"connect_retries"`
	RetryDelay     int    `yaml:"retry_delay"` // seconds
}

// TranscriptionConfig contains transcription API configuration
type TranscriptionConfig struct {
	Endpoint      string `yaml:"endpoint"`
	APIKey        string `yaml:"api_key"`
	Timeout       int    `yaml:"timeout"` // seconds
	MaxRetries    int    `yaml:"max_retries"`
	MaxConcurrent int    `yaml:"max_concurrent"`
}

// ExtractionConfig contains query extraction API configuration
type ExtractionConfig struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// ResolutionConfig contains answer resolution API configuration
type ResolutionConfig struct {
	Endpoint string `yaml:"endpoint"`
	Timeout  int    `yaml:"timeout"` // seconds
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file. Selected values can be
// overridden through environment variables after parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	applyEnvOverrides(&config)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// applyEnvOverrides layers deployment environment variables over the file.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.HTTP.Port = port
		}
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		config.Mongo.URI = v
	}
	if v := os.Getenv("TRANSCRIPTION_URL"); v != "" {
		config.Transcription.Endpoint = v
	}
	if v := os.Getenv("TRANSCRIPTION_API_KEY"); v != "" {
		config.Transcription.APIKey = v
	}
	if v := os.Getenv("EXTRACTION_URL"); v != "" {
		config.Extraction.Endpoint = v
	}
	if v := os.Getenv("RESOLUTION_URL"); v != "" {
		config.Resolution.Endpoint = v
	}
	if v := os.Getenv("SPOOL_DIR"); v != "" {
		config.Ingest.SpoolDir = v
	}
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.HTTP.Validate(); err != nil {
		return fmt.Errorf("http config: %w", err)
	}

	if err := c.Ingest.Validate(); err != nil {
		return fmt.Errorf("ingest config: %w", err)
	}

	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Mongo.Validate(); err != nil {
		return fmt.Errorf("mongo config: %w", err)
	}

	if err := c.Transcription.Validate(); err != nil {
		return fmt.Errorf("transcription config: %w", err)
	}

	if err := c.Extraction.Validate(); err != nil {
		return fmt.Errorf("extraction config: %w", err)
	}

	if err := c.Resolution.Validate(); err != nil {
		return fmt.Errorf("resolution config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates HTTP configuration
func (h *HTTPConfig) Validate() error {
	if h.Port < 1 || h.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", h.Port)
	}

	if h.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout must be at least 1 second, got %d", h.ShutdownTimeout)
	}

	return nil
}

// Validate validates ingest configuration
func (i *IngestConfig) Validate() error {
	if i.MaxAudioSizeMB < 1 || i.MaxAudioSizeMB > 512 {
		return fmt.Errorf("max_audio_size_mb must be between 1 and 512, got %d", i.MaxAudioSizeMB)
	}

	return nil
}

// Validate validates dispatch configuration
func (d *DispatchConfig) Validate() error {
	if d.Workers < 1 || d.Workers > 64 {
		return fmt.Errorf("workers must be between 1 and 64, got %d", d.Workers)
	}

	if d.QueueSize < 1 || d.QueueSize > 4096 {
		return fmt.Errorf("queue_size must be between 1 and 4096, got %d", d.QueueSize)
	}

	if d.TranscribeTimeout < 1 {
		return fmt.Errorf("transcribe_timeout must be at least 1 second, got %d", d.TranscribeTimeout)
	}

	if d.ExtractTimeout < 1 {
		return fmt.Errorf("extract_timeout must be at least 1 second, got %d", d.ExtractTimeout)
	}

	if d.ResolveTimeout < 1 {
		return fmt.Errorf("resolve_timeout must be at least 1 second, got %d", d.ResolveTimeout)
	}

	if d.FinalizeTimeout < 1 {
		return fmt.Errorf("finalize_timeout must be at least 1 second, got %d", d.FinalizeTimeout)
	}

	return nil
}

// Validate validates cache configuration
func (c *CacheConfig) Validate() error {
	if c.TTL < 1 {
		return fmt.Errorf("ttl must be at least 1 second, got %d", c.TTL)
	}

	if c.SweepInterval < 1 {
		return fmt.Errorf("sweep_interval must be at least 1 second, got %d", c.SweepInterval)
	}

	return nil
}

// Validate validates mongo configuration
func (m *MongoConfig) Validate() error {
	// Empty URI means the in-memory store; nothing else applies
	if m.URI == "" {
		return nil
	}

	if m.Database == "" {
		return fmt.Errorf("database cannot be empty when uri is set")
	}

	if m.Collection == "" {
		return fmt.Errorf("collection cannot be empty when uri is set")
	}

	if m.ConnectRetries < 0 {
		return fmt.Errorf("connect_retries cannot be negative, got %d", m.ConnectRetries)
	}

	if m.RetryDelay < 1 {
		return fmt.Errorf("retry_delay must be at least 1 second, got %d", m.RetryDelay)
	}

	return nil
}

// Validate validates transcription configuration
func (t *TranscriptionConfig) Validate() error {
	if t.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if t.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", t.Timeout)
	}

	if t.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", t.MaxRetries)
	}

	if t.MaxConcurrent < 1 {
		return fmt.Errorf("max_concurrent must be at least 1, got %d", t.MaxConcurrent)
	}

	return nil
}

// Validate validates extraction configuration
func (e *ExtractionConfig) Validate() error {
	if e.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if e.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", e.Timeout)
	}

	return nil
}

// Validate validates resolution configuration
func (r *ResolutionConfig) Validate() error {
	if r.Endpoint == "" {
		return fmt.Errorf("endpoint cannot be empty")
	}

	if r.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", r.Timeout)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Output is stdout, stderr, or a file path; all are acceptable
	return nil
}

// GetShutdownTimeoutDuration returns the HTTP shutdown timeout as a time.Duration
func (h *HTTPConfig) GetShutdownTimeoutDuration() time.Duration {
	return time.Duration(h.ShutdownTimeout) * time.Second
}

// MaxAudioSizeBytes returns the audio size limit in bytes
func (i *IngestConfig) MaxAudioSizeBytes() int {
	return i.MaxAudioSizeMB << 20
}

// GetTranscribeTimeoutDuration returns the transcribe stage timeout as a time.Duration
func (d *DispatchConfig) GetTranscribeTimeoutDuration() time.Duration {
	return time.Duration(d.TranscribeTimeout) * time.Second
}

// GetExtractTimeoutDuration returns the extract stage timeout as a time.Duration
func (d *DispatchConfig) GetExtractTimeoutDuration() time.Duration {
	return time.Duration(d.ExtractTimeout) * time.Second
}

// GetResolveTimeoutDuration returns the resolve stage timeout as a time.Duration
func (d *DispatchConfig) GetResolveTimeoutDuration() time.Duration {
	return time.Duration(d.ResolveTimeout) * time.Second
}

// GetFinalizeTimeoutDuration returns the finalize stage timeout as a time.Duration
func (d *DispatchConfig) GetFinalizeTimeoutDuration() time.Duration {
	return time.Duration(d.FinalizeTimeout) * time.Second
}

// GetTTLDuration returns the cache TTL as a time.Duration
func (c *CacheConfig) GetTTLDuration() time.Duration {
	return time.Duration(c.TTL) * time.Second
}

// GetSweepIntervalDuration returns the janitor interval as a time.Duration
func (c *CacheConfig) GetSweepIntervalDuration() time.Duration {
	return time.Duration(c.SweepInterval) * time.Second
}

// GetRetryDelayDuration returns the connect retry delay as a time.Duration
func (m *MongoConfig) GetRetryDelayDuration() time.Duration {
	return time.Duration(m.RetryDelay) * time.Second
}

// GetTimeoutDuration returns the transcription timeout as a time.Duration
func (t *TranscriptionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(t.Timeout) * time.Second
}

// GetTimeoutDuration returns the extraction timeout as a time.Duration
func (e *ExtractionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(e.Timeout) * time.Second
}

// GetTimeoutDuration returns the resolution timeout as a time.Duration
func (r *ResolutionConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(r.Timeout) * time.Second
}
