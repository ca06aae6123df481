package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		HTTP:     HTTPConfig{Port: 8080, Address: "0.0.0.0", ShutdownTimeout: 10},
		Ingest:   IngestConfig{MaxAudioSizeMB: 25},
		Dispatch: DispatchConfig{Workers: 4, QueueSize: 64, TranscribeTimeout: 30, ExtractTimeout: 15, ResolveTimeout: 120, FinalizeTimeout: 10},
		Cache:    CacheConfig{TTL: 1800, SweepInterval: 300},
		Mongo: MongoConfig{
			URI:            "mongodb://localhost:27017",
			Database:       "voiceqa",
			Collection:     "qa_records",
			ConnectRetries: 5,
			RetryDelay:     3,
		},
		Transcription: TranscriptionConfig{
			Endpoint:      "http://localhost:9000/transcribe",
			Timeout:       30,
			MaxRetries:    3,
			MaxConcurrent: 10,
		},
		Extraction: ExtractionConfig{Endpoint: "http://localhost:9000/extract_query", Timeout: 15},
		Resolution: ResolutionConfig{Endpoint: "http://localhost:9000/resolve", Timeout: 120},
		Logging:    LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name:        "invalid http port",
			mutate:      func(c *Config) { c.HTTP.Port = 70000 },
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name:        "zero shutdown timeout",
			mutate:      func(c *Config) { c.HTTP.ShutdownTimeout = 0 },
			expectError: true,
			errorMsg:    "shutdown_timeout must be at least 1 second",
		},
		{
			name:        "audio size limit too large",
			mutate:      func(c *Config) { c.Ingest.MaxAudioSizeMB = 1024 },
			expectError: true,
			errorMsg:    "max_audio_size_mb must be between 1 and 512",
		},
		{
			name:        "zero workers",
			mutate:      func(c *Config) { c.Dispatch.Workers = 0 },
			expectError: true,
			errorMsg:    "workers must be between 1 and 64",
		},
		{
			name:        "oversized queue",
			mutate:      func(c *Config) { c.Dispatch.QueueSize = 10000 },
			expectError: true,
			errorMsg:    "queue_size must be between 1 and 4096",
		},
		{
			name:        "zero resolve timeout",
			mutate:      func(c *Config) { c.Dispatch.ResolveTimeout = 0 },
			expectError: true,
			errorMsg:    "resolve_timeout must be at least 1 second",
		},
		{
			name:        "zero cache ttl",
			mutate:      func(c *Config) { c.Cache.TTL = 0 },
			expectError: true,
			errorMsg:    "ttl must be at least 1 second",
		},
		{
			name:        "mongo uri without database",
			mutate:      func(c *Config) { c.Mongo.Database = "" },
			expectError: true,
			errorMsg:    "database cannot be empty",
		},
		{
			name: "empty mongo uri selects the in-memory store",
			mutate: func(c *Config) {
				c.Mongo = MongoConfig{}
			},
			expectError: false,
		},
		{
			name:        "missing transcription endpoint",
			mutate:      func(c *Config) { c.Transcription.Endpoint = "" },
			expectError: true,
			errorMsg:    "endpoint cannot be empty",
		},
		{
			name:        "negative transcription retries",
			mutate:      func(c *Config) { c.Transcription.MaxRetries = -1 },
			expectError: true,
			errorMsg:    "max_retries cannot be negative",
		},
		{
			name:        "missing extraction endpoint",
			mutate:      func(c *Config) { c.Extraction.Endpoint = "" },
			expectError: true,
			errorMsg:    "extraction config",
		},
		{
			name:        "missing resolution endpoint",
			mutate:      func(c *Config) { c.Resolution.Endpoint = "" },
			expectError: true,
			errorMsg:    "resolution config",
		},
		{
			name:        "invalid log level",
			mutate:      func(c *Config) { c.Logging.Level = "trace" },
			expectError: true,
			errorMsg:    "level must be one of",
		},
		{
			name:        "invalid log format",
			mutate:      func(c *Config) { c.Logging.Format = "xml" },
			expectError: true,
			errorMsg:    "format must be 'json' or 'text'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

const validConfigYAML = `
http:
  port: 8080
  address: "0.0.0.0"
  shutdown_timeout: 10
ingest:
  spool_dir: ""
  max_audio_size_mb: 25
dispatch:
  workers: 4
  queue_size: 64
  transcribe_timeout: 30
  extract_timeout: 15
  resolve_timeout: 120
  finalize_timeout: 10
cache:
  ttl: 1800
  sweep_interval: 300
mongo:
  uri: "mongodb://localhost:27017"
  database: "voiceqa"
  collection: "qa_records"
  connect_retries: 5
  retry_delay: 3
transcription:
  endpoint: "http://localhost:9000/transcribe"
  api_key: ""
  timeout: 30
  max_retries: 3
  max_concurrent: 10
extraction:
  endpoint: "http://localhost:9000/extract_query"
  timeout: 15
resolution:
  endpoint: "http://localhost:9000/resolve"
  timeout: 120
logging:
  level: "info"
  format: "json"
  output: "stdout"
`

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid config file",
			configYAML:  validConfigYAML,
			expectError: false,
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
dispatch:
  workers: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "missing required fields",
			configYAML: `
http:
  port: 8080
`,
			expectError: true,
			errorMsg:    "shutdown_timeout must be at least 1 second",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				}
			}
		})
	}
}

func TestConfigLoadNonexistentFile(t *testing.T) {
	_, err := Load("nonexistent.yaml")
	if err == nil {
		t.Errorf("Expected error for nonexistent file but got none")
	}
	if !contains(err.Error(), "failed to read config file") {
		t.Errorf("Expected error about reading file, got: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9999")
	t.Setenv("MONGO_URI", "mongodb://db.internal:27017")
	t.Setenv("TRANSCRIPTION_URL", "http://stt.internal/transcribe")
	t.Setenv("RESOLUTION_URL", "http://llm.internal/resolve")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(validConfigYAML), 0644); err != nil {
		t.Fatalf("Failed to create test config file: %v", err)
	}

	config, err := Load(configPath)
	if err != nil {
		t.Fatalf("Expected no error but got: %v", err)
	}

	if config.HTTP.Port != 9999 {
		t.Errorf("Expected PORT override 9999, got %d", config.HTTP.Port)
	}
	if config.Mongo.URI != "mongodb://db.internal:27017" {
		t.Errorf("Expected MONGO_URI override, got %s", config.Mongo.URI)
	}
	if config.Transcription.Endpoint != "http://stt.internal/transcribe" {
		t.Errorf("Expected TRANSCRIPTION_URL override, got %s", config.Transcription.Endpoint)
	}
	if config.Resolution.Endpoint != "http://llm.internal/resolve" {
		t.Errorf("Expected RESOLUTION_URL override, got %s", config.Resolution.Endpoint)
	}
	if config.Extraction.Endpoint != "http://localhost:9000/extract_query" {
		t.Errorf("Expected extraction endpoint from file, got %s", config.Extraction.Endpoint)
	}
}

func TestDurationHelpers(t *testing.T) {
	dispatch := DispatchConfig{
		TranscribeTimeout: 30,
		ExtractTimeout:    15,
		ResolveTimeout:    120,
		FinalizeTimeout:   10,
	}

	if dispatch.GetTranscribeTimeoutDuration() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", dispatch.GetTranscribeTimeoutDuration())
	}
	if dispatch.GetExtractTimeoutDuration() != 15*time.Second {
		t.Errorf("Expected 15 seconds, got %v", dispatch.GetExtractTimeoutDuration())
	}
	if dispatch.GetResolveTimeoutDuration() != 2*time.Minute {
		t.Errorf("Expected 2 minutes, got %v", dispatch.GetResolveTimeoutDuration())
	}
	if dispatch.GetFinalizeTimeoutDuration() != 10*time.Second {
		t.Errorf("Expected 10 seconds, got %v", dispatch.GetFinalizeTimeoutDuration())
	}

	cache := CacheConfig{TTL: 1800, SweepInterval: 300}
	if cache.GetTTLDuration() != 30*time.Minute {
		t.Errorf("Expected 30 minutes, got %v", cache.GetTTLDuration())
	}
	if cache.GetSweepIntervalDuration() != 5*time.Minute {
		t.Errorf("Expected 5 minutes, got %v", cache.GetSweepIntervalDuration())
	}

	ingest := IngestConfig{MaxAudioSizeMB: 25}
	if ingest.MaxAudioSizeBytes() != 25<<20 {
		t.Errorf("Expected %d bytes, got %d", 25<<20, ingest.MaxAudioSizeBytes())
	}

	mongo := MongoConfig{RetryDelay: 3}
	if mongo.GetRetryDelayDuration() != 3*time.Second {
		t.Errorf("Expected 3 seconds, got %v", mongo.GetRetryDelayDuration())
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
