package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nchapman/kokoro-fetch/internal/fileutil"
	"github.com/nchapman/kokoro-fetch/internal/version"
	"gopkg.in/yaml.v3"
)

// Config holds everything a fetch run needs to know. The zero value is not
// usable; start from DefaultConfig.
type Config struct {
	ModelsDir             string        `yaml:"models_dir"`
	ManifestPath          string        `yaml:"manifest_path"`
	ChunkSize             int           `yaml:"chunk_size"`
	HashChunkSize         int           `yaml:"hash_chunk_size"`
	Concurrency           int           `yaml:"concurrency"`
	MaxRetries            int           `yaml:"max_retries"`
	RetryDelay            time.Duration `yaml:"retry_delay"`
	MaxRetryDelay         time.Duration `yaml:"max_retry_delay"`
	ResponseHeaderTimeout time.Duration `yaml:"response_header_timeout"`
	UserAgent             string        `yaml:"user_agent"`
	LogFile               string        `yaml:"log_file"`
}

const (
	// ManifestFile is the manifest's name inside the models directory.
	ManifestFile = "MODEL_MANIFEST.json"

	// Environment overrides.
	EnvConfigPath = "KOKORO_FETCH_CONFIG"
	EnvModelsDir  = "KOKORO_MODELS_DIR"

	modelsDir = "models"
	voicesDir = "voices"
	onnxDir   = "onnx"
)

func DefaultConfig() *Config {
	return &Config{
		ModelsDir:             modelsDir,
		ChunkSize:             8192,
		HashChunkSize:         4096,
		Concurrency:           1,
		MaxRetries:            3,
		RetryDelay:            1 * time.Second,
		MaxRetryDelay:         30 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		UserAgent:             version.UserAgent(),
	}
}

// Load reads the YAML config at path on top of the defaults. An empty path
// falls back to $KOKORO_FETCH_CONFIG; if that is unset too, or the file does
// not exist, the defaults are returned. $KOKORO_MODELS_DIR overrides
// models_dir in either case.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	if dir := os.Getenv(EnvModelsDir); dir != "" {
		cfg.ModelsDir = dir
	}

	return cfg, nil
}

// fileConfig is Config as written to disk, with durations as strings.
type fileConfig struct {
	ModelsDir             string `yaml:"models_dir"`
	ManifestPath          string `yaml:"manifest_path,omitempty"`
	ChunkSize             int    `yaml:"chunk_size"`
	HashChunkSize         int    `yaml:"hash_chunk_size"`
	Concurrency           int    `yaml:"concurrency"`
	MaxRetries            int    `yaml:"max_retries"`
	RetryDelay            string `yaml:"retry_delay"`
	MaxRetryDelay         string `yaml:"max_retry_delay"`
	ResponseHeaderTimeout string `yaml:"response_header_timeout"`
	UserAgent             string `yaml:"user_agent"`
	LogFile               string `yaml:"log_file,omitempty"`
}

func (c Config) MarshalYAML() (any, error) {
	return fileConfig{
		ModelsDir:             c.ModelsDir,
		ManifestPath:          c.ManifestPath,
		ChunkSize:             c.ChunkSize,
		HashChunkSize:         c.HashChunkSize,
		Concurrency:           c.Concurrency,
		MaxRetries:            c.MaxRetries,
		RetryDelay:            c.RetryDelay.String(),
		MaxRetryDelay:         c.MaxRetryDelay.String(),
		ResponseHeaderTimeout: c.ResponseHeaderTimeout.String(),
		UserAgent:             c.UserAgent,
		LogFile:               c.LogFile,
	}, nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *Config) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := fileutil.AtomicWriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Validate rejects settings the fetcher cannot run with.
func (c *Config) Validate() error {
	if c.ModelsDir == "" {
		return fmt.Errorf("models_dir must not be empty")
	}
	if c.ChunkSize <= 0 {
		return fmt.Errorf("chunk_size must be positive, got %d", c.ChunkSize)
	}
	if c.HashChunkSize <= 0 {
		return fmt.Errorf("hash_chunk_size must be positive, got %d", c.HashChunkSize)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be at least 1, got %d", c.MaxRetries)
	}
	if c.RetryDelay < 0 || c.MaxRetryDelay < 0 || c.ResponseHeaderTimeout < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}

// ManifestLocation returns the manifest path, defaulting to
// <models_dir>/MODEL_MANIFEST.json.
func (c *Config) ManifestLocation() string {
	if c.ManifestPath != "" {
		return c.ManifestPath
	}
	return filepath.Join(c.ModelsDir, ManifestFile)
}

// VoicesPath returns the directory voice files are stored in.
func (c *Config) VoicesPath() string {
	return VoicesPath(c.ModelsDir)
}

// OnnxPath returns the directory ONNX files are stored in.
func (c *Config) OnnxPath() string {
	return OnnxPath(c.ModelsDir)
}

func VoicesPath(root string) string {
	return filepath.Join(root, voicesDir)
}

func OnnxPath(root string) string {
	return filepath.Join(root, onnxDir)
}

// EnsureDirectories creates the models root and its voices/ and onnx/
// subdirectories.
func EnsureDirectories(root string) error {
	dirs := []string{
		root,
		VoicesPath(root),
		OnnxPath(root),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}
