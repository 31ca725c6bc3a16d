// Package config holds the engine's configuration surface: a plain struct
// with documented defaults, optionally overridable from a YAML file for
// local experimentation. Programmatic construction remains the primary path.
package config

import (
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	coreerrors "github.com/noahbutcher97/ue5source/internal/errors"
)

// Config is the full configuration surface described by the external
// interfaces' option table. Every field has a documented zero-value default
// applied by Default().
type Config struct {
	EmbedModelName string `yaml:"embed_model_name" json:"embed_model_name"`
	EmbeddingDim   int    `yaml:"embedding_dim" json:"embedding_dim"`

	UseAccelerator string `yaml:"use_accelerator" json:"use_accelerator"` // auto|on|off

	// AcceleratorLibraryPath points at the native shared library
	// implementing the accelerator ABI (embed_encode_batch); required
	// when UseAccelerator is "on", consulted opportunistically when
	// "auto", ignored when "off".
	AcceleratorLibraryPath string `yaml:"accelerator_library_path" json:"accelerator_library_path"`

	InitialBatchSize int `yaml:"initial_batch_size" json:"initial_batch_size"`
	MinBatchSize     int `yaml:"min_batch_size" json:"min_batch_size"`
	MaxBatchShrinks  int `yaml:"max_batch_shrinks" json:"max_batch_shrinks"`

	MaxTokens         int `yaml:"max_tokens" json:"max_tokens"`
	TokenSafetyBuffer int `yaml:"token_safety_buffer" json:"token_safety_buffer"`

	ChunkSize                  int  `yaml:"chunk_size" json:"chunk_size"`
	ChunkOverlap               int  `yaml:"chunk_overlap" json:"chunk_overlap"`
	UseStructureAwareChunking bool `yaml:"use_structure_aware_chunking" json:"use_structure_aware_chunking"`

	Extensions []string `yaml:"extensions" json:"extensions"`
	IncludeDocs bool    `yaml:"include_docs" json:"include_docs"`

	MaxFileBytes int64    `yaml:"max_file_bytes" json:"max_file_bytes"`
	DirExclusions []string `yaml:"dir_exclusions" json:"dir_exclusions"`
	FileExclusions []string `yaml:"file_exclusions" json:"file_exclusions"`

	IgnoreFileName string `yaml:"ignore_file_name" json:"ignore_file_name"`

	PruneMissingOnIncremental bool `yaml:"prune_missing_on_incremental" json:"prune_missing_on_incremental"`

	// Logger is the shared structured logger threaded through every
	// component. Defaults to slog.Default() when nil.
	Logger *slog.Logger `yaml:"-" json:"-"`
}

// DefaultDirExclusions is the default directory deny-list for discovery.
var DefaultDirExclusions = []string{
	"Intermediate", "Binaries", "DerivedDataCache", "Saved",
	".git", ".vs", "__pycache__", "node_modules",
}

// DefaultExtensions is the default extension whitelist for discovery.
var DefaultExtensions = []string{".cpp", ".h", ".hpp", ".inl", ".cs"}

// Default returns the configuration's documented zero-value defaults.
func Default() Config {
	return Config{
		EmbedModelName:             "microsoft/unixcoder-base",
		EmbeddingDim:               768,
		UseAccelerator:             "auto",
		InitialBatchSize:           16,
		MinBatchSize:               1,
		MaxBatchShrinks:            4,
		MaxTokens:                  512,
		TokenSafetyBuffer:          10,
		ChunkSize:                  2000,
		ChunkOverlap:               200,
		UseStructureAwareChunking: true,
		Extensions:                 append([]string(nil), DefaultExtensions...),
		IncludeDocs:                false,
		MaxFileBytes:               10 * 1024 * 1024,
		DirExclusions:              append([]string(nil), DefaultDirExclusions...),
		IgnoreFileName:             ".indexignore",
		PruneMissingOnIncremental: false,
		Logger:                     slog.Default(),
	}
}

// LoadYAML applies an optional YAML override file on top of cfg's current
// values, returning the merged configuration. It is never required: the
// zero-value-defaulted struct is a fully valid configuration on its own.
func LoadYAML(cfg Config, path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, coreerrors.Wrap(coreerrors.KindConfig, "read config file", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, coreerrors.Wrap(coreerrors.KindConfig, "parse config file", err)
	}
	return cfg, nil
}

// Validate checks invariants that must hold before any I/O begins.
func (c Config) Validate() error {
	if c.EmbeddingDim <= 0 {
		return coreerrors.New(coreerrors.KindConfig, "embedding_dim must be positive")
	}
	if c.InitialBatchSize <= 0 {
		return coreerrors.New(coreerrors.KindConfig, "initial_batch_size must be positive")
	}
	if c.MinBatchSize <= 0 || c.MinBatchSize > c.InitialBatchSize {
		return coreerrors.New(coreerrors.KindConfig, "min_batch_size must be in (0, initial_batch_size]")
	}
	if c.MaxBatchShrinks < 0 {
		return coreerrors.New(coreerrors.KindConfig, "max_batch_shrinks must be non-negative")
	}
	if c.TokenSafetyBuffer < 0 || c.TokenSafetyBuffer >= c.MaxTokens {
		return coreerrors.New(coreerrors.KindConfig, "token_safety_buffer must be in [0, max_tokens)")
	}
	if c.ChunkSize <= 0 {
		return coreerrors.New(coreerrors.KindConfig, "chunk_size must be positive")
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return coreerrors.New(coreerrors.KindConfig, "chunk_overlap must be in [0, chunk_size)")
	}
	if len(c.Extensions) == 0 {
		return coreerrors.New(coreerrors.KindConfig, "extensions must not be empty")
	}
	switch strings.ToLower(c.UseAccelerator) {
	case "auto", "on", "off":
	default:
		return coreerrors.New(coreerrors.KindConfig, "use_accelerator must be one of auto, on, off")
	}
	return nil
}

// Log returns the configured logger, falling back to slog.Default().
func (c Config) Log() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}
