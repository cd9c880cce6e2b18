package application

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/singleflight"
	"gopkg.in/yaml.v3"

	"github.com/ahrav/go-ballot/internal/domain"
	"github.com/ahrav/go-ballot/internal/ports"
)

// Environment variables that override values from the configuration file.
const (
	EnvAdminToken  = "BALLOT_ADMIN_TOKEN"
	EnvStoragePath = "BALLOT_STORAGE_PATH"
	EnvAddress     = "BALLOT_ADDRESS"
)

// LoadedConfig is a validated configuration together with the catalog it
// defines.
// WARNING: LoadedConfig values are shared through the loader's cache.
// Callers MUST NOT mutate Config.
type LoadedConfig struct {
	// Config is the normalized configuration with defaults applied.
	Config *SurveyConfig
	// Catalog is the item universe built from Config.Items.
	Catalog domain.Catalog
	// Fingerprint is the SHA256 hex digest of the normalized configuration.
	Fingerprint string
}

// ConfigLoader provides YAML configuration parsing, validation, and caching
// for survey configurations.
// Use ConfigLoader to load a survey from a file or reader while benefiting
// from SHA256-based caching and comprehensive validation.
type ConfigLoader struct {
	// validator performs struct field validation and the custom
	// semver and itemname rules.
	validator *validator.Validate
	// getenv resolves environment overrides. It is os.Getenv unless a
	// test replaces it.
	getenv func(string) string
	// cache stores loaded configurations indexed by the SHA256 hash of the
	// normalized configuration.
	cache   map[string]*LoadedConfig
	cacheMu sync.RWMutex
	// sf prevents duplicate validation when multiple goroutines load the
	// same configuration simultaneously.
	sf singleflight.Group
}

// ConfigLoaderOption configures a ConfigLoader.
type ConfigLoaderOption func(*ConfigLoader)

// WithGetenv replaces the environment lookup used for overrides.
func WithGetenv(getenv func(string) string) ConfigLoaderOption {
	return func(cl *ConfigLoader) { cl.getenv = getenv }
}

// NewConfigLoader creates a loader with validation capabilities and an
// empty cache.
// NewConfigLoader returns an error if validator registration fails.
func NewConfigLoader(opts ...ConfigLoaderOption) (*ConfigLoader, error) {
	v := validator.New()
	if err := registerCustomValidators(v); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	cl := &ConfigLoader{
		validator: v,
		getenv:    os.Getenv,
		cache:     make(map[string]*LoadedConfig),
	}
	for _, opt := range opts {
		opt(cl)
	}
	return cl, nil
}

// LoadFromFile loads and validates a survey configuration from a YAML file.
// A missing file yields a ConfigError wrapping ports.ErrConfigNotFound.
func (cl *ConfigLoader) LoadFromFile(ctx context.Context, path string) (*LoadedConfig, error) {
	cleanPath := filepath.Clean(path)

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ports.NewConfigError(cleanPath, ports.ErrConfigNotFound)
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	return cl.load(ctx, data)
}

// LoadFromReader loads and validates a survey configuration from an
// io.Reader, applying the same processing as LoadFromFile.
func (cl *ConfigLoader) LoadFromReader(ctx context.Context, r io.Reader) (*LoadedConfig, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read data: %w", err)
	}

	return cl.load(ctx, data)
}

// load is the common implementation behind LoadFromFile and LoadFromReader.
// The configuration is normalized before hashing so that equivalent files
// share a cache entry.
func (cl *ConfigLoader) load(ctx context.Context, data []byte) (*LoadedConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	config, err := cl.parseYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	cl.normalize(config)
	cl.applyOverrides(config)
	config.ApplyDefaults()

	hash, err := calculateConfigHash(config)
	if err != nil {
		return nil, fmt.Errorf("failed to calculate hash: %w", err)
	}

	v, err, _ := cl.sf.Do(hash, func() (any, error) {
		if loaded, ok := cl.getCached(hash); ok {
			return loaded, nil
		}

		if err := cl.validateConfig(config); err != nil {
			return nil, fmt.Errorf("validation failed: %w", err)
		}

		catalog, err := config.Catalog()
		if err != nil {
			return nil, fmt.Errorf("failed to build catalog: %w", err)
		}

		loaded := &LoadedConfig{Config: config, Catalog: catalog, Fingerprint: hash}
		cl.store(hash, loaded)
		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*LoadedConfig), nil
}

// parseYAML unmarshals YAML into a SurveyConfig using strict decoding so
// that misspelled keys are reported instead of silently ignored.
func (cl *ConfigLoader) parseYAML(data []byte) (*SurveyConfig, error) {
	var config SurveyConfig
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	if err := decoder.Decode(&config); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("YAML decode failed: %w", domain.ErrEmptyValue)
		}
		return nil, fmt.Errorf("YAML decode failed: %w", err)
	}
	return &config, nil
}

// normalize rewrites every item name into NFC without surrounding spaces.
func (cl *ConfigLoader) normalize(config *SurveyConfig) {
	for i, item := range config.Items {
		config.Items[i] = normalizeItemName(item)
	}
}

// applyOverrides replaces file values with non-empty environment values.
func (cl *ConfigLoader) applyOverrides(config *SurveyConfig) {
	if v := cl.getenv(EnvAdminToken); v != "" {
		config.Admin.Token = v
	}
	if v := cl.getenv(EnvStoragePath); v != "" {
		config.Storage.Path = v
		config.Storage.InMemory = false
	}
	if v := cl.getenv(EnvAddress); v != "" {
		config.Server.Address = v
	}
}

// validateConfig runs struct validation followed by semantic validation.
func (cl *ConfigLoader) validateConfig(config *SurveyConfig) error {
	if err := cl.validator.Struct(config); err != nil {
		return fmt.Errorf("%w: struct validation failed: %w", domain.ErrInvalidConfiguration, err)
	}
	if err := validateSemantics(config); err != nil {
		return fmt.Errorf("semantic validation failed: %w", err)
	}
	return nil
}

// calculateConfigHash computes the SHA256 hash of a normalized configuration
// re-encoded with consistent formatting.
func calculateConfigHash(config *SurveyConfig) (string, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)

	if err := encoder.Encode(config); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return "", fmt.Errorf("failed to encode config for hashing: %w", err)
	}

	hash := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(hash[:]), nil
}

func (cl *ConfigLoader) getCached(hash string) (*LoadedConfig, bool) {
	cl.cacheMu.RLock()
	defer cl.cacheMu.RUnlock()

	loaded, ok := cl.cache[hash]
	return loaded, ok
}

func (cl *ConfigLoader) store(hash string, loaded *LoadedConfig) {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache[hash] = loaded
}

// ClearCache removes all cached configurations.
func (cl *ConfigLoader) ClearCache() {
	cl.cacheMu.Lock()
	defer cl.cacheMu.Unlock()

	cl.cache = make(map[string]*LoadedConfig)
}
