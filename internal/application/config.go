// Package application provides the survey's business logic: configuration
// loading, the per-respondent survey flow, and aggregation of finalized
// rankings.
package application

import (
	"github.com/ahrav/go-ballot/internal/domain"
)

// Defaults applied to optional configuration fields.
const (
	DefaultAddress            = "127.0.0.1:8080"
	DefaultReadTimeoutSeconds = 10
	DefaultRequestsPerSecond  = 5.0
	DefaultBurst              = 10
	DefaultAggregationMethod  = "mean"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "json"
)

// SurveyConfig describes a complete ranking survey
// and serves as the primary configuration entry point for the system.
// Use SurveyConfig when deploying a survey: it fixes the item universe and
// the operational settings of the server around it.
type SurveyConfig struct {
	// Version specifies the configuration schema version using semantic
	// versioning to ensure compatibility across system updates.
	Version string `yaml:"version" validate:"required,semver"`
	// Metadata contains descriptive information about the survey.
	Metadata Metadata `yaml:"metadata" validate:"required"`
	// Items is the ordered universe of names being ranked. An item's index
	// is its position in this list and must not change while respondents
	// are in flight.
	Items []string `yaml:"items" validate:"required,min=1,max=128,dive,itemname"`
	// Server configures the HTTP listener.
	Server ServerConfig `yaml:"server"`
	// Storage configures where judgments, sessions, and rankings live.
	Storage StorageConfig `yaml:"storage"`
	// Participation controls duplicate participation checks.
	Participation ParticipationConfig `yaml:"participation"`
	// Admin holds the credential for the detailed results view.
	Admin AdminConfig `yaml:"admin"`
	// Aggregation selects how finalized rankings are summarized.
	Aggregation AggregationConfig `yaml:"aggregation"`
	// Logging configures the structured logger.
	Logging LoggingConfig `yaml:"logging"`
}

// Metadata provides descriptive information about a survey.
type Metadata struct {
	// Name is the human-readable identifier for this survey.
	Name string `yaml:"name" validate:"required,min=1,max=255"`
	// Description explains the survey's purpose for operators.
	Description string `yaml:"description" validate:"max=1000"`
}

// ServerConfig establishes the HTTP listener and its request limits.
type ServerConfig struct {
	// Address is the host:port the server listens on.
	Address string `yaml:"address" validate:"omitempty,hostname_port"`
	// ReadTimeoutSeconds bounds how long reading one request may take.
	ReadTimeoutSeconds int `yaml:"read_timeout_seconds" validate:"min=0,max=300"`
	// RateLimit bounds requests per client address.
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// RateLimitConfig defines a token bucket applied per client address.
// A zero RequestsPerSecond after defaults disables limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"min=0"`
	Burst             int     `yaml:"burst" validate:"min=0"`
}

// StorageConfig locates the embedded store.
type StorageConfig struct {
	// Path is the store directory. It is required unless InMemory is set.
	Path string `yaml:"path" validate:"required_unless=InMemory true"`
	// InMemory keeps all data in memory; data is lost on exit.
	InMemory bool `yaml:"in_memory"`
	// SyncWrites fsyncs every write before acknowledging it.
	SyncWrites bool `yaml:"sync_writes"`
}

// ParticipationConfig controls how repeated participation is detected.
type ParticipationConfig struct {
	// BlockDuplicateIP refuses a second survey from an address that
	// already started one.
	BlockDuplicateIP bool `yaml:"block_duplicate_ip"`
}

// AdminConfig holds the credential that gates per-respondent results.
type AdminConfig struct {
	// Token must be presented as a bearer token. An empty token disables
	// the detailed view entirely.
	Token string `yaml:"token" validate:"omitempty,min=8"`
}

// AggregationConfig selects the aggregation strategy.
type AggregationConfig struct {
	// Method is "mean" or "median".
	Method string `yaml:"method" validate:"omitempty,oneof=mean median"`
	// PersistStats writes every computed summary back to the store.
	PersistStats bool `yaml:"persist_stats"`
}

// LoggingConfig configures the slog handler built by the CLI.
type LoggingConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=json text"`
}

// ApplyDefaults fills optional fields left empty by the file.
func (c *SurveyConfig) ApplyDefaults() {
	if c.Server.Address == "" {
		c.Server.Address = DefaultAddress
	}
	if c.Server.ReadTimeoutSeconds == 0 {
		c.Server.ReadTimeoutSeconds = DefaultReadTimeoutSeconds
	}
	if c.Server.RateLimit.RequestsPerSecond == 0 && c.Server.RateLimit.Burst == 0 {
		c.Server.RateLimit.RequestsPerSecond = DefaultRequestsPerSecond
		c.Server.RateLimit.Burst = DefaultBurst
	}
	if c.Aggregation.Method == "" {
		c.Aggregation.Method = DefaultAggregationMethod
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}
}

// Catalog builds the item universe from the configured names.
func (c *SurveyConfig) Catalog() (domain.Catalog, error) {
	return domain.NewCatalog(c.Items)
}
