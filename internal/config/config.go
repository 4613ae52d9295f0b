// Package config loads and validates service configuration via Viper.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Firestore FirestoreConfig `mapstructure:"firestore"`
	DynamoDB  DynamoDBConfig  `mapstructure:"dynamodb"`
	Mail      MailConfig      `mapstructure:"mail"`
	CRM       CRMConfig       `mapstructure:"crm"`
	Events    EventsConfig    `mapstructure:"events"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Estimate  EstimateConfig  `mapstructure:"estimate"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port            int `mapstructure:"port"`
	ShutdownSeconds int `mapstructure:"shutdown_seconds"`
}

// AuthConfig guards the operator routes.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// HTTPConfig bounds inbound requests and outbound collaborator calls.
type HTTPConfig struct {
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	StepTimeoutSeconds    int `mapstructure:"step_timeout_seconds"`
	MaxBodyBytes          int `mapstructure:"max_body_bytes"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// StoreConfig selects the document store and its collections.
type StoreConfig struct {
	Driver             string `mapstructure:"driver"`
	DedupByEmail       bool   `mapstructure:"dedup_by_email"`
	ContactCollection  string `mapstructure:"contact_collection"`
	EstimateCollection string `mapstructure:"estimate_collection"`
}

// PostgresConfig controls the Postgres document store.
type PostgresConfig struct {
	DSN                    string `mapstructure:"dsn"`
	Table                  string `mapstructure:"table"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeSeconds int    `mapstructure:"max_conn_lifetime_seconds"`
	AutoMigrate            bool   `mapstructure:"auto_migrate"`
}

// FirestoreConfig controls the Firestore document store.
type FirestoreConfig struct {
	ProjectID  string `mapstructure:"project_id"`
	DatabaseID string `mapstructure:"database_id"`
}

// DynamoDBConfig controls the DynamoDB document store.
type DynamoDBConfig struct {
	Region     string `mapstructure:"region"`
	Table      string `mapstructure:"table"`
	EmailIndex string `mapstructure:"email_index"`
	Endpoint   string `mapstructure:"endpoint"`
}

// MailConfig configures the operator notification transport.
type MailConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	FromName string `mapstructure:"from_name"`
	To       string `mapstructure:"to"`
}

// CRMConfig configures CRM sync and the CRM proxy.
type CRMConfig struct {
	APIKey       string `mapstructure:"api_key"`
	BrandURL     string `mapstructure:"brand_url"`
	APIURL       string `mapstructure:"api_url"`
	ProxyEnabled bool   `mapstructure:"proxy_enabled"`
	ProxyPrefix  string `mapstructure:"proxy_prefix"`
}

// EventsConfig configures the lead event sinks.
type EventsConfig struct {
	Log     bool               `mapstructure:"log"`
	Memory  MemoryEventsConfig `mapstructure:"memory"`
	PubSub  PubSubConfig       `mapstructure:"pubsub"`
	Archive ArchiveConfig      `mapstructure:"archive"`
}

// MemoryEventsConfig keeps the most recent events in process for the
// operator events route.
type MemoryEventsConfig struct {
	Enabled  bool `mapstructure:"enabled"`
	Capacity int  `mapstructure:"capacity"`
}

// PubSubConfig holds the lead event topic.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ArchiveConfig selects where lead events are archived as JSON objects: a
// GCS bucket, or a local directory when no bucket is set.
type ArchiveConfig struct {
	Bucket string `mapstructure:"bucket"`
	Dir    string `mapstructure:"dir"`
	Prefix string `mapstructure:"prefix"`
}

// RateLimitConfig throttles submissions per client IP.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// EstimateConfig tunes the cost estimator flow.
type EstimateConfig struct {
	RequireFirstName bool `mapstructure:"require_first_name"`
}

// TelemetryConfig controls tracing. Spans are exported to Cloud Trace only
// when a project is set.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	ProjectID   string  `mapstructure:"project_id"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Capabilities reports which optional collaborators have credentials.
type Capabilities struct {
	NotificationsEnabled bool `json:"notificationsEnabled"`
	CRMSyncEnabled       bool `json:"crmSyncEnabled"`
	StoreConfigured      bool `json:"storeConfigured"`
	EventsEnabled        bool `json:"eventsEnabled"`
}

// Store drivers.
const (
	DriverMemory    = "memory"
	DriverPostgres  = "postgres"
	DriverFirestore = "firestore"
	DriverDynamoDB  = "dynamodb"
)

// legacyEnv maps config keys to the unprefixed variable names the site
// deployment already sets.
var legacyEnv = map[string][]string{
	"mail.username":            {"EMAIL_USER"},
	"mail.password":            {"EMAIL_PASS"},
	"crm.api_key":              {"AGILED_API_KEY"},
	"crm.brand_url":            {"AGILED_CRM_URL"},
	"server.port":              {"PORT"},
	"firestore.project_id":     {"GOOGLE_CLOUD_PROJECT"},
	"events.pubsub.project_id": {"GOOGLE_CLOUD_PROJECT"},
	"postgres.dsn":             {"DATABASE_URL"},
	"telemetry.project_id":     {"GOOGLE_CLOUD_PROJECT"},
}

// Load builds a Config from .env files, an optional config file and the
// environment. Missing optional credentials never fail Load.
func Load(path string) (Config, error) {
	if err := loadDotEnv(".env.local", ".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("NARRATION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, names := range legacyEnv {
		args := append([]string{key, "NARRATION_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))}, names...)
		if err := v.BindEnv(args...); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// loadDotEnv loads each file that exists, earlier files first. Variables
// already set in the process environment are never overwritten.
func loadDotEnv(files ...string) error {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.shutdown_seconds", 10)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("http.request_timeout_seconds", 30)
	v.SetDefault("http.step_timeout_seconds", 10)
	v.SetDefault("http.max_body_bytes", 64<<10)
	v.SetDefault("logging.development", false)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dedup_by_email", false)
	v.SetDefault("store.contact_collection", "contactFormSubmissions")
	v.SetDefault("store.estimate_collection", "estimatorLeads")
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.table", "lead_documents")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 0)
	v.SetDefault("postgres.max_conn_lifetime_seconds", 1800)
	v.SetDefault("postgres.auto_migrate", true)
	v.SetDefault("firestore.project_id", "")
	v.SetDefault("firestore.database_id", "(default)")
	v.SetDefault("dynamodb.region", "us-east-1")
	v.SetDefault("dynamodb.table", "lead_documents")
	v.SetDefault("dynamodb.email_index", "email-index")
	v.SetDefault("dynamodb.endpoint", "")
	v.SetDefault("mail.host", "smtp.gmail.com")
	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.username", "")
	v.SetDefault("mail.password", "")
	v.SetDefault("mail.from_name", "Contact Form")
	v.SetDefault("mail.to", "success@narration.design")
	v.SetDefault("crm.api_key", "")
	v.SetDefault("crm.brand_url", "https://narration-design.agiled.app")
	v.SetDefault("crm.api_url", "https://api.agiled.app/api/v1")
	v.SetDefault("crm.proxy_enabled", true)
	v.SetDefault("crm.proxy_prefix", "/api/agiled")
	v.SetDefault("events.log", true)
	v.SetDefault("events.memory.enabled", false)
	v.SetDefault("events.memory.capacity", 100)
	v.SetDefault("events.pubsub.project_id", "")
	v.SetDefault("events.pubsub.topic", "")
	v.SetDefault("events.archive.bucket", "")
	v.SetDefault("events.archive.dir", "")
	v.SetDefault("events.archive.prefix", "leads")
	v.SetDefault("ratelimit.enabled", true)
	v.SetDefault("ratelimit.rps", 0.5)
	v.SetDefault("ratelimit.burst", 5)
	v.SetDefault("estimate.require_first_name", false)
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "narration-leads")
	v.SetDefault("telemetry.project_id", "")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.HTTP.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("http.request_timeout_seconds must be > 0")
	}
	if c.HTTP.StepTimeoutSeconds <= 0 {
		return fmt.Errorf("http.step_timeout_seconds must be > 0")
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		return fmt.Errorf("http.max_body_bytes must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	switch c.Store.Driver {
	case DriverMemory, DriverPostgres, DriverFirestore, DriverDynamoDB:
	default:
		return fmt.Errorf("store.driver must be one of memory, postgres, firestore, dynamodb (got %q)", c.Store.Driver)
	}
	if c.Store.ContactCollection == "" || c.Store.EstimateCollection == "" {
		return fmt.Errorf("store collections must not be empty")
	}
	if c.Store.Driver == DriverDynamoDB && c.DynamoDB.Table == "" {
		return fmt.Errorf("dynamodb.table must be set when store.driver is dynamodb")
	}
	if c.Mail.Port <= 0 {
		return fmt.Errorf("mail.port must be > 0")
	}
	if c.Mail.To == "" {
		return fmt.Errorf("mail.to must be set")
	}
	if _, err := c.CRMBrand(); err != nil {
		return err
	}
	if u, err := url.Parse(c.CRM.APIURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("crm.api_url must be an absolute URL (got %q)", c.CRM.APIURL)
	}
	if c.CRM.ProxyEnabled && !strings.HasPrefix(c.CRM.ProxyPrefix, "/") {
		return fmt.Errorf("crm.proxy_prefix must start with /")
	}
	if c.Events.Memory.Enabled && c.Events.Memory.Capacity <= 0 {
		return fmt.Errorf("events.memory.capacity must be > 0 when the memory sink is enabled")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be between 0 and 1")
	}
	if c.RateLimit.Enabled && (c.RateLimit.RPS <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("ratelimit.rps and ratelimit.burst must be > 0 when rate limiting is enabled")
	}
	return nil
}

// CRMBrand returns the hostname of the configured CRM base URL, sent as the
// Brand header on every CRM call.
func (c Config) CRMBrand() (string, error) {
	u, err := url.Parse(c.CRM.BrandURL)
	if err != nil || u.Hostname() == "" {
		return "", fmt.Errorf("crm.brand_url must be an absolute URL (got %q)", c.CRM.BrandURL)
	}
	return u.Hostname(), nil
}

// Capabilities derives the optional collaborator flags from credential
// presence.
func (c Config) Capabilities() Capabilities {
	return Capabilities{
		NotificationsEnabled: c.Mail.Username != "" && c.Mail.Password != "",
		CRMSyncEnabled:       c.CRM.APIKey != "",
		StoreConfigured:      c.storeConfigured(),
		EventsEnabled:        c.Events.Log || c.Events.Memory.Enabled || c.Events.PubSub.Topic != "" || c.Events.Archive.Bucket != "" || c.Events.Archive.Dir != "",
	}
}

func (c Config) storeConfigured() bool {
	switch c.Store.Driver {
	case DriverMemory:
		return true
	case DriverPostgres:
		return c.Postgres.DSN != ""
	case DriverFirestore:
		return c.Firestore.ProjectID != ""
	case DriverDynamoDB:
		return c.DynamoDB.Table != ""
	default:
		return false
	}
}

// StepTimeout is the per-call bound applied to every external collaborator.
func (c Config) StepTimeout() time.Duration {
	return time.Duration(c.HTTP.StepTimeoutSeconds) * time.Second
}

// RequestTimeout bounds a whole inbound request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.HTTP.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSeconds) * time.Second
}
