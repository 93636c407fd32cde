// internal/common/config/config.go
package config

import (
	"fmt"
	"strings"
)

// Config is the main application configuration struct.
type Config struct {
	App       AppConfig               `mapstructure:"app"`
	Camunda   CamundaConfig           `mapstructure:"camunda"`
	Database  DatabaseConfig          `mapstructure:"database"`
	Workers   map[string]WorkerConfig `mapstructure:"workers"`
	APIs      APIsConfig              `mapstructure:"apis"`
	Interpret InterpretConfig         `mapstructure:"interpret"`
	Server    ServerConfig            `mapstructure:"server"`
	Logging   LoggingConfig           `mapstructure:"logging"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type CamundaConfig struct {
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// Enabled reports whether an audit database is configured.
func (p PostgresConfig) Enabled() bool {
	return p.Host != "" && p.Database != ""
}

type ElasticsearchConfig struct {
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	ItemIndex  string   `mapstructure:"item_index"`
}

// GetURL returns the first address or the URL field
func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	CacheTTL int    `mapstructure:"cache_ttl"` // milliseconds
}

// WorkerConfig holds the core settings applicable to every worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- External APIs ---

// APIsConfig holds settings for the model provider and the ERP.
type APIsConfig struct {
	LLM LLMConfig `mapstructure:"llm"`
	ERP ERPConfig `mapstructure:"erp"`
}

type LLMConfig struct {
	Provider string `mapstructure:"provider"` // openai | genai
	BaseURL  string `mapstructure:"base_url"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Timeout  int    `mapstructure:"timeout"` // milliseconds

	GenAI struct {
		APIKey string `mapstructure:"api_key"`
		Model  string `mapstructure:"model"`
	} `mapstructure:"genai"`
}

// Configured reports whether the selected provider has credentials.
func (l LLMConfig) Configured() bool {
	if strings.EqualFold(l.Provider, "genai") {
		return l.GenAI.APIKey != ""
	}
	return l.APIKey != ""
}

type ERPConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
	Token     string `mapstructure:"token"`
	Company   string `mapstructure:"company"`
	Profile   string `mapstructure:"profile"`
	Warehouse string `mapstructure:"warehouse"`
	Currency  string `mapstructure:"currency"`
	PriceList string `mapstructure:"price_list"`
	Timeout   int    `mapstructure:"timeout"` // milliseconds
}

// Enabled reports whether an ERP base URL is set.
func (e ERPConfig) Enabled() bool {
	return e.BaseURL != ""
}

// --- Interpretation pipeline ---

// InterpretConfig holds thresholds, weights and planner sampling settings.
type InterpretConfig struct {
	ActThreshold  float64        `mapstructure:"act_threshold"`
	AskThreshold  float64        `mapstructure:"ask_threshold"`
	MaxCandidates int            `mapstructure:"max_candidates"`
	CacheTTL      int            `mapstructure:"cache_ttl"` // seconds
	Blend         BlendConfig    `mapstructure:"blend"`
	Bonuses       BonusConfig    `mapstructure:"bonuses"`
	NominalMM     map[string]int `mapstructure:"nominal_mm"`
	RegistryPath  string         `mapstructure:"registry_path"`
	Planner       PlannerConfig  `mapstructure:"planner"`
}

type BlendConfig struct {
	LLMWeight      float64 `mapstructure:"llm_weight"`
	ResolverWeight float64 `mapstructure:"resolver_weight"`
}

type BonusConfig struct {
	MM       float64 `mapstructure:"mm"`
	Fraction float64 `mapstructure:"fraction"`
}

type PlannerConfig struct {
	Temperature float64 `mapstructure:"temperature"`
	TopP        float64 `mapstructure:"top_p"`
	Seed        int     `mapstructure:"seed"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Timeout     int     `mapstructure:"timeout"` // milliseconds
}

// ServerConfig holds the HTTP bridge settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
	File   struct {
		Path       string `mapstructure:"path"`
		MaxSize    int    `mapstructure:"max_size"` // megabytes
		MaxBackups int    `mapstructure:"max_backups"`
		MaxAge     int    `mapstructure:"max_age"` // days
		Compress   bool   `mapstructure:"compress"`
	} `mapstructure:"file"`
}
