// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

func Load() (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	return finish(v)
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// Find project root by looking for go.mod
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideFromEnv applies the bridge's historical environment variables.
// They win over the YAML so a deployment can be tuned without a new file.
func overrideFromEnv(cfg *Config) {
	setString(&cfg.APIs.LLM.APIKey, "OPENAI_API_KEY")
	setString(&cfg.APIs.LLM.Model, "LLM_MODEL")
	setString(&cfg.APIs.LLM.GenAI.APIKey, "GENAI_API_KEY")

	setString(&cfg.APIs.ERP.BaseURL, "ERP_BASE")
	setString(&cfg.APIs.ERP.APIKey, "ERP_API_KEY")
	setString(&cfg.APIs.ERP.APISecret, "ERP_API_SECRET")
	setString(&cfg.APIs.ERP.Token, "ERP_TOKEN")
	setString(&cfg.APIs.ERP.Company, "BASE_COMPANY")
	setString(&cfg.APIs.ERP.Profile, "BASE_PROFILE")
	setString(&cfg.APIs.ERP.Warehouse, "BASE_WAREHOUSE")
	setString(&cfg.APIs.ERP.Currency, "BASE_CURRENCY")

	setFloat(&cfg.Interpret.ActThreshold, "ACT_THRESHOLD")
	setFloat(&cfg.Interpret.AskThreshold, "ASK_THRESHOLD")
	setInt(&cfg.Interpret.MaxCandidates, "MAX_CANDIDATES")
	setInt(&cfg.Interpret.CacheTTL, "BRIDGE_CACHE_TTL")

	setString(&cfg.Database.Postgres.User, "DB_USER")
	setString(&cfg.Database.Postgres.Password, "DB_PASSWORD")
}

func setString(dst *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

func setFloat(dst *float64, key string) {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			*dst = f
		}
	}
}

func setInt(dst *int, key string) {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			*dst = i
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "pos-interpreter"
	}

	// Camunda defaults
	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	// Database defaults
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.URL == "" && len(cfg.Database.Elasticsearch.Addresses) > 0 {
		cfg.Database.Elasticsearch.URL = cfg.Database.Elasticsearch.Addresses[0]
	}
	if cfg.Database.Elasticsearch.ItemIndex == "" {
		cfg.Database.Elasticsearch.ItemIndex = "items"
	}
	if cfg.Database.Redis.CacheTTL == 0 {
		cfg.Database.Redis.CacheTTL = 300000
	}

	// Model defaults
	if cfg.APIs.LLM.Provider == "" {
		cfg.APIs.LLM.Provider = "openai"
	}
	if cfg.APIs.LLM.BaseURL == "" {
		cfg.APIs.LLM.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.APIs.LLM.Model == "" {
		cfg.APIs.LLM.Model = "gpt-4o-mini"
	}
	if cfg.APIs.LLM.GenAI.Model == "" {
		cfg.APIs.LLM.GenAI.Model = "gemini-2.0-flash"
	}
	if cfg.APIs.LLM.Timeout == 0 {
		cfg.APIs.LLM.Timeout = 30000
	}
	if cfg.APIs.ERP.Timeout == 0 {
		cfg.APIs.ERP.Timeout = 20000
	}
	if cfg.APIs.ERP.PriceList == "" {
		cfg.APIs.ERP.PriceList = "Standard Selling"
	}

	// Interpretation defaults
	if cfg.Interpret.ActThreshold == 0 {
		cfg.Interpret.ActThreshold = 0.75
	}
	if cfg.Interpret.AskThreshold == 0 {
		cfg.Interpret.AskThreshold = 0.45
	}
	if cfg.Interpret.MaxCandidates == 0 {
		cfg.Interpret.MaxCandidates = 5
	}
	if cfg.Interpret.CacheTTL == 0 {
		cfg.Interpret.CacheTTL = 20
	}
	if cfg.Interpret.Blend.LLMWeight == 0 && cfg.Interpret.Blend.ResolverWeight == 0 {
		cfg.Interpret.Blend.LLMWeight = 0.6
		cfg.Interpret.Blend.ResolverWeight = 0.4
	}
	if cfg.Interpret.Bonuses.MM == 0 {
		cfg.Interpret.Bonuses.MM = 0.08
	}
	if cfg.Interpret.Bonuses.Fraction == 0 {
		cfg.Interpret.Bonuses.Fraction = 0.06
	}
	if cfg.Interpret.Planner.Seed == 0 {
		cfg.Interpret.Planner.Seed = 7
	}
	if cfg.Interpret.Planner.MaxTokens == 0 {
		cfg.Interpret.Planner.MaxTokens = 120
	}
	if cfg.Interpret.Planner.Timeout == 0 {
		cfg.Interpret.Planner.Timeout = cfg.APIs.LLM.Timeout
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8000"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
	if cfg.Logging.File.Path != "" {
		if cfg.Logging.File.MaxSize == 0 {
			cfg.Logging.File.MaxSize = 5
		}
		if cfg.Logging.File.MaxBackups == 0 {
			cfg.Logging.File.MaxBackups = 5
		}
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}
}

// validateConfig validates critical configuration fields. Model credentials
// are not checked here: a missing key is reported per request.
func validateConfig(cfg *Config) error {
	in := cfg.Interpret
	if in.ActThreshold < 0 || in.ActThreshold > 1 || in.AskThreshold < 0 || in.AskThreshold > 1 {
		return fmt.Errorf("interpret thresholds must be within [0,1]")
	}
	if in.AskThreshold > in.ActThreshold {
		return fmt.Errorf("interpret.ask_threshold (%v) must not exceed act_threshold (%v)", in.AskThreshold, in.ActThreshold)
	}
	if in.Blend.LLMWeight < 0 || in.Blend.ResolverWeight < 0 {
		return fmt.Errorf("interpret.blend weights must be non-negative")
	}
	if in.MaxCandidates < 0 {
		return fmt.Errorf("interpret.max_candidates must be positive")
	}
	switch strings.ToLower(cfg.APIs.LLM.Provider) {
	case "openai", "genai":
	default:
		return fmt.Errorf("apis.llm.provider %q is not supported", cfg.APIs.LLM.Provider)
	}
	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}
	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
