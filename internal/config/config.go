package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for the prompt mender
type Config struct {
	LLM       LLMConfig       `json:"llm"`
	Judge     JudgeConfig     `json:"judge"`
	Embedding EmbeddingConfig `json:"embedding"`
	Search    SearchConfig    `json:"search"`
	Optimizer OptimizerConfig `json:"optimizer"`
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	Paths     PathsConfig     `json:"paths"`
}

// LLMConfig holds the task LLM configuration (any OpenAI-compatible API)
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// JudgeConfig holds the judge LLM configuration. The judge scores program
// outputs during optimization and may point at a stronger model than the
// task LLM. Empty fields fall back to the task LLM settings.
type JudgeConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

// EmbeddingConfig holds embedding API configuration
type EmbeddingConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`
	Dimensions int    `json:"dimensions"`
}

// SearchConfig holds web search configuration
type SearchConfig struct {
	Region       string `json:"region"`        // e.g., "us-en"
	MaxResults   int    `json:"max_results"`   // results per query when building context
	FetchContent bool   `json:"fetch_content"` // fetch and convert full pages
	TimeoutSecs  int    `json:"timeout_secs"`
}

// OptimizerConfig holds GEPA optimization parameters
type OptimizerConfig struct {
	MaxGenerations int     `json:"max_generations"`
	PopulationSize int     `json:"population_size"`
	MutationRate   float64 `json:"mutation_rate"`
	CrossoverRate  float64 `json:"crossover_rate"`
	Concurrency    int     `json:"concurrency"`
	BatchSize      int     `json:"batch_size"`
	ValsetFraction float64 `json:"valset_fraction"` // share of the trainset held out for validation
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"`
}

// PathsConfig holds filesystem locations for trainsets and compiled programs
type PathsConfig struct {
	DataDir     string `json:"data_dir"`
	TrainsetDir string `json:"trainset_dir"`
	ProgramDir  string `json:"program_dir"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".prompt-mender")

	return &Config{
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			APIKey:      "",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Judge: JudgeConfig{
			URL:         "",
			APIKey:      "",
			Model:       "",
			MaxTokens:   2048,
			Temperature: 0.0,
		},
		Embedding: EmbeddingConfig{
			URL:        "",
			APIKey:     "",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Search: SearchConfig{
			Region:       "us-en",
			MaxResults:   10,
			FetchContent: false,
			TimeoutSecs:  15,
		},
		Optimizer: OptimizerConfig{
			MaxGenerations: 10,
			PopulationSize: 8,
			MutationRate:   0.3,
			CrossoverRate:  0.7,
			Concurrency:    4,
			BatchSize:      4,
			ValsetFraction: 0.2,
		},
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		Paths: PathsConfig{
			DataDir:     dataDir,
			TrainsetDir: filepath.Join(dataDir, "trainsets"),
			ProgramDir:  filepath.Join(dataDir, "programs"),
		},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envBool loads a boolean environment variable into the target pointer if set and valid
func envBool(key string, target *bool) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*target = b
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from the config file and environment variables
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	// Task LLM configuration
	envString("MENDER_LLM_URL", &cfg.LLM.URL)
	envString("MENDER_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("MENDER_LLM_MODEL", &cfg.LLM.Model)
	envInt("MENDER_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("MENDER_LLM_TEMPERATURE", &cfg.LLM.Temperature)

	// Judge LLM configuration
	envString("MENDER_JUDGE_URL", &cfg.Judge.URL)
	envString("MENDER_JUDGE_API_KEY", &cfg.Judge.APIKey)
	envString("MENDER_JUDGE_MODEL", &cfg.Judge.Model)
	envInt("MENDER_JUDGE_MAX_TOKENS", &cfg.Judge.MaxTokens)
	envFloat("MENDER_JUDGE_TEMPERATURE", &cfg.Judge.Temperature)

	// Embedding configuration
	envString("MENDER_EMBEDDING_URL", &cfg.Embedding.URL)
	envString("MENDER_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("MENDER_EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("MENDER_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)

	// Search configuration
	envString("MENDER_SEARCH_REGION", &cfg.Search.Region)
	envInt("MENDER_SEARCH_MAX_RESULTS", &cfg.Search.MaxResults)
	envBool("MENDER_SEARCH_FETCH_CONTENT", &cfg.Search.FetchContent)
	envInt("MENDER_SEARCH_TIMEOUT_SECS", &cfg.Search.TimeoutSecs)

	// Optimizer configuration
	envInt("MENDER_OPTIMIZER_MAX_GENERATIONS", &cfg.Optimizer.MaxGenerations)
	envInt("MENDER_OPTIMIZER_POPULATION_SIZE", &cfg.Optimizer.PopulationSize)
	envFloat("MENDER_OPTIMIZER_MUTATION_RATE", &cfg.Optimizer.MutationRate)
	envFloat("MENDER_OPTIMIZER_CROSSOVER_RATE", &cfg.Optimizer.CrossoverRate)
	envInt("MENDER_OPTIMIZER_CONCURRENCY", &cfg.Optimizer.Concurrency)
	envInt("MENDER_OPTIMIZER_BATCH_SIZE", &cfg.Optimizer.BatchSize)
	envFloat("MENDER_OPTIMIZER_VALSET_FRACTION", &cfg.Optimizer.ValsetFraction)

	// Database configuration
	envString("MENDER_POSTGRES_URL", &cfg.Database.PostgresURL)

	// Server configuration
	envString("MENDER_SERVER_HOST", &cfg.Server.Host)
	envInt("MENDER_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("MENDER_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	// Paths
	envString("MENDER_DATA_DIR", &cfg.Paths.DataDir)
	envString("MENDER_TRAINSET_DIR", &cfg.Paths.TrainsetDir)
	envString("MENDER_PROGRAM_DIR", &cfg.Paths.ProgramDir)

	for _, dir := range []string{cfg.Paths.DataDir, cfg.Paths.TrainsetDir, cfg.Paths.ProgramDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// JudgeOrTaskLLM returns the judge settings with task LLM fallbacks applied
func (c *Config) JudgeOrTaskLLM() LLMConfig {
	judge := LLMConfig{
		URL:         c.Judge.URL,
		APIKey:      c.Judge.APIKey,
		Model:       c.Judge.Model,
		MaxTokens:   c.Judge.MaxTokens,
		Temperature: c.Judge.Temperature,
	}
	if judge.URL == "" {
		judge.URL = c.LLM.URL
	}
	if judge.APIKey == "" {
		judge.APIKey = c.LLM.APIKey
	}
	if judge.Model == "" {
		judge.Model = c.LLM.Model
	}
	if judge.MaxTokens < 1 {
		judge.MaxTokens = c.LLM.MaxTokens
	}
	return judge
}

// IsEmbeddingConfigured returns true if the embedding service is configured
func (c *Config) IsEmbeddingConfigured() bool {
	return c.Embedding.URL != ""
}

// IsDatabaseConfigured returns true if PostgreSQL is configured
func (c *Config) IsDatabaseConfigured() bool {
	return c.Database.PostgresURL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	// Server validation
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	// LLM validation
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "LLM temperature must be between 0 and 2")
	}
	if c.LLM.MaxTokens < 1 {
		errs = append(errs, "LLM max_tokens must be positive")
	}
	if c.LLM.URL == "" {
		errs = append(errs, "LLM URL is required")
	} else if !isValidURL(c.LLM.URL) {
		errs = append(errs, "LLM URL must be a valid URL")
	}

	// Judge validation (optional overrides, but validate if set)
	if c.Judge.URL != "" && !isValidURL(c.Judge.URL) {
		errs = append(errs, "judge URL must be a valid URL")
	}
	if c.Judge.Temperature < 0 || c.Judge.Temperature > 2 {
		errs = append(errs, "judge temperature must be between 0 and 2")
	}

	// Embedding validation (optional but validate if set)
	if c.Embedding.URL != "" {
		if !isValidURL(c.Embedding.URL) {
			errs = append(errs, "embedding URL must be a valid URL")
		}
		if c.Embedding.Dimensions < 1 {
			errs = append(errs, "embedding dimensions must be positive when URL is set")
		}
	}

	// Search validation
	if c.Search.MaxResults < 1 {
		errs = append(errs, "search max_results must be at least 1")
	}
	if c.Search.TimeoutSecs < 1 {
		errs = append(errs, "search timeout must be at least 1 second")
	}

	// Optimizer validation
	if c.Optimizer.MaxGenerations < 1 {
		errs = append(errs, "optimizer max_generations must be at least 1")
	}
	if c.Optimizer.PopulationSize < 2 {
		errs = append(errs, "optimizer population_size must be at least 2")
	}
	if c.Optimizer.Concurrency < 1 {
		errs = append(errs, "optimizer concurrency must be at least 1")
	}
	if c.Optimizer.ValsetFraction < 0 || c.Optimizer.ValsetFraction >= 1 {
		errs = append(errs, "optimizer valset_fraction must be in [0, 1)")
	}

	// Database validation (optional but validate if set)
	if c.Database.PostgresURL != "" && !isValidURL(c.Database.PostgresURL) {
		errs = append(errs, "PostgreSQL URL must be a valid URL")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// getConfigPath returns the path to the config file
func getConfigPath() string {
	if path := os.Getenv("MENDER_CONFIG"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "config.json"
	}

	configDir := filepath.Join(homeDir, ".config", "prompt-mender")
	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		return configPath
	}

	altPath := filepath.Join(homeDir, ".prompt-mender", "config.json")
	if _, err := os.Stat(altPath); err == nil {
		return altPath
	}

	return configPath
}
