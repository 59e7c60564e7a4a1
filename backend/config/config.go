package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Storage StorageConfig `yaml:"storage"`
	Agent   AgentConfig   `yaml:"agent"`
	JobAPI  JobAPIConfig  `yaml:"job_api"`
	Auth    AuthConfig    `yaml:"auth"`
	Upload  UploadConfig  `yaml:"upload"`
	Catalog CatalogConfig `yaml:"catalog"`
	Log     LogConfig     `yaml:"log"`
}

type ServerConfig struct {
	Port               int    `yaml:"port"`
	StaticDir          string `yaml:"static_dir"`
	RateLimitPerMinute int    `yaml:"rate_limit_per_minute"`
}

// StorageConfig points the S3 client at the bucket holding catalog images.
type StorageConfig struct {
	Endpoint       string `yaml:"endpoint"`
	Region         string `yaml:"region"`
	Bucket         string `yaml:"bucket"`
	AccessKey      string `yaml:"access_key"`
	SecretKey      string `yaml:"secret_key"`
	UseSSL         bool   `yaml:"use_ssl"`
	PresignMinutes int    `yaml:"presign_minutes"`
	TempDir        string `yaml:"temp_dir"`
}

// AgentConfig addresses the hosted extraction agent.
type AgentConfig struct {
	APIURL              string `yaml:"api_url"`
	APIKey              string `yaml:"api_key"`
	AgentName           string `yaml:"agent_name"`
	PollIntervalSeconds int    `yaml:"poll_interval_seconds"`
	TempDir             string `yaml:"temp_dir"`
}

// JobAPIConfig addresses the process-file / result endpoints.
type JobAPIConfig struct {
	BaseURL          string `yaml:"base_url"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	PollDelaySeconds *int   `yaml:"poll_delay_seconds"`
}

type AuthConfig struct {
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	JWTSecret        string `yaml:"jwt_secret"`
	TokenExpireHours int    `yaml:"token_expire_hours"`
}

type UploadConfig struct {
	MaxSizeMB         int64    `yaml:"max_size_mb"`
	AllowedExtensions []string `yaml:"allowed_extensions"`
	// MaxPixels caps width*height of a decoded upload. Negative disables the cap.
	MaxPixels int64 `yaml:"max_pixels"`
}

type CatalogConfig struct {
	Filenames []string `yaml:"filenames"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

const (
	defaultPollDelaySeconds = 6
	defaultMaxPixels        = 178956970
)

// Load reads the YAML file at path and fills in defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.setDefaults()
	return &cfg, nil
}

// Default returns a config with every default applied, for running without a file.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./web"
	}
	if c.Server.RateLimitPerMinute == 0 {
		c.Server.RateLimitPerMinute = 30
	}

	if c.Storage.Endpoint == "" {
		c.Storage.Endpoint = "s3.amazonaws.com"
		c.Storage.UseSSL = true
	}
	if c.Storage.Region == "" {
		c.Storage.Region = "us-east-1"
	}
	if c.Storage.Bucket == "" {
		c.Storage.Bucket = "fp-prod-s3"
	}
	if c.Storage.PresignMinutes == 0 {
		c.Storage.PresignMinutes = 15
	}

	if c.Agent.APIURL == "" {
		c.Agent.APIURL = "https://api.cloud.llamaindex.ai"
	}
	if c.Agent.AgentName == "" {
		c.Agent.AgentName = "OCR_BOL_FLEETPANDA"
	}
	if c.Agent.PollIntervalSeconds <= 0 {
		c.Agent.PollIntervalSeconds = 2
	}

	if c.JobAPI.BaseURL == "" {
		c.JobAPI.BaseURL = "https://bol.dev.fleetpanda.org"
	}
	c.JobAPI.BaseURL = strings.TrimRight(c.JobAPI.BaseURL, "/")
	if c.JobAPI.Username == "" {
		c.JobAPI.Username = "admin"
	}
	if c.JobAPI.PollDelaySeconds == nil {
		delay := defaultPollDelaySeconds
		c.JobAPI.PollDelaySeconds = &delay
	} else if *c.JobAPI.PollDelaySeconds < 0 {
		delay := 0
		c.JobAPI.PollDelaySeconds = &delay
	}

	if c.Auth.Username == "" {
		c.Auth.Username = "admin"
	}
	if c.Auth.TokenExpireHours == 0 {
		c.Auth.TokenExpireHours = 24
	}

	if c.Upload.MaxSizeMB == 0 {
		c.Upload.MaxSizeMB = 20
	}
	if len(c.Upload.AllowedExtensions) == 0 {
		c.Upload.AllowedExtensions = []string{".jpg", ".jpeg", ".png"}
	}
	if c.Upload.MaxPixels == 0 {
		c.Upload.MaxPixels = defaultMaxPixels
	}

	if len(c.Catalog.Filenames) == 0 {
		c.Catalog.Filenames = append([]string(nil), defaultCatalogFilenames...)
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Environment variables that override secrets from the YAML file.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvAgentAPIKey     = "LLAMA_CLOUD_API_KEY"
	EnvLoginPassword   = "AUTHENTICATION_PW"
	EnvAPIPassword     = "API_PW"
	EnvJWTSecret       = "JWT_SECRET"
)

// LoadDotEnv loads an optional .env file into the process environment.
// Variables already set in the environment win.
func LoadDotEnv(filenames ...string) error {
	if len(filenames) == 0 {
		filenames = []string{".env"}
	}
	var existing []string
	for _, name := range filenames {
		if _, err := os.Stat(name); err == nil {
			existing = append(existing, name)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// ApplyEnv overlays secrets present in the environment onto the config.
func (c *Config) ApplyEnv() {
	override(&c.Storage.AccessKey, EnvAccessKeyID)
	override(&c.Storage.SecretKey, EnvSecretAccessKey)
	override(&c.Agent.APIKey, EnvAgentAPIKey)
	override(&c.Auth.Password, EnvLoginPassword)
	override(&c.JobAPI.Password, EnvAPIPassword)
	override(&c.Auth.JWTSecret, EnvJWTSecret)
}

func override(dst *string, key string) {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		*dst = v
	}
}

// Validate reports secrets the server cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Auth.Password == "" {
		missing = append(missing, "auth.password ("+EnvLoginPassword+")")
	}
	if c.Auth.JWTSecret == "" {
		missing = append(missing, "auth.jwt_secret ("+EnvJWTSecret+")")
	}
	if c.JobAPI.Password == "" {
		missing = append(missing, "job_api.password ("+EnvAPIPassword+")")
	}
	if c.Agent.APIKey == "" {
		missing = append(missing, "agent.api_key ("+EnvAgentAPIKey+")")
	}
	if c.Storage.AccessKey == "" || c.Storage.SecretKey == "" {
		missing = append(missing, "storage credentials ("+EnvAccessKeyID+", "+EnvSecretAccessKey+")")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	return nil
}

// AllowsExtension reports whether filename carries one of the allowed
// extensions, ignoring case.
func (c *UploadConfig) AllowsExtension(filename string) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range c.AllowedExtensions {
		if ext == strings.ToLower(allowed) {
			return true
		}
	}
	return false
}

// HasFilename reports whether name is one of the enumerated catalog images.
func (c *CatalogConfig) HasFilename(name string) bool {
	for _, f := range c.Filenames {
		if f == name {
			return true
		}
	}
	return false
}

// PollDelay returns the configured wait before the single result poll, in seconds.
func (c *JobAPIConfig) PollDelay() int {
	if c.PollDelaySeconds == nil {
		return defaultPollDelaySeconds
	}
	return *c.PollDelaySeconds
}
