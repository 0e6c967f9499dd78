package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port int `yaml:"port"`
		// APIKeys maps operator name to API key. Empty disables auth.
		APIKeys      map[string]string `yaml:"apiKeys"`
		FrontendURLs []string          `yaml:"frontendUrls"`
		RateLimit    struct {
			Capacity   int `yaml:"capacity"`
			RefillRate int `yaml:"refillRate"`
		} `yaml:"rateLimit"`
		Debug bool `yaml:"debug"`
	} `yaml:"server"`

	Database struct {
		// Driver: postgres, pgx, mysql or sqlite.
		Driver string `yaml:"driver"`
		// URL overrides the discrete fields below when set.
		URL      string `yaml:"url"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
	} `yaml:"database"`

	LLM struct {
		// Provider: gemini or openai.
		Provider              string  `yaml:"provider"`
		Model                 string  `yaml:"model"`
		GeminiAPIKey          string  `yaml:"geminiApiKey"`
		OpenAIAPIKey          string  `yaml:"openaiApiKey"`
		ExtractionTemperature float32 `yaml:"extractionTemperature"`
		ChatTemperature       float32 `yaml:"chatTemperature"`
	} `yaml:"llm"`

	SendGrid struct {
		APIKey       string `yaml:"apiKey"`
		FromEmail    string `yaml:"fromEmail"`
		FromName     string `yaml:"fromName"`
		InboundEmail string `yaml:"inboundEmail"`
	} `yaml:"sendgrid"`

	Minio struct {
		Endpoint   string `yaml:"endpoint"`
		AccessKey  string `yaml:"accessKey"`
		SecretKey  string `yaml:"secretKey"`
		BucketName string `yaml:"bucketName"`
		Region     string `yaml:"region"`
		UseSSL     bool   `yaml:"useSSL"`
	} `yaml:"minio"`
}

// Load baca file config.yaml (optional), lalu .env, lalu environment
func Load(path string) (*Config, error) {
	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	// .env boleh tidak ada
	_ = godotenv.Load()

	cfg.applyEnv(os.Getenv)
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	str := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str(&c.Database.Driver, "DATABASE_DRIVER")
	str(&c.Database.URL, "DATABASE_URL")
	str(&c.LLM.Provider, "LLM_PROVIDER")
	str(&c.LLM.Model, "LLM_MODEL")
	str(&c.LLM.GeminiAPIKey, "GEMINI_API_KEY")
	str(&c.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	str(&c.SendGrid.APIKey, "SENDGRID_API_KEY")
	str(&c.SendGrid.FromEmail, "SENDGRID_FROM_EMAIL")
	str(&c.SendGrid.FromName, "SENDGRID_FROM_NAME")
	str(&c.SendGrid.InboundEmail, "SENDGRID_INBOUND_EMAIL")
	str(&c.Minio.Endpoint, "MINIO_ENDPOINT")
	str(&c.Minio.AccessKey, "MINIO_ACCESS_KEY")
	str(&c.Minio.SecretKey, "MINIO_SECRET_KEY")
	str(&c.Minio.BucketName, "MINIO_BUCKET")
	str(&c.Minio.Region, "MINIO_REGION")

	if v, err := strconv.Atoi(getenv("PORT")); err == nil && v > 0 {
		c.Server.Port = v
	}
	if v, err := strconv.ParseBool(getenv("MINIO_USE_SSL")); err == nil {
		c.Minio.UseSSL = v
	}
	if v, err := strconv.ParseBool(getenv("DEBUG")); err == nil {
		c.Server.Debug = v
	}
	for _, key := range []string{"FRONTEND_URL_1", "FRONTEND_URL_2"} {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			c.Server.FrontendURLs = append(c.Server.FrontendURLs, v)
		}
	}
}

// ApplyDefaults fills unset values
func (c *Config) ApplyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.RateLimit.Capacity == 0 {
		c.Server.RateLimit.Capacity = 20
	}
	if c.Server.RateLimit.RefillRate == 0 {
		c.Server.RateLimit.RefillRate = 1
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "postgres"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case "openai":
			c.LLM.Model = "gpt-4o-mini"
		default:
			c.LLM.Model = "gemini-2.0-flash"
		}
	}
	if c.LLM.ExtractionTemperature == 0 {
		c.LLM.ExtractionTemperature = 0.1
	}
	if c.LLM.ChatTemperature == 0 {
		c.LLM.ChatTemperature = 1.0
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Procurement Team"
	}
	if c.Minio.BucketName == "" {
		c.Minio.BucketName = "rfp-attachments"
	}
}

// Validate rejects unknown drivers and providers
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres", "pgx", "mysql", "sqlite":
	default:
		return fmt.Errorf("unknown database driver %q (allowed: postgres, pgx, mysql, sqlite)", c.Database.Driver)
	}
	switch c.LLM.Provider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("unknown llm provider %q (allowed: gemini, openai)", c.LLM.Provider)
	}
	if c.Database.Driver == "sqlite" && c.DSN() == "" {
		return fmt.Errorf("sqlite needs database.url (file path)")
	}
	return nil
}

// DSN returns the connection string for the configured driver
func (c *Config) DSN() string {
	if c.Database.URL != "" {
		return c.Database.URL
	}
	switch c.Database.Driver {
	case "mysql":
		return c.MySQLDSN()
	case "sqlite":
		return ""
	}
	return c.PostgresDSN()
}

// Helper untuk build DSN MySQL
func (c *Config) MySQLDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// Helper untuk build DSN Postgres
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
	)
}

// MinioEnabled reports whether attachment archiving is configured
func (c *Config) MinioEnabled() bool {
	return c.Minio.Endpoint != "" && c.Minio.AccessKey != "" && c.Minio.SecretKey != ""
}
