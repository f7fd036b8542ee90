package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig `env:",prefix=SERVER_"`

	// Database configuration
	Database DatabaseConfig `env:",prefix=DB_"`

	// Application configuration
	App AppConfig `env:",prefix=APP_"`

	// Simulated delivery vendor configuration
	Vendor VendorConfig `env:",prefix=VENDOR_"`

	// Message suggestion configuration
	Suggest SuggestConfig `env:",prefix=SUGGEST_"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `env:"PORT,default=8080"`
	Host         string `env:"HOST,default=0.0.0.0"`
	ReadTimeout  int    `env:"READ_TIMEOUT,default=30"`  // seconds
	WriteTimeout int    `env:"WRITE_TIMEOUT,default=30"` // seconds
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string `env:"HOST,default=localhost"`
	Port     string `env:"PORT,default=5432"`
	User     string `env:"USER,default=postgres"`
	Password string `env:"PASSWORD,default=postgres"`
	Name     string `env:"NAME,default=crm"`
	SSLMode  string `env:"SSL_MODE,default=disable"`
	MaxConns int    `env:"MAX_CONNS,default=25"`
	MinConns int    `env:"MIN_CONNS,default=5"`
}

// AppConfig holds application-specific configuration
type AppConfig struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`
	Debug       bool   `env:"DEBUG,default=false"`

	// SeedDemoData inserts a handful of demo customers on startup when
	// the customers table is empty.
	SeedDemoData bool `env:"SEED_DEMO_DATA,default=false"`

	// KeepAliveURL, when set, is pinged periodically to keep free-tier
	// hosting from idling the service.
	KeepAliveURL      string `env:"KEEP_ALIVE_URL,default="`
	KeepAliveInterval int    `env:"KEEP_ALIVE_INTERVAL,default=600"` // seconds
}

// VendorConfig controls the simulated delivery vendor
type VendorConfig struct {
	// SuccessRate is the probability a simulated send lands as SENT.
	SuccessRate float64 `env:"SUCCESS_RATE,default=0.9"`

	// ReceiptURL is where asynchronous delivery receipts are posted.
	// Empty means loopback against this server's own receipt endpoint.
	ReceiptURL string `env:"RECEIPT_URL,default="`

	// SendRatePerSec throttles outbound sends; 0 disables throttling.
	SendRatePerSec float64 `env:"SEND_RATE_PER_SEC,default=0"`
	SendBurst      int     `env:"SEND_BURST,default=1"`
}

// SuggestConfig holds settings for AI-assisted message suggestions.
// With no API key the service falls back to local templates.
type SuggestConfig struct {
	APIKey   string `env:"API_KEY,default="`
	Model    string `env:"MODEL,default=llama-3.1-8b-instant"`
	Endpoint string `env:"ENDPOINT,default=https://api.groq.com/openai/v1/chat/completions"`
	Timeout  int    `env:"TIMEOUT,default=10"` // seconds
}

// Load loads configuration from environment variables
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment config: %w", err)
	}
	return &cfg, nil
}

// GetDatabaseURL returns the PostgreSQL connection URL
func (c *DatabaseConfig) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// GetServerAddr returns the server address
func (c *ServerConfig) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// GetKeepAliveInterval returns the keep-alive ping interval
func (c *AppConfig) GetKeepAliveInterval() time.Duration {
	return time.Duration(c.KeepAliveInterval) * time.Second
}

// GetReceiptURL returns the receipt callback URL, defaulting to the
// server's own vendor receipt endpoint.
func (c *VendorConfig) GetReceiptURL(serverPort string) string {
	if c.ReceiptURL != "" {
		return c.ReceiptURL
	}
	return fmt.Sprintf("http://localhost:%s/api/vendor/receipt", serverPort)
}

// IsDevelopment returns true if running in development environment
func (c *AppConfig) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production environment
func (c *AppConfig) IsProduction() bool {
	return c.Environment == "production"
}
