package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anilytics/agriwarehouse/internal/domain/allocation"
	"github.com/anilytics/agriwarehouse/internal/domain/models"
	"github.com/anilytics/agriwarehouse/internal/domain/risk"
)

// Supported AI recommendation providers.
const (
	AIProviderNone      = "none"
	AIProviderAnthropic = "anthropic"
	AIProviderGemini    = "gemini"
)

// Config represents the full application configuration surface.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	MongoDB   MongoDBConfig
	Sheets    SheetsConfig
	WhatsApp  WhatsAppConfig
	AI        AIConfig
	Reporting ReportingConfig
	Risk      risk.Params
	Channels  models.ChannelTable
}

// ServerConfig holds HTTP server related options.
type ServerConfig struct {
	Port     string
	LogLevel string
}

// DatabaseConfig points at the relational batch store.
type DatabaseConfig struct {
	URL string
}

// MongoDBConfig holds settings for the report archive. An empty URI disables it.
type MongoDBConfig struct {
	URI    string
	DBName string
}

// Enabled reports whether the archive is configured.
func (c MongoDBConfig) Enabled() bool { return c.URI != "" }

// SheetsConfig contains configuration required to export plans to Google Sheets.
type SheetsConfig struct {
	CredentialsPath string
	SpreadsheetID   string
}

// Enabled reports whether the export is configured.
func (c SheetsConfig) Enabled() bool { return c.CredentialsPath != "" && c.SpreadsheetID != "" }

// WhatsAppConfig contains credentials for the alert channel.
type WhatsAppConfig struct {
	AccessToken    string
	PhoneNumberID  string
	BaseURL        string
	APIVersion     string
	AlertRecipient string
}

// Enabled reports whether alerts can be delivered.
func (c WhatsAppConfig) Enabled() bool {
	return c.AccessToken != "" && c.PhoneNumberID != "" && c.AlertRecipient != ""
}

// AIConfig holds settings for the optional recommendation provider.
type AIConfig struct {
	Provider     string
	AnthropicKey string
	GeminiKey    string
	GeminiModel  string
	Timeout      time.Duration
}

// ReportingConfig holds scheduler and report settings.
type ReportingConfig struct {
	CronSchedule        string
	RescoreCronSchedule string
	Timezone            string
	AveragePricePerKg   float64
}

// Load reads environment variables (optionally from the provided file) and
// materializes a Config instance.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("failed loading env file %s: %w", envFile, err)
			}
		}
	} else {
		// Missing .env files are fine when configuration comes from the environment.
		_ = godotenv.Load()
	}

	var errs []error
	parseFloat := func(key string, fallback float64) float64 {
		v, err := getenvFloat(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	parseDuration := func(key string, fallback time.Duration) time.Duration {
		v, err := getenvDuration(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}
	parseInt := func(key string, fallback int) int {
		v, err := getenvInt(key, fallback)
		if err != nil {
			errs = append(errs, err)
		}
		return v
	}

	defaults := risk.DefaultParams()
	cfg := &Config{
		Server: ServerConfig{
			Port:     getenvWithDefault("APP_PORT", "8080"),
			LogLevel: getenvWithDefault("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		MongoDB: MongoDBConfig{
			URI:    os.Getenv("MONGODB_URI"),
			DBName: getenvWithDefault("MONGODB_DB_NAME", "agriwarehouse"),
		},
		Sheets: SheetsConfig{
			CredentialsPath: os.Getenv("GOOGLE_SHEETS_CREDENTIALS_PATH"),
			SpreadsheetID:   os.Getenv("GOOGLE_SHEET_DATABASE_ID"),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:    os.Getenv("WHATSAPP_TOKEN"),
			PhoneNumberID:  os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
			BaseURL:        getenvWithDefault("WHATSAPP_BASE_URL", "https://graph.facebook.com"),
			APIVersion:     getenvWithDefault("WHATSAPP_API_VERSION", "v20.0"),
			AlertRecipient: os.Getenv("ALERT_RECIPIENT"),
		},
		AI: AIConfig{
			Provider:     strings.ToLower(getenvWithDefault("AI_PROVIDER", AIProviderNone)),
			AnthropicKey: os.Getenv("ANTHROPIC_API_KEY"),
			GeminiKey:    os.Getenv("GEMINI_API_KEY"),
			GeminiModel:  getenvWithDefault("GEMINI_MODEL", "gemini-1.5-flash"),
			Timeout:      parseDuration("AI_TIMEOUT", 10*time.Second),
		},
		Reporting: ReportingConfig{
			CronSchedule:        getenvWithDefault("REPORT_CRON_SCHEDULE", "0 6 * * *"),
			RescoreCronSchedule: getenvWithDefault("RESCORE_CRON_SCHEDULE", "0 */6 * * *"),
			Timezone:            getenvWithDefault("TIMEZONE", "Asia/Manila"),
			AveragePricePerKg:   parseFloat("AVERAGE_PRICE_PER_KG", 60),
		},
		Risk: risk.Params{
			TemperatureScale:  parseFloat("RISK_TEMPERATURE_SCALE", defaults.TemperatureScale),
			HumidityScale:     parseFloat("RISK_HUMIDITY_SCALE", defaults.HumidityScale),
			TemperatureWeight: parseFloat("RISK_TEMPERATURE_WEIGHT", defaults.TemperatureWeight),
			HumidityWeight:    parseFloat("RISK_HUMIDITY_WEIGHT", defaults.HumidityWeight),
			CriticalDays:      parseInt("RISK_CRITICAL_DAYS", defaults.CriticalDays),
			CriticalFloor:     parseFloat("RISK_CRITICAL_FLOOR", defaults.CriticalFloor),
			WarningDays:       parseInt("RISK_WARNING_DAYS", defaults.WarningDays),
			WarningFloor:      parseFloat("RISK_WARNING_FLOOR", defaults.WarningFloor),
			HighThreshold:     parseFloat("RISK_HIGH_THRESHOLD", defaults.HighThreshold),
			MediumThreshold:   parseFloat("RISK_MEDIUM_THRESHOLD", defaults.MediumThreshold),
		},
	}

	channels, err := parseChannels(os.Getenv("DEMAND_CHANNELS"))
	if err != nil {
		errs = append(errs, err)
	}
	cfg.Channels = channels

	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate ensures that required configuration fields are populated.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}

	if c.Server.Port == "" {
		return errors.New("APP_PORT must be provided")
	}

	if c.Database.URL == "" {
		return errors.New("DATABASE_URL must be provided")
	}

	if c.MongoDB.Enabled() && c.MongoDB.DBName == "" {
		return errors.New("MONGODB_DB_NAME must not be empty when MONGODB_URI is set")
	}

	if (c.Sheets.CredentialsPath == "") != (c.Sheets.SpreadsheetID == "") {
		return errors.New("GOOGLE_SHEETS_CREDENTIALS_PATH and GOOGLE_SHEET_DATABASE_ID must be provided together")
	}

	switch c.AI.Provider {
	case AIProviderNone, "":
		c.AI.Provider = AIProviderNone
	case AIProviderAnthropic:
		if c.AI.AnthropicKey == "" {
			return errors.New("ANTHROPIC_API_KEY must be provided when AI_PROVIDER=anthropic")
		}
	case AIProviderGemini:
		if c.AI.GeminiKey == "" {
			return errors.New("GEMINI_API_KEY must be provided when AI_PROVIDER=gemini")
		}
	default:
		return fmt.Errorf("unsupported AI_PROVIDER %q", c.AI.Provider)
	}

	if c.AI.Timeout <= 0 {
		return errors.New("AI_TIMEOUT must be positive")
	}

	if c.Reporting.CronSchedule == "" {
		return errors.New("REPORT_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.RescoreCronSchedule == "" {
		return errors.New("RESCORE_CRON_SCHEDULE must be provided")
	}

	if c.Reporting.Timezone == "" {
		return errors.New("TIMEZONE must be provided")
	}
	if _, err := time.LoadLocation(c.Reporting.Timezone); err != nil {
		return fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	if c.Reporting.AveragePricePerKg < 0 {
		return errors.New("AVERAGE_PRICE_PER_KG must not be negative")
	}

	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk parameters: %w", err)
	}

	if len(c.Channels) == 0 {
		return errors.New("DEMAND_CHANNELS must define at least one channel")
	}
	if err := c.Channels.Validate(); err != nil {
		return fmt.Errorf("DEMAND_CHANNELS: %w", err)
	}
	if err := allocation.DefaultPolicy().CheckChannels(c.Channels); err != nil {
		return fmt.Errorf("DEMAND_CHANNELS: %w", err)
	}

	return nil
}

// parseChannels decodes the JSON channel table, defaulting to the built-in snapshot.
func parseChannels(raw string) (models.ChannelTable, error) {
	if strings.TrimSpace(raw) == "" {
		return models.DefaultChannelTable(), nil
	}

	var table models.ChannelTable
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("DEMAND_CHANNELS must be a JSON array of channels: %w", err)
	}
	return table, nil
}

func getenvWithDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getenvFloat(key string, fallback float64) (float64, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a number: %w", key, err)
	}
	return parsed, nil
}

func getenvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback, fmt.Errorf("%s must be an integer: %w", key, err)
	}
	return parsed, nil
}

func getenvDuration(key string, fallback time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second, nil
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback, fmt.Errorf("%s must be a duration such as 10s: %w", key, err)
	}
	return parsed, nil
}
