package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sells-group/invoice-cli/internal/model"
)

// Config holds the full application configuration.
type Config struct {
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Mail       MailConfig       `yaml:"mail" mapstructure:"mail"`
	Storage    StorageConfig    `yaml:"storage" mapstructure:"storage"`
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Export     ExportConfig     `yaml:"export" mapstructure:"export"`
	Notify     NotifyConfig     `yaml:"notify" mapstructure:"notify"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver          string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres, firestore
	DatabaseURL     string `yaml:"database_url" mapstructure:"database_url"`
	MaxConns        int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns        int32  `yaml:"min_conns" mapstructure:"min_conns"`
	ProjectID       string `yaml:"project_id" mapstructure:"project_id"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// MailConfig configures the Gmail source.
type MailConfig struct {
	User            string `yaml:"user" mapstructure:"user"`
	Query           string `yaml:"query" mapstructure:"query"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file"`
	MaxResults      int64  `yaml:"max_results" mapstructure:"max_results"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
}

// StorageConfig configures where attachments are stored.
type StorageConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"` // local, ftp, gcs
	LocalDir        string `yaml:"local_dir" mapstructure:"local_dir"`
	FTPURL          string `yaml:"ftp_url" mapstructure:"ftp_url"`
	Bucket          string `yaml:"bucket" mapstructure:"bucket"`
	Prefix          string `yaml:"prefix" mapstructure:"prefix"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
}

// ExtractionConfig configures the language-model extraction call.
type ExtractionConfig struct {
	APIKey            string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	Model             string        `yaml:"model" mapstructure:"model"`
	MaxTokens         int64         `yaml:"max_tokens" mapstructure:"max_tokens"`
	Mode              string        `yaml:"mode" mapstructure:"mode"` // document, text
	RequestsPerMinute int           `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
	CacheTTL          string        `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	Categories        []string      `yaml:"categories" mapstructure:"categories"`
	Retry             RetryConfig   `yaml:"retry" mapstructure:"retry"`
	Circuit           CircuitConfig `yaml:"circuit" mapstructure:"circuit"`
	OCR               OCRConfig     `yaml:"ocr" mapstructure:"ocr"`
}

// RetryConfig configures the extraction retry policy.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
	Multiplier     float64       `yaml:"multiplier" mapstructure:"multiplier"`
	JitterFraction float64       `yaml:"jitter_fraction" mapstructure:"jitter_fraction"`
}

// CircuitConfig configures the extraction circuit breaker. A zero
// threshold disables it.
type CircuitConfig struct {
	FailureThreshold int           `yaml:"failure_threshold" mapstructure:"failure_threshold"`
	ResetTimeout     time.Duration `yaml:"reset_timeout" mapstructure:"reset_timeout"`
}

// OCRConfig configures PDF text extraction for text mode.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // local, mistral
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_model" mapstructure:"mistral_model"`
}

// ExportConfig configures the spreadsheet target.
type ExportConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"` // sheets, xlsx
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	Range           string `yaml:"range" mapstructure:"range"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	TokenFile       string `yaml:"token_file" mapstructure:"token_file"`
	WorkbookPath    string `yaml:"workbook_path" mapstructure:"workbook_path"`
	SheetName       string `yaml:"sheet_name" mapstructure:"sheet_name"`
	Endpoint        string `yaml:"endpoint" mapstructure:"endpoint"`
}

// NotifyConfig configures run summary delivery.
type NotifyConfig struct {
	Channels        []string `yaml:"channels" mapstructure:"channels"` // log, webhook, slack, email
	WebhookURL      string   `yaml:"webhook_url" mapstructure:"webhook_url"`
	SlackWebhookURL string   `yaml:"slack_webhook_url" mapstructure:"slack_webhook_url"`
	SendGridKey     string   `yaml:"sendgrid_api_key" mapstructure:"sendgrid_api_key"`
	EmailFrom       string   `yaml:"email_from" mapstructure:"email_from"`
	EmailTo         []string `yaml:"email_to" mapstructure:"email_to"`
}

// ServerConfig configures the status API server.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it.
func setDefaults(v *viper.Viper) {
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "invoices.db")
	v.SetDefault("store.max_conns", 5)
	v.SetDefault("store.min_conns", 1)
	v.SetDefault("store.project_id", "")
	v.SetDefault("store.credentials_file", "")

	v.SetDefault("mail.user", "me")
	v.SetDefault("mail.query", "is:unread has:attachment")
	v.SetDefault("mail.credentials_file", "credentials.json")
	v.SetDefault("mail.token_file", "token.json")
	v.SetDefault("mail.max_results", 100)
	v.SetDefault("mail.endpoint", "")

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local_dir", "attachments")
	v.SetDefault("storage.ftp_url", "")
	v.SetDefault("storage.bucket", "")
	v.SetDefault("storage.prefix", "invoices/")
	v.SetDefault("storage.credentials_file", "")

	v.SetDefault("extraction.api_key", "")
	v.SetDefault("extraction.base_url", "")
	v.SetDefault("extraction.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("extraction.max_tokens", 2048)
	v.SetDefault("extraction.mode", "document")
	v.SetDefault("extraction.requests_per_minute", 0)
	v.SetDefault("extraction.cache_ttl", "")
	v.SetDefault("extraction.categories", model.DefaultCategories)
	v.SetDefault("extraction.retry.max_attempts", 5)
	v.SetDefault("extraction.retry.initial_backoff", "10s")
	v.SetDefault("extraction.retry.max_backoff", "120s")
	v.SetDefault("extraction.retry.multiplier", 2.0)
	v.SetDefault("extraction.retry.jitter_fraction", 0.0)
	v.SetDefault("extraction.circuit.failure_threshold", 3)
	v.SetDefault("extraction.circuit.reset_timeout", "5m")
	v.SetDefault("extraction.ocr.provider", "local")
	v.SetDefault("extraction.ocr.pdftotext_path", "pdftotext")
	v.SetDefault("extraction.ocr.mistral_api_key", "")
	v.SetDefault("extraction.ocr.mistral_model", "mistral-ocr-latest")

	v.SetDefault("export.backend", "sheets")
	v.SetDefault("export.spreadsheet_id", "")
	v.SetDefault("export.range", "Sheet1!A:G")
	v.SetDefault("export.credentials_file", "credentials.json")
	v.SetDefault("export.token_file", "token.json")
	v.SetDefault("export.workbook_path", "invoices.xlsx")
	v.SetDefault("export.sheet_name", "Faktury")
	v.SetDefault("export.endpoint", "")

	v.SetDefault("notify.channels", []string{"log"})
	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.slack_webhook_url", "")
	v.SetDefault("notify.sendgrid_api_key", "")
	v.SetDefault("notify.email_from", "")
	v.SetDefault("notify.email_to", []string{})

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
