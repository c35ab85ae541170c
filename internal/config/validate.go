package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/samber/lo"
)

// Validation modes, one per command family.
const (
	ModeStore    = "store"
	ModeRetrieve = "retrieve"
	ModeProcess  = "process"
	ModeExport   = "export"
	ModeRun      = "run"
	ModeServe    = "serve"
)

var (
	storeDrivers    = []string{"sqlite", "postgres", "firestore"}
	storageBackends = []string{"local", "ftp", "gcs"}
	extractModes    = []string{"document", "text"}
	ocrProviders    = []string{"local", "mistral"}
	exportBackends  = []string{"sheets", "xlsx"}
	notifyChannels  = []string{"log", "webhook", "slack", "email"}
)

// Validate checks the settings required by the given mode and reports all
// problems at once.
func (c *Config) Validate(mode string) error {
	var problems []string
	add := func(cond bool, msg string) {
		if cond {
			problems = append(problems, msg)
		}
	}

	checkStore := func() {
		add(!lo.Contains(storeDrivers, c.Store.Driver), "store.driver must be one of "+strings.Join(storeDrivers, ", "))
		add(c.Store.Driver != "firestore" && c.Store.DatabaseURL == "", "store.database_url is required")
		add(c.Store.Driver == "firestore" && c.Store.ProjectID == "", "store.project_id is required for firestore")
	}
	checkStorage := func() {
		add(!lo.Contains(storageBackends, c.Storage.Backend), "storage.backend must be one of "+strings.Join(storageBackends, ", "))
		add(c.Storage.Backend == "local" && c.Storage.LocalDir == "", "storage.local_dir is required")
		add(c.Storage.Backend == "ftp" && c.Storage.FTPURL == "", "storage.ftp_url is required")
		add(c.Storage.Backend == "gcs" && c.Storage.Bucket == "", "storage.bucket is required")
	}
	checkRetrieve := func() {
		checkStorage()
		add(c.Mail.CredentialsFile == "", "mail.credentials_file is required")
	}
	checkProcess := func() {
		checkStorage()
		e := c.Extraction
		add(e.APIKey == "", "extraction.api_key is required")
		add(e.Model == "", "extraction.model is required")
		add(!lo.Contains(extractModes, e.Mode), "extraction.mode must be document or text")
		add(e.Mode == "text" && !lo.Contains(ocrProviders, e.OCR.Provider), "extraction.ocr.provider must be local or mistral")
		add(e.Mode == "text" && e.OCR.Provider == "mistral" && e.OCR.MistralKey == "", "extraction.ocr.mistral_api_key is required")
		add(e.Retry.MaxAttempts < 1, "extraction.retry.max_attempts must be >= 1")
		add(e.Retry.MaxBackoff < e.Retry.InitialBackoff, "extraction.retry.max_backoff must be >= initial_backoff")
		add(e.Retry.Multiplier < 1, "extraction.retry.multiplier must be >= 1")
		add(e.Retry.JitterFraction < 0 || e.Retry.JitterFraction > 1, "extraction.retry.jitter_fraction must be between 0 and 1")
		add(e.RequestsPerMinute < 0, "extraction.requests_per_minute must be >= 0")
	}
	checkExport := func() {
		add(!lo.Contains(exportBackends, c.Export.Backend), "export.backend must be sheets or xlsx")
		add(c.Export.Backend == "sheets" && c.Export.SpreadsheetID == "", "export.spreadsheet_id is required")
		add(c.Export.Backend == "xlsx" && c.Export.WorkbookPath == "", "export.workbook_path is required")
	}
	checkNotify := func() {
		for _, ch := range c.Notify.Channels {
			add(!lo.Contains(notifyChannels, ch), "notify.channels: unknown channel "+ch)
		}
		on := func(ch string) bool { return lo.Contains(c.Notify.Channels, ch) }
		add(on("webhook") && c.Notify.WebhookURL == "", "notify.webhook_url is required")
		add(on("slack") && c.Notify.SlackWebhookURL == "", "notify.slack_webhook_url is required")
		add(on("email") && (c.Notify.SendGridKey == "" || c.Notify.EmailFrom == "" || len(c.Notify.EmailTo) == 0),
			"notify.sendgrid_api_key, email_from and email_to are required")
	}

	switch mode {
	case ModeStore:
		checkStore()
	case ModeRetrieve:
		checkStore()
		checkRetrieve()
	case ModeProcess:
		checkStore()
		checkProcess()
	case ModeExport:
		checkStore()
		checkExport()
	case ModeRun:
		checkStore()
		checkRetrieve()
		checkProcess()
		checkExport()
		checkNotify()
	case ModeServe:
		checkStore()
		add(c.Server.Port <= 0, "server.port must be > 0")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

const redacted = "***"

// Redacted returns a copy of c with secrets masked, for display.
func (c Config) Redacted() Config {
	mask := func(s string) string {
		if s == "" {
			return ""
		}
		return redacted
	}
	c.Store.DatabaseURL = redactURL(c.Store.DatabaseURL)
	c.Storage.FTPURL = redactURL(c.Storage.FTPURL)
	c.Extraction.APIKey = mask(c.Extraction.APIKey)
	c.Extraction.OCR.MistralKey = mask(c.Extraction.OCR.MistralKey)
	c.Notify.WebhookURL = mask(c.Notify.WebhookURL)
	c.Notify.SlackWebhookURL = mask(c.Notify.SlackWebhookURL)
	c.Notify.SendGridKey = mask(c.Notify.SendGridKey)
	return c
}

// redactURL masks the password of a user:password@host URL.
func redactURL(raw string) string {
	scheme, rest, ok := strings.Cut(raw, "://")
	if !ok {
		return raw
	}
	at := strings.LastIndex(rest, "@")
	if at < 0 {
		return raw
	}
	userinfo, host := rest[:at], rest[at+1:]
	user, _, hasPass := strings.Cut(userinfo, ":")
	if !hasPass {
		return raw
	}
	return scheme + "://" + user + ":" + redacted + "@" + host
}
