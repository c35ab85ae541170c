package extract

import (
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/sells-group/invoice-cli/internal/config"
	"github.com/sells-group/invoice-cli/internal/filestore"
	"github.com/sells-group/invoice-cli/internal/ocr"
	"github.com/sells-group/invoice-cli/internal/resilience"
	"github.com/sells-group/invoice-cli/pkg/anthropic"
)

// New builds the configured extractor wrapped in the retry policy.
func New(cfg config.ExtractionConfig, files filestore.Fetcher) (Extractor, error) {
	var opts []option.RequestOption
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(cfg.APIKey, opts...)

	var textExtractor ocr.Extractor
	if cfg.Mode == ModeText {
		var err error
		if textExtractor, err = ocr.NewExtractor(cfg.OCR); err != nil {
			return nil, err
		}
	}

	claude, err := NewClaude(client, files, textExtractor, ClaudeOptions{
		Model:             cfg.Model,
		MaxTokens:         cfg.MaxTokens,
		Mode:              cfg.Mode,
		Categories:        cfg.Categories,
		CacheTTL:          cfg.CacheTTL,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}

	retry := resilience.FromRetryConfig(resilience.ExtractionRetryConfig(),
		cfg.Retry.MaxAttempts, cfg.Retry.InitialBackoff, cfg.Retry.MaxBackoff,
		cfg.Retry.Multiplier, cfg.Retry.JitterFraction)

	var breaker *resilience.CircuitBreaker
	if cfg.Circuit.FailureThreshold > 0 {
		breaker = resilience.NewCircuitBreaker(resilience.FromCircuitConfig(cfg.Circuit.FailureThreshold, cfg.Circuit.ResetTimeout))
	}

	return NewRetrying(claude, retry, breaker), nil
}
