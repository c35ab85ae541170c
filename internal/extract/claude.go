package extract

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/invoice-cli/internal/filestore"
	"github.com/sells-group/invoice-cli/internal/model"
	"github.com/sells-group/invoice-cli/internal/ocr"
	"github.com/sells-group/invoice-cli/internal/resilience"
	"github.com/sells-group/invoice-cli/pkg/anthropic"
)

// Extraction modes.
const (
	ModeDocument = "document" // PDF sent as a document block
	ModeText     = "text"     // PDF converted to text first
)

// ClaudeOptions configures the Claude extractor.
type ClaudeOptions struct {
	Model             string
	MaxTokens         int64
	Mode              string
	Categories        []string
	CacheTTL          string
	RequestsPerMinute int
}

// Claude extracts invoice fields with the Anthropic Messages API.
type Claude struct {
	client  anthropic.Client
	files   filestore.Fetcher
	text    ocr.Extractor
	opts    ClaudeOptions
	system  []anthropic.SystemBlock
	limiter *rate.Limiter
}

// NewClaude creates a Claude extractor. textExtractor is required in text mode.
func NewClaude(client anthropic.Client, files filestore.Fetcher, textExtractor ocr.Extractor, opts ClaudeOptions) (*Claude, error) {
	if opts.Mode == "" {
		opts.Mode = ModeDocument
	}
	if opts.Mode != ModeDocument && opts.Mode != ModeText {
		return nil, eris.Errorf("extract: unknown mode %q", opts.Mode)
	}
	if opts.Mode == ModeText && textExtractor == nil {
		return nil, eris.New("extract: text mode requires a text extractor")
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = 2048
	}
	if len(opts.Categories) == 0 {
		opts.Categories = model.DefaultCategories
	}

	c := &Claude{
		client: client,
		files:  files,
		text:   textExtractor,
		opts:   opts,
		system: anthropic.BuildCachedSystemBlocks(buildSystemPrompt(opts.Categories), opts.CacheTTL),
	}
	if opts.RequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1)
	}
	return c, nil
}

// Extract implements Extractor.
func (c *Claude) Extract(ctx context.Context, locator string) (map[string]any, error) {
	pdf, err := c.files.Fetch(ctx, locator)
	if err != nil {
		return nil, eris.Wrap(err, "extract: load attachment")
	}

	msg := anthropic.Message{Role: "user"}
	switch c.opts.Mode {
	case ModeText:
		text, err := c.text.ExtractText(ctx, pdf)
		if err != nil {
			return nil, eris.Wrap(err, "extract: pdf to text")
		}
		msg.Content = textInstruction(text)
	default:
		msg.Content = documentInstruction
		msg.Documents = []anthropic.Document{{Data: pdf}}
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "extract: rate limiter")
		}
	}

	temp := 0.0
	resp, err := c.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       c.opts.Model,
		MaxTokens:   c.opts.MaxTokens,
		System:      c.system,
		Messages:    []anthropic.Message{msg},
		Temperature: &temp,
	})
	if err != nil {
		return nil, classify(err)
	}
	resp.Usage.LogCost(c.opts.Model, locator)

	if resp.StopReason == "max_tokens" {
		zap.L().Warn("extract: reply truncated at max_tokens", zap.String("locator", locator))
	}

	return parseFields(resp.Text())
}

// classify turns API status errors into provider errors the retry policy
// understands.
func classify(err error) error {
	var se *anthropic.StatusError
	if errors.As(err, &se) {
		if pe := resilience.ProviderErrorFromStatus(err, se.StatusCode); pe != nil {
			return pe
		}
	}
	return eris.Wrap(err, "extract: create message")
}
