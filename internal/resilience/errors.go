package resilience

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"regexp"
	"strings"
	"syscall"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// TransientError wraps a network-level error that is safe to retry.
type TransientError struct {
	Err        error
	StatusCode int
}

func (e *TransientError) Error() string {
	return e.Err.Error()
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// NewTransientError wraps an error as transient with an optional HTTP status code.
func NewTransientError(err error, statusCode int) *TransientError {
	return &TransientError{Err: err, StatusCode: statusCode}
}

// ProviderErrorKind distinguishes the retryable failure modes of an
// external provider.
type ProviderErrorKind string

const (
	// KindRateLimited means the provider rejected the call for quota reasons.
	KindRateLimited ProviderErrorKind = "rate_limited"
	// KindUnavailable means the provider is temporarily down or overloaded.
	KindUnavailable ProviderErrorKind = "unavailable"
)

// ProviderError is a typed provider failure that the extraction retry
// policy treats as retryable.
type ProviderError struct {
	Kind       ProviderErrorKind
	StatusCode int
	Err        error
}

func (e *ProviderError) Error() string {
	prefix := "service unavailable"
	if e.Kind == KindRateLimited {
		prefix = "rate limit exceeded"
	}
	if e.StatusCode > 0 {
		prefix = fmt.Sprintf("%s (%d)", prefix, e.StatusCode)
	}
	if e.Err == nil {
		return prefix
	}
	return prefix + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewRateLimitError returns a rate-limited ProviderError.
func NewRateLimitError(err error, statusCode int) *ProviderError {
	return &ProviderError{Kind: KindRateLimited, StatusCode: statusCode, Err: err}
}

// NewUnavailableError returns an unavailable ProviderError.
func NewUnavailableError(err error, statusCode int) *ProviderError {
	return &ProviderError{Kind: KindUnavailable, StatusCode: statusCode, Err: err}
}

// ProviderErrorFromStatus classifies an HTTP status from a provider.
// It returns nil for statuses that are not retryable.
func ProviderErrorFromStatus(err error, statusCode int) *ProviderError {
	switch statusCode {
	case 429:
		return NewRateLimitError(err, statusCode)
	case 502, 503, 504, 529:
		return NewUnavailableError(err, statusCode)
	default:
		return nil
	}
}

var retryableMarkers = []string{
	"rate limit exceeded",
	"service unavailable",
	"too many requests",
}

// quotaPatterns classify quota failures that reach the state machine as
// plain text. Each one is anchored to a status token or phrase so that ids
// and file names carried in wrapped messages never match.
var quotaPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(?:status|code|http|error)[ :=]*429\b`),
	regexp.MustCompile(`(?i)\b429 too many requests\b`),
	regexp.MustCompile(`(?i)\bresource[ _]?exhausted\b`),
	regexp.MustCompile(`(?i)\bquota (?:exceeded|exhausted|reached)\b`),
	regexp.MustCompile(`(?i)\b(?:exceeded|insufficient) (?:your |the )?quota\b`),
}

// HTTPStatusError is implemented by client errors that carry the HTTP
// status of a failed call.
type HTTPStatusError interface {
	error
	HTTPStatus() int
}

// IsRetryableProviderError reports whether err is a rate-limit or
// unavailability failure. It is the retry predicate for extraction calls.
func IsRetryableProviderError(err error) bool {
	if err == nil {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return true
	}
	return containsAny(err.Error(), retryableMarkers)
}

// IsQuotaError reports whether err carries quota or rate-limit markers.
// A raw invoice whose extraction ends with such an error is parked in
// RETRY instead of FAILED.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}

	var pe *ProviderError
	if errors.As(err, &pe) || errors.Is(err, ErrCircuitOpen) {
		return true
	}
	var se HTTPStatusError
	if errors.As(err, &se) {
		return ProviderErrorFromStatus(err, se.HTTPStatus()) != nil
	}
	var te *TransientError
	if errors.As(err, &te) && te.StatusCode == http.StatusTooManyRequests {
		return true
	}
	if status.Code(err) == codes.ResourceExhausted {
		return true
	}

	if containsAny(err.Error(), retryableMarkers) {
		return true
	}
	msg := err.Error()
	for _, re := range quotaPatterns {
		if re.MatchString(msg) {
			return true
		}
	}
	return false
}

func containsAny(msg string, markers []string) bool {
	msg = strings.ToLower(msg)
	for _, m := range markers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

// IsTransient reports whether err is a TransientError or a common
// network-level failure (timeouts, resets, DNS).
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var te *TransientError
	if errors.As(err, &te) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	return containsAny(err.Error(), []string{
		"connection reset by peer",
		"broken pipe",
		"temporary failure in name resolution",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	})
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue that is safe to retry.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
