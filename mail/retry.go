package mail

import (
	"context"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/gitmesh/newsletter"
)

// RetryConfig bounds the retry loop of a single send
type RetryConfig struct {
	MaxRetries        int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	BackoffMultiplier float64
}

// DefaultRetryConfig matches the transport rate limits we run against:
// up to 4 attempts total, delays of roughly 1s, 2s, 4s capped at 30s.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		MaxDelay:          30 * time.Second,
		BackoffMultiplier: 2,
	}
}

// Transient failure signatures matched case-insensitively against error text
var retryableMessages = []string{
	"timeout",
	"network",
	"connection",
	"econnreset",
	"enotfound",
	"econnrefused",
	"rate limit",
	"too many requests",
}

// retryable classifies a failed send result. HTTP 4xx other than 408/429
// is terminal; 5xx, 408, 429 and known transient error messages are
// eligible for another attempt. Anything unclassified is terminal.
func retryable(result *newsletter.SendResult) bool {
	switch code := result.StatusCode; {
	case code == http.StatusRequestTimeout, code == http.StatusTooManyRequests:
		return true
	case code >= 500:
		return true
	case code >= 400:
		return false
	}

	if result.Err != nil {
		msg := strings.ToLower(result.Err.Error())
		for _, sig := range retryableMessages {
			if strings.Contains(msg, sig) {
				return true
			}
		}
	}

	return false
}

// RetryingSender wraps an EmailTransport with exponential-backoff retry.
// Each attempt is logged; callers only see the final result.
type RetryingSender struct {
	transport newsletter.EmailTransport
	config    RetryConfig
	logger    zerolog.Logger

	// overridable in tests
	sleep  func(time.Duration)
	jitter func() float64
}

// NewRetryingSender returns a sender with the given retry policy
func NewRetryingSender(transport newsletter.EmailTransport, config RetryConfig, logger zerolog.Logger) *RetryingSender {
	return &RetryingSender{
		transport: transport,
		config:    config,
		logger:    logger,
		sleep:     time.Sleep,
		jitter:    rand.Float64,
	}
}

// Send attempts a single email, retrying transient failures up to
// MaxRetries times. Total attempts = MaxRetries + 1.
func (rs *RetryingSender) Send(ctx context.Context, params *newsletter.SendEmailParams) *newsletter.SendResult {
	var last *newsletter.SendResult

	for attempt := 0; attempt <= rs.config.MaxRetries; attempt++ {
		result, err := rs.transport.SendEmail(ctx, params)
		if err != nil {
			result = &newsletter.SendResult{Success: false, Err: err}
		}
		if result == nil {
			result = &newsletter.SendResult{Success: false, Err: fmt.Errorf("transport returned no result")}
		}

		if result.Success {
			if attempt > 0 {
				rs.logger.Info().
					Str("to", params.To).
					Int("attempt", attempt+1).
					Msg("send succeeded after retry")
			}
			return result
		}

		last = result

		if !retryable(result) {
			rs.logger.Warn().
				Str("to", params.To).
				Int("status", result.StatusCode).
				Err(result.Err).
				Msg("terminal send failure, not retrying")
			return result
		}

		if attempt == rs.config.MaxRetries {
			break
		}

		delay := rs.backoffDelay(attempt)
		rs.logger.Warn().
			Str("to", params.To).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Err(result.Err).
			Msg("retrying send")
		rs.sleep(delay)
	}

	return &newsletter.SendResult{
		Success:    false,
		StatusCode: last.StatusCode,
		Err: fmt.Errorf("send failed after %d attempts, retries exhausted: %v",
			rs.config.MaxRetries+1, lastError(last)),
	}
}

// backoffDelay computes min(base * multiplier^attempt + jitter, max) where
// jitter is uniform over [0, 10%) of the computed delay.
func (rs *RetryingSender) backoffDelay(attempt int) time.Duration {
	delay := float64(rs.config.BaseDelay)
	for i := 0; i < attempt; i++ {
		delay *= rs.config.BackoffMultiplier
	}
	delay += delay * 0.1 * rs.jitter()

	if capped := float64(rs.config.MaxDelay); delay > capped {
		delay = capped
	}

	return time.Duration(delay)
}

func lastError(result *newsletter.SendResult) string {
	if result == nil {
		return "unknown error"
	}
	if result.Err != nil {
		return result.Err.Error()
	}
	if result.StatusCode != 0 {
		return fmt.Sprintf("status %d", result.StatusCode)
	}
	return "unknown error"
}
