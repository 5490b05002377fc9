// Package openaix builds the process-wide OpenAI client and classifies its errors.
package openaix

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/abdelatifsd/Adjacent/internal/config"
	"github.com/abdelatifsd/Adjacent/internal/platform/errkind"
)

// NewClient returns a client for cfg. Extra options are appended last so
// tests can swap the transport.
func NewClient(cfg config.LLMConfig, extra ...option.RequestOption) (*openai.Client, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	timeout := cfg.Timeout.Duration
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	retries := cfg.MaxRetries
	if retries < 0 {
		retries = 0
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(&http.Client{Timeout: timeout}),
		option.WithMaxRetries(retries),
	}
	if base := strings.TrimSpace(cfg.BaseURL); base != "" {
		opts = append(opts, option.WithBaseURL(base))
	}
	opts = append(opts, extra...)
	client := openai.NewClient(opts...)
	return &client, nil
}

// Classify maps SDK failures onto error kinds: rate limits, server errors and
// transport failures are unavailable; other API errors are internal.
func Classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var ke *errkind.Error
	if errors.As(err, &ke) {
		return err
	}
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500 {
			return errkind.Unavailable(op, err)
		}
		return errkind.Internal(op, err)
	}
	if errkind.IsTransient(err) {
		return errkind.Unavailable(op, err)
	}
	return errkind.Internal(op, err)
}
