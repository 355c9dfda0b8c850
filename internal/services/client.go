package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/hyperjump/medscribe/internal/apperr"
	"github.com/hyperjump/medscribe/internal/config"
	"github.com/hyperjump/medscribe/pkg/utils"
)

// Option configures an adapter.
type Option func(*base)

// WithLogger sets the adapter's logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *base) { b.logger = l }
}

// WithHTTPClient sets the HTTP client used for upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(b *base) { b.httpClient = c }
}

// base carries what every adapter needs to reach an OpenAI-compatible endpoint.
type base struct {
	svc        config.ServiceConfig
	headers    map[string]string
	httpClient *http.Client
	logger     *zap.Logger
}

func newBase(svc config.ServiceConfig, opts []Option) base {
	b := base{svc: svc}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = utils.OrNop(b.logger)
	if b.httpClient == nil {
		b.httpClient = &http.Client{}
	}
	return b
}

// Ready returns a config error when the service credential is missing.
func (b *base) Ready() error {
	_, err := b.svc.APIKey()
	return err
}

// client builds an API client. The key is read on every call so that credentials
// loaded after startup are picked up.
func (b *base) client() (*openai.Client, error) {
	key, err := b.svc.APIKey()
	if err != nil {
		return nil, err
	}
	cfg := openai.DefaultConfig(key)
	if b.svc.BaseURL != "" {
		cfg.BaseURL = strings.TrimRight(b.svc.BaseURL, "/")
	}
	hc := *b.httpClient
	if len(b.headers) > 0 {
		hc.Transport = &headerTransport{base: hc.Transport, headers: b.headers}
	}
	cfg.HTTPClient = &hc
	return openai.NewClientWithConfig(cfg), nil
}

// withTimeout bounds ctx by the service timeout when one is configured.
func (b *base) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if b.svc.Timeout > 0 {
		return context.WithTimeout(ctx, b.svc.Timeout)
	}
	return context.WithCancel(ctx)
}

// complete sends a chat completion and returns the first choice's content.
func (b *base) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	client, err := b.client()
	if err != nil {
		return "", err
	}
	ctx, cancel := b.withTimeout(ctx)
	defer cancel()

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       b.svc.Model,
		Messages:    messages,
		Temperature: requestTemperature(b.svc),
		MaxTokens:   b.svc.MaxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", apperr.New(apperr.KindEmpty, "model returned no choices", nil)
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", apperr.New(apperr.KindEmpty, "model returned empty content", nil)
	}
	return text, nil
}

// classify maps a client error onto the adapter failure kinds.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.New(apperr.KindTimeout, "request timed out", err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperr.New(apperr.KindTimeout, "request timed out", err)
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apperr.New(apperr.KindUpstream, fmt.Sprintf("API error: %d - %s", apiErr.HTTPStatusCode, apiErr.Message), nil)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return apperr.New(apperr.KindUpstream, fmt.Sprintf("API error: %d", reqErr.HTTPStatusCode), reqErr.Err)
	}
	return apperr.New(apperr.KindUpstream, "request failed", err)
}

// headerTransport adds fixed headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	rt := t.base
	if rt == nil {
		rt = http.DefaultTransport
	}
	return rt.RoundTrip(req)
}

// requestTemperature maps an explicit 0 to the smallest positive float so the
// client does not omit the field and fall back to the provider default.
func requestTemperature(svc config.ServiceConfig) float32 {
	if svc.Temperature != nil && *svc.Temperature == 0 {
		return math.SmallestNonzeroFloat32
	}
	return svc.SamplingTemperature()
}
