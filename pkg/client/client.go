// Package client provides the HTTP client for the upstream ranking model,
// with retries, error classification and metrics.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/recsys-gateway/pkg/recsys"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Prometheus metrics for upstream model calls.
var (
	upstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_upstream_requests_total",
		Help: "Total upstream model requests by status",
	}, []string{"status"})

	upstreamRequestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "recsys_upstream_request_duration_seconds",
		Help:    "Upstream model request duration in seconds, retries included",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})

	upstreamErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "recsys_upstream_errors_total",
		Help: "Total upstream model errors by class",
	}, []string{"class"})
)

// PredictPath is the upstream model's prediction endpoint.
const PredictPath = "/predict"

// maxBodyBytes caps how much of an upstream body is read.
const maxBodyBytes = 4 << 20

// Config holds the client configuration.
type Config struct {
	// BaseURL of the upstream model, e.g. "http://ranker:9000"
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per attempt
	Timeout time.Duration

	// RetryPolicy picks retry settings per error class. Nil uses
	// RetryConfigForErrorClass.
	RetryPolicy RetryPolicy

	// HTTPClient overrides the default instrumented client (for testing).
	HTTPClient *http.Client
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig(baseURL string) Config {
	return Config{
		BaseURL:     baseURL,
		UserAgent:   "recsys-gateway",
		Timeout:     5 * time.Second,
		RetryPolicy: RetryConfigForErrorClass,
	}
}

// Client calls the upstream model with envelopes of Req and decodes
// envelopes of Resp.
type Client[Req, Resp any] struct {
	httpClient *http.Client
	endpoint   string
	config     Config
	logger     zerolog.Logger
}

// New creates a new upstream client.
func New[Req, Resp any](cfg Config, logger zerolog.Logger) (*Client[Req, Resp], error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("upstream base url is required")
	}
	if !strings.HasPrefix(cfg.BaseURL, "http://") && !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, fmt.Errorf("upstream base url must be http or https (got %q)", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	return &Client[Req, Resp]{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(cfg.BaseURL, "/") + PredictPath,
		config:     cfg,
		logger:     logger.With().Str("component", "upstream-client").Logger(),
	}, nil
}

// Predict sends msg to the upstream model and returns its answer.
//
// Server, rate-limit and network errors are retried; client errors are not.
// An answer without jsonData is returned with a nil Data.
func (c *Client[Req, Resp]) Predict(ctx context.Context, msg recsys.Message[Req]) (recsys.Message[Resp], error) {
	var out recsys.Message[Resp]

	body, err := json.Marshal(msg)
	if err != nil {
		return out, fmt.Errorf("encode upstream request: %w", err)
	}

	startTime := time.Now()
	defer func() {
		upstreamRequestDuration.Observe(time.Since(startTime).Seconds())
	}()

	c.logger.Debug().
		Str("puid", msg.Meta.PUID).
		Str("endpoint", c.endpoint).
		Msg("Executing upstream request")

	err = retryWithBackoff(ctx, c.logger, c.config.RetryPolicy, func() error {
		var attemptErr error
		out, attemptErr = c.do(ctx, body)
		return attemptErr
	})
	if err != nil {
		return recsys.Message[Resp]{}, err
	}

	if !out.HasData() {
		c.logger.Warn().Str("puid", msg.Meta.PUID).Msg("Upstream answered without payload")
	}
	return out, nil
}

// do performs one attempt.
func (c *Client[Req, Resp]) do(ctx context.Context, body []byte) (recsys.Message[Resp], error) {
	var out recsys.Message[Resp]

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return out, &UpstreamError{ErrorClass: ErrorClassClient, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		upstreamRequestsTotal.WithLabelValues("network_error").Inc()
		c.logger.Error().Err(err).Str("endpoint", c.endpoint).Msg("HTTP request failed")
		return out, err
	}
	defer resp.Body.Close()

	upstreamRequestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		return out, fmt.Errorf("read upstream body: %w", err)
	}

	if resp.StatusCode >= 400 {
		errClass := classifyStatus(resp.StatusCode)
		upstreamErrorsTotal.WithLabelValues(string(errClass)).Inc()
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Str("error_class", string(errClass)).
			Msg("Upstream request error")
		return out, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: errClass,
			Message:    strings.TrimSpace(string(data)),
		}
	}

	if err := json.Unmarshal(data, &out); err != nil {
		upstreamErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return out, &UpstreamError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "undecodable upstream body",
			Err:        err,
		}
	}
	return out, nil
}
