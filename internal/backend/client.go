// Package backend is the client for the managed backend service that owns
// authentication, analysis persistence, profiles, and the exchange-rate
// table. The API surface is PostgREST-style: /auth/v1 for identity and
// /rest/v1 for tables.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"github.com/doclexa/doclexa/internal/metrics"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Client provides backend API access
type Client struct {
	baseURL string
	anonKey string
	http    *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker[[]byte]
	logger  *zap.Logger

	auth authState
}

// Config holds backend client configuration
type Config struct {
	URL               string
	AnonKey           string
	Timeout           int // seconds
	RequestsPerMinute int
}

// NewClient creates a new backend client
func NewClient(cfg Config, logger *zap.Logger) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30
	}
	rpm := cfg.RequestsPerMinute
	if rpm == 0 {
		rpm = 60
	}

	breaker := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:    "backend",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	c := &Client{
		baseURL: cfg.URL,
		anonKey: cfg.AnonKey,
		http: &http.Client{
			Timeout: time.Duration(timeout) * time.Second,
		},
		limiter: rate.NewLimiter(rate.Limit(float64(rpm)/60.0), rpm),
		breaker: breaker,
		logger:  logger,
	}
	c.auth.listeners = make(map[uint64]AuthStateFunc)
	return c
}

// apiError is the error envelope the backend returns.
type apiError struct {
	Message          string `json:"message"`
	Msg              string `json:"msg"`
	ErrorField       string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// text returns the most specific message the backend provided.
func (e *apiError) text() string {
	for _, s := range []string{e.ErrorDescription, e.Message, e.Msg, e.ErrorField} {
		if s != "" {
			return s
		}
	}
	return ""
}

// do performs an authenticated request and returns the response body.
// Non-2xx responses become AppErrors carrying the backend-provided message.
func (c *Client) do(ctx context.Context, method, path string, body any, extraHeaders map[string]string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrRateLimited.Code, "request canceled while rate limited")
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to encode request")
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to build request")
	}

	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerToken())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range extraHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.Default().RecordBackendRequest(false)
		return nil, apperrors.Wrap(err, apperrors.ErrBackendUnavailable.Code, "backend unreachable")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.Default().RecordBackendRequest(false)
		return nil, apperrors.Wrap(err, apperrors.ErrBackendUnavailable.Code, "failed to read response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		metrics.Default().RecordBackendRequest(false)
		var apiErr apiError
		_ = json.Unmarshal(respBody, &apiErr)
		msg := apiErr.text()
		if msg == "" {
			msg = fmt.Sprintf("backend returned status %d", resp.StatusCode)
		}
		c.logger.Debug("backend rejected request",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("message", msg),
		)
		return nil, apperrors.New(apperrors.ErrBackendRejected.Code, msg)
	}

	metrics.Default().RecordBackendRequest(true)
	return respBody, nil
}

// doData runs a data-plane request through the circuit breaker. The breaker
// only wraps table access; auth calls always reach the backend so sign-in
// failures stay attributable.
func (c *Client) doData(ctx context.Context, method, path string, body any, extraHeaders map[string]string) ([]byte, error) {
	respBody, err := c.breaker.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, body, extraHeaders)
	})
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, apperrors.Wrap(err, apperrors.ErrBackendUnavailable.Code, "backend circuit open")
	}
	return respBody, err
}

// bearerToken returns the user's access token when signed in, otherwise the
// anon key.
func (c *Client) bearerToken() string {
	if s := c.Session(); s != nil {
		return s.AccessToken
	}
	return c.anonKey
}
