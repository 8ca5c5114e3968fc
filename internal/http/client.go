// SPDX-FileCopyrightText: Winni Neessen <wn@neessen.dev>
//
// SPDX-License-Identifier: MIT

// Package http talks JSON to the remote services of stepnav: map servers, path log upload
// endpoints and geolocation APIs.
package http

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"reflect"
	"runtime"
	"time"

	"github.com/wneessen/stepnav/internal/logger"
)

const (
	// DefaultTimeout is the timeout of a request that does not set its own.
	DefaultTimeout = time.Second * 10

	// MaxResponseSize limits the size of a decoded response body. Recorded maps with many
	// crumbs are the largest responses.
	MaxResponseSize = 32 << 20
)

var (
	// version is the version of the application (will be set at build time)
	version = "dev"
	// UserAgent is the User-Agent that the HTTP client sends with every request
	UserAgent = fmt.Sprintf("stepnav/%s (%s; %s; +https://github.com/wneessen/stepnav/)",
		version,
		runtime.GOOS,
		runtime.GOARCH,
	)

	ErrNonPointerTarget = errors.New("target must be a non-nil pointer")
	ErrResponseTooLarge = errors.New("response body exceeds size limit")
)

// StatusError is returned for responses with a 4xx or 5xx status code.
type StatusError struct {
	Code   int
	Status string
	URL    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status from %s: %s", e.URL, e.Status)
}

// IsNotFound reports whether err is a StatusError with status 404.
func IsNotFound(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr) && statusErr.Code == http.StatusNotFound
}

// Request holds the optional parts of a request. A non-nil Body is sent as JSON. A zero
// Timeout selects DefaultTimeout.
type Request struct {
	Query   url.Values
	Header  map[string]string
	Body    any
	Timeout time.Duration
}

// Client is a JSON client on top of the Go stdlib http.Client
type Client struct {
	*http.Client
	logger *logger.Logger
}

// New returns a new HTTP client. The logger may be nil.
func New(logger *logger.Logger) *Client {
	transport := &http.Transport{TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12}}
	return &Client{Client: &http.Client{Timeout: DefaultTimeout, Transport: transport}, logger: logger}
}

// GetJSON sends a GET request to endpoint and decodes the JSON response into target.
func (h *Client) GetJSON(ctx context.Context, endpoint string, req Request, target any) (int, error) {
	return h.do(ctx, http.MethodGet, endpoint, req, target)
}

// PostJSON sends req.Body as JSON to endpoint and decodes the JSON response into target. A nil
// target discards the response body, which suits endpoints that only acknowledge an upload.
func (h *Client) PostJSON(ctx context.Context, endpoint string, req Request, target any) (int, error) {
	return h.do(ctx, http.MethodPost, endpoint, req, target)
}

func (h *Client) do(ctx context.Context, method, endpoint string, req Request, target any) (int, error) {
	if target != nil {
		rv := reflect.ValueOf(target)
		if rv.Kind() != reflect.Pointer || rv.IsNil() {
			return 0, ErrNonPointerTarget
		}
	}

	reqURL, err := url.Parse(endpoint)
	if err != nil {
		return 0, fmt.Errorf("failed to parse URL: %w", err)
	}
	if len(req.Query) > 0 {
		reqURL.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), body)
	if err != nil {
		return 0, fmt.Errorf("failed create new HTTP request with context: %w", err)
	}
	request.Header.Set("User-Agent", UserAgent)
	request.Header.Set("Accept", "application/json")
	if body != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Header {
		request.Header.Set(k, v)
	}

	start := time.Now()
	response, err := h.Do(request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return 0, err
		}
		return 0, fmt.Errorf("failed to perform HTTP request: %w", err)
	}
	if response == nil {
		return 0, errors.New("nil response received")
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil && h.logger != nil {
			h.logger.Error("failed to close HTTP response body", logger.Err(err))
		}
	}(response.Body)
	if h.logger != nil {
		h.logger.Debug("HTTP request completed", slog.String("method", method),
			slog.String("host", reqURL.Host), slog.Int("status", response.StatusCode),
			slog.Duration("duration", time.Since(start)))
	}

	if response.StatusCode >= http.StatusBadRequest {
		return response.StatusCode, &StatusError{Code: response.StatusCode, Status: response.Status, URL: reqURL.Redacted()}
	}
	if target == nil || response.StatusCode == http.StatusNoContent {
		return response.StatusCode, nil
	}

	limited := &io.LimitedReader{R: response.Body, N: MaxResponseSize + 1}
	if err = json.NewDecoder(limited).Decode(target); err != nil {
		if limited.N <= 0 {
			return response.StatusCode, ErrResponseTooLarge
		}
		return response.StatusCode, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return response.StatusCode, nil
}
