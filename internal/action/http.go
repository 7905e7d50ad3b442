package action

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/tombee/docflow/internal/log"
	"github.com/tombee/docflow/pkg/errors"
)

const (
	// DefaultHTTPTimeout bounds a single api_call or webhook request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultMaxResponseSize caps how much of a response body is read.
	DefaultMaxResponseSize = 10 * 1024 * 1024 // 10MB
)

// HTTPHandler implements the api_call and webhook step types. Any HTTP
// completion, including 4xx and 5xx responses, is a handler success;
// only transport failures (DNS, connection refused, timeout) produce
// the failed result shape. Retry policy belongs to callers.
type HTTPHandler struct {
	client          *http.Client
	maxResponseSize int64
	logger          *slog.Logger
	auth            *authApplier
}

// HTTPOption configures an HTTPHandler.
type HTTPOption func(*HTTPHandler)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(client *http.Client) HTTPOption {
	return func(h *HTTPHandler) {
		if client != nil {
			h.client = client
		}
	}
}

// WithMaxResponseSize overrides the response body cap.
func WithMaxResponseSize(size int64) HTTPOption {
	return func(h *HTTPHandler) {
		if size > 0 {
			h.maxResponseSize = size
		}
	}
}

// NewHTTPHandler creates the handler backing api_call and webhook.
func NewHTTPHandler(logger *slog.Logger, opts ...HTTPOption) *HTTPHandler {
	h := &HTTPHandler{
		client: &http.Client{
			Timeout: DefaultHTTPTimeout,
		},
		maxResponseSize: DefaultMaxResponseSize,
		logger:          log.WithComponent(logger, "http"),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.auth = newAuthApplier(h.logger)
	return h
}

// Handle executes the request described by the step config: url
// (required), method (default GET), headers, query_params, body
// (JSON-encoded when present), and optional auth.
func (h *HTTPHandler) Handle(ctx context.Context, config, state map[string]interface{}) (map[string]interface{}, error) {
	url, ok := config["url"].(string)
	if !ok || url == "" {
		return nil, &errors.ValidationError{
			Field:      "url",
			Message:    "api_call requires a url",
			Suggestion: "Add a url to the step config",
		}
	}

	method := strings.ToUpper(stringValue(config, "method", "GET"))

	var bodyBytes []byte
	if body, exists := config["body"]; exists && body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return failedResult(fmt.Errorf("encoding request body: %w", err)), nil
		}
		bodyBytes = encoded
	}

	var bodyReader io.Reader
	if bodyBytes != nil {
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return failedResult(err), nil
	}

	if params := mapValue(config, "query_params"); len(params) > 0 {
		query := req.URL.Query()
		for key, value := range params {
			query.Set(key, stringify(value))
		}
		req.URL.RawQuery = query.Encode()
	}

	for key, value := range mapValue(config, "headers") {
		req.Header.Set(key, stringify(value))
	}
	if bodyBytes != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	if auth := mapValue(config, "auth"); auth != nil {
		if err := h.auth.apply(ctx, req, auth, bodyBytes); err != nil {
			h.logger.Warn("request authentication failed", log.Error(err))
			return failedResult(err), nil
		}
	}

	start := time.Now()
	resp, err := h.client.Do(req)
	if err != nil {
		h.logger.Warn("http request failed",
			slog.String("method", method),
			slog.String("url", url),
			log.Error(err))
		return failedResult(err), nil
	}
	defer resp.Body.Close()

	limited := io.LimitReader(resp.Body, h.maxResponseSize+1)
	respBody, err := io.ReadAll(limited)
	if err != nil {
		return failedResult(fmt.Errorf("reading response: %w", err)), nil
	}
	if int64(len(respBody)) > h.maxResponseSize {
		return failedResult(fmt.Errorf("response size exceeds %d bytes", h.maxResponseSize)), nil
	}

	h.logger.Debug("http request completed",
		slog.String("method", method),
		slog.String("url", url),
		slog.Int("status_code", resp.StatusCode),
		log.Duration("duration", time.Since(start).Milliseconds()),
		slog.Int("size_bytes", len(respBody)))

	return map[string]interface{}{
		"status":      "success",
		"status_code": resp.StatusCode,
		"response":    decodeResponse(resp.Header.Get("Content-Type"), respBody),
	}, nil
}

// decodeResponse parses the body as JSON when the content type says so,
// otherwise returns the raw text. A JSON-labeled body that fails to
// parse falls back to text rather than failing a completed request.
func decodeResponse(contentType string, body []byte) interface{} {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	if mediaType == "application/json" || strings.HasSuffix(mediaType, "+json") {
		var decoded interface{}
		if err := json.Unmarshal(body, &decoded); err == nil {
			return decoded
		}
	}
	return string(body)
}
