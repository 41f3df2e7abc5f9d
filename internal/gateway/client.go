// Package gateway is the HTTP base query for the movie service.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"github.com/alt-project/flixctl/internal/domain"
)

const maxResponseBytes = 10 << 20

// TokenSource returns the current bearer token, or "" when no session exists.
type TokenSource func(ctx context.Context) string

// Config holds client settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 disables limiting
	Burst     int
}

// Request describes one call to the service.
type Request struct {
	Method string
	Path   string // relative to the base URL, may carry a query string
	Body   any
	// Anonymous suppresses the Authorization header.
	Anonymous bool
}

// Client sends requests to the movie service.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  TokenSource
	limiter *rate.Limiter
	logger  *slog.Logger
	tracer  trace.Tracer
}

// New creates a client. tokens may be nil for anonymous use.
func New(cfg Config, tokens TokenSource, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: base URL is empty", domain.ErrInvalidInput)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if tokens == nil {
		tokens = func(context.Context) string { return "" }
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := &http.Transport{
		MaxIdleConns:        20,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		http:    &http.Client{Timeout: timeout, Transport: transport},
		tokens:  tokens,
		limiter: limiter,
		logger:  logger,
		tracer:  otel.Tracer("flixctl/gateway"),
	}, nil
}

// Do sends a JSON request and returns the raw response body.
// Non-2xx responses come back as *APIError.
func (c *Client) Do(ctx context.Context, req Request) ([]byte, error) {
	var body io.Reader
	contentType := ""
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}
	return c.send(ctx, req, body, contentType)
}

func (c *Client) send(ctx context.Context, req Request, body io.Reader, contentType string) ([]byte, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	ctx, span := c.tracer.Start(ctx, "gateway.request", trace.WithAttributes(
		attribute.String("http.method", method),
		attribute.String("http.path", req.Path),
	))
	defer span.End()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			span.SetStatus(codes.Error, "rate limited")
			return nil, fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	requestID := uuid.NewString()
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Request-ID", requestID)
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if !req.Anonymous {
		if tok := c.tokens(ctx); tok != "" {
			httpReq.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport failure")
		c.logger.WarnContext(ctx, "request failed",
			"method", method,
			"path", req.Path,
			"request_id", requestID,
			"error", err)
		return nil, fmt.Errorf("%w: %w", domain.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", domain.ErrServiceUnavailable, err)
	}

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	c.logger.DebugContext(ctx, "request completed",
		"method", method,
		"path", req.Path,
		"status", resp.StatusCode,
		"request_id", requestID,
		"latency_ms", time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: ErrorMessage(data), Body: data}
		span.SetStatus(codes.Error, apiErr.Message)
		return nil, apiErr
	}
	return data, nil
}

// Login exchanges credentials for a bearer token.
// Implements domain.AuthGateway.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	data, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/user/login/",
		Body:      map[string]string{"email": email, "password": password},
		Anonymous: true,
	})
	if err != nil {
		return "", err
	}

	var out struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("%w: decoding login response: %w", domain.ErrTokenDecode, err)
	}
	if out.Token == "" {
		return "", fmt.Errorf("%w: login response carried no token", domain.ErrTokenDecode)
	}
	return out.Token, nil
}

// Signup registers a user and returns the id the service assigned.
// An id the service omits comes back as "".
func (c *Client) Signup(ctx context.Context, input domain.SignupInput) (string, error) {
	data, err := c.Do(ctx, Request{
		Method:    http.MethodPost,
		Path:      "/user/signup/",
		Body:      input,
		Anonymous: true,
	})
	if err != nil {
		return "", err
	}
	return decodeID(data)
}

// UploadImage sends an image as multipart field "image" and returns the stored image id.
func (c *Client) UploadImage(ctx context.Context, filename, contentType string, r io.Reader) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="image"; filename=%q`, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("copying image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("closing multipart body: %w", err)
	}

	data, err := c.send(ctx, Request{Method: http.MethodPost, Path: "/images/upload"}, &buf, mw.FormDataContentType())
	if err != nil {
		return "", err
	}
	return decodeID(data)
}

// decodeID reads {"id": ...} where the id may be a number or a string.
func decodeID(data []byte) (string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var out struct {
		ID any `json:"id"`
	}
	if err := dec.Decode(&out); err != nil {
		return "", fmt.Errorf("decoding id response: %w", err)
	}

	switch v := out.ID.(type) {
	case json.Number:
		return v.String(), nil
	case string:
		return v, nil
	default:
		return "", nil
	}
}
