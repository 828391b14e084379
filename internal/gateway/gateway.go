// Package gateway is the single HTTP helper every backend call goes
// through. It stamps auth and content headers and collapses every failure
// mode into one *RequestError.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/soc/internal/logging"
	"go.uber.org/zap"
)

// GenericFailure is the message used when the backend gives no detail.
const GenericFailure = "Request failed"

// ErrRequestFailed matches every *RequestError via errors.Is.
var ErrRequestFailed = errors.New("request failed")

// Kind classifies why a request failed.
type Kind int

const (
	KindTransport Kind = iota + 1 // no response (dial, timeout, cancel)
	KindStatus                    // non-2xx response
	KindDecode                    // 2xx with a malformed or absent body
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindStatus:
		return "status"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// RequestError is the uniform failure outcome of a gateway call.
type RequestError struct {
	Kind   Kind
	Method string
	Path   string
	Status int
	Detail string
	Err    error
}

// Message returns the backend's detail, or GenericFailure.
func (e *RequestError) Message() string {
	if e.Detail != "" {
		return e.Detail
	}
	return GenericFailure
}

func (e *RequestError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.Status, e.Message())
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message())
}

func (e *RequestError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrRequestFailed) match any RequestError.
func (e *RequestError) Is(target error) bool { return target == ErrRequestFailed }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	var re *RequestError
	return errors.As(err, &re) && re.Status == http.StatusUnauthorized
}

// TokenSource supplies the Authorization header value. An empty string
// means the request goes out unauthenticated.
type TokenSource interface {
	Authorization() string
}

// Options configures a Gateway.
type Options struct {
	BaseURL        string
	Timeout        time.Duration
	Auth           TokenSource
	OnUnauthorized func()
	HTTPClient     *http.Client
	Logger         *zap.Logger
}

// Gateway issues JSON requests against the backend REST API.
type Gateway struct {
	base           *url.URL
	client         *http.Client
	auth           TokenSource
	onUnauthorized func()
	logger         *zap.Logger
}

// New creates a gateway rooted at opts.BaseURL.
func New(opts Options) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", opts.BaseURL)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	return &Gateway{
		base:           base,
		client:         client,
		auth:           opts.Auth,
		onUnauthorized: opts.OnUnauthorized,
		logger:         logging.OrNop(opts.Logger),
	}, nil
}

// Get issues a GET and decodes the JSON response into out.
func (g *Gateway) Get(ctx context.Context, path string, query url.Values, out any) error {
	return g.Do(ctx, http.MethodGet, path, query, nil, out)
}

// Post issues a POST with a JSON body and decodes the JSON response into out.
func (g *Gateway) Post(ctx context.Context, path string, body, out any) error {
	return g.Do(ctx, http.MethodPost, path, nil, body, out)
}

// Do issues one request. body (if non-nil) is JSON-encoded; out (if non-nil)
// receives the decoded JSON response.
func (g *Gateway) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		payload = bytes.NewReader(data)
	}
	return g.send(ctx, method, path, query, payload, "application/json", true, out)
}

// PostForm issues a form-encoded POST (the OAuth2 token endpoint only
// accepts forms) and decodes the JSON response into out. The form carries
// its own credentials, so no token is attached and a 401 reply leaves the
// current session alone.
func (g *Gateway) PostForm(ctx context.Context, path string, form url.Values, out any) error {
	return g.send(ctx, http.MethodPost, path, nil, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", false, out)
}

func (g *Gateway) send(ctx context.Context, method, path string, query url.Values, payload io.Reader, contentType string, withToken bool, out any) error {
	target := g.base.JoinPath(path)
	if len(query) > 0 {
		target.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), payload)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	authorized := false
	if withToken && g.auth != nil {
		if authz := g.auth.Authorization(); authz != "" {
			req.Header.Set("Authorization", authz)
			authorized = true
		}
	}

	started := time.Now()
	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("request failed", zap.String("method", method), zap.String("path", path),
			zap.String("request_id", requestID), zap.Error(err))
		return &RequestError{Kind: KindTransport, Method: method, Path: path, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	data, readErr := io.ReadAll(resp.Body)
	g.logger.Debug("request done",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("took", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Only a rejected token ends the session.
		if resp.StatusCode == http.StatusUnauthorized && authorized && g.onUnauthorized != nil {
			g.onUnauthorized()
		}
		return &RequestError{
			Kind:   KindStatus,
			Method: method,
			Path:   path,
			Status: resp.StatusCode,
			Detail: parseDetail(data),
		}
	}
	if readErr != nil {
		return &RequestError{Kind: KindTransport, Method: method, Path: path, Status: resp.StatusCode, Err: readErr}
	}
	if out == nil {
		return nil
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return &RequestError{Kind: KindDecode, Method: method, Path: path, Status: resp.StatusCode,
			Err: errors.New("empty response body")}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &RequestError{Kind: KindDecode, Method: method, Path: path, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// parseDetail extracts the optional "detail" field of an error body.
// FastAPI validation errors carry a list there; it is kept as compact JSON.
func parseDetail(data []byte) string {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(body.Detail, &s); err == nil {
		return s
	}
	if string(body.Detail) == "null" {
		return ""
	}
	return string(body.Detail)
}
