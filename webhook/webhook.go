package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ZEDDEV1/nozesia-sub005/job"
	"github.com/ZEDDEV1/nozesia-sub005/scope"
)

// Header names set on every request.
const (
	HeaderJobType = "X-Taskq-Job-Type"
	HeaderCompany = "X-Taskq-Company-Id"
)

// maxErrorBody bounds how much of a failed response is read for the
// error message.
const maxErrorBody = 4 << 10

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("webhook: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook: unexpected status %d: %s", e.StatusCode, e.Message)
}

// Option configures a Handler.
type Option func(*Handler)

// WithClient replaces the HTTP client.
func WithClient(c *http.Client) Option {
	return func(h *Handler) { h.client = c }
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(h *Handler) { h.headers.Set(key, value) }
}

// WithTimeout bounds each request, including reading the response. It
// applies to a copy of the client, so a shared client passed with
// WithClient is left untouched.
func WithTimeout(d time.Duration) Option {
	return func(h *Handler) {
		c := *h.client
		c.Timeout = d
		h.client = &c
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// Handler posts job payloads to one URL.
type Handler struct {
	url     string
	client  *http.Client
	headers http.Header
	logger  *slog.Logger
}

// New returns a Handler targeting url. The default client is traced with
// otelhttp and times out after 30s.
func New(url string, opts ...Option) *Handler {
	h := &Handler{
		url: url,
		client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
			Timeout:   30 * time.Second,
		},
		headers: make(http.Header),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// URL returns the endpoint.
func (h *Handler) URL() string { return h.url }

// For returns a job handler that forwards jobs of type t.
func (h *Handler) For(t job.Type) job.HandlerFunc {
	return func(ctx context.Context, payload []byte) error {
		return h.post(ctx, t, payload)
	}
}

func (h *Handler) post(ctx context.Context, t job.Type, payload []byte) error {
	company := scope.Capture(ctx)
	body, err := envelope(t, company, payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: build request: %w", err)
	}
	for k, v := range h.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderJobType, string(t))
	if company != "" {
		req.Header.Set(HeaderCompany, company)
	}

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post %s: %w", t, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	serr := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	h.logger.Debug("webhook rejected job",
		slog.String("job_type", string(t)),
		slog.Int("status", resp.StatusCode),
	)
	return serr
}

// envelope wraps payload as {"type","company_id","payload"}. A payload
// that is not valid JSON is sent as a string.
func envelope(t job.Type, company string, payload []byte) ([]byte, error) {
	body, err := sjson.SetBytes([]byte(`{}`), "type", string(t))
	if err != nil {
		return nil, fmt.Errorf("webhook: encode envelope: %w", err)
	}
	if company != "" {
		if body, err = sjson.SetBytes(body, "company_id", company); err != nil {
			return nil, fmt.Errorf("webhook: encode envelope: %w", err)
		}
	}
	switch {
	case len(payload) == 0:
		body, err = sjson.SetRawBytes(body, "payload", []byte("null"))
	case gjson.ValidBytes(payload):
		body, err = sjson.SetRawBytes(body, "payload", payload)
	default:
		body, err = sjson.SetBytes(body, "payload", string(payload))
	}
	if err != nil {
		return nil, fmt.Errorf("webhook: encode envelope: %w", err)
	}
	return body, nil
}

// errorMessage extracts {"error": "..."} or {"message": "..."} from a
// JSON error body, falling back to the raw text.
func errorMessage(raw []byte) string {
	if gjson.ValidBytes(raw) {
		res := gjson.GetManyBytes(raw, "error", "message")
		for _, r := range res {
			if r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
	}
	return string(bytes.TrimSpace(raw))
}
