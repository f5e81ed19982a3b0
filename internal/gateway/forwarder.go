package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/99minutos/order-platform/internal/api/metrics"
	"github.com/99minutos/order-platform/internal/core/domain"
)

const maxResponseBytes = 4 << 20

// forwardedHeaders are copied verbatim from the client request.
var forwardedHeaders = []string{
	echo.HeaderAuthorization,
	echo.HeaderContentType,
	echo.HeaderAccept,
	"Idempotency-Key",
	echo.HeaderXRequestID,
}

// Forwarder relays requests to the downstream services.
type Forwarder struct {
	client    *http.Client
	upstreams map[string]*url.URL
	timeout   time.Duration
	log       zerolog.Logger
}

// NewForwarder parses the upstream base URLs. timeout bounds every call,
// body included.
func NewForwarder(upstreams map[string]string, timeout time.Duration, log zerolog.Logger) (*Forwarder, error) {
	parsed := make(map[string]*url.URL, len(upstreams))
	for name, raw := range upstreams {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("gateway: invalid %s upstream url %q", name, raw)
		}
		parsed[name] = u
	}
	return &Forwarder{
		client:    &http.Client{},
		upstreams: parsed,
		timeout:   timeout,
		log:       log,
	}, nil
}

// Handler returns the echo handler that forwards requests matched by rt.
func (f *Forwarder) Handler(rt Route) echo.HandlerFunc {
	return func(c echo.Context) error {
		return f.forward(c, rt)
	}
}

func (f *Forwarder) forward(c echo.Context, rt Route) error {
	base, ok := f.upstreams[rt.Service]
	if !ok {
		return fmt.Errorf("gateway: no upstream configured for %s", rt.Service)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), f.timeout)
	defer cancel()

	path, rawPath := rt.upstreamPath(c)
	target := *base
	target.Path = strings.TrimRight(base.Path, "/") + path
	target.RawPath = ""
	if rawPath != "" {
		target.RawPath = strings.TrimRight(base.EscapedPath(), "/") + rawPath
	}
	target.RawQuery = c.Request().URL.RawQuery

	in := c.Request()
	var body io.Reader = in.Body
	if in.ContentLength == 0 {
		body = http.NoBody
	}
	req, err := http.NewRequestWithContext(ctx, in.Method, target.String(), body)
	if err != nil {
		return fmt.Errorf("gateway: build upstream request: %w", err)
	}
	req.ContentLength = in.ContentLength
	for _, h := range forwardedHeaders {
		if v := in.Header.Get(h); v != "" {
			req.Header.Set(h, v)
		}
	}
	if req.Header.Get(echo.HeaderXRequestID) == "" {
		req.Header.Set(echo.HeaderXRequestID, c.Response().Header().Get(echo.HeaderXRequestID))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	metrics.UpstreamDuration.WithLabelValues(rt.Service).Observe(time.Since(start).Seconds())
	if err != nil {
		return f.unavailable(rt, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		_ = resp.Body.Close()
	}()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return f.unavailable(rt, err)
	}

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		metrics.UpstreamRequestsTotal.WithLabelValues(rt.Service, "upstream_error").Inc()
		f.log.Error().
			Str("service", rt.Service).
			Str("path", target.Path).
			Int("status", resp.StatusCode).
			Msg("upstream returned server error")
		return domain.ErrUpstream
	case resp.StatusCode >= http.StatusBadRequest:
		metrics.UpstreamRequestsTotal.WithLabelValues(rt.Service, "client_error").Inc()
		if !isEnvelope(payload) {
			return echo.NewHTTPError(resp.StatusCode, http.StatusText(resp.StatusCode))
		}
	default:
		metrics.UpstreamRequestsTotal.WithLabelValues(rt.Service, "ok").Inc()
	}

	if len(payload) == 0 {
		return c.NoContent(resp.StatusCode)
	}
	contentType := resp.Header.Get(echo.HeaderContentType)
	if contentType == "" {
		contentType = echo.MIMEApplicationJSON
	}
	return c.Blob(resp.StatusCode, contentType, payload)
}

func (f *Forwarder) unavailable(rt Route, err error) error {
	metrics.UpstreamRequestsTotal.WithLabelValues(rt.Service, "unavailable").Inc()
	f.log.Warn().Err(err).Str("service", rt.Service).Msg("upstream unavailable")
	return domain.ErrServiceUnavailable
}

// Probe checks an upstream's liveness endpoint.
func (f *Forwarder) Probe(ctx context.Context, service string) error {
	base, ok := f.upstreams[service]
	if !ok {
		return fmt.Errorf("no upstream configured for %s", service)
	}
	target := *base
	target.Path = strings.TrimRight(base.Path, "/") + "/health"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s health returned %d", service, resp.StatusCode)
	}
	return nil
}

// isEnvelope reports whether body already carries the shared response shape.
func isEnvelope(body []byte) bool {
	var probe struct {
		Success *bool           `json:"success"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return false
	}
	return probe.Success != nil && len(probe.Error) > 0
}
