// Package secret fetches payment client secrets from the payments backend.
package secret

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// StatusError is returned when the backend answers with a non-201 status.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return "payments backend: " + strconv.Itoa(e.Code) + " " + http.StatusText(e.Code)
	}
	return "payments backend: " + strconv.Itoa(e.Code) + " " + e.Message
}

// ClientConfig configures Client.
type ClientConfig struct {
	// BaseURL of the payments backend, e.g. "http://localhost:8080".
	BaseURL string
	Timeout time.Duration
	// FailureThreshold consecutive failures open the breaker.
	FailureThreshold uint32
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration

	TracerProvider trace.TracerProvider
}

// Client calls POST /payments/create on the payments backend.
type Client struct {
	endpoint string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[string]
}

// NewClient creates a Client. The transport is instrumented with otelhttp and
// guarded by a circuit breaker so a failing backend fails fast.
func NewClient(cfg ClientConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, errors.Errorf("invalid payments backend url %q", cfg.BaseURL)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.OpenTimeout == 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	var transportOpts []otelhttp.Option
	if cfg.TracerProvider != nil {
		transportOpts = append(transportOpts, otelhttp.WithTracerProvider(cfg.TracerProvider))
	}

	threshold := cfg.FailureThreshold
	return &Client{
		endpoint: base.String() + "/payments/create",
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport, transportOpts...),
		},
		breaker: gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
			Name:        "payments-backend",
			MaxRequests: 1,
			Timeout:     cfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= threshold
			},
			IsSuccessful: func(err error) bool {
				// Rejected input says nothing about backend health.
				var se *StatusError
				return err == nil || (errors.As(err, &se) && se.Code < 500)
			},
		}),
	}, nil
}

// FetchClientSecret requests a client secret for amount minor units.
func (c *Client) FetchClientSecret(ctx context.Context, amount int64) (string, error) {
	secret, err := c.breaker.Execute(func() (string, error) {
		return c.fetch(ctx, amount)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		zctx.From(ctx).Warn("Payments backend circuit open", zap.Int64("amount", amount))
		return "", errors.Wrap(err, "payments backend unavailable")
	}
	return secret, err
}

func (c *Client) fetch(ctx context.Context, amount int64) (string, error) {
	u := c.endpoint + "?total=" + strconv.FormatInt(amount, 10)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, http.NoBody)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "send request")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", errors.Wrap(err, "read response")
	}
	if resp.StatusCode != http.StatusCreated {
		return "", &StatusError{Code: resp.StatusCode, Message: decodeMessage(body)}
	}

	secret, err := decodeSecret(body)
	if err != nil {
		return "", err
	}
	return secret, nil
}

// decodeSecret reads {"clientSecret": "..."}.
func decodeSecret(body []byte) (string, error) {
	var secret string
	d := jx.DecodeBytes(body)
	if err := d.Obj(func(d *jx.Decoder, key string) error {
		if key != "clientSecret" {
			return d.Skip()
		}
		v, err := d.Str()
		if err != nil {
			return err
		}
		secret = v
		return nil
	}); err != nil {
		return "", errors.Wrap(err, "decode response")
	}
	if secret == "" {
		return "", errors.New("response has no client secret")
	}
	return secret, nil
}

// decodeMessage extracts "message" from an error body, best effort.
func decodeMessage(body []byte) string {
	var msg string
	d := jx.DecodeBytes(body)
	_ = d.Obj(func(d *jx.Decoder, key string) error {
		if key != "message" {
			return d.Skip()
		}
		v, err := d.Str()
		msg = v
		return err
	})
	return msg
}

// Func adapts an in-process function to the fetcher interface, used when the
// payments backend runs inside the same binary.
type Func func(ctx context.Context, amount int64) (string, error)

// FetchClientSecret calls f.
func (f Func) FetchClientSecret(ctx context.Context, amount int64) (string, error) {
	return f(ctx, amount)
}
