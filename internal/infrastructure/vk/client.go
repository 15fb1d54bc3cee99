// Package vk talks to the VK API: sending messages, fetching profiles and
// resolving screen names.
package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"rosterbot/pkg/circuitbreaker"
	"rosterbot/pkg/retry"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// API error codes that are worth retrying.
const (
	codeUnknown         = 1
	codeTooManyRequests = 6
	codeFlood           = 9
	codeInternal        = 10
)

// APIError is an error object returned in the response envelope.
type APIError struct {
	Code    int    `json:"error_code"`
	Message string `json:"error_msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("vk api error %d: %s", e.Code, e.Message)
}

func (e *APIError) temporary() bool {
	switch e.Code {
	case codeUnknown, codeTooManyRequests, codeFlood, codeInternal:
		return true
	}
	return false
}

type envelope struct {
	Response json.RawMessage `json:"response"`
	Error    *APIError       `json:"error"`
}

// Config holds client settings.
type Config struct {
	APIURL            string
	Token             string
	APIVersion        string
	RequestsPerSecond float64
	Timeout           time.Duration
	Retry             retry.Config
	Breaker           circuitbreaker.Config
}

// Client implements ports.Messenger, ports.ProfileFetcher and
// ports.IdentityResolver.
type Client struct {
	httpClient *http.Client
	apiURL     string
	token      string
	version    string
	limiter    *rate.Limiter
	breaker    *circuitbreaker.CircuitBreaker
	retry      retry.Config
	logger     *zap.SugaredLogger
}

func NewClient(cfg Config, logger *zap.SugaredLogger) *Client {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	limit := rate.Inf
	burst := 1
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
		burst = max(1, int(cfg.RequestsPerSecond))
	}

	breaker := circuitbreaker.New(cfg.Breaker)
	breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warnw("vk api circuit breaker state changed", "from", from.String(), "to", to.String())
	})

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		apiURL:     strings.TrimRight(cfg.APIURL, "/"),
		token:      cfg.Token,
		version:    cfg.APIVersion,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    breaker,
		retry:      cfg.Retry,
		logger:     logger,
	}
}

// call invokes an API method and decodes the "response" field into out.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	raw, err := retry.Do(ctx, c.retry, func(ctx context.Context) (json.RawMessage, error) {
		var resp json.RawMessage
		err := c.breaker.Execute(func() error {
			var err error
			resp, err = c.do(ctx, method, params)
			return err
		}, countsAsFailure)
		if errors.Is(err, circuitbreaker.ErrOpen) {
			return nil, retry.Permanent(err)
		}
		return resp, err
	})
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", method, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method string, params url.Values) (json.RawMessage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, retry.Permanent(err)
	}

	form := url.Values{}
	for k, v := range params {
		form[k] = v
	}
	form.Set("access_token", c.token)
	form.Set("v", c.version)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/"+method, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, retry.Permanent(err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, retry.Permanent(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, retry.Permanent(fmt.Errorf("invalid response body: %w", err))
	}
	if env.Error != nil {
		if env.Error.temporary() {
			return nil, env.Error
		}
		return nil, retry.Permanent(env.Error)
	}
	return env.Response, nil
}

// countsAsFailure keeps caller mistakes (bad ids, permissions) from tripping
// the breaker.
func countsAsFailure(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.temporary()
	}
	return !errors.Is(err, context.Canceled)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

// Healthy reports an error while the circuit breaker is open.
func (c *Client) Healthy(context.Context) error {
	if state := c.breaker.State(); state == circuitbreaker.StateOpen {
		return fmt.Errorf("vk api circuit breaker is %s", state)
	}
	return nil
}
