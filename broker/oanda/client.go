package oanda

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
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rustyeddy/atlas/broker"
	"go.uber.org/zap"
)

const (
	// PracticeURL is the URL for OANDA's practice/demo environment
	PracticeURL = "https://api-fxpractice.oanda.com"
	// LiveURL is the URL for OANDA's live trading environment
	LiveURL = "https://api-fxtrade.oanda.com"

	SessionHeader = "X-Atlas-Session"
)

func BaseURL(env string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "practice", "demo":
		return PracticeURL, nil
	case "live":
		return LiveURL, nil
	default:
		return "", fmt.Errorf("unknown OANDA env %q (want practice|live)", env)
	}
}

// Client is an OANDA v3 REST client implementing broker.Gateway.
type Client struct {
	baseURL   string
	token     string
	accountID string
	timeout   time.Duration
	log       *zap.Logger
	now       func() time.Time

	mu         sync.Mutex
	httpClient *http.Client
	session    string
}

var _ broker.Gateway = (*Client)(nil)

// NewClient creates a client for cfg with a fresh session.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	base := cfg.BaseURL
	if base == "" {
		var err error
		if base, err = BaseURL(cfg.Environment); err != nil {
			return nil, err
		}
	}
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	c := &Client{
		baseURL:   strings.TrimRight(base, "/"),
		token:     cfg.Token,
		accountID: cfg.AccountID,
		timeout:   timeout,
		log:       log,
		now:       time.Now,
	}
	c.httpClient, c.session = c.newSession()
	return c, nil
}

func (c *Client) newSession() (*http.Client, string) {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	return &http.Client{Transport: tr, Timeout: c.timeout}, uuid.NewString()
}

// Session returns the current session identifier.
func (c *Client) Session() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// Reconnect drops pooled connections and starts a new session.
func (c *Client) Reconnect(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.httpClient.CloseIdleConnections()
	c.httpClient, c.session = c.newSession()
	c.log.Info("oanda session opened", zap.String("session", c.session))
	return c.session, nil
}

func (c *Client) client() (*http.Client, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.httpClient, c.session
}

// do sends a request and decodes a JSON response into out. Transport
// failures and gateway outages are reported as broker.ErrDisconnected;
// other non-2xx responses as *APIError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return err
	}
	u.Path = path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	hc, session := c.client()
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set(SessionHeader, session)
	req.Header.Set("Accept-Datetime-Format", "RFC3339")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%s %s: %w: %v", method, path, broker.ErrDisconnected, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if jerr := json.Unmarshal(b, apiErr); jerr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(b))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// APIError is a non-2xx OANDA response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"errorCode,omitempty"`
	Message    string `json:"errorMessage"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("oanda http %d: %s", e.StatusCode, e.Message)
}

// Is maps gateway outages to broker.ErrDisconnected.
func (e *APIError) Is(target error) bool {
	if target != broker.ErrDisconnected {
		return false
	}
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}
