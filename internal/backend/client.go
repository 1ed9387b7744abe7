package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
)

const maxBodyBytes = 1 << 20

type Options struct {
	BaseURL string
	// Timeout bounds every request, including the body read.
	Timeout         time.Duration
	BreakerTimeout  time.Duration
	BreakerFailures uint32
	HTTPClient      *http.Client
	OnStateChange   func(name string, from, to gobreaker.State)
}

// Client talks to the ordering backend's orders endpoint.
type Client struct {
	endpoint string
	http     *http.Client
	timeout  time.Duration
	breaker  *gobreaker.CircuitBreaker[*Response]
}

func NewClient(o Options) *Client {
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures == 0 {
		o.BreakerFailures = 5
	}
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{}
	}
	failures := o.BreakerFailures
	return &Client{
		endpoint: strings.TrimRight(o.BaseURL, "/") + "/orders",
		http:     o.HTTPClient,
		timeout:  o.Timeout,
		breaker: gobreaker.NewCircuitBreaker[*Response](gobreaker.Settings{
			Name:    "orders-backend",
			Timeout: o.BreakerTimeout,
			ReadyToTrip: func(c gobreaker.Counts) bool {
				return c.ConsecutiveFailures >= failures
			},
			IsSuccessful:  breakerSuccess,
			OnStateChange: o.OnStateChange,
		}),
	}
}

// only transport failures, 5xx and garbage bodies count against the breaker
func breakerSuccess(err error) bool {
	if err == nil {
		return true
	}
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode < http.StatusInternalServerError
}

// CreateOrder posts the consolidated order. A decoded success:false answer is
// returned with a nil error; the caller decides what a rejection means.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Response, error) {
	req.Action = ActionCreate
	return c.post(ctx, req)
}

// FirstDecorator asks the backend for its default decorator id.
func (c *Client) FirstDecorator(ctx context.Context) (int64, error) {
	resp, err := c.post(ctx, map[string]string{"action": ActionGetFirstDecorator})
	if err != nil {
		return 0, err
	}
	if !resp.Success {
		return 0, fmt.Errorf("%w: %s", ErrNoDecorator, resp.Message)
	}
	id, ok := decoratorID(resp.DecoratorID)
	if !ok {
		return 0, ErrNoDecorator
	}
	return id, nil
}

func decoratorID(raw json.RawMessage) (int64, bool) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func (c *Client) post(ctx context.Context, payload any) (*Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	resp, err := c.breaker.Execute(func() (*Response, error) {
		return c.do(ctx, body)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("backend unavailable: %w", err)
	}
	return resp, err
}

func (c *Client) do(ctx context.Context, body []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post orders: %w", err)
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	var out Response
	jsonErr := json.Unmarshal(raw, &out)
	out.Body = raw

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		he := &HTTPError{StatusCode: httpResp.StatusCode}
		if jsonErr == nil {
			he.Message = out.Message
		}
		return &out, he
	}
	if jsonErr != nil {
		return nil, fmt.Errorf("%w (status %d)", ErrNonJSONResponse, httpResp.StatusCode)
	}
	return &out, nil
}
