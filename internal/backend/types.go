package backend

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
)

// Actions understood by the orders endpoint.
const (
	ActionCreate            = "create"
	ActionGetFirstDecorator = "get_first_decorator"
)

var (
	// ErrNonJSONResponse means the backend answered with something other than JSON.
	ErrNonJSONResponse = errors.New("backend returned a non-JSON response")
	// ErrNoDecorator means get_first_decorator answered without a usable id.
	ErrNoDecorator = errors.New("backend returned no decorator")
)

// HTTPError is a non-2xx answer. Message is the backend's own message when it sent one.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend status %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend status %d", e.StatusCode)
}

// CreateOrderRequest is the consolidated order posted with action "create".
// Line items and quotes travel as nested arrays.
type CreateOrderRequest struct {
	Action         string                    `json:"action"`
	Client         string                    `json:"client"`
	Email          string                    `json:"email"`
	Phone          string                    `json:"phone"`
	EventDate      string                    `json:"event_date"`
	EventTime      string                    `json:"event_time"`
	EventLocation  string                    `json:"event_location"`
	ServiceType    string                    `json:"service_type"`
	Description    string                    `json:"description"`
	Notes          string                    `json:"notes"`
	ArcSizeMeters  *float64                  `json:"tamanho_arco_m"`
	EstimatedValue json.Number               `json:"estimated_value"`
	DecoratorID    int64                     `json:"decorador_id"`
	CreatedVia     string                    `json:"created_via"`
	CartItems      []cart.CartLineItem       `json:"cart_items"`
	CustomQuotes   []cart.CustomQuoteRequest `json:"custom_quotes"`
}

// Response is the common envelope of the orders endpoint.
type Response struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	DecoratorID json.RawMessage `json:"decorator_id,omitempty"`
	Body        json.RawMessage `json:"-"`
}
