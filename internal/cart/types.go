package cart

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// Quote defaults stamped by AddQuote.
const (
	QuoteStatusPending = "pendente"
	CreatedViaClient   = "client"
	DefaultEventTime   = "10:00"
)

// CartLineItem is a catalog-priced entry with a meaningful quantity.
// Identity is ID, but the Store never deduplicates on append.
type CartLineItem struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"`
	Quantity      int             `json:"quantity"`
	ServiceType   string          `json:"serviceType"`
	ArcSizeMeters *float64        `json:"arcSizeMeters,omitempty"`
	ProviderID    *int64          `json:"providerId,omitempty"`
}

// LineTotal is price × quantity.
func (li CartLineItem) LineTotal() decimal.Decimal {
	return li.Price.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// CustomQuoteRequest is a not-yet-priced service request. It has no quantity:
// it always counts as one entry in the totals.
type CustomQuoteRequest struct {
	ID             string          `json:"id"`
	ClientName     string          `json:"clientName"`
	ClientEmail    string          `json:"clientEmail"`
	ClientPhone    string          `json:"clientPhone,omitempty"`
	EventDate      string          `json:"eventDate"`
	EventTime      string          `json:"eventTime"`
	EventLocation  string          `json:"eventLocation"`
	ServiceType    string          `json:"serviceType"`
	Description    string          `json:"description,omitempty"`
	ArcSizeMeters  *float64        `json:"arcSizeMeters,omitempty"`
	Notes          string          `json:"notes,omitempty"`
	EstimatedValue decimal.Decimal `json:"estimatedValue"`
	Status         string          `json:"status"`
	CreatedVia     string          `json:"createdVia"`
	ImageDataURI   string          `json:"imageDataUri,omitempty"`
	CreatedAt      string          `json:"createdAt"`
}

// QuoteDraft is what the client fills in before AddQuote stamps it.
type QuoteDraft struct {
	ClientName    string
	ClientEmail   string
	ClientPhone   string
	EventDate     string
	EventTime     string
	EventLocation string
	ServiceType   string
	Description   string
	ArcSizeMeters *float64
	Notes         string
	ImageDataURI  string
}

type Totals struct {
	TotalItemCount int             `json:"totalItemCount"`
	Subtotal       decimal.Decimal `json:"subtotal"`
}

func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		TotalItemCount int         `json:"totalItemCount"`
		Subtotal       json.Number `json:"subtotal"`
	}{t.TotalItemCount, number(t.Subtotal)})
}

// Snapshot is one consistent read of a session.
type Snapshot struct {
	Items  []CartLineItem       `json:"cart_items"`
	Quotes []CustomQuoteRequest `json:"custom_quotes"`
	Totals Totals               `json:"totals"`
}

// ComputeTotals sums line items (price × quantity, quantity units) and
// quotes (estimated value, one unit each).
func ComputeTotals(items []CartLineItem, quotes []CustomQuoteRequest) Totals {
	t := Totals{Subtotal: decimal.Zero}
	for _, it := range items {
		t.Subtotal = t.Subtotal.Add(it.LineTotal())
		t.TotalItemCount += it.Quantity
	}
	for _, q := range quotes {
		t.Subtotal = t.Subtotal.Add(q.EstimatedValue)
		t.TotalItemCount++
	}
	return t
}
