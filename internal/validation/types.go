package validation

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
)

// Service types whose order form must carry an arc size.
var ArcServiceTypes = []string{
	"arco-tradicional",
	"arco-desconstruido",
	"arco-organico",
	"arco-de-baloes",
}

// IsArcService reports whether serviceType needs tamanho_arco_m.
func IsArcService(serviceType string) bool {
	s := strings.ToLower(strings.TrimSpace(serviceType))
	for _, t := range ArcServiceTypes {
		if s == t {
			return true
		}
	}
	return false
}

// OrderForm is the contact/event form submitted together with the cart.
type OrderForm struct {
	Client        string   `json:"client" validate:"required,notblank"`
	Email         string   `json:"email" validate:"required,email"`
	Phone         string   `json:"phone,omitempty"`
	EventDate     string   `json:"event_date" validate:"required,datetime=2006-01-02"`
	EventTime     string   `json:"event_time" validate:"required,datetime=15:04"`
	EventLocation string   `json:"event_location" validate:"required,notblank"`
	ServiceType   string   `json:"service_type" validate:"required,notblank"`
	Description   string   `json:"description,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	ArcSizeMeters *float64 `json:"tamanho_arco_m,omitempty" validate:"omitempty,gt=0"` // required for arc services
}

// LineItemInput is the body of POST /cart/items.
type LineItemInput struct {
	ID            string          `json:"id" validate:"required,notblank"`
	Name          string          `json:"name" validate:"required,notblank"`
	Description   string          `json:"description,omitempty"`
	Price         decimal.Decimal `json:"price"` // 0..cart.MaxAmount, 2 decimals; checked at struct level
	Quantity      int             `json:"quantity" validate:"omitempty,min=1,max=2147483647"`
	ServiceType   string          `json:"serviceType" validate:"required,notblank"`
	ArcSizeMeters *float64        `json:"arcSizeMeters,omitempty" validate:"omitempty,gt=0"`
	ProviderID    *int64          `json:"providerId,omitempty" validate:"omitempty,gt=0"`
}

func (in LineItemInput) ToLineItem() cart.CartLineItem {
	qty := in.Quantity
	if qty < 1 {
		qty = 1
	}
	return cart.CartLineItem{
		ID:            in.ID,
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Quantity:      qty,
		ServiceType:   in.ServiceType,
		ArcSizeMeters: in.ArcSizeMeters,
		ProviderID:    in.ProviderID,
	}
}

// QuoteDraftInput is the body of POST /cart/quotes.
type QuoteDraftInput struct {
	ClientName    string   `json:"clientName" validate:"required,notblank"`
	ClientEmail   string   `json:"clientEmail" validate:"required,email"`
	ClientPhone   string   `json:"clientPhone,omitempty"`
	EventDate     string   `json:"eventDate" validate:"required,datetime=2006-01-02"`
	EventTime     string   `json:"eventTime,omitempty" validate:"omitempty,datetime=15:04"`
	EventLocation string   `json:"eventLocation" validate:"required,notblank"`
	ServiceType   string   `json:"serviceType" validate:"required,notblank"`
	Description   string   `json:"description,omitempty"`
	ArcSizeMeters *float64 `json:"arcSizeMeters,omitempty" validate:"omitempty,gt=0"`
	Notes         string   `json:"notes,omitempty"`
	ImageDataURI  string   `json:"imageDataUri,omitempty" validate:"omitempty,datauri"`
}

func (in QuoteDraftInput) ToDraft() cart.QuoteDraft {
	return cart.QuoteDraft{
		ClientName:    in.ClientName,
		ClientEmail:   in.ClientEmail,
		ClientPhone:   in.ClientPhone,
		EventDate:     in.EventDate,
		EventTime:     in.EventTime,
		EventLocation: in.EventLocation,
		ServiceType:   in.ServiceType,
		Description:   in.Description,
		ArcSizeMeters: in.ArcSizeMeters,
		Notes:         in.Notes,
		ImageDataURI:  in.ImageDataURI,
	}
}
