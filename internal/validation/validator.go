package validation

import (
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"

	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
)

// New returns a validator that reports fields by their JSON names and knows
// the cross-field rules of the order form, line items and quote drafts.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})

	// required lets "   " through
	_ = v.RegisterValidation("notblank", validators.NotBlank)

	v.RegisterStructValidation(orderFormStructValidation, OrderForm{})
	v.RegisterStructValidation(lineItemStructValidation, LineItemInput{})
	v.RegisterStructValidation(quoteDraftStructValidation, QuoteDraftInput{})

	return v
}

// arc services need a positive arc size
func orderFormStructValidation(sl validatorv10.StructLevel) {
	f := sl.Current().Interface().(OrderForm)
	if IsArcService(f.ServiceType) && f.ArcSizeMeters == nil {
		sl.ReportError(f.ArcSizeMeters, "tamanho_arco_m", "ArcSizeMeters", "required_for_arc", f.ServiceType)
	}
}

func quoteDraftStructValidation(sl validatorv10.StructLevel) {
	q := sl.Current().Interface().(QuoteDraftInput)
	if IsArcService(q.ServiceType) && q.ArcSizeMeters == nil {
		sl.ReportError(q.ArcSizeMeters, "arcSizeMeters", "ArcSizeMeters", "required_for_arc", q.ServiceType)
	}
}

func lineItemStructValidation(sl validatorv10.StructLevel) {
	in := sl.Current().Interface().(LineItemInput)
	switch {
	case in.Price.IsNegative():
		sl.ReportError(in.Price, "price", "Price", "gte", "0")
	case !cart.HasAmountScale(in.Price):
		sl.ReportError(in.Price, "price", "Price", "decimals", "2")
	case !cart.AmountInRange(in.Price):
		sl.ReportError(in.Price, "price", "Price", "max", cart.MaxAmount.String())
	}
}
