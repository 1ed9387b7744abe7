package cart

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var errNotObject = errors.New("cart record is not a JSON object")

// MaxQuantity bounds every quantity the Store writes or reads back.
const MaxQuantity = math.MaxInt32

// Money bounds. Values outside them read back as zero.
const (
	AmountScale = 2
	minExponent = -20
	maxExponent = 12
)

// MaxAmount is the largest price or estimated value accepted.
var MaxAmount = decimal.New(1, 9)

// AmountInRange reports whether d is a non-negative amount no larger than
// MaxAmount. The exponent is checked first so huge or tiny exponents never
// get rescaled.
func AmountInRange(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	exp := d.Exponent()
	if exp < minExponent || exp > maxExponent {
		return false
	}
	return !d.IsNegative() && d.LessThanOrEqual(MaxAmount)
}

// HasAmountScale reports whether d has at most AmountScale decimal places.
func HasAmountScale(d decimal.Decimal) bool {
	exp := d.Exponent()
	switch {
	case exp >= 0 || d.IsZero():
		return true
	case exp < minExponent:
		return false
	}
	return d.Equal(d.Truncate(AmountScale))
}

// ParseQuantity reads the leading integer of raw ("3", " 4 ", "2un").
// ok is false when there is no integer or it is not positive.
func ParseQuantity(raw string) (int, bool) {
	s := strings.TrimSpace(raw)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil || n <= 0 || n > MaxQuantity {
		return 0, false
	}
	return n, true
}

// ParseDecimal reads a JSON number or numeric string. Anything else,
// including negatives and amounts outside AmountInRange, yields zero.
func ParseDecimal(raw json.RawMessage) decimal.Decimal {
	s, ok := scalar(raw)
	if !ok {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !AmountInRange(d) {
		return decimal.Zero
	}
	return d
}

// coerceQuantity is ParseQuantity for stored values, defaulting to 1.
func coerceQuantity(raw json.RawMessage) int {
	s, ok := scalar(raw)
	if !ok {
		return 1
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if f >= 1 && f <= MaxQuantity {
			return int(f)
		}
		return 1
	}
	if n, ok := ParseQuantity(s); ok {
		return n
	}
	return 1
}

func parseID(raw json.RawMessage) string {
	s, _ := scalar(raw)
	return s
}

func parseOptionalFloat(raw json.RawMessage) *float64 {
	s, ok := scalar(raw)
	if !ok || s == "" {
		return nil
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
	if err != nil || f <= 0 || math.IsInf(f, 0) {
		return nil
	}
	return &f
}

func parseOptionalInt(raw json.RawMessage) *int64 {
	s, ok := scalar(raw)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil || n <= 0 {
		return nil
	}
	return &n
}

// scalar unwraps a JSON string or number into its trimmed text.
func scalar(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", false
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", false
		}
		return strings.TrimSpace(s), true
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return string(raw), true
	}
	return "", false
}

func number(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}

func isObject(data []byte) bool {
	data = bytes.TrimSpace(data)
	return len(data) > 0 && data[0] == '{'
}

func (li *CartLineItem) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return errNotObject
	}
	type alias CartLineItem
	aux := struct {
		*alias
		ID            json.RawMessage `json:"id"`
		Price         json.RawMessage `json:"price"`
		Quantity      json.RawMessage `json:"quantity"`
		ArcSizeMeters json.RawMessage `json:"arcSizeMeters"`
		ProviderID    json.RawMessage `json:"providerId"`
	}{alias: (*alias)(li)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	li.ID = parseID(aux.ID)
	li.Price = ParseDecimal(aux.Price)
	li.Quantity = coerceQuantity(aux.Quantity)
	li.ArcSizeMeters = parseOptionalFloat(aux.ArcSizeMeters)
	li.ProviderID = parseOptionalInt(aux.ProviderID)
	return nil
}

func (li CartLineItem) MarshalJSON() ([]byte, error) {
	type alias CartLineItem
	return json.Marshal(struct {
		alias
		Price json.Number `json:"price"`
	}{alias(li), number(li.Price)})
}

func (q *CustomQuoteRequest) UnmarshalJSON(data []byte) error {
	if !isObject(data) {
		return errNotObject
	}
	type alias CustomQuoteRequest
	aux := struct {
		*alias
		ID             json.RawMessage `json:"id"`
		ArcSizeMeters  json.RawMessage `json:"arcSizeMeters"`
		EstimatedValue json.RawMessage `json:"estimatedValue"`
	}{alias: (*alias)(q)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	q.ID = parseID(aux.ID)
	q.ArcSizeMeters = parseOptionalFloat(aux.ArcSizeMeters)
	q.EstimatedValue = ParseDecimal(aux.EstimatedValue)
	return nil
}

func (q CustomQuoteRequest) MarshalJSON() ([]byte, error) {
	type alias CustomQuoteRequest
	return json.Marshal(struct {
		alias
		EstimatedValue json.Number `json:"estimatedValue"`
	}{alias(q), number(q.EstimatedValue)})
}
