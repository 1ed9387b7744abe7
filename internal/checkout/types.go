package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/imrishuroy/go-decor-cartflow/internal/backend"
	"github.com/imrishuroy/go-decor-cartflow/internal/submissions"
	"github.com/imrishuroy/go-decor-cartflow/internal/validation"
)

// GenericFailureMessage is shown when the backend gave no message of its own.
const GenericFailureMessage = "Não foi possível enviar sua solicitação. Tente novamente."

// Metric outcomes.
const (
	OutcomeSubmitted        = "submitted"
	OutcomeValidationFailed = "validation_failed"
	OutcomeSubmitFailed     = "submit_failed"
	OutcomeRejectedInFlight = "rejected_in_flight"
)

// ErrSubmissionInProgress rejects a second submit for a session that already has one outstanding.
var ErrSubmissionInProgress = errors.New("a submission for this cart is already in progress")

// State of one submission attempt.
type State int

const (
	Idle State = iota
	Validating
	ValidationFailed
	Submitting
	SubmitFailed
	Submitted
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Validating:
		return "validating"
	case ValidationFailed:
		return "validation_failed"
	case Submitting:
		return "submitting"
	case SubmitFailed:
		return "submit_failed"
	case Submitted:
		return "submitted"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// ValidationError lists every offending field by its JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

// SubmitError is a failed or rejected submission. Message is safe to show to the user.
type SubmitError struct {
	Message string
	Cause   error
}

func (e *SubmitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("submit failed: %s: %v", e.Message, e.Cause)
	}
	return "submit failed: " + e.Message
}

func (e *SubmitError) Unwrap() error { return e.Cause }

// Backend is the part of backend.Client the pipeline needs.
type Backend interface {
	CreateOrder(ctx context.Context, req backend.CreateOrderRequest) (*backend.Response, error)
	FirstDecorator(ctx context.Context) (int64, error)
}

// EventPublisher is satisfied by submissions.Notifier.
type EventPublisher interface {
	PublishSubmitted(ctx context.Context, ev submissions.Event) error
}

// MetricsRecorder is satisfied by aws.MetricsRecorder.
type MetricsRecorder interface {
	RecordSubmission(ctx context.Context, outcome string) error
}

// Request is one checkout attempt for a cart session.
type Request struct {
	Session       string
	Form          validation.OrderForm
	CorrelationID string
}

// Result describes an accepted submission.
type Result struct {
	State          State
	SubmissionID   string
	DecoratorID    int64
	EstimatedValue decimal.Decimal
	ItemCount      int
	QuoteCount     int
	Message        string
}
