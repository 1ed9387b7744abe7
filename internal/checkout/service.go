// Package checkout turns a session's cart into one order on the ordering backend.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	validatorv10 "github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/imrishuroy/go-decor-cartflow/internal/backend"
	"github.com/imrishuroy/go-decor-cartflow/internal/cart"
	"github.com/imrishuroy/go-decor-cartflow/internal/inflight"
	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/submissions"
	"github.com/imrishuroy/go-decor-cartflow/internal/validation"
)

type Options struct {
	Carts   *cart.Manager
	Backend Backend
	Guard   inflight.Guard
	// Publisher and Metrics are optional.
	Publisher         EventPublisher
	Metrics           MetricsRecorder
	Logger            *logger.Logger
	Validator         *validatorv10.Validate
	DefaultProviderID int64
	// OnTransition observes every state change of every attempt.
	OnTransition func(session string, from, to State)
}

type Service struct {
	carts             *cart.Manager
	backend           Backend
	guard             inflight.Guard
	publisher         EventPublisher
	metrics           MetricsRecorder
	log               *logger.Logger
	validate          *validatorv10.Validate
	defaultProviderID int64
	onTransition      func(session string, from, to State)
	nowFunc           func() time.Time
}

func NewService(o Options) *Service {
	if o.Logger == nil {
		o.Logger = logger.Nop()
	}
	if o.Validator == nil {
		o.Validator = validation.New()
	}
	if o.Guard == nil {
		o.Guard = inflight.NewMemoryGuard(2 * time.Minute)
	}
	if o.DefaultProviderID <= 0 {
		o.DefaultProviderID = 1
	}
	return &Service{
		carts:             o.Carts,
		backend:           o.Backend,
		guard:             o.Guard,
		publisher:         o.Publisher,
		metrics:           o.Metrics,
		log:               o.Logger,
		validate:          o.Validator,
		defaultProviderID: o.DefaultProviderID,
		onTransition:      o.OnTransition,
		nowFunc:           time.Now,
	}
}

// attempt tracks the state of a single Submit call.
type attempt struct {
	svc     *Service
	session string
	state   State
}

func (a *attempt) to(next State) {
	prev := a.state
	a.state = next
	if a.svc.onTransition != nil {
		a.svc.onTransition(a.session, prev, next)
	}
}

// Submit validates req.Form against the session's cart, posts the merged
// order and clears the cart once the backend accepts it. The cart is left
// untouched on every other path.
//
// Errors: ErrSubmissionInProgress, *ValidationError, *SubmitError, or a
// wrapped guard error.
func (s *Service) Submit(ctx context.Context, req Request) (*Result, error) {
	ctx = s.log.WithSession(ctx, req.Session)
	lockKey := "checkout:" + req.Session

	token, ok, err := s.guard.Acquire(ctx, lockKey)
	if err != nil {
		s.log.Error(ctx, "acquiring checkout guard", err)
		return nil, &SubmitError{Message: GenericFailureMessage, Cause: err}
	}
	if !ok {
		s.record(ctx, OutcomeRejectedInFlight)
		return nil, ErrSubmissionInProgress
	}
	defer func() {
		if rerr := s.guard.Release(context.WithoutCancel(ctx), lockKey, token); rerr != nil {
			s.log.Warn(ctx, "releasing checkout guard", rerr)
		}
	}()

	a := &attempt{svc: s, session: req.Session, state: Idle}
	store := s.carts.For(req.Session)

	a.to(Validating)
	snap := store.Snapshot(ctx)
	if fields := s.check(req.Form, snap); len(fields) > 0 {
		a.to(ValidationFailed)
		a.to(Idle)
		s.record(ctx, OutcomeValidationFailed)
		return nil, &ValidationError{Fields: fields}
	}

	a.to(Submitting)
	decoratorID := s.resolveProvider(ctx, snap.Items)
	payload := buildOrder(req.Form, snap, decoratorID)

	resp, err := s.backend.CreateOrder(ctx, payload)
	if err != nil || resp == nil || !resp.Success {
		a.to(SubmitFailed)
		a.to(Idle)
		s.record(ctx, OutcomeSubmitFailed)
		serr := submitError(resp, err)
		s.log.Warn(s.log.WithField(ctx, "decorador_id", decoratorID), "cart submission failed", serr)
		return nil, serr
	}

	store.Clear(ctx)
	a.to(Submitted)

	res := &Result{
		State:          Submitted,
		SubmissionID:   uuid.NewString(),
		DecoratorID:    decoratorID,
		EstimatedValue: snap.Totals.Subtotal,
		ItemCount:      len(snap.Items),
		QuoteCount:     len(snap.Quotes),
		Message:        resp.Message,
	}
	s.record(ctx, OutcomeSubmitted)
	s.publish(ctx, req, res)
	s.log.Info(s.log.WithField(ctx, "submission_id", res.SubmissionID), "cart submitted")

	a.to(Idle)
	return res, nil
}

func (s *Service) check(form validation.OrderForm, snap cart.Snapshot) map[string]string {
	fields := map[string]string{}
	if err := s.validate.Struct(form); err != nil {
		fields = validation.FieldErrors(err)
	}
	if len(snap.Items) == 0 && len(snap.Quotes) == 0 {
		fields["cart"] = "is empty"
	}
	return fields
}

// resolveProvider prefers the first line item's provider, then the backend's
// first decorator, then the configured default. Lookup failures only get logged.
func (s *Service) resolveProvider(ctx context.Context, items []cart.CartLineItem) int64 {
	if len(items) > 0 && items[0].ProviderID != nil && *items[0].ProviderID > 0 {
		return *items[0].ProviderID
	}
	id, err := s.backend.FirstDecorator(ctx)
	if err != nil {
		s.log.Warn(ctx, "first decorator lookup failed, using default", err)
		return s.defaultProviderID
	}
	return id
}

func buildOrder(form validation.OrderForm, snap cart.Snapshot, decoratorID int64) backend.CreateOrderRequest {
	items := snap.Items
	if items == nil {
		items = []cart.CartLineItem{}
	}
	quotes := snap.Quotes
	if quotes == nil {
		quotes = []cart.CustomQuoteRequest{}
	}
	return backend.CreateOrderRequest{
		Client:         form.Client,
		Email:          form.Email,
		Phone:          form.Phone,
		EventDate:      form.EventDate,
		EventTime:      form.EventTime,
		EventLocation:  form.EventLocation,
		ServiceType:    form.ServiceType,
		Description:    form.Description,
		Notes:          form.Notes,
		ArcSizeMeters:  form.ArcSizeMeters,
		EstimatedValue: json.Number(snap.Totals.Subtotal.String()),
		DecoratorID:    decoratorID,
		CreatedVia:     cart.CreatedViaClient,
		CartItems:      items,
		CustomQuotes:   quotes,
	}
}

func submitError(resp *backend.Response, cause error) *SubmitError {
	msg := ""
	var he *backend.HTTPError
	switch {
	case errors.As(cause, &he):
		msg = he.Message
	case cause == nil && resp != nil:
		msg = resp.Message
	}
	if msg == "" {
		msg = GenericFailureMessage
	}
	if cause == nil {
		cause = errors.New("backend rejected the order")
	}
	return &SubmitError{Message: msg, Cause: cause}
}

func (s *Service) record(ctx context.Context, outcome string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.RecordSubmission(ctx, outcome); err != nil {
		s.log.Warn(ctx, "recording submission metric", err)
	}
}

// publish is best-effort: the order already exists on the backend.
func (s *Service) publish(ctx context.Context, req Request, res *Result) {
	if s.publisher == nil {
		return
	}
	ev := submissions.Event{
		SubmissionID:   res.SubmissionID,
		CartSession:    req.Session,
		DecoratorID:    res.DecoratorID,
		EstimatedValue: res.EstimatedValue.String(),
		ItemCount:      res.ItemCount,
		QuoteCount:     res.QuoteCount,
		ServiceType:    req.Form.ServiceType,
		BackendMessage: res.Message,
		SubmittedAt:    s.nowFunc().UTC(),
		CorrelationID:  req.CorrelationID,
	}
	if err := s.publisher.PublishSubmitted(ctx, ev); err != nil {
		s.log.Error(s.log.WithField(ctx, "submission_id", res.SubmissionID), "publishing cart.submitted", err)
	}
}
