package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aws/aws-lambda-go/events"

	"github.com/imrishuroy/go-decor-cartflow/internal/logger"
	"github.com/imrishuroy/go-decor-cartflow/internal/submissions"
)

// Ledger is the part of submissions.Store the worker uses.
type Ledger interface {
	Create(ctx context.Context, rec submissions.Record) (bool, error)
	Get(ctx context.Context, submissionID string) (*submissions.Record, error)
	UpdateStatus(ctx context.Context, submissionID, expectedStatus, newStatus string) error
}

// Processor records cart.submitted events in the submissions ledger.
type Processor struct {
	ledger Ledger
	log    *logger.Logger
}

func NewProcessor(ledger Ledger, log *logger.Logger) *Processor {
	if log == nil {
		log = logger.Nop()
	}
	return &Processor{ledger: ledger, log: log}
}

// Handle processes a batch and reports the messages that should be retried.
// Malformed bodies are logged and dropped; retrying them cannot help.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		mctx := p.log.WithField(ctx, "message_id", rec.MessageId)
		if err := p.processMessage(mctx, rec); err != nil {
			p.log.Error(mctx, "processing message", err)
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{
				ItemIdentifier: rec.MessageId,
			})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var ev submissions.Event
	if err := json.Unmarshal([]byte(rec.Body), &ev); err != nil {
		p.log.Warn(ctx, "dropping malformed message", err)
		return nil
	}
	if ev.Type != submissions.EventType || ev.SubmissionID == "" {
		p.log.Warn(p.log.WithField(ctx, "event_type", ev.Type), "dropping unexpected message", nil)
		return nil
	}
	ctx = p.log.WithField(p.log.WithSession(ctx, ev.CartSession), "submission_id", ev.SubmissionID)

	created, err := p.ledger.Create(ctx, submissions.RecordFromEvent(ev))
	if err != nil {
		return fmt.Errorf("create submission: %w", err)
	}
	if !created {
		existing, err := p.ledger.Get(ctx, ev.SubmissionID)
		if err != nil {
			return fmt.Errorf("fetch submission: %w", err)
		}
		if existing != nil && existing.Status == submissions.StatusRecorded {
			p.log.Debug(ctx, "submission already recorded")
			return nil
		}
	}

	err = p.ledger.UpdateStatus(ctx, ev.SubmissionID, submissions.StatusReceived, submissions.StatusRecorded)
	if errors.Is(err, submissions.ErrStatusMismatch) {
		// a concurrent delivery finished first
		p.log.Debug(ctx, "submission recorded by another delivery")
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark recorded: %w", err)
	}

	p.log.Info(ctx, "submission recorded")
	return nil
}
