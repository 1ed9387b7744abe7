package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imrishuroy/go-decor-cartflow/internal/submissions"
)

// memLedger mimics the conditional writes of submissions.Store.
type memLedger struct {
	records   map[string]submissions.Record
	createErr error
}

func newMemLedger() *memLedger {
	return &memLedger{records: map[string]submissions.Record{}}
}

func (m *memLedger) Create(ctx context.Context, rec submissions.Record) (bool, error) {
	if m.createErr != nil {
		return false, m.createErr
	}
	if _, ok := m.records[rec.SubmissionID]; ok {
		return false, nil
	}
	m.records[rec.SubmissionID] = rec
	return true, nil
}

func (m *memLedger) Get(ctx context.Context, id string) (*submissions.Record, error) {
	rec, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (m *memLedger) UpdateStatus(ctx context.Context, id, expected, next string) error {
	rec, ok := m.records[id]
	if !ok || rec.Status != expected {
		return submissions.ErrStatusMismatch
	}
	rec.Status = next
	m.records[id] = rec
	return nil
}

func message(t *testing.T, id string, ev submissions.Event) events.SQSMessage {
	t.Helper()
	body, err := json.Marshal(ev)
	require.NoError(t, err)
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func submittedEvent(id string) submissions.Event {
	return submissions.Event{
		Type:           submissions.EventType,
		SubmissionID:   id,
		CartSession:    "sess-1",
		DecoratorID:    5,
		EstimatedValue: "250",
		ItemCount:      1,
		QuoteCount:     1,
		SubmittedAt:    time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestHandle_RecordsSubmission(t *testing.T) {
	ledger := newMemLedger()
	p := NewProcessor(ledger, nil)

	resp, err := p.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{message(t, "m1", submittedEvent("s1"))},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)

	rec := ledger.records["s1"]
	assert.Equal(t, submissions.StatusRecorded, rec.Status)
	assert.Equal(t, "250", rec.EstimatedValue)
	assert.Equal(t, int64(5), rec.DecoratorID)
}

func TestHandle_RedeliveryIsNoop(t *testing.T) {
	ledger := newMemLedger()
	p := NewProcessor(ledger, nil)
	msg := message(t, "m1", submittedEvent("s1"))

	for i := 0; i < 2; i++ {
		resp, err := p.Handle(context.Background(), events.SQSEvent{Records: []events.SQSMessage{msg}})
		require.NoError(t, err)
		assert.Empty(t, resp.BatchItemFailures)
	}
	assert.Equal(t, submissions.StatusRecorded, ledger.records["s1"].Status)
}

func TestHandle_ResumesStuckReceived(t *testing.T) {
	ledger := newMemLedger()
	rec := submissions.RecordFromEvent(submittedEvent("s1"))
	ledger.records["s1"] = rec

	p := NewProcessor(ledger, nil)
	resp, err := p.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{message(t, "m1", submittedEvent("s1"))},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Equal(t, submissions.StatusRecorded, ledger.records["s1"].Status)
}

func TestHandle_DropsMalformedAndForeignMessages(t *testing.T) {
	ledger := newMemLedger()
	p := NewProcessor(ledger, nil)

	other := submittedEvent("s2")
	other.Type = "order.created"
	resp, err := p.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			{MessageId: "bad", Body: "{not json"},
			message(t, "other", other),
		},
	})
	require.NoError(t, err)
	assert.Empty(t, resp.BatchItemFailures)
	assert.Empty(t, ledger.records)
}

func TestHandle_ReportsStorageFailures(t *testing.T) {
	ledger := newMemLedger()
	ledger.createErr = errors.New("throttled")
	p := NewProcessor(ledger, nil)

	resp, err := p.Handle(context.Background(), events.SQSEvent{
		Records: []events.SQSMessage{
			message(t, "m1", submittedEvent("s1")),
			message(t, "m2", submittedEvent("s2")),
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.BatchItemFailures, 2)
	assert.Equal(t, "m1", resp.BatchItemFailures[0].ItemIdentifier)
	assert.Equal(t, "m2", resp.BatchItemFailures[1].ItemIdentifier)
}
