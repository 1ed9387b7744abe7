package submissions

import (
	"context"
	"encoding/json"
	"fmt"
)

// Sender is satisfied by aws.Publisher.
type Sender interface {
	SendMessage(ctx context.Context, messageBody string, attributes map[string]string) error
}

// Notifier publishes cart.submitted events.
type Notifier struct {
	sender Sender
}

func NewNotifier(sender Sender) *Notifier {
	return &Notifier{sender: sender}
}

func (n *Notifier) PublishSubmitted(ctx context.Context, ev Event) error {
	ev.Type = EventType
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	return n.sender.SendMessage(ctx, string(body), map[string]string{
		"event_type":     EventType,
		"submission_id":  ev.SubmissionID,
		"cart_session":   ev.CartSession,
		"correlation_id": ev.CorrelationID,
	})
}
