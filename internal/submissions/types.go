package submissions

import "time"

// Ledger statuses
const (
	StatusReceived = "RECEIVED"
	StatusRecorded = "RECORDED"
)

// EventType tags cart.submitted messages on the queue.
const EventType = "cart.submitted"

// Event is published after the backend accepted a cart submission.
type Event struct {
	Type           string    `json:"type"`
	SubmissionID   string    `json:"submission_id"`
	CartSession    string    `json:"cart_session"`
	DecoratorID    int64     `json:"decorador_id"`
	EstimatedValue string    `json:"estimated_value"`
	ItemCount      int       `json:"item_count"`
	QuoteCount     int       `json:"quote_count"`
	ServiceType    string    `json:"service_type"`
	BackendMessage string    `json:"backend_message,omitempty"`
	SubmittedAt    time.Time `json:"submitted_at"`
	CorrelationID  string    `json:"correlation_id,omitempty"`
}

// Record is the item stored in the submissions DynamoDB table.
type Record struct {
	SubmissionID   string    `dynamodbav:"submission_id"` // PK
	CartSession    string    `dynamodbav:"cart_session"`
	Status         string    `dynamodbav:"status"` // RECEIVED | RECORDED
	DecoratorID    int64     `dynamodbav:"decorador_id"`
	EstimatedValue string    `dynamodbav:"estimated_value"` // decimal text, no float rounding
	ItemCount      int       `dynamodbav:"item_count"`
	QuoteCount     int       `dynamodbav:"quote_count"`
	ServiceType    string    `dynamodbav:"service_type,omitempty"`
	BackendMessage string    `dynamodbav:"backend_message,omitempty"`
	SubmittedAt    time.Time `dynamodbav:"submitted_at"`
	CreatedAt      time.Time `dynamodbav:"created_at"`
	UpdatedAt      time.Time `dynamodbav:"updated_at"`
}

func RecordFromEvent(ev Event) Record {
	return Record{
		SubmissionID:   ev.SubmissionID,
		CartSession:    ev.CartSession,
		Status:         StatusReceived,
		DecoratorID:    ev.DecoratorID,
		EstimatedValue: ev.EstimatedValue,
		ItemCount:      ev.ItemCount,
		QuoteCount:     ev.QuoteCount,
		ServiceType:    ev.ServiceType,
		BackendMessage: ev.BackendMessage,
		SubmittedAt:    ev.SubmittedAt,
	}
}
