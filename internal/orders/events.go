package orders

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const EventOrderPlaced = "OrderPlaced"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

type OrderPlacedPayload struct {
	OrderID   int64       `json:"order_id"`
	UserID    string      `json:"user_id"`
	Items     []LineInput `json:"items"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewOrderPlaced builds the v1 envelope published after an order commits.
func NewOrderPlaced(producer, traceID, userID string, p Placed, items []LineInput) (Envelope, error) {
	payload, err := json.Marshal(OrderPlacedPayload{
		OrderID:   p.OrderID,
		UserID:    userID,
		Items:     items,
		CreatedAt: p.CreatedAt,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: strconv.FormatInt(p.OrderID, 10),
		Payload:       payload,
	}, nil
}
