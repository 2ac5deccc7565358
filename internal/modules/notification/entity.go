package notification

import "time"

// Type represents notification type
type Type string

const (
	TypeOfferReceived     Type = "offer_received"      // Tailor: new offer from a customer
	TypeOfferCountered    Type = "offer_countered"     // Other party: counter-offer placed
	TypeOfferHalfAccepted Type = "offer_half_accepted" // Other party: one side accepted
	TypeOfferAccepted     Type = "offer_accepted"      // Both: offer fully accepted
	TypeOfferRejected     Type = "offer_rejected"      // Both: offer rejected by the tailor
	TypeOfferCancelled    Type = "offer_cancelled"     // Both: offer cancelled by the customer
	TypeOrderCreated      Type = "order_created"       // Both: order materialized from offer
)

// Notification is the durable record; the websocket push is only a
// best-effort accelerant on top of it.
type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Type      Type      `json:"type"`
	Title     string    `json:"title"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
