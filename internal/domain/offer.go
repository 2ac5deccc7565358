package domain

import "time"

type OfferStatus string

const (
	OfferPending            OfferStatus = "pending"
	OfferNegotiating        OfferStatus = "negotiating"
	OfferAcceptedByTailor   OfferStatus = "accepted_by_tailor"
	OfferAcceptedByCustomer OfferStatus = "accepted_by_customer"
	OfferAccepted           OfferStatus = "accepted"
	OfferRejected           OfferStatus = "rejected"
	OfferCancelled          OfferStatus = "cancelled"
)

// IsTerminal reports whether no further transitions are permitted.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferAccepted || s == OfferRejected || s == OfferCancelled
}

type Offer struct {
	ID               int64       `json:"id"`
	CustomerID       int64       `json:"customer_id"`
	TailorID         int64       `json:"tailor_id"`
	Amount           float64     `json:"amount"`
	Description      string      `json:"description"`
	Status           OfferStatus `json:"status"`
	FinalAmount      *float64    `json:"final_amount,omitempty"`
	ConvertedToOrder bool        `json:"converted_to_order"`
	OrderID          *int64      `json:"order_id,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	NegotiationHistory []NegotiationEntry `json:"negotiation_history,omitempty"`
}

// NegotiationEntry is one step of the audit trail. Entries are append-only:
// the sequence reflects commit order and is never rewritten.
type NegotiationEntry struct {
	ID        int64     `json:"id"`
	OfferID   int64     `json:"offer_id"`
	Amount    float64   `json:"amount"`
	Message   string    `json:"message,omitempty"`
	By        int64     `json:"by"`
	ByRole    UserRole  `json:"by_role"`
	Accepted  bool      `json:"accepted"`
	CreatedAt time.Time `json:"created_at"`
}
