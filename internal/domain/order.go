package domain

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

// Order is materialized from a doubly-accepted offer. Immutable once created;
// it carries a price snapshot and does not reference negotiation history.
type Order struct {
	ID         int64       `json:"id"`
	Number     string      `json:"number"`
	CustomerID int64       `json:"customer_id"`
	TailorID   int64       `json:"tailor_id"`
	OfferID    int64       `json:"offer_id"`
	Status     OrderStatus `json:"status"`
	TotalPrice float64     `json:"total_price"`
	CreatedAt  time.Time   `json:"created_at"`

	Items   []OrderItem `json:"items,omitempty"`
	Invoice *Invoice    `json:"invoice,omitempty"`
}

type OrderItem struct {
	ID          int64   `json:"id"`
	OrderID     int64   `json:"order_id"`
	ServiceName string  `json:"service_name"`
	Price       float64 `json:"price"`
}

type Invoice struct {
	ID       int64     `json:"id"`
	OrderID  int64     `json:"order_id"`
	Number   string    `json:"number"`
	Subtotal float64   `json:"subtotal"`
	Total    float64   `json:"total"`
	IssuedAt time.Time `json:"issued_at"`
}
