package order

import (
	"context"

	"tailorlink/internal/domain"
)

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	ListByParticipant(ctx context.Context, userID int64) ([]domain.Order, error)
}

// OfferStamper marks an offer as converted after the order exists.
type OfferStamper interface {
	MarkConverted(ctx context.Context, offerID, orderID int64) error
}
