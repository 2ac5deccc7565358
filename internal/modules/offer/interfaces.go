package offer

import (
	"context"

	"tailorlink/internal/domain"
)

// OfferRepository defines the interface for offer persistence. Status moves
// go through Transition, which lands the guarded update and its audit entry
// in one transaction: a concurrent transition on the same offer cannot be
// silently overwritten, and a committed move is never missing its history row.
type OfferRepository interface {
	Create(ctx context.Context, o *domain.Offer) error
	GetByID(ctx context.Context, id int64) (*domain.Offer, error)
	GetWithHistory(ctx context.Context, id int64) (*domain.Offer, error)
	LatestNegotiation(ctx context.Context, offerID int64) (*domain.NegotiationEntry, error)
	ListByParticipant(ctx context.Context, userID int64) ([]domain.Offer, error)
	Transition(ctx context.Context, id int64, from, to domain.OfferStatus, extra map[string]any, entry *domain.NegotiationEntry) error
}

// UserDirectory resolves identities and roles.
type UserDirectory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
}

// OrderMaterializer converts a finalized offer into an Order + Invoice pair.
type OrderMaterializer interface {
	CreateFromOffer(ctx context.Context, offer *domain.Offer) (*domain.Order, error)
}

// Notifier persists durable notifications and pushes best-effort real-time
// events. Every method is fire-and-forget from the engine's point of view.
type Notifier interface {
	NotifyOfferReceived(ctx context.Context, tailorID, offerID int64, amount float64) error
	NotifyOfferCountered(ctx context.Context, recipientID, offerID int64, amount float64) error
	NotifyOfferHalfAccepted(ctx context.Context, recipientID, offerID int64) error
	NotifyOfferAccepted(ctx context.Context, recipientID, offerID int64, finalAmount float64) error
	NotifyOfferRejected(ctx context.Context, recipientID, offerID int64) error
	NotifyOfferCancelled(ctx context.Context, recipientID, offerID int64) error
	NotifyOrderCreated(ctx context.Context, recipientID, offerID, orderID int64, total float64) error
}
