package order

import (
	"context"
	"errors"

	"tailorlink/internal/domain"
	"tailorlink/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CustomOrderServiceName is the synthetic line item a negotiated offer
// materializes into.
const CustomOrderServiceName = "Custom Order"

type Service struct {
	orders OrderRepository
	offers OfferStamper
}

func NewService(orders OrderRepository, offers OfferStamper) *Service {
	return &Service{orders: orders, offers: offers}
}

// CreateFromOffer materializes a doubly-accepted offer into an immutable
// Order + Invoice pair and stamps the conversion back onto the offer.
// The caller guarantees at-most-once invocation via the accepted terminal
// state; the unique index on orders.offer_id backs that up at the store.
func (s *Service) CreateFromOffer(ctx context.Context, offer *domain.Offer) (*domain.Order, error) {
	if offer.Status != domain.OfferAccepted || offer.FinalAmount == nil {
		return nil, ErrNotFinalized
	}
	if offer.ConvertedToOrder {
		return nil, ErrAlreadyConverted
	}

	amount := *offer.FinalAmount
	o := &domain.Order{
		Number:     uuid.New().String(),
		CustomerID: offer.CustomerID,
		TailorID:   offer.TailorID,
		OfferID:    offer.ID,
		Status:     domain.OrderPending,
		TotalPrice: amount,
		Items: []domain.OrderItem{
			{ServiceName: CustomOrderServiceName, Price: amount},
		},
		Invoice: &domain.Invoice{
			Number:   uuid.New().String(),
			Subtotal: amount,
			Total:    amount,
		},
	}

	if err := s.orders.Create(ctx, o); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrAlreadyConverted
		}
		return nil, err
	}

	if err := s.offers.MarkConverted(ctx, offer.ID, o.ID); err != nil {
		if errors.Is(err, repository.ErrStaleOffer) {
			return nil, ErrAlreadyConverted
		}
		return nil, err
	}

	offer.ConvertedToOrder = true
	offer.OrderID = &o.ID
	return o, nil
}

func (s *Service) GetByID(ctx context.Context, orderID, actorID int64) (*domain.Order, error) {
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if o.CustomerID != actorID && o.TailorID != actorID {
		return nil, ErrForbidden
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return s.orders.ListByParticipant(ctx, userID)
}
