package offer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"tailorlink/internal/domain"
	"tailorlink/internal/mail"
	"tailorlink/internal/repository"

	"gorm.io/gorm"
)

const sideEffectTimeout = 10 * time.Second

type Service struct {
	offers OfferRepository
	users  UserDirectory
	orders OrderMaterializer
	notifs Notifier
	mailer mail.Mailer

	// dispatch runs side effects after a transition committed. Replaced with
	// a synchronous version in tests.
	dispatch func(fn func(ctx context.Context))
}

func NewService(offers OfferRepository, users UserDirectory, orders OrderMaterializer, notifs Notifier, mailer mail.Mailer) *Service {
	return &Service{
		offers:   offers,
		users:    users,
		orders:   orders,
		notifs:   notifs,
		mailer:   mailer,
		dispatch: dispatchAsync,
	}
}

// dispatchAsync decouples notifications and emails from the request: the
// transition result has already been committed and returned, so a failing or
// slow side effect can never roll it back.
func dispatchAsync(fn func(ctx context.Context)) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("offer: side effect panic recovered: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), sideEffectTimeout)
		defer cancel()
		fn(ctx)
	}()
}

// CreateOffer opens a negotiation between a customer and a tailor.
func (s *Service) CreateOffer(ctx context.Context, customerID int64, req CreateOfferRequest) (*domain.Offer, error) {
	if req.Amount <= 0 || req.Description == "" {
		return nil, ErrValidation
	}

	tailor, err := s.users.GetByID(ctx, req.TailorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if tailor.Role != domain.RoleTailor {
		return nil, ErrNotFound
	}

	o := &domain.Offer{
		CustomerID:  customerID,
		TailorID:    req.TailorID,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      domain.OfferPending,
	}
	if err := s.offers.Create(ctx, o); err != nil {
		return nil, err
	}

	s.dispatch(func(ctx context.Context) {
		if s.notifs != nil {
			if err := s.notifs.NotifyOfferReceived(ctx, o.TailorID, o.ID, o.Amount); err != nil {
				log.Printf("offer %d: notify tailor failed: %v", o.ID, err)
			}
		}
		s.email(ctx, o.TailorID, "New offer",
			fmt.Sprintf("You received a new offer for %.2f: %s", o.Amount, o.Description))
	})

	return o, nil
}

// Negotiate applies one bargaining step: a counter-offer or an acceptance.
// The returned order is non-nil only when this step completed the dual
// acceptance and the offer was materialized.
func (s *Service) Negotiate(ctx context.Context, offerID, actorID int64, req NegotiateRequest) (*domain.Offer, *domain.Order, error) {
	if req.Accepted {
		return s.accept(ctx, offerID, actorID, req.Amount)
	}
	o, err := s.counter(ctx, offerID, actorID, req)
	return o, nil, err
}

func (s *Service) counter(ctx context.Context, offerID, actorID int64, req NegotiateRequest) (*domain.Offer, error) {
	if req.Amount == nil || *req.Amount <= 0 {
		return nil, ErrValidation
	}
	amount := *req.Amount

	o, err := s.getOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	role, err := roleOn(o, actorID)
	if err != nil {
		return nil, err
	}
	if o.Status.IsTerminal() {
		return nil, ErrConflict
	}

	entry := &domain.NegotiationEntry{
		OfferID:  o.ID,
		Amount:   amount,
		Message:  req.Message,
		By:       actorID,
		ByRole:   role,
		Accepted: false,
	}
	extra := map[string]any{"amount": amount}
	if err := s.offers.Transition(ctx, o.ID, o.Status, domain.OfferNegotiating, extra, entry); err != nil {
		if errors.Is(err, repository.ErrStaleOffer) {
			return nil, ErrConflict
		}
		return nil, err
	}

	recipient := otherParty(o, actorID)
	s.dispatch(func(ctx context.Context) {
		if s.notifs != nil {
			if err := s.notifs.NotifyOfferCountered(ctx, recipient, o.ID, amount); err != nil {
				log.Printf("offer %d: notify counter failed: %v", o.ID, err)
			}
		}
		s.email(ctx, recipient, "Counter-offer",
			fmt.Sprintf("The other party proposed %.2f for offer #%d", amount, o.ID))
	})

	return s.offers.GetWithHistory(ctx, o.ID)
}

func (s *Service) accept(ctx context.Context, offerID, actorID int64, amount *float64) (*domain.Offer, *domain.Order, error) {
	o, err := s.getOffer(ctx, offerID)
	if err != nil {
		return nil, nil, err
	}
	role, err := roleOn(o, actorID)
	if err != nil {
		return nil, nil, err
	}
	if o.Status.IsTerminal() {
		return nil, nil, ErrConflict
	}

	target, err := acceptTarget(o.Status, role)
	if err != nil {
		return nil, nil, err
	}

	// Acceptance amount: explicit -> latest history entry -> original offer.
	acceptAmount := o.Amount
	latest, err := s.offers.LatestNegotiation(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	if latest != nil {
		acceptAmount = latest.Amount
	}
	if amount != nil {
		if *amount <= 0 {
			return nil, nil, ErrValidation
		}
		acceptAmount = *amount
	}

	extra := map[string]any{}
	if target == domain.OfferAccepted {
		extra["final_amount"] = acceptAmount
	}
	entry := &domain.NegotiationEntry{
		OfferID:  o.ID,
		Amount:   acceptAmount,
		By:       actorID,
		ByRole:   role,
		Accepted: true,
	}
	if err := s.offers.Transition(ctx, o.ID, o.Status, target, extra, entry); err != nil {
		if errors.Is(err, repository.ErrStaleOffer) {
			return nil, nil, ErrConflict
		}
		return nil, nil, err
	}

	var createdOrder *domain.Order
	if target == domain.OfferAccepted {
		// Materialize synchronously: the accepted offer must leave this call
		// with its order attached.
		o.Status = domain.OfferAccepted
		o.FinalAmount = &acceptAmount
		createdOrder, err = s.orders.CreateFromOffer(ctx, o)
		if err != nil {
			return nil, nil, err
		}
	}

	recipient := otherParty(o, actorID)
	s.dispatch(func(ctx context.Context) {
		if target != domain.OfferAccepted {
			if s.notifs != nil {
				if err := s.notifs.NotifyOfferHalfAccepted(ctx, recipient, o.ID); err != nil {
					log.Printf("offer %d: notify half-accept failed: %v", o.ID, err)
				}
			}
			s.email(ctx, recipient, "Offer awaiting your acceptance",
				fmt.Sprintf("The other party accepted offer #%d at %.2f. Accept it to confirm the order.", o.ID, acceptAmount))
			return
		}

		for _, uid := range []int64{o.CustomerID, o.TailorID} {
			if s.notifs != nil {
				if err := s.notifs.NotifyOfferAccepted(ctx, uid, o.ID, acceptAmount); err != nil {
					log.Printf("offer %d: notify accepted failed: %v", o.ID, err)
				}
				if createdOrder != nil {
					if err := s.notifs.NotifyOrderCreated(ctx, uid, o.ID, createdOrder.ID, createdOrder.TotalPrice); err != nil {
						log.Printf("offer %d: notify order created failed: %v", o.ID, err)
					}
				}
			}
			s.email(ctx, uid, "Offer accepted",
				fmt.Sprintf("Offer #%d was accepted by both parties at %.2f. An order has been created.", o.ID, acceptAmount))
		}
	})

	updated, err := s.offers.GetWithHistory(ctx, o.ID)
	if err != nil {
		return nil, nil, err
	}
	return updated, createdOrder, nil
}

// Reject closes the offer; reserved for the tailor.
func (s *Service) Reject(ctx context.Context, offerID, actorID int64) (*domain.Offer, error) {
	return s.close(ctx, offerID, actorID, domain.RoleTailor, domain.OfferRejected)
}

// Cancel closes the offer; reserved for the customer.
func (s *Service) Cancel(ctx context.Context, offerID, actorID int64) (*domain.Offer, error) {
	return s.close(ctx, offerID, actorID, domain.RoleCustomer, domain.OfferCancelled)
}

func (s *Service) close(ctx context.Context, offerID, actorID int64, requiredRole domain.UserRole, target domain.OfferStatus) (*domain.Offer, error) {
	o, err := s.getOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	role, err := roleOn(o, actorID)
	if err != nil {
		return nil, err
	}
	if role != requiredRole {
		return nil, ErrForbidden
	}
	if o.Status.IsTerminal() {
		return nil, ErrConflict
	}

	if err := s.offers.Transition(ctx, o.ID, o.Status, target, nil, nil); err != nil {
		if errors.Is(err, repository.ErrStaleOffer) {
			return nil, ErrConflict
		}
		return nil, err
	}

	s.dispatch(func(ctx context.Context) {
		for _, uid := range []int64{o.CustomerID, o.TailorID} {
			if s.notifs != nil {
				var nerr error
				if target == domain.OfferRejected {
					nerr = s.notifs.NotifyOfferRejected(ctx, uid, o.ID)
				} else {
					nerr = s.notifs.NotifyOfferCancelled(ctx, uid, o.ID)
				}
				if nerr != nil {
					log.Printf("offer %d: notify %s failed: %v", o.ID, target, nerr)
				}
			}
			s.email(ctx, uid, fmt.Sprintf("Offer %s", target),
				fmt.Sprintf("Offer #%d is now %s.", o.ID, target))
		}
	})

	return s.offers.GetWithHistory(ctx, o.ID)
}

func (s *Service) GetByID(ctx context.Context, offerID, actorID int64) (*domain.Offer, error) {
	o, err := s.offers.GetWithHistory(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if _, err := roleOn(o, actorID); err != nil {
		return nil, err
	}
	return o, nil
}

func (s *Service) ListForUser(ctx context.Context, userID int64) ([]domain.Offer, error) {
	return s.offers.ListByParticipant(ctx, userID)
}

func (s *Service) getOffer(ctx context.Context, offerID int64) (*domain.Offer, error) {
	o, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return o, nil
}

// roleOn resolves the actor's role on this offer. All permission rules key
// off this: only the two referenced parties may act.
func roleOn(o *domain.Offer, actorID int64) (domain.UserRole, error) {
	switch actorID {
	case o.CustomerID:
		return domain.RoleCustomer, nil
	case o.TailorID:
		return domain.RoleTailor, nil
	default:
		return "", ErrForbidden
	}
}

func otherParty(o *domain.Offer, actorID int64) int64 {
	if actorID == o.CustomerID {
		return o.TailorID
	}
	return o.CustomerID
}

// acceptTarget decides the post-acceptance status. The only path to accepted
// is the other party having already recorded their half; a party repeating
// its own half-accept is a conflict.
func acceptTarget(current domain.OfferStatus, role domain.UserRole) (domain.OfferStatus, error) {
	switch role {
	case domain.RoleTailor:
		switch current {
		case domain.OfferAcceptedByCustomer:
			return domain.OfferAccepted, nil
		case domain.OfferAcceptedByTailor:
			return "", ErrConflict
		default:
			return domain.OfferAcceptedByTailor, nil
		}
	case domain.RoleCustomer:
		switch current {
		case domain.OfferAcceptedByTailor:
			return domain.OfferAccepted, nil
		case domain.OfferAcceptedByCustomer:
			return "", ErrConflict
		default:
			return domain.OfferAcceptedByCustomer, nil
		}
	default:
		return "", ErrForbidden
	}
}

// email sends to one recipient; failures are logged and swallowed so that one
// recipient's failure never suppresses the other's attempt.
func (s *Service) email(ctx context.Context, userID int64, subject, body string) {
	if s.mailer == nil {
		return
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		log.Printf("email: user lookup failed user_id=%d err=%v", userID, err)
		return
	}
	if err := s.mailer.Send(ctx, u.Email, subject, body); err != nil {
		log.Printf("email: send failed to=%s subject=%q err=%v", u.Email, subject, err)
	}
}
