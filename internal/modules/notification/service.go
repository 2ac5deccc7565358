package notification

import (
	"context"
	"fmt"

	"tailorlink/internal/ws"
)

// Pusher delivers a real-time event to a user's active connection.
// Implemented by *ws.Hub; nil disables the live push entirely.
type Pusher interface {
	SendToUser(userID int64, event *ws.Event)
}

type Service struct {
	repo   *Repository
	pusher Pusher
}

func NewService(repo *Repository, pusher Pusher) *Service {
	return &Service{repo: repo, pusher: pusher}
}

// Notify persists the notification first (durability before delivery), then
// attempts a real-time push on the recipient's channel. The push is
// at-most-once and fire-and-forget: an offline recipient just misses the live
// event and fetches the record later.
func (s *Service) Notify(ctx context.Context, userID int64, t Type, title, message string, data map[string]any) error {
	n := &Notification{
		UserID:  userID,
		Type:    t,
		Title:   title,
		Message: message,
		IsRead:  false,
	}
	if err := s.repo.Create(ctx, n, data); err != nil {
		return err
	}

	if s.pusher != nil {
		s.pusher.SendToUser(userID, &ws.Event{
			Type:    "notification",
			Channel: ws.UserChannel(userID),
			Payload: n,
		})
	}
	return nil
}

func (s *Service) GetUserNotifications(ctx context.Context, userID int64, limit int) ([]Notification, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	list, err := s.repo.GetByUserID(ctx, userID, limit)
	if err != nil {
		return nil, 0, err
	}

	unread, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		unread = 0
	}

	return list, unread, nil
}

func (s *Service) MarkAsRead(ctx context.Context, notificationID, userID int64) error {
	return s.repo.MarkAsRead(ctx, notificationID, userID)
}

func (s *Service) MarkAllAsRead(ctx context.Context, userID int64) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *Service) NotifyOfferReceived(ctx context.Context, tailorID, offerID int64, amount float64) error {
	return s.Notify(
		ctx,
		tailorID,
		TypeOfferReceived,
		"New offer",
		fmt.Sprintf("You received a new offer for %.2f", amount),
		map[string]any{"offer_id": offerID},
	)
}

func (s *Service) NotifyOfferCountered(ctx context.Context, recipientID, offerID int64, amount float64) error {
	return s.Notify(
		ctx,
		recipientID,
		TypeOfferCountered,
		"Counter-offer",
		fmt.Sprintf("The other party proposed %.2f", amount),
		map[string]any{"offer_id": offerID},
	)
}

func (s *Service) NotifyOfferHalfAccepted(ctx context.Context, recipientID, offerID int64) error {
	return s.Notify(
		ctx,
		recipientID,
		TypeOfferHalfAccepted,
		"Offer awaiting your acceptance",
		"The other party accepted the offer. Accept it to confirm the order.",
		map[string]any{"offer_id": offerID},
	)
}

func (s *Service) NotifyOfferAccepted(ctx context.Context, recipientID, offerID int64, finalAmount float64) error {
	return s.Notify(
		ctx,
		recipientID,
		TypeOfferAccepted,
		"Offer accepted",
		fmt.Sprintf("The offer was accepted by both parties at %.2f", finalAmount),
		map[string]any{"offer_id": offerID},
	)
}

func (s *Service) NotifyOfferRejected(ctx context.Context, recipientID, offerID int64) error {
	return s.Notify(
		ctx,
		recipientID,
		TypeOfferRejected,
		"Offer rejected",
		"The offer was rejected by the tailor",
		map[string]any{"offer_id": offerID},
	)
}

func (s *Service) NotifyOfferCancelled(ctx context.Context, recipientID, offerID int64) error {
	return s.Notify(
		ctx,
		recipientID,
		TypeOfferCancelled,
		"Offer cancelled",
		"The offer was cancelled by the customer",
		map[string]any{"offer_id": offerID},
	)
}

func (s *Service) NotifyOrderCreated(ctx context.Context, recipientID, offerID, orderID int64, total float64) error {
	return s.Notify(
		ctx,
		recipientID,
		TypeOrderCreated,
		"Order created",
		fmt.Sprintf("Order #%d was created for %.2f", orderID, total),
		map[string]any{"offer_id": offerID, "order_id": orderID},
	)
}
