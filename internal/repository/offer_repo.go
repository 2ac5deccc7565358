package repository

import (
	"context"
	"errors"
	"time"

	"tailorlink/internal/domain"

	"gorm.io/gorm"
)

// ErrStaleOffer is returned by guarded updates when the stored status no
// longer matches the expected pre-transition status. The caller lost a race
// against a concurrent transition on the same offer.
var ErrStaleOffer = errors.New("offer was modified concurrently")

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

type offerModel struct {
	ID               int64     `gorm:"column:id;primaryKey"`
	CustomerID       int64     `gorm:"column:customer_id;index"`
	TailorID         int64     `gorm:"column:tailor_id;index"`
	Amount           float64   `gorm:"column:amount"`
	Description      string    `gorm:"column:description"`
	Status           string    `gorm:"column:status"`
	FinalAmount      *float64  `gorm:"column:final_amount"`
	ConvertedToOrder bool      `gorm:"column:converted_to_order"`
	OrderID          *int64    `gorm:"column:order_id"`
	CreatedAt        time.Time `gorm:"column:created_at"`
	UpdatedAt        time.Time `gorm:"column:updated_at"`
}

func (offerModel) TableName() string { return "offers" }

type negotiationModel struct {
	ID        int64     `gorm:"column:id;primaryKey"`
	OfferID   int64     `gorm:"column:offer_id;index"`
	Amount    float64   `gorm:"column:amount"`
	Message   *string   `gorm:"column:message"`
	By        int64     `gorm:"column:by_user_id"`
	ByRole    string    `gorm:"column:by_role"`
	Accepted  bool      `gorm:"column:accepted"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (negotiationModel) TableName() string { return "offer_negotiations" }

func toDomainOffer(m offerModel) *domain.Offer {
	return &domain.Offer{
		ID:               m.ID,
		CustomerID:       m.CustomerID,
		TailorID:         m.TailorID,
		Amount:           m.Amount,
		Description:      m.Description,
		Status:           domain.OfferStatus(m.Status),
		FinalAmount:      m.FinalAmount,
		ConvertedToOrder: m.ConvertedToOrder,
		OrderID:          m.OrderID,
		CreatedAt:        m.CreatedAt,
		UpdatedAt:        m.UpdatedAt,
	}
}

func toOfferModel(o *domain.Offer) offerModel {
	return offerModel{
		ID:               o.ID,
		CustomerID:       o.CustomerID,
		TailorID:         o.TailorID,
		Amount:           o.Amount,
		Description:      o.Description,
		Status:           string(o.Status),
		FinalAmount:      o.FinalAmount,
		ConvertedToOrder: o.ConvertedToOrder,
		OrderID:          o.OrderID,
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
	}
}

func toDomainNegotiation(m negotiationModel) domain.NegotiationEntry {
	var msg string
	if m.Message != nil {
		msg = *m.Message
	}
	return domain.NegotiationEntry{
		ID:        m.ID,
		OfferID:   m.OfferID,
		Amount:    m.Amount,
		Message:   msg,
		By:        m.By,
		ByRole:    domain.UserRole(m.ByRole),
		Accepted:  m.Accepted,
		CreatedAt: m.CreatedAt,
	}
}

func (r *OfferRepository) Create(ctx context.Context, o *domain.Offer) error {
	m := toOfferModel(o)
	tx := r.db.WithContext(ctx).Create(&m)
	if tx.Error != nil {
		return tx.Error
	}
	*o = *toDomainOffer(m)
	return nil
}

func (r *OfferRepository) GetByID(ctx context.Context, id int64) (*domain.Offer, error) {
	var m offerModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainOffer(m), nil
}

// GetWithHistory loads the offer together with its full negotiation history,
// ordered by commit order.
func (r *OfferRepository) GetWithHistory(ctx context.Context, id int64) (*domain.Offer, error) {
	o, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := r.History(ctx, id)
	if err != nil {
		return nil, err
	}
	o.NegotiationHistory = history
	return o, nil
}

func (r *OfferRepository) History(ctx context.Context, offerID int64) ([]domain.NegotiationEntry, error) {
	var rows []negotiationModel
	tx := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("id ASC").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.NegotiationEntry, 0, len(rows))
	for _, m := range rows {
		out = append(out, toDomainNegotiation(m))
	}
	return out, nil
}

// LatestNegotiation returns the most recent history entry, or nil when the
// offer has no history yet.
func (r *OfferRepository) LatestNegotiation(ctx context.Context, offerID int64) (*domain.NegotiationEntry, error) {
	var m negotiationModel
	tx := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("id DESC").
		First(&m)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, tx.Error
	}
	e := toDomainNegotiation(m)
	return &e, nil
}

// appendNegotiation adds one history entry. History is append-only; rows are
// never updated or deleted.
func appendNegotiation(db *gorm.DB, e *domain.NegotiationEntry) error {
	var msg *string
	if e.Message != "" {
		v := e.Message
		msg = &v
	}

	m := negotiationModel{
		OfferID:   e.OfferID,
		Amount:    e.Amount,
		Message:   msg,
		By:        e.By,
		ByRole:    string(e.ByRole),
		Accepted:  e.Accepted,
		CreatedAt: time.Now(),
	}
	if err := db.Create(&m).Error; err != nil {
		return err
	}
	*e = toDomainNegotiation(m)
	return nil
}

func (r *OfferRepository) ListByParticipant(ctx context.Context, userID int64) ([]domain.Offer, error) {
	var rows []offerModel
	tx := r.db.WithContext(ctx).
		Where("customer_id = ? OR tailor_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Offer, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainOffer(m))
	}
	return out, nil
}

// Transition moves the offer from one status to another, with extra column
// updates and the audit entry (when non-nil) landing in the same transaction:
// a committed status change is never missing its history row. The write only
// lands if the stored status still equals from; otherwise ErrStaleOffer is
// returned and nothing changes, history included. This is the
// optimistic-concurrency guard against lost updates when both parties act on
// the same offer at once.
func (r *OfferRepository) Transition(ctx context.Context, id int64, from, to domain.OfferStatus, extra map[string]any, entry *domain.NegotiationEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"status":     string(to),
			"updated_at": time.Now(),
		}
		for k, v := range extra {
			updates[k] = v
		}

		res := tx.Model(&offerModel{}).
			Where("id = ? AND status = ?", id, string(from)).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrStaleOffer
		}

		if entry == nil {
			return nil
		}
		return appendNegotiation(tx, entry)
	})
}

// MarkConverted stamps the order reference onto an accepted offer. Guarded on
// converted_to_order so it can succeed at most once per offer.
func (r *OfferRepository) MarkConverted(ctx context.Context, id, orderID int64) error {
	res := r.db.WithContext(ctx).
		Model(&offerModel{}).
		Where("id = ? AND status = ? AND converted_to_order = ?", id, string(domain.OfferAccepted), false).
		Updates(map[string]any{
			"converted_to_order": true,
			"order_id":           orderID,
			"updated_at":         time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrStaleOffer
	}
	return nil
}
