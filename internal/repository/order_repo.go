package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"tailorlink/internal/domain"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

type orderModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	Number     string    `gorm:"column:number"`
	CustomerID int64     `gorm:"column:customer_id;index"`
	TailorID   int64     `gorm:"column:tailor_id;index"`
	OfferID    int64     `gorm:"column:offer_id;uniqueIndex"`
	Status     string    `gorm:"column:status"`
	TotalPrice float64   `gorm:"column:total_price"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

func (orderModel) TableName() string { return "orders" }

type orderItemModel struct {
	ID          int64   `gorm:"column:id;primaryKey"`
	OrderID     int64   `gorm:"column:order_id;index"`
	ServiceName string  `gorm:"column:service_name"`
	Price       float64 `gorm:"column:price"`
}

func (orderItemModel) TableName() string { return "order_items" }

type invoiceModel struct {
	ID       int64     `gorm:"column:id;primaryKey"`
	OrderID  int64     `gorm:"column:order_id;uniqueIndex"`
	Number   string    `gorm:"column:number"`
	Subtotal float64   `gorm:"column:subtotal"`
	Total    float64   `gorm:"column:total"`
	IssuedAt time.Time `gorm:"column:issued_at"`
}

func (invoiceModel) TableName() string { return "invoices" }

func toDomainOrder(m orderModel) *domain.Order {
	return &domain.Order{
		ID:         m.ID,
		Number:     m.Number,
		CustomerID: m.CustomerID,
		TailorID:   m.TailorID,
		OfferID:    m.OfferID,
		Status:     domain.OrderStatus(m.Status),
		TotalPrice: m.TotalPrice,
		CreatedAt:  m.CreatedAt,
	}
}

// Create persists the order with its line items and invoice in one
// transaction. The unique index on offer_id backs the at-most-once
// conversion guarantee at the storage level.
func (r *OrderRepository) Create(ctx context.Context, o *domain.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := orderModel{
			Number:     o.Number,
			CustomerID: o.CustomerID,
			TailorID:   o.TailorID,
			OfferID:    o.OfferID,
			Status:     string(o.Status),
			TotalPrice: o.TotalPrice,
			CreatedAt:  time.Now(),
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}

		items := make([]domain.OrderItem, 0, len(o.Items))
		for _, it := range o.Items {
			im := orderItemModel{
				OrderID:     m.ID,
				ServiceName: it.ServiceName,
				Price:       it.Price,
			}
			if err := tx.Create(&im).Error; err != nil {
				return err
			}
			it.ID = im.ID
			it.OrderID = m.ID
			items = append(items, it)
		}

		var inv *domain.Invoice
		if o.Invoice != nil {
			ivm := invoiceModel{
				OrderID:  m.ID,
				Number:   o.Invoice.Number,
				Subtotal: o.Invoice.Subtotal,
				Total:    o.Invoice.Total,
				IssuedAt: time.Now(),
			}
			if err := tx.Create(&ivm).Error; err != nil {
				return err
			}
			inv = &domain.Invoice{
				ID:       ivm.ID,
				OrderID:  m.ID,
				Number:   ivm.Number,
				Subtotal: ivm.Subtotal,
				Total:    ivm.Total,
				IssuedAt: ivm.IssuedAt,
			}
		}

		*o = *toDomainOrder(m)
		o.Items = items
		o.Invoice = inv
		return nil
	})
}

func (r *OrderRepository) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	var m orderModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if tx.Error != nil {
		return nil, tx.Error
	}
	o := toDomainOrder(m)

	var items []orderItemModel
	if err := r.db.WithContext(ctx).Where("order_id = ?", id).Order("id ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	for _, im := range items {
		o.Items = append(o.Items, domain.OrderItem{
			ID:          im.ID,
			OrderID:     im.OrderID,
			ServiceName: im.ServiceName,
			Price:       im.Price,
		})
	}

	var ivm invoiceModel
	err := r.db.WithContext(ctx).Where("order_id = ?", id).First(&ivm).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		o.Invoice = &domain.Invoice{
			ID:       ivm.ID,
			OrderID:  ivm.OrderID,
			Number:   ivm.Number,
			Subtotal: ivm.Subtotal,
			Total:    ivm.Total,
			IssuedAt: ivm.IssuedAt,
		}
	}

	return o, nil
}

func (r *OrderRepository) ListByParticipant(ctx context.Context, userID int64) ([]domain.Order, error) {
	var rows []orderModel
	tx := r.db.WithContext(ctx).
		Where("customer_id = ? OR tailor_id = ?", userID, userID).
		Order("created_at DESC").
		Find(&rows)
	if tx.Error != nil {
		return nil, tx.Error
	}

	out := make([]domain.Order, 0, len(rows))
	for _, m := range rows {
		out = append(out, *toDomainOrder(m))
	}
	return out, nil
}

// IsUniqueViolation reports whether err is a unique-constraint violation,
// for both the postgres and sqlite drivers.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if pgErr, ok := err.(*pgconn.PgError); ok {
		return pgErr.Code == "23505"
	}
	return strings.Contains(strings.ToUpper(err.Error()), "UNIQUE")
}
