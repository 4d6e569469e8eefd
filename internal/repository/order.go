package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/declared-as-ala/backend/internal/model"
)

// OrderListFilter narrows the admin order listing.
type OrderListFilter struct {
	Status   string
	From     *time.Time
	To       *time.Time
	Customer string // substring match on snapshot name/email
	Page     int
	Limit    int
}

type OrderRepository interface {
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, orderID string) (*model.Order, error)
	// FindByRemoteSessionID returns (nil, nil) when no order carries the id.
	FindByRemoteSessionID(ctx context.Context, sessionID string) (*model.Order, error)
	SetRemoteSession(ctx context.Context, orderID, sessionID string) error
	// MarkPaidBySession is the idempotent-transition primitive: it reports
	// true only for the single call that actually moved the order to paid.
	MarkPaidBySession(ctx context.Context, sessionID, captureID string) (bool, error)
	MarkFailedBySession(ctx context.Context, sessionID string) error
	MarkDelivered(ctx context.Context, orderID string) error
	List(ctx context.Context, filter OrderListFilter) ([]*model.Order, int64, error)
}

type orderRepoImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepoImpl{
		db: db,
	}
}

func (r *orderRepoImpl) Create(ctx context.Context, order *model.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *orderRepoImpl) FindByID(ctx context.Context, orderID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("id = ?", orderID).
		First(&order).Error

	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) FindByRemoteSessionID(ctx context.Context, sessionID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items").
		Where("remote_session_id = ?", sessionID).
		First(&order).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &order, nil
}

func (r *orderRepoImpl) SetRemoteSession(ctx context.Context, orderID, sessionID string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"remote_session_id": sessionID,
			"updated_at":        time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepoImpl) MarkPaidBySession(ctx context.Context, sessionID, captureID string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("remote_session_id = ? AND status <> ?", sessionID, model.StatusPaid).
		Updates(map[string]interface{}{
			"status":     model.StatusPaid,
			"capture_id": captureID,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected == 1, nil
}

func (r *orderRepoImpl) MarkFailedBySession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Model(&model.Order{}).
		Where("remote_session_id = ? AND status = ?", sessionID, model.StatusPending).
		Updates(map[string]interface{}{
			"status":     model.StatusFailed,
			"updated_at": time.Now(),
		}).Error
}

func (r *orderRepoImpl) MarkDelivered(ctx context.Context, orderID string) error {
	result := r.db.WithContext(ctx).Model(&model.Order{}).
		Where("id = ?", orderID).
		Updates(map[string]interface{}{
			"delivered":  true,
			"updated_at": time.Now(),
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *orderRepoImpl) List(ctx context.Context, filter OrderListFilter) ([]*model.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.From != nil {
		query = query.Where("created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("created_at <= ?", *filter.To)
	}
	if filter.Customer != "" {
		pattern := "%" + filter.Customer + "%"
		query = query.Where("customer_name LIKE ? OR customer_email LIKE ?", pattern, pattern)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}

	var orders []*model.Order
	err := query.
		Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&orders).Error

	if err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}
