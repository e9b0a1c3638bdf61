package infrastructure

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"returnremind/internal/service/reminder/domain"
)

// GormPurchaseRepository 是 PurchaseRepository 的 GORM 实现
type GormPurchaseRepository struct {
	db *gorm.DB
}

func NewGormPurchaseRepository(db *gorm.DB) *GormPurchaseRepository {
	return &GormPurchaseRepository{db: db}
}

func (r *GormPurchaseRepository) Create(ctx context.Context, p *domain.Purchase) error {
	if err := r.db.WithContext(ctx).Create(FromDomainPurchase(p)).Error; err != nil {
		return errors.Wrapf(err, "insert purchase %s", p.ID)
	}
	return nil
}

func (r *GormPurchaseRepository) FindByID(ctx context.Context, ownerID, id string) (*domain.Purchase, error) {
	var model PurchaseModel
	err := r.db.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrPurchaseNotFound
		}
		return nil, errors.Wrap(err, "find purchase")
	}
	return ToDomainPurchase(&model), nil
}

func (r *GormPurchaseRepository) ListActive(ctx context.Context, ownerID string, asOf time.Time) ([]*domain.Purchase, error) {
	var models []PurchaseModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND return_deadline >= ?", ownerID, domain.DateOf(asOf)).
		Order("return_deadline ASC, created_at ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list active purchases")
	}
	return toDomainPurchases(models), nil
}

func (r *GormPurchaseRepository) ListHistory(ctx context.Context, ownerID string, asOf time.Time) ([]*domain.Purchase, error) {
	var models []PurchaseModel
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND return_deadline < ?", ownerID, domain.DateOf(asOf)).
		Order("return_deadline DESC, created_at DESC, id DESC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list purchase history")
	}
	return toDomainPurchases(models), nil
}

func (r *GormPurchaseRepository) ListUnscheduled(ctx context.Context, limit int) ([]*domain.Purchase, error) {
	var models []PurchaseModel
	err := r.db.WithContext(ctx).
		Where("reminders_scheduled = ?", false).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list unscheduled purchases")
	}
	return toDomainPurchases(models), nil
}

// GormNotificationRepository 是 NotificationRepository 的 GORM 实现
type GormNotificationRepository struct {
	db *gorm.DB
}

func NewGormNotificationRepository(db *gorm.DB) *GormNotificationRepository {
	return &GormNotificationRepository{db: db}
}

func (r *GormNotificationRepository) SaveSchedule(ctx context.Context, purchaseID string, planned []*domain.Notification) ([]*domain.Notification, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(planned) > 0 {
			models := make([]*NotificationModel, 0, len(planned))
			for _, n := range planned {
				models = append(models, FromDomainNotification(n))
			}
			// 已存在的 (purchase_id, type) 直接忽略
			if err := tx.Omit(clause.Associations).
				Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models).Error; err != nil {
				return errors.Wrap(err, "insert notifications")
			}
		}
		return tx.Model(&PurchaseModel{}).
			Where("id = ?", purchaseID).
			Update("reminders_scheduled", true).Error
	})
	if err != nil {
		return nil, err
	}
	return r.ListByPurchase(ctx, purchaseID)
}

func (r *GormNotificationRepository) ListByPurchase(ctx context.Context, purchaseID string) ([]*domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).Preload("Purchase").
		Where("purchase_id = ?", purchaseID).
		Order("scheduled_for ASC, id ASC").
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list notifications by purchase")
	}
	return toDomainNotifications(models), nil
}

func (r *GormNotificationRepository) ListPending(ctx context.Context, ownerID string, after, until time.Time) ([]*domain.Notification, error) {
	q := r.db.WithContext(ctx).Preload("Purchase").
		Where("owner_id = ? AND fired_at IS NULL AND scheduled_for > ?", ownerID, after.UTC())
	if !until.IsZero() {
		q = q.Where("scheduled_for <= ?", until.UTC())
	}

	var models []NotificationModel
	if err := q.Order("scheduled_for ASC, id ASC").Find(&models).Error; err != nil {
		return nil, errors.Wrap(err, "list pending notifications")
	}
	return toDomainNotifications(models), nil
}

func (r *GormNotificationRepository) ListDue(ctx context.Context, asOf time.Time, limit int) ([]*domain.Notification, error) {
	var models []NotificationModel
	err := r.db.WithContext(ctx).Preload("Purchase").
		Where("fired_at IS NULL AND scheduled_for <= ?", asOf).
		Order("scheduled_for ASC, id ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, errors.Wrap(err, "list due notifications")
	}
	return toDomainNotifications(models), nil
}

// MarkFired 通过 "WHERE fired_at IS NULL" 的条件更新实现认领，受影响行数为 1 才算成功
func (r *GormNotificationRepository) MarkFired(ctx context.Context, id string, firedAt time.Time, skipped bool) (bool, error) {
	result := r.db.WithContext(ctx).Model(&NotificationModel{}).
		Where("id = ? AND fired_at IS NULL", id).
		Updates(map[string]interface{}{
			"fired_at": firedAt,
			"skipped":  skipped,
		})
	if result.Error != nil {
		return false, errors.Wrapf(result.Error, "mark notification %s fired", id)
	}
	return result.RowsAffected == 1, nil
}
