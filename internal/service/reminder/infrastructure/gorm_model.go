package infrastructure

import (
	"time"

	"gorm.io/gorm"
)

// PurchaseModel 对应数据库中的 purchase 表
type PurchaseModel struct {
	ID                 string    `gorm:"primaryKey;size:36"`
	OwnerID            string    `gorm:"size:64;not null;index:idx_purchase_owner_deadline,priority:1"`
	MerchantName       string    `gorm:"size:255;not null"`
	ItemName           string    `gorm:"size:255;not null"`
	PurchaseDate       time.Time `gorm:"not null"`
	ReturnWindowDays   int       `gorm:"not null"`
	ReturnDeadline     time.Time `gorm:"not null;index:idx_purchase_owner_deadline,priority:2"`
	RemindersScheduled bool      `gorm:"not null;default:false;index"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TableName 指定 GORM 应该使用的表名
func (PurchaseModel) TableName() string {
	return "purchase"
}

// NotificationModel 对应数据库中的 purchase_notification 表。
// (purchase_id, type) 唯一索引保证同一购买每种提醒最多一条。
type NotificationModel struct {
	ID           string     `gorm:"primaryKey;size:36"`
	PurchaseID   string     `gorm:"size:36;not null;uniqueIndex:uk_notification_purchase_type,priority:1"`
	OwnerID      string     `gorm:"size:64;not null;index"`
	Type         string     `gorm:"size:32;not null;uniqueIndex:uk_notification_purchase_type,priority:2"`
	ScheduledFor time.Time  `gorm:"not null;index:idx_notification_due,priority:2"`
	FiredAt      *time.Time `gorm:"index:idx_notification_due,priority:1"`
	Skipped      bool       `gorm:"not null;default:false"`
	CreatedAt    time.Time
	// 关联关系
	Purchase PurchaseModel `gorm:"foreignKey:PurchaseID"`
}

// TableName 指定 GORM 应该使用的表名
func (NotificationModel) TableName() string {
	return "purchase_notification"
}

// AutoMigrate 创建或更新提醒服务需要的表结构
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&PurchaseModel{}, &NotificationModel{})
}
