package entity

import (
	"time"

	"gorm.io/gorm"
)

// 通知类型
const (
	NotificationTypeInfo    = "info"
	NotificationTypeWarning = "warning"
	NotificationTypeError   = "error"
	NotificationTypeSuccess = "success"
)

// Notification 站内通知。由fan-out在触发动作的同一事务内落库；
// 之后只有接收者本人能标记已读或软删除。实际投递（邮件/IM）由外部消费方负责。
type Notification struct {
	ID        string         `json:"notification_id" gorm:"primaryKey;size:32"`
	UserID    string         `json:"user_id" gorm:"size:32;not null;index"`
	Title     string         `json:"title" gorm:"size:255"`
	Message   string         `json:"message" gorm:"size:1000;not null"`
	Type      string         `json:"notification_type" gorm:"size:20;not null;default:info"`
	IsRead    bool           `json:"is_read" gorm:"not null;default:false;index"`
	CreatedBy string         `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Notification) TableName() string {
	return "notifications"
}
