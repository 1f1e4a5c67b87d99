package entity

import (
	"time"

	"gorm.io/gorm"
)

// 工单状态
const (
	TicketStatusOpen       = "open"
	TicketStatusInProgress = "in_progress"
	TicketStatusResolved   = "resolved"
	TicketStatusClosed     = "closed"
	TicketStatusCancelled  = "cancelled"
)

func ValidTicketStatus(s string) bool {
	switch s {
	case TicketStatusOpen, TicketStatusInProgress, TicketStatusResolved,
		TicketStatusClosed, TicketStatusCancelled:
		return true
	}
	return false
}

// 工单优先级
const (
	TicketPriorityLow    = "low"
	TicketPriorityMedium = "medium"
	TicketPriorityHigh   = "high"
	TicketPriorityUrgent = "urgent"
)

func ValidTicketPriority(s string) bool {
	switch s {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityUrgent:
		return true
	}
	return false
}

// 工单分类
const (
	TicketCategoryHardware = "hardware"
	TicketCategorySoftware = "software"
	TicketCategoryNetwork  = "network"
	TicketCategoryAccess   = "access"
	TicketCategoryOther    = "other"
)

func ValidTicketCategory(s string) bool {
	switch s {
	case TicketCategoryHardware, TicketCategorySoftware, TicketCategoryNetwork,
		TicketCategoryAccess, TicketCategoryOther:
		return true
	}
	return false
}

// Ticket 工单。可见性与修改权归属创建者，engineer/logistic/admin可越权操作。
type Ticket struct {
	ID             string         `json:"ticket_id" gorm:"primaryKey;size:32"`
	Title          string         `json:"title" gorm:"size:255;not null"`
	Description    string         `json:"description" gorm:"type:text"`
	Category       string         `json:"category" gorm:"size:20;not null"`
	Priority       string         `json:"priority" gorm:"size:20;not null"`
	Status         string         `json:"status" gorm:"size:20;not null;default:open"`
	CreatedBy      string         `json:"created_by" gorm:"size:32;not null;index"`
	LastModifiedBy string         `json:"last_modified_by,omitempty" gorm:"size:32"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Comments []Comment `json:"comments,omitempty" gorm:"foreignKey:TicketID"`
}

func (Ticket) TableName() string {
	return "tickets"
}

// Comment 工单评论
type Comment struct {
	ID        string         `json:"comment_id" gorm:"primaryKey;size:32"`
	TicketID  string         `json:"ticket_id" gorm:"size:32;not null;index"`
	Content   string         `json:"content" gorm:"type:text;not null"`
	CreatedBy string         `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Comment) TableName() string {
	return "comments"
}

// Attachment 工单附件元数据。文件本体由外部存储负责，这里只存文件名和路径。
type Attachment struct {
	ID        string         `json:"attachment_id" gorm:"primaryKey;size:32"`
	TicketID  string         `json:"ticket_id" gorm:"size:32;not null;index"`
	FileName  string         `json:"file_name" gorm:"size:255;not null"`
	FilePath  string         `json:"file_path" gorm:"size:255;not null"`
	CreatedBy string         `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time      `json:"created_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Attachment) TableName() string {
	return "attachments"
}
