package entity

import "time"

// 审计动作
const (
	ActionAddInventory     = "ADD_INVENTORY"
	ActionUpdateInventory  = "UPDATE_INVENTORY"
	ActionSendForTest      = "SEND_FOR_TEST"
	ActionUpdateStatus     = "UPDATE_STATUS"
	ActionDeleteInventory  = "DELETE_INVENTORY"
	ActionAddWarranty      = "ADD_WARRANTY"
	ActionCreateTicket     = "CREATE_TICKET"
	ActionUpdateTicket     = "UPDATE_TICKET"
	ActionDeleteTicket     = "DELETE_TICKET"
	ActionAddComment       = "ADD_COMMENT"
	ActionUploadAttachment = "UPLOAD_ATTACHMENT"
	ActionCreateTest       = "CREATE_TEST"
	ActionUpdateTest       = "UPDATE_TEST"
	ActionDeleteTest       = "DELETE_TEST"
	ActionAddTestResult    = "ADD_TEST_RESULT"
	ActionChangeRole       = "CHANGE_ROLE"
	ActionDeleteUser       = "DELETE_USER"
	ActionRegister         = "REGISTER"
	ActionLogin            = "LOGIN"
)

// ActivityLog 操作审计日志。只增不改不删；写入失败必须使所属事务整体失败。
// 自增主键在时间戳相同时提供稳定的次序。
type ActivityLog struct {
	ID        uint      `json:"log_id" gorm:"primaryKey;autoIncrement"`
	UserID    string    `json:"user_id" gorm:"size:32;not null;index"`
	Action    string    `json:"action" gorm:"size:100;not null"`
	Details   string    `json:"details" gorm:"size:255"`
	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
