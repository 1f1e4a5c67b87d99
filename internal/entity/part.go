package entity

import (
	"time"
)

// 零件生命周期状态
const (
	PartStatusPendingTest = "Pending test" // 入库初始状态
	PartStatusSentForTest = "Sent for test"
	PartStatusGood        = "Good"
	PartStatusNotGood     = "Not good"
	PartStatusAvailable   = "Available"
	PartStatusFaulty      = "Faulty"
)

// ValidPartStatus 状态是否为已知生命周期状态
func ValidPartStatus(s string) bool {
	switch s {
	case PartStatusPendingTest, PartStatusSentForTest, PartStatusGood,
		PartStatusNotGood, PartStatusAvailable, PartStatusFaulty:
		return true
	}
	return false
}

// 硬件类别
const (
	PartTypeHDD         = "Hdd"
	PartTypeRAM         = "Ram"
	PartTypeSwitch      = "Switch"
	PartTypeServer      = "Server"
	PartTypeStorage     = "Storage"
	PartTypeBladeServer = "Blade server"
	PartTypeFirewall    = "Firewall"
	PartTypeRouter      = "Router"
	PartTypeMainboard   = "Mainboard"
	PartTypeOtherModule = "Other Module"
)

// ValidPartType 类别是否为已知硬件类别
func ValidPartType(s string) bool {
	switch s {
	case PartTypeHDD, PartTypeRAM, PartTypeSwitch, PartTypeServer, PartTypeStorage,
		PartTypeBladeServer, PartTypeFirewall, PartTypeRouter, PartTypeMainboard,
		PartTypeOtherModule:
		return true
	}
	return false
}

// Part 库存零件。序列号全局唯一；状态只能经过校验过的流转变更；
// 正常流程不做物理删除（硬删除是管理员专属的破坏性操作）。
type Part struct {
	ID           string    `json:"part_id" gorm:"primaryKey;size:32"`
	Type         string    `json:"type" gorm:"size:20;not null"`
	NameProduct  string    `json:"name_product" gorm:"size:255;not null"`
	PartNumber   string    `json:"part_number" gorm:"size:50;index"`
	SerialNumber string    `json:"serial_number" gorm:"size:50;not null;uniqueIndex"`
	Location     string    `json:"location" gorm:"size:20"`
	SubLocation  string    `json:"sub_location" gorm:"size:50"`
	Status       string    `json:"status" gorm:"size:20;not null;default:'Pending test'"`
	Health       string    `json:"health,omitempty" gorm:"size:30"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Part) TableName() string {
	return "inventory"
}

// StatusLog 零件状态流转记录。每次接受的流转恰好写一条；只增不改。
// 自增主键保证同一时间戳下仍有稳定顺序。
type StatusLog struct {
	ID           uint      `json:"log_id" gorm:"primaryKey;autoIncrement"`
	PartID       string    `json:"part_id" gorm:"size:32;not null;index"`
	StatusBefore string    `json:"status_before" gorm:"size:20;not null"`
	StatusAfter  string    `json:"status_after" gorm:"size:20;not null"`
	UpdatedBy    string    `json:"updated_by" gorm:"size:32;not null"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoCreateTime"`
}

func (StatusLog) TableName() string {
	return "status_logs"
}

// Warranty 零件保修记录
type Warranty struct {
	ID         string     `json:"warranty_id" gorm:"primaryKey;size:32"`
	PartID     string     `json:"part_id" gorm:"size:32;not null;index"`
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Status     string     `json:"status" gorm:"size:20"`
	Provider   string     `json:"provider" gorm:"size:100"`
	Conditions string     `json:"conditions,omitempty" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
}

func (Warranty) TableName() string {
	return "warranty"
}
