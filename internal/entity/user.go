package entity

import (
	"time"

	"gorm.io/gorm"
)

// User 用户实体。Role为单一角色（user/engineer/logistic/admin），
// 只能通过管理员的改角色操作变更。
type User struct {
	ID           string         `json:"id" gorm:"primaryKey;size:32"`
	Username     string         `json:"username" gorm:"size:50;not null;uniqueIndex"`
	Email        string         `json:"email" gorm:"size:100;not null;uniqueIndex"`
	FirstName    string         `json:"first_name" gorm:"size:50"`
	LastName     string         `json:"last_name" gorm:"size:50"`
	Phone        string         `json:"phone" gorm:"size:20"`
	PasswordHash string         `json:"-" gorm:"size:255;not null"`
	Role         string         `json:"role" gorm:"size:20;not null;default:user;index"`
	IsActive     bool           `json:"is_active" gorm:"not null;default:true"`
	ProfilePic   string         `json:"profile_pic,omitempty" gorm:"size:255"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	LastLoginAt  *time.Time     `json:"last_login_at,omitempty"`
	DeletedAt    gorm.DeletedAt `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

// FullName 拼接显示名
func (u *User) FullName() string {
	if u.FirstName == "" && u.LastName == "" {
		return u.Username
	}
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
