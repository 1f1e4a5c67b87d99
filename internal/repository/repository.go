package repository

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

// Repositories 仓库集合
type Repositories struct {
	db *gorm.DB

	User         *UserRepository
	Part         *PartRepository
	StatusLog    *StatusLogRepository
	Warranty     *WarrantyRepository
	Ticket       *TicketRepository
	Test         *TestRepository
	Notification *NotificationRepository
	ActivityLog  *ActivityLogRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:           db,
		User:         NewUserRepository(db),
		Part:         NewPartRepository(db),
		StatusLog:    NewStatusLogRepository(db),
		Warranty:     NewWarrantyRepository(db),
		Ticket:       NewTicketRepository(db),
		Test:         NewTestRepository(db),
		Notification: NewNotificationRepository(db),
		ActivityLog:  NewActivityLogRepository(db),
	}
}

// WithTx 返回绑定到事务的仓库集合。工作流动作自己开事务，
// 动作期间借用事务句柄，事务不跨出动作边界。
func (r *Repositories) WithTx(tx *gorm.DB) *Repositories {
	return NewRepositories(tx)
}

// DB 底层数据库句柄（事务入口用）
func (r *Repositories) DB() *gorm.DB {
	return r.db
}

// translateErr 把gorm错误归一为仓库层哨兵错误。
// 唯一键冲突依赖gorm.Config的TranslateError开关。
func translateErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	return err
}
