package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/entity"
)

// UserRepository 用户仓库
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create 创建用户
func (r *UserRepository) Create(ctx context.Context, user *entity.User) error {
	if user.ID == "" {
		user.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID 按ID查询（软删除自动排除）
func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

// FindByUsername 按用户名查询
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

// FindByEmail 按邮箱查询
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*entity.User, error) {
	var user entity.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translateErr(err)
	}
	return &user, nil
}

// ListByRole 查询某角色的全部在职用户（fan-out收件人计算用）
func (r *UserRepository) ListByRole(ctx context.Context, role string) ([]entity.User, error) {
	var users []entity.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND is_active = ?", role, true).
		Order("created_at ASC").
		Find(&users).Error
	return users, err
}

// List 分页查询用户
func (r *UserRepository) List(ctx context.Context, page, pageSize int) ([]entity.User, int64, error) {
	var users []entity.User
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.User{})
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at ASC").Offset(offset).Limit(pageSize).Find(&users).Error
	return users, total, err
}

// Update 保存用户
func (r *UserRepository) Update(ctx context.Context, user *entity.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// UpdateRole 变更角色
func (r *UserRepository) UpdateRole(ctx context.Context, id, role string) error {
	return r.db.WithContext(ctx).Model(&entity.User{}).
		Where("id = ?", id).
		Update("role", role).Error
}

// SoftDelete 软删除用户
func (r *UserRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.User{}).Error
}
