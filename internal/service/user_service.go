package service

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
)

// UserService 用户管理。列表/改角色/删除是管理员专属，
// 资料读写允许本人或管理员。
type UserService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewUserService(db *gorm.DB, repos *repository.Repositories) *UserService {
	return &UserService{db: db, repos: repos}
}

// ListUsers 分页查询用户（管理员）
func (s *UserService) ListUsers(ctx context.Context, actor Actor, page, pageSize int) ([]entity.User, int64, error) {
	if err := authorize(actor, rbac.ActionUserList); err != nil {
		return nil, 0, err
	}
	return s.repos.User.List(ctx, page, pageSize)
}

// GetUser 查询用户资料，本人或管理员
func (s *UserService) GetUser(ctx context.Context, actor Actor, id string) (*entity.User, error) {
	if actor.ID != id && actor.Role != rbac.RoleAdmin {
		return nil, apperr.PermissionDenied("not enough permissions")
	}
	user, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

// UpdateProfileRequest 资料更新请求。角色不在这里改。
type UpdateProfileRequest struct {
	FirstName  *string `json:"first_name"`
	LastName   *string `json:"last_name"`
	Phone      *string `json:"phone"`
	ProfilePic *string `json:"profile_pic"`
}

// UpdateProfile 更新资料，本人或管理员
func (s *UserService) UpdateProfile(ctx context.Context, actor Actor, id string, req *UpdateProfileRequest) (*entity.User, error) {
	if actor.ID != id && actor.Role != rbac.RoleAdmin {
		return nil, apperr.PermissionDenied("not enough permissions")
	}

	user, err := s.repos.User.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		user.LastName = *req.LastName
	}
	if req.Phone != nil {
		user.Phone = *req.Phone
	}
	if req.ProfilePic != nil {
		user.ProfilePic = *req.ProfilePic
	}

	if err := s.repos.User.Update(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// ChangeRole 管理员变更用户角色，审计留痕。
// 管理员不能降级自己，避免锁死最后一个管理员。
func (s *UserService) ChangeRole(ctx context.Context, actor Actor, id string, newRole string) (*entity.User, error) {
	if err := authorize(actor, rbac.ActionUserChangeRole); err != nil {
		return nil, err
	}
	role, err := rbac.ParseRole(newRole)
	if err != nil {
		return nil, apperr.Newf(apperr.KindValidation, "unknown role: %q", newRole)
	}
	if actor.ID == id {
		return nil, apperr.Validation("cannot change your own role")
	}

	var user *entity.User
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		user, err = txRepos.User.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("user not found")
			}
			return err
		}

		oldRole := user.Role
		user.Role = string(role)
		if err := txRepos.User.UpdateRole(ctx, user.ID, user.Role); err != nil {
			return err
		}

		details := fmt.Sprintf("Changed role of %s from %s to %s", user.Username, oldRole, user.Role)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionChangeRole, details)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// DeleteUser 管理员软删除用户。不能删除自己。
func (s *UserService) DeleteUser(ctx context.Context, actor Actor, id string) error {
	if err := authorize(actor, rbac.ActionUserDelete); err != nil {
		return err
	}
	if actor.ID == id {
		return apperr.Validation("cannot delete your own account")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		user, err := txRepos.User.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("user not found")
			}
			return err
		}

		details := fmt.Sprintf("Deleted user: %s", user.Username)
		if err := txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionDeleteUser, details); err != nil {
			return err
		}
		return txRepos.User.SoftDelete(ctx, user.ID)
	})
}

// ListActivityLogs 查询审计日志（管理员）
func (s *UserService) ListActivityLogs(ctx context.Context, actor Actor, page, pageSize int) ([]entity.ActivityLog, int64, error) {
	if err := authorize(actor, rbac.ActionActivityLogRead); err != nil {
		return nil, 0, err
	}
	return s.repos.ActivityLog.List(ctx, page, pageSize)
}
