package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/config"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
)

// AuthService 注册登录。自助注册一律得到user角色，
// 升级只能走管理员的改角色操作。
type AuthService struct {
	db     *gorm.DB
	repos  *repository.Repositories
	jwtCfg config.JWTConfig
}

func NewAuthService(db *gorm.DB, repos *repository.Repositories, jwtCfg config.JWTConfig) *AuthService {
	return &AuthService{db: db, repos: repos, jwtCfg: jwtCfg}
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username  string `json:"username" binding:"required,min=3,max=50"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// Register 注册新用户
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) (*entity.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &entity.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		Role:         string(rbac.RoleUser),
		IsActive:     true,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		if _, err := txRepos.User.FindByUsername(ctx, req.Username); err == nil {
			return apperr.Newf(apperr.KindConflict, "username %q already taken", req.Username)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if _, err := txRepos.User.FindByEmail(ctx, req.Email); err == nil {
			return apperr.Newf(apperr.KindConflict, "email %q already registered", req.Email)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		if err := txRepos.User.Create(ctx, user); err != nil {
			return err
		}
		details := fmt.Sprintf("New user registered: %s", user.Username)
		return txRepos.ActivityLog.Record(ctx, user.ID, entity.ActionRegister, details)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string       `json:"access_token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *entity.User `json:"user"`
}

// Login 用户名密码登录，签发JWT。
// 凭证错误与用户不存在返回同一个错误，不泄露账号存在性。
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResult, error) {
	user, err := s.repos.User.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.PermissionDenied("incorrect username or password")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, apperr.PermissionDenied("account is disabled")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperr.PermissionDenied("incorrect username or password")
	}

	expiresAt := time.Now().Add(s.jwtCfg.AccessTokenExpire)
	claims := jwt.MapClaims{
		"uid":   user.ID,
		"name":  user.FullName(),
		"email": user.Email,
		"role":  user.Role,
		"iss":   s.jwtCfg.Issuer,
		"iat":   time.Now().Unix(),
		"exp":   expiresAt.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.jwtCfg.Secret))
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		now := time.Now()
		user.LastLoginAt = &now
		if err := txRepos.User.Update(ctx, user); err != nil {
			return err
		}
		details := fmt.Sprintf("User logged in: %s", user.Username)
		return txRepos.ActivityLog.Record(ctx, user.ID, entity.ActionLogin, details)
	})
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		Token:     token,
		TokenType: "bearer",
		ExpiresAt: expiresAt,
		User:      user,
	}, nil
}

// Me 查询当前用户资料
func (s *AuthService) Me(ctx context.Context, userID string) (*entity.User, error) {
	user, err := s.repos.User.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}
