package service

import (
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/config"
	"github.com/hqops/stocktrack/internal/notify"
	"github.com/hqops/stocktrack/internal/repository"
)

// Services 服务聚合，统一装配入口
type Services struct {
	Auth         *AuthService
	User         *UserService
	Inventory    *InventoryService
	Ticket       *TicketService
	Test         *TestService
	Notification *NotificationService
}

// NewServices 装配全部服务。rdb可为nil（未读数缓存退化为直查库）。
func NewServices(db *gorm.DB, repos *repository.Repositories, rdb *redis.Client, cfg *config.Config, logger *zap.Logger) *Services {
	inventory := NewInventoryService(db, repos)
	if cfg.Notify.WebhookURL != "" {
		inventory.SetDispatcher(notify.NewDispatcher(cfg.Notify.WebhookURL, cfg.Notify.WebhookToken, logger))
	}

	return &Services{
		Auth:         NewAuthService(db, repos, cfg.JWT),
		User:         NewUserService(db, repos),
		Inventory:    inventory,
		Ticket:       NewTicketService(db, repos),
		Test:         NewTestService(db, repos),
		Notification: NewNotificationService(repos, rdb, logger),
	}
}
