package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/hqops/stocktrack/internal/apperr"
	"github.com/hqops/stocktrack/internal/entity"
	"github.com/hqops/stocktrack/internal/notify"
	"github.com/hqops/stocktrack/internal/rbac"
	"github.com/hqops/stocktrack/internal/repository"
)

// Actor 当前操作者（由身份上下文逐次注入，core不做认证只做授权）
type Actor struct {
	ID   string
	Name string
	Role rbac.Role
}

// InventoryService 库存生命周期工作流。
// 每个写操作是一个独立的短事务：行锁读当前状态 → 校验守卫 →
// 写新状态+流转记录+审计+通知，全部同事务提交或全部回滚。
type InventoryService struct {
	db         *gorm.DB
	repos      *repository.Repositories
	dispatcher *notify.Dispatcher
}

func NewInventoryService(db *gorm.DB, repos *repository.Repositories) *InventoryService {
	return &InventoryService{db: db, repos: repos}
}

// SetDispatcher 注入可选的外部投递器（webhook）。投递在事务提交后进行，
// 失败只记日志，不影响工作流结果。
func (s *InventoryService) SetDispatcher(d *notify.Dispatcher) {
	s.dispatcher = d
}

// authorize 统一的角色门禁
func authorize(actor Actor, action rbac.Action) error {
	if !rbac.Authorize(actor.Role, action) {
		return apperr.Newf(apperr.KindPermissionDenied, "role %q is not allowed to %s", actor.Role, action)
	}
	return nil
}

// CreatePartRequest 入库请求
type CreatePartRequest struct {
	Type         string `json:"type" binding:"required"`
	NameProduct  string `json:"name_product" binding:"required"`
	PartNumber   string `json:"part_number"`
	SerialNumber string `json:"serial_number" binding:"required"`
	Location     string `json:"location"`
	SubLocation  string `json:"sub_location"`
}

// CreatePart 入库。序列号唯一性检查与写入在同一事务内完成，初始状态Pending test。
func (s *InventoryService) CreatePart(ctx context.Context, actor Actor, req *CreatePartRequest) (*entity.Part, error) {
	if err := authorize(actor, rbac.ActionInventoryCreate); err != nil {
		return nil, err
	}
	if !entity.ValidPartType(req.Type) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown part type: %q", req.Type)
	}
	if req.SerialNumber == "" {
		return nil, apperr.Validation("serial_number is required")
	}

	part := &entity.Part{
		Type:         req.Type,
		NameProduct:  req.NameProduct,
		PartNumber:   req.PartNumber,
		SerialNumber: req.SerialNumber,
		Location:     req.Location,
		SubLocation:  req.SubLocation,
		Status:       entity.PartStatusPendingTest,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		if _, err := txRepos.Part.FindBySerial(ctx, req.SerialNumber); err == nil {
			return apperr.Newf(apperr.KindConflict, "serial number %q already exists", req.SerialNumber)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return err
		}

		// 并发入库时两个事务可能同时通过预检查，唯一索引兜底
		if err := txRepos.Part.Create(ctx, part); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperr.Newf(apperr.KindConflict, "serial number %q already exists", req.SerialNumber)
			}
			return err
		}

		details := fmt.Sprintf("Added %s - %s to inventory at %s", part.Type, part.NameProduct, part.Location)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionAddInventory, details)
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// SendForEngineerTest 送工程测试。
// 守卫：零件处于Pending test或Available；至少有一名在职工程师可收通知，
// 否则以InvalidTransition失败且不留任何痕迹。
func (s *InventoryService) SendForEngineerTest(ctx context.Context, actor Actor, partID string) (*entity.Part, error) {
	if err := authorize(actor, rbac.ActionInventorySendForTest); err != nil {
		return nil, err
	}

	var part *entity.Part
	var drafts []entity.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		var err error
		part, err = txRepos.Part.FindByIDForUpdate(ctx, partID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("part not found")
			}
			return err
		}

		if part.Status != entity.PartStatusPendingTest && part.Status != entity.PartStatusAvailable {
			return apperr.Newf(apperr.KindInvalidTransition,
				"part in status %q cannot be sent for test", part.Status)
		}

		drafts, err = Fanout(ctx, txRepos, Event{
			Kind:    EventSentForTest,
			Subject: part.Type,
			ActorID: actor.ID,
		})
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			return apperr.InvalidTransition("no active engineers to notify")
		}
		if err := txRepos.Notification.CreateBatch(ctx, drafts); err != nil {
			return err
		}

		statusBefore := part.Status
		part.Status = entity.PartStatusSentForTest
		if err := txRepos.Part.Update(ctx, part); err != nil {
			return err
		}

		if err := txRepos.StatusLog.Create(ctx, &entity.StatusLog{
			PartID:       part.ID,
			StatusBefore: statusBefore,
			StatusAfter:  part.Status,
			UpdatedBy:    actor.ID,
		}); err != nil {
			return err
		}

		details := fmt.Sprintf("Sent %s - %s for engineering test", part.Type, part.NameProduct)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionSendForTest, details)
	})
	if err != nil {
		return nil, err
	}

	s.dispatchAfterCommit(drafts)
	return part, nil
}

// RecordTestResultRequest 测试结果请求。Status只接受Good/Not good。
type RecordTestResultRequest struct {
	Health   string `json:"health" binding:"required"`
	Status   string `json:"status" binding:"required"`
	Evidence string `json:"evidence"`
}

// RecordTestResult 工程师记录测试结果。
// 守卫：零件处于Sent for test。副作用：Test记录、状态流转记录、
// 零件状态+健康度更新、后勤通知、审计，全部同事务。
func (s *InventoryService) RecordTestResult(ctx context.Context, actor Actor, partID string, req *RecordTestResultRequest) (*entity.Part, error) {
	if err := authorize(actor, rbac.ActionInventoryUpdateStatus); err != nil {
		return nil, err
	}
	if req.Status != entity.PartStatusGood && req.Status != entity.PartStatusNotGood {
		return nil, apperr.Newf(apperr.KindValidation,
			"test result status must be %q or %q", entity.PartStatusGood, entity.PartStatusNotGood)
	}

	var part *entity.Part
	var drafts []entity.Notification

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		var err error
		part, err = txRepos.Part.FindByIDForUpdate(ctx, partID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("part not found")
			}
			return err
		}

		if part.Status != entity.PartStatusSentForTest {
			return apperr.Newf(apperr.KindInvalidTransition,
				"part in status %q has no pending engineer test", part.Status)
		}

		// 留档一条测试工单及其结果
		test := &entity.Test{
			Title:       fmt.Sprintf("Test for %s", part.NameProduct),
			Description: fmt.Sprintf("Engineering test performed by %s", actor.Name),
			TestType:    entity.TestTypeFunctional,
			Status:      entity.TestStatusCompleted,
			PartID:      &part.ID,
			CreatedBy:   actor.ID,
		}
		if err := txRepos.Test.Create(ctx, test); err != nil {
			return err
		}
		if err := txRepos.Test.CreateResult(ctx, &entity.TestResult{
			TestID:    test.ID,
			Result:    req.Status,
			Notes:     req.Evidence,
			CreatedBy: actor.ID,
		}); err != nil {
			return err
		}

		statusBefore := part.Status
		part.Status = req.Status
		part.Health = req.Health
		if err := txRepos.Part.Update(ctx, part); err != nil {
			return err
		}

		if err := txRepos.StatusLog.Create(ctx, &entity.StatusLog{
			PartID:       part.ID,
			StatusBefore: statusBefore,
			StatusAfter:  part.Status,
			UpdatedBy:    actor.ID,
		}); err != nil {
			return err
		}

		drafts, err = Fanout(ctx, txRepos, Event{
			Kind:    EventTestCompleted,
			Subject: part.Type,
			ActorID: actor.ID,
		})
		if err != nil {
			return err
		}
		if err := txRepos.Notification.CreateBatch(ctx, drafts); err != nil {
			return err
		}

		details := fmt.Sprintf("Updated status of %s - %s from %s to %s",
			part.Type, part.NameProduct, statusBefore, part.Status)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionUpdateStatus, details)
	})
	if err != nil {
		return nil, err
	}

	s.dispatchAfterCommit(drafts)
	return part, nil
}

// UpdatePartRequest 零件非状态字段更新
type UpdatePartRequest struct {
	NameProduct *string `json:"name_product"`
	PartNumber  *string `json:"part_number"`
	Location    *string `json:"location"`
	SubLocation *string `json:"sub_location"`
}

// UpdatePart 更新位置等非状态字段，不触发流转
func (s *InventoryService) UpdatePart(ctx context.Context, actor Actor, partID string, req *UpdatePartRequest) (*entity.Part, error) {
	if err := authorize(actor, rbac.ActionInventoryUpdate); err != nil {
		return nil, err
	}

	var part *entity.Part
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		var err error
		part, err = txRepos.Part.FindByIDForUpdate(ctx, partID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("part not found")
			}
			return err
		}

		if req.NameProduct != nil {
			part.NameProduct = *req.NameProduct
		}
		if req.PartNumber != nil {
			part.PartNumber = *req.PartNumber
		}
		if req.Location != nil {
			part.Location = *req.Location
		}
		if req.SubLocation != nil {
			part.SubLocation = *req.SubLocation
		}
		if err := txRepos.Part.Update(ctx, part); err != nil {
			return err
		}

		details := fmt.Sprintf("Updated %s - %s", part.Type, part.NameProduct)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionUpdateInventory, details)
	})
	if err != nil {
		return nil, err
	}
	return part, nil
}

// DeletePart 管理员硬删除。审计记录先于删除写入，同事务。
func (s *InventoryService) DeletePart(ctx context.Context, actor Actor, partID string) error {
	if err := authorize(actor, rbac.ActionInventoryDelete); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		part, err := txRepos.Part.FindByIDForUpdate(ctx, partID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("part not found")
			}
			return err
		}

		details := fmt.Sprintf("Deleted %s - %s from inventory", part.Type, part.NameProduct)
		if err := txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionDeleteInventory, details); err != nil {
			return err
		}

		return txRepos.Part.Delete(ctx, part.ID)
	})
}

// GetPart 查询零件详情
func (s *InventoryService) GetPart(ctx context.Context, actor Actor, partID string) (*entity.Part, error) {
	if err := authorize(actor, rbac.ActionInventoryRead); err != nil {
		return nil, err
	}
	part, err := s.repos.Part.FindByID(ctx, partID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("part not found")
		}
		return nil, err
	}
	return part, nil
}

// ListParts 分页查询零件
func (s *InventoryService) ListParts(ctx context.Context, actor Actor, page, pageSize int, filter repository.PartFilter) ([]entity.Part, int64, error) {
	if err := authorize(actor, rbac.ActionInventoryRead); err != nil {
		return nil, 0, err
	}
	return s.repos.Part.List(ctx, page, pageSize, filter)
}

// SearchParts 模糊搜索零件
func (s *InventoryService) SearchParts(ctx context.Context, actor Actor, keyword string) ([]entity.Part, error) {
	if err := authorize(actor, rbac.ActionInventoryRead); err != nil {
		return nil, err
	}
	if keyword == "" {
		return nil, apperr.Validation("search query is required")
	}
	return s.repos.Part.Search(ctx, keyword, 100)
}

// ListStatusLogs 查询零件流转历史
func (s *InventoryService) ListStatusLogs(ctx context.Context, actor Actor, partID string) ([]entity.StatusLog, error) {
	if err := authorize(actor, rbac.ActionInventoryRead); err != nil {
		return nil, err
	}
	if _, err := s.repos.Part.FindByID(ctx, partID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("part not found")
		}
		return nil, err
	}
	return s.repos.StatusLog.ListByPart(ctx, partID)
}

// AddWarrantyRequest 保修记录请求
type AddWarrantyRequest struct {
	StartDate  *time.Time `json:"start_date"`
	EndDate    *time.Time `json:"end_date"`
	Status     string     `json:"status"`
	Provider   string     `json:"provider" binding:"required"`
	Conditions string     `json:"conditions"`
}

// AddWarranty 给零件添加保修记录
func (s *InventoryService) AddWarranty(ctx context.Context, actor Actor, partID string, req *AddWarrantyRequest) (*entity.Warranty, error) {
	if err := authorize(actor, rbac.ActionWarrantyCreate); err != nil {
		return nil, err
	}

	var warranty *entity.Warranty
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		part, err := txRepos.Part.FindByID(ctx, partID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("part not found")
			}
			return err
		}

		warranty = &entity.Warranty{
			PartID:     part.ID,
			StartDate:  req.StartDate,
			EndDate:    req.EndDate,
			Status:     req.Status,
			Provider:   req.Provider,
			Conditions: req.Conditions,
		}
		if err := txRepos.Warranty.Create(ctx, warranty); err != nil {
			return err
		}

		details := fmt.Sprintf("Added warranty from %s for %s", req.Provider, part.NameProduct)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionAddWarranty, details)
	})
	if err != nil {
		return nil, err
	}
	return warranty, nil
}

// ListWarranties 查询零件保修记录
func (s *InventoryService) ListWarranties(ctx context.Context, actor Actor, partID string) ([]entity.Warranty, error) {
	if err := authorize(actor, rbac.ActionWarrantyRead); err != nil {
		return nil, err
	}
	if _, err := s.repos.Part.FindByID(ctx, partID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("part not found")
		}
		return nil, err
	}
	return s.repos.Warranty.ListByPart(ctx, partID)
}

// dispatchAfterCommit 事务提交后做外部投递，尽力而为
func (s *InventoryService) dispatchAfterCommit(drafts []entity.Notification) {
	if s.dispatcher == nil || len(drafts) == 0 {
		return
	}
	s.dispatcher.Push(drafts)
}
