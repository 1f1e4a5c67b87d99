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

// TestService 测试工单工作流，所有权规则与工单一致。
// 库存送测产生的测试记录也通过本仓库查询，但其生命周期由库存流转驱动。
type TestService struct {
	db    *gorm.DB
	repos *repository.Repositories
}

func NewTestService(db *gorm.DB, repos *repository.Repositories) *TestService {
	return &TestService{db: db, repos: repos}
}

// CreateTestRequest 创建测试请求。PartID可选，关联库存零件。
type CreateTestRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	TestType    string  `json:"test_type" binding:"required"`
	PartID      *string `json:"part_id"`
}

// CreateTest 创建测试，初始状态pending
func (s *TestService) CreateTest(ctx context.Context, actor Actor, req *CreateTestRequest) (*entity.Test, error) {
	if err := authorize(actor, rbac.ActionTestCreate); err != nil {
		return nil, err
	}
	if !entity.ValidTestType(req.TestType) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown test type: %q", req.TestType)
	}

	test := &entity.Test{
		Title:       req.Title,
		Description: req.Description,
		TestType:    req.TestType,
		Status:      entity.TestStatusPending,
		PartID:      req.PartID,
		CreatedBy:   actor.ID,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		if req.PartID != nil {
			if _, err := txRepos.Part.FindByID(ctx, *req.PartID); err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					return apperr.NotFound("part not found")
				}
				return err
			}
		}

		if err := txRepos.Test.Create(ctx, test); err != nil {
			return err
		}
		details := fmt.Sprintf("Created new test: %s", req.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionCreateTest, details)
	})
	if err != nil {
		return nil, err
	}
	return test, nil
}

// GetTest 查询测试，user角色只能看自己的
func (s *TestService) GetTest(ctx context.Context, actor Actor, id string) (*entity.Test, error) {
	if err := authorize(actor, rbac.ActionTestRead); err != nil {
		return nil, err
	}
	test, err := s.repos.Test.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("test not found")
		}
		return nil, err
	}
	if err := ownershipGuard(actor, test.CreatedBy); err != nil {
		return nil, err
	}
	return test, nil
}

// ListTests 分页查询，user角色自动收窄到自己创建的
func (s *TestService) ListTests(ctx context.Context, actor Actor, page, pageSize int, filter repository.TestFilter) ([]entity.Test, int64, error) {
	if err := authorize(actor, rbac.ActionTestRead); err != nil {
		return nil, 0, err
	}
	if !rbac.Elevated(actor.Role) {
		filter.CreatedBy = actor.ID
	}
	return s.repos.Test.List(ctx, page, pageSize, filter)
}

// UpdateTestRequest 更新测试请求
type UpdateTestRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	TestType    *string `json:"test_type"`
	Status      *string `json:"status"`
}

// UpdateTest 更新测试。状态变化时通知所有者。
func (s *TestService) UpdateTest(ctx context.Context, actor Actor, id string, req *UpdateTestRequest) (*entity.Test, error) {
	if err := authorize(actor, rbac.ActionTestUpdate); err != nil {
		return nil, err
	}
	if req.Status != nil && !entity.ValidTestStatus(*req.Status) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown test status: %q", *req.Status)
	}
	if req.TestType != nil && !entity.ValidTestType(*req.TestType) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown test type: %q", *req.TestType)
	}

	var test *entity.Test
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		var err error
		test, err = txRepos.Test.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("test not found")
			}
			return err
		}
		if err := ownershipGuard(actor, test.CreatedBy); err != nil {
			return err
		}

		statusChanged := false
		if req.Title != nil {
			test.Title = *req.Title
		}
		if req.Description != nil {
			test.Description = *req.Description
		}
		if req.TestType != nil {
			test.TestType = *req.TestType
		}
		if req.Status != nil && *req.Status != test.Status {
			test.Status = *req.Status
			statusChanged = true
		}
		test.LastModifiedBy = actor.ID

		if err := txRepos.Test.Update(ctx, test); err != nil {
			return err
		}

		if statusChanged {
			drafts, err := Fanout(ctx, txRepos, Event{
				Kind:    EventStatusChanged,
				Subject: test.Title,
				OwnerID: test.CreatedBy,
				ActorID: actor.ID,
			})
			if err != nil {
				return err
			}
			if err := txRepos.Notification.CreateBatch(ctx, drafts); err != nil {
				return err
			}
		}

		details := fmt.Sprintf("Updated test: %s", test.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionUpdateTest, details)
	})
	if err != nil {
		return nil, err
	}
	return test, nil
}

// DeleteTest 软删除测试
func (s *TestService) DeleteTest(ctx context.Context, actor Actor, id string) error {
	if err := authorize(actor, rbac.ActionTestDelete); err != nil {
		return err
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		test, err := txRepos.Test.FindByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("test not found")
			}
			return err
		}
		if err := ownershipGuard(actor, test.CreatedBy); err != nil {
			return err
		}

		details := fmt.Sprintf("Deleted test: %s", test.Title)
		if err := txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionDeleteTest, details); err != nil {
			return err
		}
		return txRepos.Test.SoftDelete(ctx, test.ID)
	})
}

// AddResultRequest 测试结果请求
type AddResultRequest struct {
	Result string `json:"result" binding:"required"`
	Notes  string `json:"notes"`
}

// AddResult 给测试添加结果。非所有者添加时通知所有者。
func (s *TestService) AddResult(ctx context.Context, actor Actor, testID string, req *AddResultRequest) (*entity.TestResult, error) {
	if err := authorize(actor, rbac.ActionTestAddResult); err != nil {
		return nil, err
	}

	var result *entity.TestResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepos := s.repos.WithTx(tx)

		test, err := txRepos.Test.FindByID(ctx, testID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("test not found")
			}
			return err
		}
		if err := ownershipGuard(actor, test.CreatedBy); err != nil {
			return err
		}

		result = &entity.TestResult{
			TestID:    test.ID,
			Result:    req.Result,
			Notes:     req.Notes,
			CreatedBy: actor.ID,
		}
		if err := txRepos.Test.CreateResult(ctx, result); err != nil {
			return err
		}

		drafts, err := Fanout(ctx, txRepos, Event{
			Kind:    EventNewResult,
			Subject: test.Title,
			OwnerID: test.CreatedBy,
			ActorID: actor.ID,
		})
		if err != nil {
			return err
		}
		if err := txRepos.Notification.CreateBatch(ctx, drafts); err != nil {
			return err
		}

		details := fmt.Sprintf("Added result to test: %s", test.Title)
		return txRepos.ActivityLog.Record(ctx, actor.ID, entity.ActionAddTestResult, details)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListResults 查询测试结果
func (s *TestService) ListResults(ctx context.Context, actor Actor, testID string) ([]entity.TestResult, error) {
	if _, err := s.GetTest(ctx, actor, testID); err != nil {
		return nil, err
	}
	return s.repos.Test.ListResults(ctx, testID)
}
