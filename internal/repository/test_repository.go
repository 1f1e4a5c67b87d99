package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hqops/stocktrack/internal/entity"
)

// TestRepository 测试工单仓库
type TestRepository struct {
	db *gorm.DB
}

func NewTestRepository(db *gorm.DB) *TestRepository {
	return &TestRepository{db: db}
}

// Create 创建测试
func (r *TestRepository) Create(ctx context.Context, t *entity.Test) error {
	if t.ID == "" {
		t.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(t).Error
}

// FindByID 按ID查询
func (r *TestRepository) FindByID(ctx context.Context, id string) (*entity.Test, error) {
	var t entity.Test
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&t).Error; err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

// FindByIDForUpdate 按ID查询并加行锁（状态流转用）
func (r *TestRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Test, error) {
	var t entity.Test
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&t).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &t, nil
}

// TestFilter 测试过滤条件。CreatedBy非空时只返回该用户创建的。
type TestFilter struct {
	Status    string
	TestType  string
	PartID    string
	CreatedBy string
}

// List 分页查询测试
func (r *TestRepository) List(ctx context.Context, page, pageSize int, filter TestFilter) ([]entity.Test, int64, error) {
	var items []entity.Test
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Test{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.TestType != "" {
		query = query.Where("test_type = ?", filter.TestType)
	}
	if filter.PartID != "" {
		query = query.Where("part_id = ?", filter.PartID)
	}
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&items).Error
	return items, total, err
}

// Update 保存测试
func (r *TestRepository) Update(ctx context.Context, t *entity.Test) error {
	return r.db.WithContext(ctx).Save(t).Error
}

// SoftDelete 软删除测试
func (r *TestRepository) SoftDelete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Test{}).Error
}

// CreateResult 创建测试结果
func (r *TestRepository) CreateResult(ctx context.Context, res *entity.TestResult) error {
	if res.ID == "" {
		res.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(res).Error
}

// ListResults 查询测试结果
func (r *TestRepository) ListResults(ctx context.Context, testID string) ([]entity.TestResult, error) {
	var items []entity.TestResult
	err := r.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("created_at ASC").
		Find(&items).Error
	return items, err
}
