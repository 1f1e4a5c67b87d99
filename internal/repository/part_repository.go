package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hqops/stocktrack/internal/entity"
)

// PartRepository 库存零件仓库
type PartRepository struct {
	db *gorm.DB
}

func NewPartRepository(db *gorm.DB) *PartRepository {
	return &PartRepository{db: db}
}

// Create 创建零件。并发入库撞上序列号唯一索引时返回ErrDuplicate。
func (r *PartRepository) Create(ctx context.Context, part *entity.Part) error {
	if part.ID == "" {
		part.ID = uuid.New().String()[:32]
	}
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		return translateErr(err)
	}
	return nil
}

// FindByID 按ID查询
func (r *PartRepository) FindByID(ctx context.Context, id string) (*entity.Part, error) {
	var part entity.Part
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&part).Error; err != nil {
		return nil, translateErr(err)
	}
	return &part, nil
}

// FindByIDForUpdate 按ID查询并加行锁。状态流转必须走这里，
// 保证并发流转对同一零件串行化（防丢失更新）。
func (r *PartRepository) FindByIDForUpdate(ctx context.Context, id string) (*entity.Part, error) {
	var part entity.Part
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&part).Error
	if err != nil {
		return nil, translateErr(err)
	}
	return &part, nil
}

// FindBySerial 按序列号查询。入库时在同一事务内调用以保证唯一性检查无竞态。
func (r *PartRepository) FindBySerial(ctx context.Context, serial string) (*entity.Part, error) {
	var part entity.Part
	if err := r.db.WithContext(ctx).Where("serial_number = ?", serial).First(&part).Error; err != nil {
		return nil, translateErr(err)
	}
	return &part, nil
}

// PartFilter 零件列表过滤条件
type PartFilter struct {
	Location     string
	Type         string
	Name         string
	PartNumber   string
	SerialNumber string
	Status       string
}

// List 分页查询零件
func (r *PartRepository) List(ctx context.Context, page, pageSize int, filter PartFilter) ([]entity.Part, int64, error) {
	var parts []entity.Part
	var total int64

	query := r.db.WithContext(ctx).Model(&entity.Part{})
	if filter.Location != "" {
		query = query.Where("location = ?", filter.Location)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.Name != "" {
		query = query.Where("name_product ILIKE ?", "%"+filter.Name+"%")
	}
	if filter.PartNumber != "" {
		query = query.Where("part_number ILIKE ?", "%"+filter.PartNumber+"%")
	}
	if filter.SerialNumber != "" {
		query = query.Where("serial_number ILIKE ?", "%"+filter.SerialNumber+"%")
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&parts).Error
	return parts, total, err
}

// Search 跨字段模糊搜索
func (r *PartRepository) Search(ctx context.Context, keyword string, limit int) ([]entity.Part, error) {
	var parts []entity.Part
	like := "%" + keyword + "%"
	err := r.db.WithContext(ctx).
		Where("name_product ILIKE ? OR part_number ILIKE ? OR serial_number ILIKE ? OR type ILIKE ? OR location ILIKE ? OR sub_location ILIKE ?",
			like, like, like, like, like, like).
		Limit(limit).
		Find(&parts).Error
	return parts, err
}

// Update 保存零件
func (r *PartRepository) Update(ctx context.Context, part *entity.Part) error {
	return r.db.WithContext(ctx).Save(part).Error
}

// Delete 物理删除零件（管理员破坏性操作，审计先行）
func (r *PartRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&entity.Part{}).Error
}

// StatusLogRepository 状态流转记录仓库
type StatusLogRepository struct {
	db *gorm.DB
}

func NewStatusLogRepository(db *gorm.DB) *StatusLogRepository {
	return &StatusLogRepository{db: db}
}

// Create 写一条流转记录。失败必须让所属事务回滚。
func (r *StatusLogRepository) Create(ctx context.Context, log *entity.StatusLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// ListByPart 查询某零件的流转历史，创建序稳定（自增ID兜底排序）
func (r *StatusLogRepository) ListByPart(ctx context.Context, partID string) ([]entity.StatusLog, error) {
	var logs []entity.StatusLog
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("updated_at ASC, id ASC").
		Find(&logs).Error
	return logs, err
}

// WarrantyRepository 保修记录仓库
type WarrantyRepository struct {
	db *gorm.DB
}

func NewWarrantyRepository(db *gorm.DB) *WarrantyRepository {
	return &WarrantyRepository{db: db}
}

// Create 创建保修记录
func (r *WarrantyRepository) Create(ctx context.Context, w *entity.Warranty) error {
	if w.ID == "" {
		w.ID = uuid.New().String()[:32]
	}
	return r.db.WithContext(ctx).Create(w).Error
}

// FindByID 按ID查询
func (r *WarrantyRepository) FindByID(ctx context.Context, id string) (*entity.Warranty, error) {
	var w entity.Warranty
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&w).Error; err != nil {
		return nil, translateErr(err)
	}
	return &w, nil
}

// ListByPart 查询某零件的保修记录
func (r *WarrantyRepository) ListByPart(ctx context.Context, partID string) ([]entity.Warranty, error) {
	var items []entity.Warranty
	err := r.db.WithContext(ctx).
		Where("part_id = ?", partID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}
