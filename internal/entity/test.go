package entity

import (
	"time"

	"gorm.io/gorm"
)

// 测试状态
const (
	TestStatusPending    = "pending"
	TestStatusInProgress = "in_progress"
	TestStatusCompleted  = "completed"
	TestStatusFailed     = "failed"
	TestStatusCancelled  = "cancelled"
)

func ValidTestStatus(s string) bool {
	switch s {
	case TestStatusPending, TestStatusInProgress, TestStatusCompleted,
		TestStatusFailed, TestStatusCancelled:
		return true
	}
	return false
}

// 测试类型
const (
	TestTypeUnit        = "unit"
	TestTypeIntegration = "integration"
	TestTypeSystem      = "system"
	TestTypeAcceptance  = "acceptance"
	TestTypePerformance = "performance"
	TestTypeSecurity    = "security"
	TestTypeFunctional  = "functional"
	TestTypeRegression  = "regression"
	TestTypeSmoke       = "smoke"
	TestTypeSanity      = "sanity"
)

func ValidTestType(s string) bool {
	switch s {
	case TestTypeUnit, TestTypeIntegration, TestTypeSystem, TestTypeAcceptance,
		TestTypePerformance, TestTypeSecurity, TestTypeFunctional,
		TestTypeRegression, TestTypeSmoke, TestTypeSanity:
		return true
	}
	return false
}

// Test 测试工单。与工单同构的简化生命周期，所有权规则相同。
// PartID非空时表示针对某个库存零件的工程测试。
type Test struct {
	ID             string         `json:"test_id" gorm:"primaryKey;size:32"`
	Title          string         `json:"title" gorm:"size:255;not null"`
	Description    string         `json:"description" gorm:"type:text"`
	TestType       string         `json:"test_type" gorm:"size:20;not null"`
	Status         string         `json:"status" gorm:"size:20;not null;default:pending"`
	PartID         *string        `json:"part_id,omitempty" gorm:"size:32;index"`
	CreatedBy      string         `json:"created_by" gorm:"size:32;not null;index"`
	LastModifiedBy string         `json:"last_modified_by,omitempty" gorm:"size:32"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `json:"-" gorm:"index"`

	Results []TestResult `json:"results,omitempty" gorm:"foreignKey:TestID"`
}

func (Test) TableName() string {
	return "tests"
}

// TestResult 测试结果记录
type TestResult struct {
	ID        string    `json:"result_id" gorm:"primaryKey;size:32"`
	TestID    string    `json:"test_id" gorm:"size:32;not null;index"`
	Result    string    `json:"result" gorm:"size:255;not null"`
	Notes     string    `json:"notes,omitempty" gorm:"type:text"`
	CreatedBy string    `json:"created_by" gorm:"size:32;not null"`
	CreatedAt time.Time `json:"created_at"`
}

func (TestResult) TableName() string {
	return "test_results"
}
