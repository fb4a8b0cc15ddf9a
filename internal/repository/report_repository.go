package repository

import (
	"report-go/internal/models"

	"gorm.io/gorm"
)

// ReportRepository 报表元数据数据访问层
type ReportRepository struct {
	db *gorm.DB
}

// NewReportRepository 创建报表Repository
func NewReportRepository(db *gorm.DB) *ReportRepository {
	return &ReportRepository{db: db}
}

// Create 创建报表
func (r *ReportRepository) Create(report *models.Report) error {
	return r.db.Create(report).Error
}

// GetByID 根据ID获取报表
func (r *ReportRepository) GetByID(id uint) (*models.Report, error) {
	var report models.Report
	err := r.db.First(&report, id).Error
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// List 获取全部报表
func (r *ReportRepository) List() ([]models.Report, error) {
	var reports []models.Report
	err := r.db.Order("id ASC").Find(&reports).Error
	return reports, err
}

// Update 更新报表
func (r *ReportRepository) Update(report *models.Report) error {
	return r.db.Save(report).Error
}

// Delete 删除报表
func (r *ReportRepository) Delete(id uint) error {
	return r.db.Delete(&models.Report{}, id).Error
}
