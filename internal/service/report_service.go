package service

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"report-go/internal/models"
	"report-go/internal/repository"
	"report-go/internal/storage"
	"report-go/pkg/docconv"

	"github.com/sirupsen/logrus"
)

// ReportService 报表服务
// 编排文件存储与元数据行: 创建先写文件后插行,删除先删文件后删行
// 两者之间没有事务保证,崩溃窗口可能留下孤儿文件(见DESIGN.md)
type ReportService struct {
	reportRepo *repository.ReportRepository
	blobStore  *storage.BlobStorage
	converter  docconv.Engine
	preview    *docconv.Converter
	logger     *logrus.Logger
}

// NewReportService 创建报表服务
func NewReportService(
	reportRepo *repository.ReportRepository,
	blobStore *storage.BlobStorage,
	converter docconv.Engine,
	preview *docconv.Converter,
	logger *logrus.Logger,
) *ReportService {
	return &ReportService{
		reportRepo: reportRepo,
		blobStore:  blobStore,
		converter:  converter,
		preview:    preview,
		logger:     logger,
	}
}

// Create 创建报表: 生成存储文件名,写入文件,再插入元数据行
func (s *ReportService) Create(name string, file io.Reader, originalName string) (*models.Report, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: 报表名称不能为空", ErrValidation)
	}
	if file == nil {
		return nil, fmt.Errorf("%w: 缺少上传文件", ErrValidation)
	}

	storedName := storage.GenerateStoredName(originalName)
	filePath, err := s.blobStore.Save(storedName, file)
	if err != nil {
		return nil, fmt.Errorf("保存上传文件失败: %w", err)
	}

	report := &models.Report{
		Name:       name,
		StoredName: storedName,
		FilePath:   filePath,
	}

	if err := s.reportRepo.Create(report); err != nil {
		// 插行失败时尽力回收刚写入的文件,避免孤儿
		if delErr := s.blobStore.Delete(storedName); delErr != nil {
			s.logger.WithError(delErr).WithField("stored_name", storedName).
				Warn("回收孤儿文件失败")
		}
		return nil, fmt.Errorf("保存报表元数据失败: %w", err)
	}

	return report, nil
}

// Get 获取单个报表
func (s *ReportService) Get(id uint) (*models.Report, error) {
	report, err := s.reportRepo.GetByID(id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, fmt.Errorf("%w: 报表 %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("查询报表失败: %w", err)
	}
	return report, nil
}

// List 获取全部报表
func (s *ReportService) List() ([]models.Report, error) {
	reports, err := s.reportRepo.List()
	if err != nil {
		return nil, fmt.Errorf("查询报表列表失败: %w", err)
	}
	return reports, nil
}

// Update 更新报表: 名称总是更新;提供了新文件时删除旧文件,
// 以新存储名写入新文件并更新行引用;未提供文件时文件引用不变
func (s *ReportService) Update(id uint, name string, file io.Reader, originalName string) (*models.Report, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: 报表名称不能为空", ErrValidation)
	}

	report, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	report.Name = name

	if file != nil {
		if err := s.blobStore.Delete(report.StoredName); err != nil {
			s.logger.WithError(err).WithField("stored_name", report.StoredName).
				Warn("删除旧文件失败")
		}

		storedName := storage.GenerateStoredName(originalName)
		filePath, err := s.blobStore.Save(storedName, file)
		if err != nil {
			return nil, fmt.Errorf("保存新文件失败: %w", err)
		}
		report.StoredName = storedName
		report.FilePath = filePath
	}

	if err := s.reportRepo.Update(report); err != nil {
		return nil, fmt.Errorf("更新报表元数据失败: %w", err)
	}

	return report, nil
}

// Delete 删除报表: 先删文件再删行,ID不存在时返回ErrNotFound
func (s *ReportService) Delete(id uint) error {
	report, err := s.Get(id)
	if err != nil {
		return err
	}

	if err := s.blobStore.Delete(report.StoredName); err != nil {
		// 文件删除失败只记日志,元数据行仍然删除
		s.logger.WithError(err).WithField("stored_name", report.StoredName).
			Warn("删除报表文件失败")
	}

	if err := s.reportRepo.Delete(report.ID); err != nil {
		return fmt.Errorf("删除报表元数据失败: %w", err)
	}

	return nil
}

// Download 下载报表原始文件
func (s *ReportService) Download(id uint) (*models.Report, []byte, error) {
	report, err := s.Get(id)
	if err != nil {
		return nil, nil, err
	}

	data, err := s.blobStore.Read(report.StoredName)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: 报表 %d 的文件缺失", ErrNotFound, id)
	}

	return report, data, nil
}

// Preview 提取报表的工作表预览
func (s *ReportService) Preview(id uint) ([]docconv.WorksheetPreview, error) {
	_, data, err := s.Download(id)
	if err != nil {
		return nil, err
	}

	previews, err := s.preview.Preview(data)
	if err != nil {
		return nil, fmt.Errorf("生成预览失败: %w", err)
	}
	return previews, nil
}

// ConvertToWord 将报表文件转换为Word文档
func (s *ReportService) ConvertToWord(ctx context.Context, id uint) (*models.Report, []byte, error) {
	report, data, err := s.Download(id)
	if err != nil {
		return nil, nil, err
	}

	result, err := s.converter.Convert(ctx, data)
	if err != nil {
		return nil, nil, fmt.Errorf("文档转换失败: %w", err)
	}

	return report, result, nil
}

// DownloadFileName 下载用的文件名: 用户命名的报表名,缺扩展名时补上存储文件的扩展名
func DownloadFileName(report *models.Report) string {
	name := report.Name
	if filepath.Ext(name) == "" {
		name += filepath.Ext(report.StoredName)
	}
	return name
}

// DocxFileName 转换结果的下载文件名: 原名去扩展名加.docx
func DocxFileName(report *models.Report) string {
	base := strings.TrimSuffix(report.Name, filepath.Ext(report.Name))
	if base == "" {
		base = strings.TrimSuffix(report.StoredName, filepath.Ext(report.StoredName))
	}
	return base + ".docx"
}
