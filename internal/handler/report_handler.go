package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"report-go/internal/dto"
	"report-go/internal/service"
	"report-go/internal/utils"

	"github.com/gin-gonic/gin"
)

const (
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	docxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// ConvertLimiter 转换请求的并发槽位控制,由redis_limiter.ConcurrencyLimiter实现
type ConvertLimiter interface {
	Acquire(ctx context.Context, key string) error
	Release(ctx context.Context, key string)
}

// ReportHandler 报表处理器
type ReportHandler struct {
	reportService *service.ReportService
	convLimiter   ConvertLimiter
	maxFileSize   int64
}

// NewReportHandler 创建报表处理器
// convLimiter 可为nil,此时转换请求不做并发控制;maxFileSize为0时不限制上传大小
func NewReportHandler(reportService *service.ReportService, convLimiter ConvertLimiter, maxFileSize int64) *ReportHandler {
	return &ReportHandler{
		reportService: reportService,
		convLimiter:   convLimiter,
		maxFileSize:   maxFileSize,
	}
}

// checkFileSize 校验上传文件大小
func (h *ReportHandler) checkFileSize(c *gin.Context, size int64) bool {
	if h.maxFileSize > 0 && size > h.maxFileSize {
		utils.BadRequest(c, fmt.Sprintf("文件超过大小限制 %d 字节", h.maxFileSize))
		return false
	}
	return true
}

// respondServiceError 将服务层错误映射为HTTP状态码
func respondServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		utils.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrNotFound):
		utils.NotFound(c, err.Error())
	case errors.Is(err, service.ErrConflict):
		utils.Conflict(c, err.Error())
	default:
		utils.InternalError(c, err.Error())
	}
}

// parseID 解析路径中的报表ID
func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.BadRequest(c, "无效的ID")
		return 0, false
	}
	return uint(id), true
}

// ListReports 获取全部报表
func (h *ReportHandler) ListReports(c *gin.Context) {
	reports, err := h.reportService.List()
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.NewReportListResponse(reports))
}

// GetReport 获取单个报表
func (h *ReportHandler) GetReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, err := h.reportService.Get(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.NewReportResponse(report))
}

// CreateReport 创建报表(multipart表单: name + file)
func (h *ReportHandler) CreateReport(c *gin.Context) {
	name := c.PostForm("name")

	fileHeader, err := c.FormFile("file")
	if err != nil {
		utils.BadRequest(c, "缺少上传文件")
		return
	}
	if fileHeader.Size == 0 {
		utils.BadRequest(c, "上传文件为空")
		return
	}
	if !h.checkFileSize(c, fileHeader.Size) {
		return
	}

	src, err := fileHeader.Open()
	if err != nil {
		utils.BadRequest(c, "打开上传文件失败: "+err.Error())
		return
	}
	defer src.Close()

	report, err := h.reportService.Create(name, src, fileHeader.Filename)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Location", fmt.Sprintf("/api/reports/%d", report.ID))
	utils.CreatedResponse(c, dto.NewReportResponse(report))
}

// UpdateReport 更新报表(multipart表单,file可选)
func (h *ReportHandler) UpdateReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	name := c.PostForm("name")

	var file io.Reader
	var originalName string
	if fileHeader, err := c.FormFile("file"); err == nil && fileHeader.Size > 0 {
		if !h.checkFileSize(c, fileHeader.Size) {
			return
		}
		src, err := fileHeader.Open()
		if err != nil {
			utils.BadRequest(c, "打开上传文件失败: "+err.Error())
			return
		}
		defer src.Close()
		file = src
		originalName = fileHeader.Filename
	}

	report, err := h.reportService.Update(id, name, file, originalName)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, dto.NewReportResponse(report))
}

// DeleteReport 删除报表
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.reportService.Delete(id); err != nil {
		respondServiceError(c, err)
		return
	}
	c.Status(204)
}

// DownloadReport 下载报表原始文件
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	report, data, err := h.reportService.Download(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(service.DownloadFileName(report))))
	c.Data(200, xlsxContentType, data)
}

// PreviewReport 获取报表的工作表预览
func (h *ReportHandler) PreviewReport(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	previews, err := h.reportService.Preview(id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.SuccessResponse(c, gin.H{"worksheets": previews})
}

// ConvertToWord 将报表转换为Word文档
func (h *ReportHandler) ConvertToWord(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	// 转换是最重的操作,配置了Redis时做并发槽位控制
	if h.convLimiter != nil {
		if err := h.convLimiter.Acquire(c.Request.Context(), "convert"); err != nil {
			utils.TooManyRequests(c, "转换并发已达上限,请稍后重试")
			return
		}
		// 释放必须脱离请求上下文,客户端断开时槽位仍要归还
		defer h.convLimiter.Release(context.Background(), "convert")
	}

	report, data, err := h.reportService.ConvertToWord(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	fileName := service.DocxFileName(report)
	c.Header("Content-Disposition",
		fmt.Sprintf(`attachment; filename*=UTF-8''%s`, url.PathEscape(fileName)))
	c.Data(200, docxContentType, data)
}
