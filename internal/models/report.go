package models

import (
	"time"
)

// Report 报表模型
// StoredName/FilePath 指向上传目录中的实际文件,创建路径先写文件后插行,
// 因此行存在时文件一定存在(崩溃窗口除外,见 ReportService)
type Report struct {
	ID         uint      `gorm:"primarykey" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	StoredName string    `gorm:"uniqueIndex;size:100;not null" json:"file_name"`
	FilePath   string    `gorm:"size:500;not null" json:"file_path"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName 指定表名
func (Report) TableName() string {
	return "reports"
}
