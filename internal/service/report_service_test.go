package service

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"report-go/internal/models"
	"report-go/internal/repository"
	"report-go/internal/storage"
	"report-go/pkg/docconv"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "test.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Report{}))
	return db
}

func newTestLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func setupReportService(t *testing.T) (*ReportService, *storage.BlobStorage) {
	t.Helper()
	db := setupTestDB(t)
	blobStore, err := storage.NewBlobStorage(t.TempDir())
	require.NoError(t, err)

	cv := docconv.NewConverter(docconv.DefaultOptions())
	svc := NewReportService(repository.NewReportRepository(db), blobStore, cv, cv, newTestLogger())
	return svc, blobStore
}

func sampleWorkbook(t *testing.T) []byte {
	t.Helper()
	f := excelize.NewFile()
	require.NoError(t, f.SetCellValue("Sheet1", "A1", "季度"))
	require.NoError(t, f.SetCellValue("Sheet1", "B1", "营收"))
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))
	require.NoError(t, f.Close())
	return buf.Bytes()
}

func TestReportCreateAndGet(t *testing.T) {
	svc, blobStore := setupReportService(t)
	content := []byte("file-bytes")

	report, err := svc.Create("月度报表", bytes.NewReader(content), "original.xlsx")
	require.NoError(t, err)
	assert.NotZero(t, report.ID)
	assert.Equal(t, "月度报表", report.Name)
	assert.NotEqual(t, "original.xlsx", report.StoredName)
	assert.Equal(t, ".xlsx", filepath.Ext(report.StoredName))

	got, err := svc.Get(report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Name, got.Name)

	// 存储文件与上传内容字节一致
	stored, err := blobStore.Read(got.StoredName)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestReportCreateValidation(t *testing.T) {
	svc, _ := setupReportService(t)

	_, err := svc.Create("  ", bytes.NewReader([]byte("x")), "a.xlsx")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create("有名字", nil, "a.xlsx")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestReportGetNotFound(t *testing.T) {
	svc, _ := setupReportService(t)

	_, err := svc.Get(9999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportList(t *testing.T) {
	svc, _ := setupReportService(t)

	for _, name := range []string{"一", "二", "三"} {
		_, err := svc.Create(name, bytes.NewReader([]byte(name)), name+".xlsx")
		require.NoError(t, err)
	}

	reports, err := svc.List()
	require.NoError(t, err)
	assert.Len(t, reports, 3)
}

func TestReportUpdateNameOnly(t *testing.T) {
	svc, blobStore := setupReportService(t)
	content := []byte("keep-me")

	report, err := svc.Create("旧名字", bytes.NewReader(content), "a.xlsx")
	require.NoError(t, err)
	oldStored := report.StoredName

	updated, err := svc.Update(report.ID, "新名字", nil, "")
	require.NoError(t, err)
	assert.Equal(t, "新名字", updated.Name)
	// 未提供新文件时文件引用与内容保持不变
	assert.Equal(t, oldStored, updated.StoredName)
	stored, err := blobStore.Read(oldStored)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
}

func TestReportUpdateWithFile(t *testing.T) {
	svc, blobStore := setupReportService(t)

	report, err := svc.Create("报表", bytes.NewReader([]byte("old")), "a.xlsx")
	require.NoError(t, err)
	oldStored := report.StoredName

	updated, err := svc.Update(report.ID, "报表", bytes.NewReader([]byte("new")), "b.xlsx")
	require.NoError(t, err)
	assert.NotEqual(t, oldStored, updated.StoredName)

	// 旧文件已删除,新文件内容生效
	assert.False(t, blobStore.Exists(oldStored))
	stored, err := blobStore.Read(updated.StoredName)
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), stored)
}

func TestReportUpdateNotFound(t *testing.T) {
	svc, _ := setupReportService(t)

	_, err := svc.Update(404, "名字", nil, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportDelete(t *testing.T) {
	svc, blobStore := setupReportService(t)

	report, err := svc.Create("要删的", bytes.NewReader([]byte("x")), "a.xlsx")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(report.ID))

	// 行和文件一起消失
	_, err = svc.Get(report.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, blobStore.Exists(report.StoredName))

	// 再删同一个ID返回确定性的NotFound
	assert.ErrorIs(t, svc.Delete(report.ID), ErrNotFound)
}

func TestReportDownload(t *testing.T) {
	svc, _ := setupReportService(t)
	content := []byte("download-me")

	report, err := svc.Create("下载", bytes.NewReader(content), "a.xlsx")
	require.NoError(t, err)

	got, data, err := svc.Download(report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.ID, got.ID)
	assert.Equal(t, content, data)
}

func TestReportConvertToWord(t *testing.T) {
	svc, _ := setupReportService(t)

	report, err := svc.Create("转换", bytes.NewReader(sampleWorkbook(t)), "a.xlsx")
	require.NoError(t, err)

	_, out, err := svc.ConvertToWord(context.Background(), report.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestReportConvertMissingFile(t *testing.T) {
	svc, _ := setupReportService(t)

	report, err := svc.Create("文件丢了", bytes.NewReader(sampleWorkbook(t)), "a.xlsx")
	require.NoError(t, err)

	// 行在文件不在,按NotFound处理
	require.NoError(t, os.Remove(report.FilePath))
	_, _, err = svc.ConvertToWord(context.Background(), report.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReportPreview(t *testing.T) {
	svc, _ := setupReportService(t)

	report, err := svc.Create("预览", bytes.NewReader(sampleWorkbook(t)), "a.xlsx")
	require.NoError(t, err)

	previews, err := svc.Preview(report.ID)
	require.NoError(t, err)
	require.Len(t, previews, 1)
	assert.Equal(t, "Sheet1", previews[0].Name)
}

func TestDocxFileName(t *testing.T) {
	assert.Equal(t, "季报.docx", DocxFileName(&models.Report{Name: "季报.xlsx"}))
	assert.Equal(t, "季报.docx", DocxFileName(&models.Report{Name: "季报"}))
}

func TestDownloadFileName(t *testing.T) {
	// 下载文件名用报表名,缺扩展名时补上存储文件的扩展名
	assert.Equal(t, "季报.xlsx",
		DownloadFileName(&models.Report{Name: "季报.xlsx", StoredName: "abc-123.xlsx"}))
	assert.Equal(t, "季报.xlsx",
		DownloadFileName(&models.Report{Name: "季报", StoredName: "abc-123.xlsx"}))
}
