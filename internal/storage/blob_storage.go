package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// BlobStorage 本地文件存储
// 保存上传的二进制文件,文件名由UUID生成并保留原始扩展名,
// 与数据库元数据行的配对由上层服务维护
type BlobStorage struct {
	baseDir string
}

// NewBlobStorage 创建本地文件存储
func NewBlobStorage(baseDir string) (*BlobStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &BlobStorage{baseDir: baseDir}, nil
}

// BaseDir 获取存储目录
func (s *BlobStorage) BaseDir() string {
	return s.baseDir
}

// GenerateStoredName 生成防冲突的存储文件名,保留原始扩展名
func GenerateStoredName(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.New().String() + ext
}

// Save 将数据流完整写入存储,返回文件的绝对路径
func (s *BlobStorage) Save(storedName string, r io.Reader) (string, error) {
	path := filepath.Join(s.baseDir, storedName)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path) // 写入失败不留半截文件
		return "", fmt.Errorf("写入文件失败: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("关闭文件失败: %w", err)
	}

	return path, nil
}

// Read 读取文件完整内容
func (s *BlobStorage) Read(storedName string) ([]byte, error) {
	data, err := os.ReadFile(s.resolve(storedName))
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return data, nil
}

// Open 打开文件供流式读取
func (s *BlobStorage) Open(storedName string) (*os.File, error) {
	f, err := os.Open(s.resolve(storedName))
	if err != nil {
		return nil, fmt.Errorf("打开文件失败: %w", err)
	}
	return f, nil
}

// Exists 判断文件是否存在
func (s *BlobStorage) Exists(storedName string) bool {
	_, err := os.Stat(s.resolve(storedName))
	return err == nil
}

// Delete 删除文件,文件不存在时不视为错误
func (s *BlobStorage) Delete(storedName string) error {
	if storedName == "" {
		return nil
	}
	err := os.Remove(s.resolve(storedName))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("删除文件失败: %w", err)
	}
	return nil
}

// resolve 将存储名解析为路径,兼容历史数据中存的完整路径
func (s *BlobStorage) resolve(storedName string) string {
	if filepath.IsAbs(storedName) {
		return storedName
	}
	return filepath.Join(s.baseDir, filepath.Base(storedName))
}
