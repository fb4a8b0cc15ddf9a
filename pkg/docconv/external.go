package docconv

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ErrConvertTimeout 外部转换进程超时,区别于非零退出码
var ErrConvertTimeout = errors.New("外部转换超时")

// ExternalConverter 外部进程转换器
// 调用soffice的无头转换,每次转换使用独立临时目录,
// 临时文件/锁文件在任何退出路径上都会被清理
type ExternalConverter struct {
	bin     string
	timeout time.Duration
}

// NewExternalConverter 创建外部进程转换器
func NewExternalConverter(bin string, timeout time.Duration) *ExternalConverter {
	if bin == "" {
		bin = "soffice"
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &ExternalConverter{bin: bin, timeout: timeout}
}

// Convert 将电子表格转换为Word文档
func (e *ExternalConverter) Convert(ctx context.Context, data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "docconv-*")
	if err != nil {
		return nil, fmt.Errorf("创建临时目录失败: %w", err)
	}
	// 输入/输出/锁文件和独立的soffice配置目录都在tmpDir下,
	// 无论转换成功/失败/超时都在此统一清理
	defer os.RemoveAll(tmpDir)

	inputPath := filepath.Join(tmpDir, "input.xlsx")
	if err := os.WriteFile(inputPath, data, 0600); err != nil {
		return nil, fmt.Errorf("写入临时输入文件失败: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	profileDir := filepath.Join(tmpDir, "profile")
	cmd := exec.CommandContext(ctx, e.bin,
		"--headless",
		"-env:UserInstallation=file://"+profileDir,
		"--convert-to", "docx",
		"--outdir", tmpDir,
		inputPath,
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// 超时由context杀掉进程,与非零退出码区分上报
		if ctx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("%w: 超过 %s", ErrConvertTimeout, e.timeout)
		}
		return nil, fmt.Errorf("外部转换进程失败: %w, stderr: %s", err, stderr.String())
	}

	outputPath := filepath.Join(tmpDir, "input.docx")
	result, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, fmt.Errorf("读取转换结果失败(stdout: %s): %w", stdout.String(), err)
	}
	return result, nil
}
