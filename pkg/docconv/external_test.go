package docconv

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeStubSoffice 写一个模拟soffice命令行约定的脚本
// 参数约定: --headless -env:... --convert-to docx --outdir <dir> <input>
func writeStubSoffice(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("测试脚本依赖sh")
	}
	path := filepath.Join(t.TempDir(), "soffice-stub")
	script := "#!/bin/sh\noutdir=$6\ninput=$7\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func TestExternalConvertSuccess(t *testing.T) {
	bin := writeStubSoffice(t, `printf 'fake-docx' > "$outdir/input.docx"`)

	conv := NewExternalConverter(bin, 10*time.Second)
	out, err := conv.Convert(context.Background(), []byte("xlsx-bytes"))
	require.NoError(t, err)
	assert.Equal(t, []byte("fake-docx"), out)
}

func TestExternalConvertTimeout(t *testing.T) {
	bin := writeStubSoffice(t, `sleep 30`)

	conv := NewExternalConverter(bin, 200*time.Millisecond)
	start := time.Now()
	_, err := conv.Convert(context.Background(), []byte("xlsx-bytes"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConvertTimeout)
	// context杀掉子进程,不等它睡满
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestExternalConvertNonZeroExit(t *testing.T) {
	bin := writeStubSoffice(t, `echo "conversion blew up" >&2; exit 3`)

	conv := NewExternalConverter(bin, 10*time.Second)
	_, err := conv.Convert(context.Background(), []byte("xlsx-bytes"))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrConvertTimeout)
	assert.Contains(t, err.Error(), "conversion blew up")
}

func TestExternalConvertCleansTempFiles(t *testing.T) {
	bin := writeStubSoffice(t, `touch "$outdir/.~lock.input.docx#"; printf 'x' > "$outdir/input.docx"`)

	tmpBefore := countTempDirs(t)
	conv := NewExternalConverter(bin, 10*time.Second)
	_, err := conv.Convert(context.Background(), []byte("xlsx-bytes"))
	require.NoError(t, err)

	// 临时目录(含锁文件)在成功路径上被整体清理
	assert.Equal(t, tmpBefore, countTempDirs(t))
}

func countTempDirs(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "docconv-*"))
	require.NoError(t, err)
	return len(matches)
}
