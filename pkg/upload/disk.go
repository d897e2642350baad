// Package upload 将上传文件保存到本地磁盘
package upload

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidRef 非法的文件引用（包含路径分隔符或越界）
var ErrInvalidRef = errors.New("invalid file reference")

// DiskSink 以 uuid 重命名后写入目录，返回的引用即存储文件名
type DiskSink struct {
	dir string
}

// NewDiskSink 创建磁盘存储，目录不存在时自动创建
func NewDiskSink(dir string) (*DiskSink, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("创建上传目录失败: %w", err)
	}
	return &DiskSink{dir: dir}, nil
}

// Save 写入文件，保留原始扩展名
func (s *DiskSink) Save(originalName string, r io.Reader) (string, error) {
	ref := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))

	f, err := os.OpenFile(filepath.Join(s.dir, ref), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0644)
	if err != nil {
		return "", fmt.Errorf("创建文件失败: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(f.Name())
		return "", fmt.Errorf("写入文件失败: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("关闭文件失败: %w", err)
	}
	return ref, nil
}

// Path 引用对应的磁盘路径
func (s *DiskSink) Path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", ErrInvalidRef
	}
	return filepath.Join(s.dir, ref), nil
}

// Remove 删除文件，文件不存在不算错误
func (s *DiskSink) Remove(ref string) error {
	p, err := s.Path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
