// internal/storage/file_storage.go
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	apperrors "github.com/Corphon/NoteQuiz/internal/errors"
)

// ErrNotFound 文件不存在
var ErrNotFound = errors.New("文件不存在")

// FileStorage 以 BaseDir 为根的 JSON 文件存储，写入为临时文件加重命名
type FileStorage struct {
	BaseDir   string
	fileLocks sync.Map // 完整路径 -> *sync.RWMutex
}

// NewFileStorage 创建存储并确保根目录存在
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("创建存储目录失败: %w", err)
	}
	return &FileStorage{BaseDir: baseDir}, nil
}

func (s *FileStorage) getFileLock(fullPath string) *sync.RWMutex {
	value, _ := s.fileLocks.LoadOrStore(fullPath, &sync.RWMutex{})
	return value.(*sync.RWMutex)
}

// Path 文件的完整路径
func (s *FileStorage) Path(filename string) string {
	return filepath.Join(s.BaseDir, filename)
}

// SaveTextFile 原子写入文件
func (s *FileStorage) SaveTextFile(filename string, content []byte) error {
	fullPath := s.Path(filename)
	lock := s.getFileLock(fullPath)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}

	tempPath := fullPath + ".tmp"
	if err := os.WriteFile(tempPath, content, 0644); err != nil {
		return fmt.Errorf("保存临时文件失败: %w", err)
	}
	if err := os.Rename(tempPath, fullPath); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("保存文件失败: %w", err)
	}
	return nil
}

// SaveJSONFile 序列化后原子写入
func (s *FileStorage) SaveJSONFile(filename string, data interface{}) error {
	content, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化JSON失败: %w", err)
	}
	return s.SaveTextFile(filename, content)
}

// LoadTextFile 读取文件；不存在时返回 not_found 类型的 AppError，可用 errors.Is 匹配 ErrNotFound
func (s *FileStorage) LoadTextFile(filename string) ([]byte, error) {
	fullPath := s.Path(filename)
	lock := s.getFileLock(fullPath)
	lock.RLock()
	defer lock.RUnlock()

	data, err := os.ReadFile(fullPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, apperrors.NewNotFoundError(filename+" not found", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	return data, nil
}

// LoadJSONFile 读取并解析JSON文件
func (s *FileStorage) LoadJSONFile(filename string, v interface{}) error {
	data, err := s.LoadTextFile(filename)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("解析JSON失败: %w", err)
	}
	return nil
}
