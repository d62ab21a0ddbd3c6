package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// LocalStorage 本地文件系统产物存储实现
type LocalStorage struct {
	basePath string // 基础存储路径
}

// LocalConfig 本地存储配置
type LocalConfig struct {
	Path string // 本地存储路径
}

// NewLocalStorage 创建本地存储实例
func NewLocalStorage(cfg LocalConfig) (*LocalStorage, error) {
	// 确保路径是绝对路径
	absPath, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %v", err)
	}

	// 确保目录存在
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %v", err)
	}

	return &LocalStorage{
		basePath: absPath,
	}, nil
}

// objectPath 将产物名映射为本地路径，拒绝越出基础目录的名字
func (s *LocalStorage) objectPath(name string) (string, error) {
	cleaned := filepath.Clean(filepath.FromSlash(name))
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("invalid artifact name: %s", name)
	}
	return filepath.Join(s.basePath, cleaned), nil
}

// Save 保存产物到本地存储
func (s *LocalStorage) Save(reader io.Reader, name string) (ArtifactInfo, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return ArtifactInfo{}, err
	}

	// 产物名允许带目录前缀，例如 corpus/<run-id>.json
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return ArtifactInfo{}, fmt.Errorf("failed to create directory: %v", err)
	}

	file, err := os.Create(path)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("failed to create file: %v", err)
	}
	defer file.Close()

	size, err := io.Copy(file, reader)
	if err != nil {
		return ArtifactInfo{}, fmt.Errorf("failed to write file: %v", err)
	}

	return ArtifactInfo{
		Name:     name,
		Size:     size,
		MimeType: getMimeType(name),
	}, nil
}

// Open 打开产物内容
func (s *LocalStorage) Open(name string) (io.ReadCloser, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact %s not found", name)
		}
		return nil, fmt.Errorf("failed to open file: %v", err)
	}

	return file, nil
}

// Delete 删除产物
func (s *LocalStorage) Delete(name string) error {
	path, err := s.objectPath(name)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		return fmt.Errorf("failed to delete file: %v", err)
	}

	return nil
}

// List 列出所有产物
func (s *LocalStorage) List() ([]ArtifactInfo, error) {
	var artifacts []ArtifactInfo

	err := filepath.Walk(s.basePath, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// 跳过目录
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(s.basePath, path)
		if err != nil {
			return err
		}

		name := filepath.ToSlash(relPath)
		artifacts = append(artifacts, ArtifactInfo{
			Name:     name,
			Size:     info.Size(),
			MimeType: getMimeType(name),
		})

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list artifacts: %v", err)
	}

	return artifacts, nil
}

// Exists 检查产物是否存在
func (s *LocalStorage) Exists(name string) (bool, error) {
	path, err := s.objectPath(name)
	if err != nil {
		return false, err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
