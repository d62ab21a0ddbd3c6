package storage

import (
	"io"
	"strings"
)

// ArtifactInfo 语料库产物元数据
type ArtifactInfo struct {
	Name     string // 产物对象名，例如 corpus/<run-id>.json
	Size     int64  // 产物大小(字节)
	MimeType string // MIME类型
}

// Storage 语料库产物存储接口
// 抓取产出的语料库文件通过它发布，可以有不同实现(本地文件系统、MinIO)
type Storage interface {
	// Save 保存产物并返回元数据
	Save(reader io.Reader, name string) (ArtifactInfo, error)

	// Open 打开产物内容
	Open(name string) (io.ReadCloser, error)

	// Delete 删除产物
	Delete(name string) error

	// List 列出所有产物
	List() ([]ArtifactInfo, error)

	// Exists 检查产物是否存在
	Exists(name string) (bool, error)
}

// getMimeType 根据产物扩展名判断MIME类型
func getMimeType(name string) string {
	switch {
	case strings.HasSuffix(strings.ToLower(name), ".json"):
		return "application/json"
	case strings.HasSuffix(strings.ToLower(name), ".html"):
		return "text/html"
	case strings.HasSuffix(strings.ToLower(name), ".txt"):
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}
