package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
	"github.com/Refugee-Solidarity-Network/orientATIon/pkg/storage"
)

// Exporter 语料库导出服务
// 负责语料库文件的读写、FAQ格式导出和产物发布
type Exporter struct {
	storage storage.Storage // 产物存储后端，为nil时不发布
	logger  *logrus.Logger
}

// ExporterOption 导出服务配置选项
type ExporterOption func(*Exporter)

// WithStorage 设置产物存储后端
func WithStorage(s storage.Storage) ExporterOption {
	return func(e *Exporter) {
		e.storage = s
	}
}

// WithExporterLogger 设置日志记录器
func WithExporterLogger(logger *logrus.Logger) ExporterOption {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewExporter 创建导出服务
func NewExporter(opts ...ExporterOption) *Exporter {
	e := &Exporter{
		logger: logrus.New(),
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(e)
	}

	return e
}

// WriteCorpus 将语料库写入文件
// 先写临时文件再原子重命名，中途失败不会留下半截文件
// 关闭HTML转义，内嵌标记和土耳其语文本原样保留
func (e *Exporter) WriteCorpus(path string, docs []models.ExtractedDocument) error {
	if docs == nil {
		docs = []models.ExtractedDocument{}
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %v", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".corpus-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(docs); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode corpus: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move corpus into place: %v", err)
	}

	e.logger.WithFields(logrus.Fields{
		"path":      path,
		"documents": len(docs),
	}).Info("Corpus written")

	return nil
}

// ReadCorpus 从文件读取语料库
func (e *Exporter) ReadCorpus(path string) ([]models.ExtractedDocument, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open corpus file: %v", err)
	}
	defer file.Close()

	var docs []models.ExtractedDocument
	if err := json.NewDecoder(file).Decode(&docs); err != nil {
		return nil, fmt.Errorf("failed to decode corpus: %v", err)
	}

	return docs, nil
}

// FAQEntry FAQ消费格式的单条记录
// 下游笔记本约定每条记录至少携带回答文本、分节标签和引用URL
type FAQEntry struct {
	Answer    string `json:"answer"`     // 回答文本（内容块HTML）
	Section   string `json:"section"`    // 分节标签
	SourceURL string `json:"source_url"` // 引用URL
}

// BuildFAQ 将语料库展平为FAQ记录
// 分节块用自己的标题做标签，整块正文用文档标题
func (e *Exporter) BuildFAQ(docs []models.ExtractedDocument) []FAQEntry {
	var entries []FAQEntry
	for _, doc := range docs {
		for _, block := range doc.Content {
			section := block.Heading
			if section == "" {
				section = doc.Title
			}
			entries = append(entries, FAQEntry{
				Answer:    block.Body,
				Section:   section,
				SourceURL: doc.URL,
			})
		}
	}
	return entries
}

// WriteFAQ 将语料库以FAQ消费格式写入文件
func (e *Exporter) WriteFAQ(path string, docs []models.ExtractedDocument) error {
	entries := e.BuildFAQ(docs)
	if len(entries) == 0 {
		return models.ErrEmptyCorpus
	}

	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %v", err)
		}
	}

	tmp, err := os.CreateTemp(dir, ".faq-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %v", err)
	}
	defer os.Remove(tmp.Name())

	encoder := json.NewEncoder(tmp)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(entries); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode FAQ entries: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %v", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move FAQ file into place: %v", err)
	}

	e.logger.WithFields(logrus.Fields{
		"path":    path,
		"entries": len(entries),
	}).Info("FAQ export written")

	return nil
}

// Publish 将本地产物上传到存储后端
func (e *Exporter) Publish(localPath string, objectName string) (storage.ArtifactInfo, error) {
	if e.storage == nil {
		return storage.ArtifactInfo{}, fmt.Errorf("no storage backend configured")
	}

	file, err := os.Open(localPath)
	if err != nil {
		return storage.ArtifactInfo{}, fmt.Errorf("failed to open artifact: %v", err)
	}
	defer file.Close()

	info, err := e.storage.Save(file, objectName)
	if err != nil {
		return storage.ArtifactInfo{}, err
	}

	e.logger.WithFields(logrus.Fields{
		"object": info.Name,
		"bytes":  info.Size,
	}).Info("Artifact published")

	return info, nil
}
