package repository

import "github.com/Refugee-Solidarity-Network/orientATIon/internal/models"

// CrawlRepository 抓取仓储接口
// 负责抓取运行、文档记录和失败记录的存储和检索
type CrawlRepository interface {
	// CreateRun 创建抓取运行记录
	CreateRun(run *models.CrawlRun) error

	// CompleteRun 将运行标记为完成并写入统计数据
	CompleteRun(runID string, docCount, failureCount int) error

	// FailRun 将运行标记为批次级失败
	FailRun(runID string, errorMsg string) error

	// GetRun 根据ID获取运行记录
	GetRun(runID string) (*models.CrawlRun, error)

	// LatestCompletedRun 获取指定索引页最近一次完成的运行
	LatestCompletedRun(indexURL string) (*models.CrawlRun, error)

	// SaveDocument 保存一条文档记录（逐篇检查点）
	SaveDocument(record *models.DocumentRecord) error

	// SaveFailure 保存一条文档级失败记录
	SaveFailure(failure *models.FetchFailure) error

	// ListDocuments 按文档顺序列出某次运行的全部文档记录
	ListDocuments(runID string) ([]*models.DocumentRecord, error)

	// ListFailures 列出某次运行的全部失败记录
	ListFailures(runID string) ([]*models.FetchFailure, error)

	// FindDocumentByURL 在指定运行中按URL查找文档记录，用于断点续抓
	FindDocumentByURL(runID string, url string) (*models.DocumentRecord, error)
}
