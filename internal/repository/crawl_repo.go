package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/database"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
	"gorm.io/gorm"
)

// crawlRepository 抓取仓储实现
type crawlRepository struct {
	db *gorm.DB // 数据库连接
}

// NewCrawlRepository 创建抓取仓储实例
func NewCrawlRepository() CrawlRepository {
	return &crawlRepository{
		db: database.MustDB(),
	}
}

// NewCrawlRepositoryWithDB 使用指定的数据库连接创建抓取仓储实例
func NewCrawlRepositoryWithDB(db *gorm.DB) CrawlRepository {
	if db == nil {
		db = database.MustDB()
	}
	return &crawlRepository{
		db: db,
	}
}

// CreateRun 创建抓取运行记录
func (r *crawlRepository) CreateRun(run *models.CrawlRun) error {
	if run.ID == "" {
		return errors.New("run ID cannot be empty")
	}
	if run.Status == "" {
		run.Status = models.RunStatusRunning
	}

	return r.db.Create(run).Error
}

// CompleteRun 将运行标记为完成并写入统计数据
func (r *crawlRepository) CompleteRun(runID string, docCount, failureCount int) error {
	now := time.Now()
	return r.updateRun(runID, map[string]interface{}{
		"status":         models.RunStatusCompleted,
		"finished_at":    &now,
		"document_count": docCount,
		"failure_count":  failureCount,
	})
}

// FailRun 将运行标记为批次级失败
func (r *crawlRepository) FailRun(runID string, errorMsg string) error {
	now := time.Now()
	return r.updateRun(runID, map[string]interface{}{
		"status":      models.RunStatusFailed,
		"finished_at": &now,
		"error":       errorMsg,
	})
}

// updateRun 更新运行记录的指定字段
func (r *crawlRepository) updateRun(runID string, updates map[string]interface{}) error {
	result := r.db.Model(&models.CrawlRun{}).
		Where("id = ?", runID).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", models.ErrRunNotFound, runID)
	}
	return nil
}

// GetRun 根据ID获取运行记录
func (r *crawlRepository) GetRun(runID string) (*models.CrawlRun, error) {
	var run models.CrawlRun
	err := r.db.Where("id = ?", runID).First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", models.ErrRunNotFound, runID)
		}
		return nil, err
	}
	return &run, nil
}

// LatestCompletedRun 获取指定索引页最近一次完成的运行
func (r *crawlRepository) LatestCompletedRun(indexURL string) (*models.CrawlRun, error) {
	var run models.CrawlRun
	err := r.db.Where("index_url = ? AND status = ?", indexURL, models.RunStatusCompleted).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no completed run for %s", models.ErrRunNotFound, indexURL)
		}
		return nil, err
	}
	return &run, nil
}

// SaveDocument 保存一条文档记录
func (r *crawlRepository) SaveDocument(record *models.DocumentRecord) error {
	if record.RunID == "" {
		return errors.New("run ID cannot be empty")
	}
	if record.URL == "" {
		return errors.New("document URL cannot be empty")
	}

	return r.db.Create(record).Error
}

// SaveFailure 保存一条文档级失败记录
func (r *crawlRepository) SaveFailure(failure *models.FetchFailure) error {
	if failure.RunID == "" {
		return errors.New("run ID cannot be empty")
	}

	return r.db.Create(failure).Error
}

// ListDocuments 按文档顺序列出某次运行的全部文档记录
func (r *crawlRepository) ListDocuments(runID string) ([]*models.DocumentRecord, error) {
	var records []*models.DocumentRecord
	err := r.db.Where("run_id = ?", runID).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// ListFailures 列出某次运行的全部失败记录
func (r *crawlRepository) ListFailures(runID string) ([]*models.FetchFailure, error) {
	var failures []*models.FetchFailure
	err := r.db.Where("run_id = ?", runID).
		Order("id ASC").
		Find(&failures).Error
	if err != nil {
		return nil, err
	}
	return failures, nil
}

// FindDocumentByURL 在指定运行中按URL查找文档记录
func (r *crawlRepository) FindDocumentByURL(runID string, url string) (*models.DocumentRecord, error) {
	var record models.DocumentRecord
	err := r.db.Where("run_id = ? AND url = ?", runID, url).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil // 未找到不是错误，调用方据此决定是否重新抓取
		}
		return nil, err
	}
	return &record, nil
}
