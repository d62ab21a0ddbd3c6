package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/repository"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/scraper"
)

// Crawler 批量抓取服务
// 负责协调索引发现、并发文档提取、逐篇检查点和结果汇总
type Crawler struct {
	scraper *scraper.Scraper           // 内容抓取器
	repo    repository.CrawlRepository // 抓取仓储，为nil时不做检查点
	workers int                        // 并发工作协程数
	resume  bool                       // 是否复用上次完成运行的文档
	logger  *logrus.Logger
}

// CrawlerOption 抓取服务配置选项
type CrawlerOption func(*Crawler)

// WithWorkers 设置并发工作协程数
func WithWorkers(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithRepository 设置抓取仓储，启用逐篇检查点
func WithRepository(repo repository.CrawlRepository) CrawlerOption {
	return func(c *Crawler) {
		c.repo = repo
	}
}

// WithResume 设置是否复用上次完成运行的文档
func WithResume(enabled bool) CrawlerOption {
	return func(c *Crawler) {
		c.resume = enabled
	}
}

// WithCrawlerLogger 设置日志记录器
func WithCrawlerLogger(logger *logrus.Logger) CrawlerOption {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCrawler 创建批量抓取服务
func NewCrawler(sc *scraper.Scraper, opts ...CrawlerOption) *Crawler {
	c := &Crawler{
		scraper: sc,
		workers: 4,
		logger:  logrus.New(),
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Failure 单个文档的失败描述
type Failure struct {
	URL     string `json:"url"`     // 失败的文档URL
	Kind    string `json:"kind"`    // 失败类型：fetch 或 parse
	Message string `json:"message"` // 错误信息
}

// CrawlResult 一次批量抓取的结果
// 成功的文档和失败清单分开汇报，单篇失败不会丢弃其余成果
type CrawlResult struct {
	RunID     string                     // 运行ID
	IndexURL  string                     // 索引页URL
	Documents []models.ExtractedDocument // 按发现顺序排列的成功文档
	Failures  []Failure                  // 文档级失败清单
	Resumed   int                        // 从上次运行复用的文档数
	Duration  time.Duration              // 运行耗时
}

// outcome 工作协程产出的单篇结果
type outcome struct {
	index   int
	ref     models.DocumentReference
	doc     models.ExtractedDocument
	layout  models.PageLayout
	resumed bool
	err     error
}

// Run 执行一次完整的批量抓取
// 索引发现失败是批次级错误直接返回；单篇文档的失败只记录不中止
func (c *Crawler) Run(ctx context.Context, indexURL string) (*CrawlResult, error) {
	start := time.Now()
	runID := uuid.New().String()

	c.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"index_url": indexURL,
		"workers":   c.workers,
	}).Info("Starting legislation crawl")

	if c.repo != nil {
		if err := c.repo.CreateRun(&models.CrawlRun{
			ID:       runID,
			IndexURL: indexURL,
			Status:   models.RunStatusRunning,
		}); err != nil {
			return nil, err
		}
	}

	// 第一阶段：索引发现。失败时没有任何可提取的内容，中止批次
	refs, err := c.scraper.DiscoverDocuments(ctx, indexURL)
	if err != nil {
		c.failRun(runID, err)
		return nil, err
	}

	// 复用上次完成运行的文档，避免重抓未变化的页面
	previous := c.loadPrevious(indexURL)

	// 第二阶段：并发提取。每篇文档是独立的调度单元
	slots := c.extractAll(ctx, runID, refs, previous)

	// 汇总：按发现顺序重组结果
	result := &CrawlResult{
		RunID:    runID,
		IndexURL: indexURL,
		Duration: time.Since(start),
	}
	for _, out := range slots {
		if out == nil {
			continue // 取消时未处理的文档
		}
		if out.err != nil {
			result.Failures = append(result.Failures, Failure{
				URL:     out.ref.URL,
				Kind:    failureKind(out.err),
				Message: out.err.Error(),
			})
			continue
		}
		if out.resumed {
			result.Resumed++
		}
		result.Documents = append(result.Documents, out.doc)
	}

	if ctx.Err() != nil {
		// 整批取消：保留已完成的部分结果，但运行标记为失败
		c.failRun(runID, ctx.Err())
		return result, ctx.Err()
	}

	if c.repo != nil {
		if err := c.repo.CompleteRun(runID, len(result.Documents), len(result.Failures)); err != nil {
			c.logger.WithError(err).Warn("Failed to mark run as completed")
		}
	}

	c.logger.WithFields(logrus.Fields{
		"run_id":    runID,
		"documents": len(result.Documents),
		"failures":  len(result.Failures),
		"resumed":   result.Resumed,
		"duration":  result.Duration.String(),
	}).Info("Crawl completed")

	return result, nil
}

// extractAll 用有界工作池并发提取全部文档
// 结果槽按发现顺序索引，收集端是唯一写入者并负责逐篇检查点
func (c *Crawler) extractAll(ctx context.Context, runID string, refs []models.DocumentReference, previous map[string]models.ExtractedDocument) []*outcome {
	jobs := make(chan int)
	results := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < c.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				results <- c.extractOne(ctx, refs[idx], idx, previous)
			}
		}()
	}

	// 分发任务，取消时停止投递
	go func() {
		defer close(jobs)
		for i := range refs {
			select {
			case jobs <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	slots := make([]*outcome, len(refs))
	for out := range results {
		out := out
		slots[out.index] = &out
		c.checkpoint(runID, &out)
	}

	return slots
}

// extractOne 提取单篇文档，复用上次运行的结果时不发起请求
func (c *Crawler) extractOne(ctx context.Context, ref models.DocumentReference, idx int, previous map[string]models.ExtractedDocument) outcome {
	if prev, ok := previous[ref.URL]; ok {
		return outcome{index: idx, ref: ref, doc: prev, resumed: true}
	}

	doc, layout, err := c.scraper.ExtractDocument(ctx, ref.URL)
	if err != nil {
		c.logger.WithError(err).WithField("url", ref.URL).Warn("Document extraction failed")
		return outcome{index: idx, ref: ref, err: err}
	}

	return outcome{index: idx, ref: ref, doc: doc, layout: layout}
}

// checkpoint 将单篇结果立即持久化
// 批次中途失败时已提取的文档不会丢失
func (c *Crawler) checkpoint(runID string, out *outcome) {
	if c.repo == nil {
		return
	}

	if out.err != nil {
		if err := c.repo.SaveFailure(&models.FetchFailure{
			RunID:   runID,
			URL:     out.ref.URL,
			Kind:    failureKind(out.err),
			Message: out.err.Error(),
		}); err != nil {
			c.logger.WithError(err).Warn("Failed to record fetch failure")
		}
		return
	}

	content, err := json.Marshal(out.doc.Content)
	if err != nil {
		c.logger.WithError(err).WithField("url", out.doc.URL).Warn("Failed to encode content blocks")
		return
	}

	if err := c.repo.SaveDocument(&models.DocumentRecord{
		RunID:    runID,
		Position: out.index,
		Title:    out.doc.Title,
		URL:      out.doc.URL,
		Layout:   out.layout.String(),
		Content:  datatypes.JSON(content),
	}); err != nil {
		c.logger.WithError(err).WithField("url", out.doc.URL).Warn("Failed to checkpoint document")
	}
}

// loadPrevious 加载上次完成运行的文档，按URL索引
func (c *Crawler) loadPrevious(indexURL string) map[string]models.ExtractedDocument {
	previous := make(map[string]models.ExtractedDocument)
	if !c.resume || c.repo == nil {
		return previous
	}

	run, err := c.repo.LatestCompletedRun(indexURL)
	if err != nil {
		c.logger.Debug("No previous completed run to resume from")
		return previous
	}

	records, err := c.repo.ListDocuments(run.ID)
	if err != nil {
		c.logger.WithError(err).Warn("Failed to load previous run documents")
		return previous
	}

	for _, rec := range records {
		var blocks []models.ContentBlock
		if err := json.Unmarshal(rec.Content, &blocks); err != nil {
			continue // 损坏的记录直接重抓
		}
		previous[rec.URL] = models.ExtractedDocument{
			Title:   rec.Title,
			URL:     rec.URL,
			Content: blocks,
		}
	}

	c.logger.WithFields(logrus.Fields{
		"run_id":    run.ID,
		"documents": len(previous),
	}).Info("Resuming from previous completed run")

	return previous
}

// failRun 将运行标记为批次级失败
func (c *Crawler) failRun(runID string, cause error) {
	if c.repo == nil {
		return
	}
	if err := c.repo.FailRun(runID, cause.Error()); err != nil {
		c.logger.WithError(err).Warn("Failed to mark run as failed")
	}
}

// failureKind 区分文档级失败的类型
func failureKind(err error) string {
	if models.IsParseError(err) {
		return "parse"
	}
	return "fetch"
}
