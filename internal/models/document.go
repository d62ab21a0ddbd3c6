package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PageLayout 页面布局类型
// 每个文档页面在提取前只检测一次布局，之后按布局显式分发处理
type PageLayout int

const (
	// LayoutNone 页面不包含任何可识别的内容布局
	LayoutNone PageLayout = iota
	// LayoutBlockText 页面只包含整块正文布局
	LayoutBlockText
	// LayoutAccordion 页面只包含手风琴分节布局
	LayoutAccordion
	// LayoutBoth 页面同时包含整块正文和手风琴分节
	LayoutBoth
)

// String 返回布局类型的可读名称
func (l PageLayout) String() string {
	switch l {
	case LayoutBlockText:
		return "block_text"
	case LayoutAccordion:
		return "accordion"
	case LayoutBoth:
		return "both"
	default:
		return "none"
	}
}

// HasBlockText 判断布局是否包含整块正文
func (l PageLayout) HasBlockText() bool {
	return l == LayoutBlockText || l == LayoutBoth
}

// HasAccordion 判断布局是否包含手风琴分节
func (l PageLayout) HasAccordion() bool {
	return l == LayoutAccordion || l == LayoutBoth
}

// DocumentReference 法规文档引用
// 在索引页发现阶段批量创建，之后不再修改
type DocumentReference struct {
	Title string `json:"title"` // 索引卡片上的文档显示名称
	URL   string `json:"url"`   // 文档详情页的绝对URL
}

// ContentBlock 文档内容块
// Heading为空表示整块正文，非空表示带标题的分节内容
type ContentBlock struct {
	Heading string `json:"heading,omitempty"` // 分节标题（整块正文时为空）
	Body    string `json:"body"`              // 内容HTML，保留内嵌标签
}

// IsSection 判断内容块是否为带标题的分节
func (b ContentBlock) IsSection() bool {
	return b.Heading != ""
}

// ExtractedDocument 提取后的规范化文档记录
// 每次详情页抓取产生一条，写入语料库后不再修改
type ExtractedDocument struct {
	Title   string         `json:"title"`   // 页面<title>截取站点品牌前的文档标题
	URL     string         `json:"url"`     // 来源URL，保留用于引用
	Content []ContentBlock `json:"content"` // 有序内容块，未匹配任何布局时为空
}

// RunStatus 抓取运行状态类型
type RunStatus string

const (
	// RunStatusRunning 抓取运行中
	RunStatusRunning RunStatus = "running"
	// RunStatusCompleted 抓取运行完成
	RunStatusCompleted RunStatus = "completed"
	// RunStatusFailed 抓取运行失败（批次级错误，例如索引发现失败）
	RunStatusFailed RunStatus = "failed"
)

// CrawlRun 抓取运行数据模型
// 记录一次批量抓取的元数据，用于断点续抓和结果汇总
type CrawlRun struct {
	ID            string     `gorm:"primaryKey;size:50"` // 运行ID，主键
	IndexURL      string     `gorm:"not null;index"`     // 索引页URL
	Status        RunStatus  `gorm:"not null;index"`     // 运行状态
	StartedAt     time.Time  `gorm:"not null"`           // 开始时间
	FinishedAt    *time.Time `gorm:"index"`              // 结束时间
	DocumentCount int        `gorm:"not null;default:0"` // 成功提取的文档数量
	FailureCount  int        `gorm:"not null;default:0"` // 失败的文档数量
	Error         string     `gorm:"type:text"`          // 批次级错误信息
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (r *CrawlRun) BeforeCreate(tx *gorm.DB) (err error) {
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (CrawlRun) TableName() string {
	return "crawl_runs"
}

// DocumentRecord 文档持久化记录
// 每提取成功一个文档立即写入，避免批次中途失败丢失已完成的工作
type DocumentRecord struct {
	ID        uint           `gorm:"primaryKey;autoIncrement"` // 主键ID
	RunID     string         `gorm:"not null;index;size:50"`   // 所属运行ID
	Position  int            `gorm:"not null"`                 // 在索引页中的文档顺序
	Title     string         `gorm:"not null"`                 // 文档标题
	URL       string         `gorm:"not null;index"`           // 来源URL
	Layout    string         `gorm:"size:20"`                  // 检测到的页面布局
	Content   datatypes.JSON `gorm:"type:json"`                // 内容块序列，JSON格式
	CreatedAt time.Time      `gorm:"not null"`                 // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (d *DocumentRecord) BeforeCreate(tx *gorm.DB) (err error) {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (DocumentRecord) TableName() string {
	return "document_records"
}

// FetchFailure 文档抓取失败记录
// 单个文档的失败不中止批次，而是记录下来随结果一起汇报
type FetchFailure struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"` // 主键ID
	RunID     string    `gorm:"not null;index;size:50"`   // 所属运行ID
	URL       string    `gorm:"not null"`                 // 失败的URL
	Kind      string    `gorm:"not null;size:20"`         // 失败类型：fetch 或 parse
	Message   string    `gorm:"type:text"`                // 错误信息
	CreatedAt time.Time `gorm:"not null"`                 // 创建时间
}

// BeforeCreate GORM的钩子函数，创建记录前自动设置时间
func (f *FetchFailure) BeforeCreate(tx *gorm.DB) (err error) {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	return nil
}

// TableName 明确指定表名
func (FetchFailure) TableName() string {
	return "fetch_failures"
}
