package scraper

import (
	"github.com/sirupsen/logrus"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/fetcher"
)

// Selectors 上游站点结构选择器
// 索引卡片和两种内容布局的位置都由选择器描述，站点改版时只需调整配置
type Selectors struct {
	CardContainer   string // 索引卡片容器
	CardLink        string // 卡片内文档链接
	NextPage        string // 下一页链接，为空则只抓第一页
	BlockText       string // 整块正文容器
	Accordion       string // 手风琴容器
	AccordionItem   string // 手风琴分节
	AccordionHeader string // 分节标题（可点击的展开头）
	AccordionBody   string // 分节内容容器
	TitleDelimiter  string // 页面标题中站点品牌的分隔符
}

// DefaultSelectors 返回默认选择器
func DefaultSelectors() Selectors {
	return Selectors{
		CardContainer:   "div.legislation-list",
		CardLink:        "div.legislation-card a",
		BlockText:       "div.doc-paragraph",
		Accordion:       "div.accordion",
		AccordionItem:   "div.accordion-item",
		AccordionHeader: "button.accordion-button",
		AccordionBody:   "div.accordion-body",
		TitleDelimiter:  " - ",
	}
}

// Scraper 法规内容抓取器
// 负责索引页的文档发现和详情页的内容提取
type Scraper struct {
	fetcher  fetcher.Fetcher // 页面获取器
	sel      Selectors       // 站点结构选择器
	maxPages int             // 分页发现的最大页数
	logger   *logrus.Logger
}

// Option 抓取器配置选项函数类型
type Option func(*Scraper)

// WithMaxPages 设置分页发现的最大页数
func WithMaxPages(n int) Option {
	return func(s *Scraper) {
		if n > 0 {
			s.maxPages = n
		}
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(s *Scraper) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New 创建抓取器
func New(f fetcher.Fetcher, sel Selectors, opts ...Option) *Scraper {
	s := &Scraper{
		fetcher:  f,
		sel:      sel,
		maxPages: 10,
		logger:   logrus.New(),
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(s)
	}

	return s
}
