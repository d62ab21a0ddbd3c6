package scraper

import (
	"context"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
)

// ExtractDocument 获取单个文档页面并规范化其内容
// 页面布局只检测一次，之后按布局显式分发提取逻辑
// 两种布局都不存在时返回空内容而不是错误，调用方据此区分"无法提取"和"获取失败"
func (s *Scraper) ExtractDocument(ctx context.Context, docURL string) (models.ExtractedDocument, models.PageLayout, error) {
	result := models.ExtractedDocument{URL: docURL}

	body, err := s.fetcher.Fetch(ctx, docURL)
	if err != nil {
		return result, models.LayoutNone, err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return result, models.LayoutNone, models.NewParseError(docURL, "invalid HTML document", err)
	}

	result.Title = s.pageTitle(doc)

	layout := s.DetectLayout(doc)
	switch {
	case layout.HasBlockText() && layout.HasAccordion():
		// 两种布局同时存在时，整块正文按文档顺序排在前面
		result.Content = append(result.Content, s.extractBlockText(doc)...)
		result.Content = append(result.Content, s.extractAccordion(doc)...)
	case layout.HasBlockText():
		result.Content = s.extractBlockText(doc)
	case layout.HasAccordion():
		result.Content = s.extractAccordion(doc)
	default:
		// 未匹配任何布局：记录为空内容，由调用方决定如何处理
		s.logger.WithField("url", docURL).Warn("No recognized content layout on page")
	}

	s.logger.WithFields(logrus.Fields{
		"url":    docURL,
		"title":  result.Title,
		"layout": layout.String(),
		"blocks": len(result.Content),
	}).Debug("Document extracted")

	return result, layout, nil
}

// DetectLayout 检测页面的内容布局
// 把"选择器是否匹配"收敛为一次显式的布局判定
func (s *Scraper) DetectLayout(doc *goquery.Document) models.PageLayout {
	hasBlock := doc.Find(s.sel.BlockText).Length() > 0
	hasAccordion := doc.Find(s.sel.Accordion).Find(s.sel.AccordionItem).Length() > 0

	switch {
	case hasBlock && hasAccordion:
		return models.LayoutBoth
	case hasBlock:
		return models.LayoutBlockText
	case hasAccordion:
		return models.LayoutAccordion
	default:
		return models.LayoutNone
	}
}

// pageTitle 从<title>提取文档标题，在站点品牌分隔符处截断
func (s *Scraper) pageTitle(doc *goquery.Document) string {
	title := strings.TrimSpace(doc.Find("title").First().Text())
	if s.sel.TitleDelimiter != "" {
		if idx := strings.Index(title, s.sel.TitleDelimiter); idx >= 0 {
			title = title[:idx]
		}
	}
	return strings.TrimSpace(title)
}

// extractBlockText 提取整块正文布局
// 保留内嵌标签，下游消费方可能需要渲染HTML
func (s *Scraper) extractBlockText(doc *goquery.Document) []models.ContentBlock {
	var blocks []models.ContentBlock

	node := doc.Find(s.sel.BlockText).First()
	html, err := node.Html()
	if err != nil {
		return blocks
	}

	html = strings.TrimSpace(html)
	if html == "" {
		return blocks
	}

	blocks = append(blocks, models.ContentBlock{Body: html})
	return blocks
}

// extractAccordion 提取手风琴布局的全部分节
// 分节顺序与页面中的文档顺序一致
func (s *Scraper) extractAccordion(doc *goquery.Document) []models.ContentBlock {
	var blocks []models.ContentBlock

	doc.Find(s.sel.Accordion).First().Find(s.sel.AccordionItem).Each(func(_ int, item *goquery.Selection) {
		heading := normalizeTitle(item.Find(s.sel.AccordionHeader).First().Text())

		body, err := item.Find(s.sel.AccordionBody).First().Html()
		if err != nil {
			body = ""
		}
		body = strings.TrimSpace(body)

		if heading == "" && body == "" {
			return // 空分节跳过
		}

		blocks = append(blocks, models.ContentBlock{
			Heading: heading,
			Body:    body,
		})
	})

	return blocks
}
