package scraper

import (
	"context"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sirupsen/logrus"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
)

// DiscoverDocuments 从法规列表页发现全部文档引用
// 返回顺序与页面中的文档顺序一致，链接统一解析为绝对URL
// 找不到卡片容器说明站点版式变更，返回ParseError而不是空列表
func (s *Scraper) DiscoverDocuments(ctx context.Context, indexURL string) ([]models.DocumentReference, error) {
	var refs []models.DocumentReference
	visited := make(map[string]bool)

	pageURL := indexURL
	for page := 0; pageURL != "" && page < s.maxPages; page++ {
		if visited[pageURL] {
			break // 分页链接成环，停止
		}
		visited[pageURL] = true

		pageRefs, nextURL, err := s.discoverPage(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		refs = append(refs, pageRefs...)

		// 未配置下一页选择器时nextURL为空，保持单页行为
		pageURL = nextURL
	}

	s.logger.WithFields(logrus.Fields{
		"index_url": indexURL,
		"documents": len(refs),
		"pages":     len(visited),
	}).Info("Index discovery completed")

	return refs, nil
}

// discoverPage 解析单个列表页，返回文档引用和下一页URL
func (s *Scraper) discoverPage(ctx context.Context, pageURL string) ([]models.DocumentReference, string, error) {
	body, err := s.fetcher.Fetch(ctx, pageURL)
	if err != nil {
		return nil, "", err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, "", models.NewParseError(pageURL, "invalid HTML document", err)
	}

	container := doc.Find(s.sel.CardContainer)
	if container.Length() == 0 {
		return nil, "", models.NewParseError(pageURL, "card container not matched by "+s.sel.CardContainer,
			models.ErrIndexContainerNotFound)
	}

	base, err := url.Parse(pageURL)
	if err != nil {
		return nil, "", models.NewParseError(pageURL, "invalid page URL", err)
	}

	var refs []models.DocumentReference
	container.Find(s.sel.CardLink).Each(func(_ int, card *goquery.Selection) {
		href, ok := card.Attr("href")
		if !ok || href == "" {
			return // 没有链接的卡片跳过
		}

		title := normalizeTitle(card.Text())
		refs = append(refs, models.DocumentReference{
			Title: title,
			URL:   resolveURL(base, href),
		})
	})

	// 下一页链接（可选）
	var nextURL string
	if s.sel.NextPage != "" {
		if href, ok := doc.Find(s.sel.NextPage).First().Attr("href"); ok && href != "" {
			nextURL = resolveURL(base, href)
		}
	}

	return refs, nextURL, nil
}

// resolveURL 将相对链接解析为绝对URL
func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

// normalizeTitle 压缩标题中的空白字符
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(title), " ")
}
