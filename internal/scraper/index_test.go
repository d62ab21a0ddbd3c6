package scraper

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/fetcher"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
)

const indexPageHTML = `<html><head><title>Mevzuat Listesi - orientATIon</title></head><body>
<div class="legislation-list">
  <div class="legislation-card"><a href="/doc/health">Health Regulation</a></div>
  <div class="legislation-card"><a href="/doc/labor">Labor Code</a></div>
  <div class="legislation-card"><a href="https://other.example.org/doc/asylum">  Geçici  Koruma Yönetmeliği </a></div>
</div>
</body></html>`

func newTestScraper(t *testing.T, opts ...Option) *Scraper {
	t.Helper()
	f := fetcher.New(fetcher.Config{
		Timeout:    2 * time.Second,
		MaxRetries: 0,
		RetryDelay: 10 * time.Millisecond,
	})
	return New(f, DefaultSelectors(), opts...)
}

// TestDiscoverDocuments 测试索引页文档发现的数量、顺序和链接解析
func TestDiscoverDocuments(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(indexPageHTML))
	}))
	defer srv.Close()

	s := newTestScraper(t)
	refs, err := s.DiscoverDocuments(context.Background(), srv.URL+"/mevzuat")
	require.NoError(t, err)
	require.Len(t, refs, 3)

	// 顺序与页面中的文档顺序一致
	assert.Equal(t, "Health Regulation", refs[0].Title)
	assert.Equal(t, srv.URL+"/doc/health", refs[0].URL)
	assert.Equal(t, "Labor Code", refs[1].Title)
	assert.Equal(t, srv.URL+"/doc/labor", refs[1].URL)

	// 绝对链接保持原样，标题空白被压缩
	assert.Equal(t, "Geçici Koruma Yönetmeliği", refs[2].Title)
	assert.Equal(t, "https://other.example.org/doc/asylum", refs[2].URL)
}

// TestDiscoverMissingContainer 测试卡片容器缺失时返回ParseError而不是空列表
func TestDiscoverMissingContainer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>site redesigned</p></body></html>`))
	}))
	defer srv.Close()

	s := newTestScraper(t)
	refs, err := s.DiscoverDocuments(context.Background(), srv.URL)
	require.Error(t, err)
	assert.Nil(t, refs)
	assert.True(t, models.IsParseError(err))
	assert.ErrorIs(t, err, models.ErrIndexContainerNotFound)
}

// TestDiscoverFetchFailure 测试索引页获取失败返回FetchError
func TestDiscoverFetchFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	s := newTestScraper(t)
	_, err := s.DiscoverDocuments(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, models.IsFetchError(err))
	assert.False(t, models.IsParseError(err))
}

// TestDiscoverPagination 测试配置下一页选择器后跨页发现
func TestDiscoverPagination(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/list", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
<div class="legislation-list">
  <div class="legislation-card"><a href="/doc/a">Doc A</a></div>
</div>
<a class="next-page" href="/list?page=2">Sonraki</a>
</body></html>`)
	})
	mux.HandleFunc("/list2", func(w http.ResponseWriter, r *http.Request) {})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			fmt.Fprint(w, `<html><body>
<div class="legislation-list">
  <div class="legislation-card"><a href="/doc/b">Doc B</a></div>
</div>
</body></html>`)
			return
		}
		mux.ServeHTTP(w, r)
	}))
	defer srv.Close()

	sel := DefaultSelectors()
	sel.NextPage = "a.next-page"
	f := fetcher.New(fetcher.Config{Timeout: 2 * time.Second, RetryDelay: 10 * time.Millisecond})
	s := New(f, sel, WithMaxPages(5))

	refs, err := s.DiscoverDocuments(context.Background(), srv.URL+"/list")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Doc A", refs[0].Title)
	assert.Equal(t, "Doc B", refs[1].Title)
}

// TestDiscoverPaginationCycle 测试分页成环时在页数上限内停止
func TestDiscoverPaginationCycle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `<html><body>
<div class="legislation-list">
  <div class="legislation-card"><a href="/doc/x">Doc X</a></div>
</div>
<a class="next-page" href="%s">Sonraki</a>
</body></html>`, r.URL.Path)
	}))
	defer srv.Close()

	sel := DefaultSelectors()
	sel.NextPage = "a.next-page"
	f := fetcher.New(fetcher.Config{Timeout: 2 * time.Second, RetryDelay: 10 * time.Millisecond})
	s := New(f, sel, WithMaxPages(5))

	refs, err := s.DiscoverDocuments(context.Background(), srv.URL+"/list")
	require.NoError(t, err)
	assert.Len(t, refs, 1, "cycling next-page link should stop after the first page")
}
