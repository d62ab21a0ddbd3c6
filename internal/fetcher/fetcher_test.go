package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/cache"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
)

func newTestFetcher(opts ...Option) *HTTPFetcher {
	cfg := Config{
		Timeout:    2 * time.Second,
		MaxRetries: 2,
		RetryDelay: 10 * time.Millisecond,
		UserAgent:  "test-agent",
	}
	return New(cfg, opts...)
}

// TestFetchSuccess 测试正常获取页面
func TestFetchSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Write([]byte("<html><body>Geçici Koruma</body></html>"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, body, "Geçici Koruma")
}

// TestFetchNotFoundIsTerminal 测试4xx不重试并返回FetchError
func TestFetchNotFoundIsTerminal(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := newTestFetcher()
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, models.IsFetchError(err))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "4xx should not be retried")
}

// TestFetchRetriesServerError 测试5xx按退避重试后成功
func TestFetchRetriesServerError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte("recovered"))
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "recovered", body)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

// TestFetchTimeout 测试请求超时返回FetchError
func TestFetchTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer srv.Close()

	f := New(Config{
		Timeout:    50 * time.Millisecond,
		MaxRetries: 1,
		RetryDelay: 10 * time.Millisecond,
	})
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, models.IsFetchError(err))
}

// TestFetchCharsetDecoding 测试非UTF-8页面解码
// 土耳其语页面常见ISO-8859-9编码
func TestFetchCharsetDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-9")
		// "sığınmacı" 中的 ğ(0xF0) ı(0xFD) 以ISO-8859-9字节发送
		w.Write([]byte{'s', 0xFD, 0xF0, 0xFD, 'n', 'm', 'a', 'c', 0xFD})
	}))
	defer srv.Close()

	f := newTestFetcher()
	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "sığınmacı", body)
}

// TestFetchUsesCache 测试缓存命中时不发起网络请求
func TestFetchUsesCache(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte("cached page"))
	}))
	defer srv.Close()

	pageCache, err := cache.NewMemoryCache(cache.DefaultConfig())
	require.NoError(t, err)

	f := newTestFetcher(WithCache(pageCache, time.Minute))

	body, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "cached page", body)

	body, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "cached page", body)

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls), "second fetch should hit the cache")
}

// TestFetchContextCancellation 测试上下文取消中止请求
func TestFetchContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := newTestFetcher()
	_, err := f.Fetch(ctx, srv.URL)
	require.Error(t, err)
}
