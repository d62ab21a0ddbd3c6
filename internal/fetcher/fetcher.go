package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"

	"github.com/Refugee-Solidarity-Network/orientATIon/internal/cache"
	"github.com/Refugee-Solidarity-Network/orientATIon/internal/models"
)

// Fetcher 页面获取接口
// 返回解码为UTF-8的页面HTML
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config 页面获取配置
type Config struct {
	Timeout    time.Duration // 单次HTTP请求超时时间
	MaxRetries int           // 瞬时失败的最大重试次数
	RetryDelay time.Duration // 首次重试的基础延迟
	UserAgent  string        // 请求User-Agent
}

// DefaultConfig 返回默认的页面获取配置
// 上游站点的可用性不受本系统控制，超时必须有界
func DefaultConfig() Config {
	return Config{
		Timeout:    20 * time.Second,
		MaxRetries: 3,
		RetryDelay: time.Second,
		UserAgent:  "orientATIon-crawler/1.0",
	}
}

// HTTPFetcher 基于net/http实现的页面获取器
// 瞬时失败（5xx、超时、网络错误）按指数退避重试，4xx视为该URL的终态
type HTTPFetcher struct {
	client   *http.Client
	cfg      Config
	cache    cache.Cache   // 页面缓存，可为nil
	cacheTTL time.Duration // 缓存过期时间
	logger   *logrus.Logger
}

// Option 页面获取器配置选项函数类型
type Option func(*HTTPFetcher)

// WithCache 设置页面缓存
func WithCache(c cache.Cache, ttl time.Duration) Option {
	return func(f *HTTPFetcher) {
		f.cache = c
		f.cacheTTL = ttl
	}
}

// WithLogger 设置日志记录器
func WithLogger(logger *logrus.Logger) Option {
	return func(f *HTTPFetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithHTTPClient 设置自定义HTTP客户端（测试用）
func WithHTTPClient(client *http.Client) Option {
	return func(f *HTTPFetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// New 创建页面获取器
func New(cfg Config, opts ...Option) *HTTPFetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultConfig().RetryDelay
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultConfig().UserAgent
	}

	f := &HTTPFetcher{
		client: &http.Client{
			Timeout: cfg.Timeout,
		},
		cfg:    cfg,
		logger: logrus.New(),
	}

	// 应用配置选项
	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Fetch 获取页面并解码为UTF-8
// 缓存命中时直接返回，不发起网络请求
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) (string, error) {
	// 先查缓存
	if f.cache != nil {
		if body, found, err := f.cache.Get(cache.PageKey(url)); err == nil && found {
			f.logger.WithField("url", url).Debug("Page cache hit")
			return body, nil
		}
	}

	var body string

	// 瞬时失败按指数退避重试
	operation := func() error {
		var err error
		body, err = f.fetchOnce(ctx, url)
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = f.cfg.RetryDelay
	retries := uint64(0)
	if f.cfg.MaxRetries > 0 {
		retries = uint64(f.cfg.MaxRetries)
	}

	err := backoff.Retry(operation, backoff.WithContext(
		backoff.WithMaxRetries(policy, retries), ctx))
	if err != nil {
		// 统一包装为FetchError，保留底层错误供errors.As检查
		if !models.IsFetchError(err) {
			err = models.NewFetchError(url, 0, err)
		}
		return "", err
	}

	// 写入缓存
	if f.cache != nil {
		if err := f.cache.Set(cache.PageKey(url), body, f.cacheTTL); err != nil {
			f.logger.WithError(err).WithField("url", url).Warn("Failed to cache page")
		}
	}

	return body, nil
}

// fetchOnce 执行单次HTTP请求
// 4xx返回backoff.Permanent中止重试，其余失败允许重试
func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", backoff.Permanent(models.NewFetchError(url, 0, err))
	}
	req.Header.Set("User-Agent", f.cfg.UserAgent)
	req.Header.Set("Accept-Language", "tr,en;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		// 网络错误和超时视为瞬时失败
		return "", models.NewFetchError(url, 0, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		// 继续读取
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// 客户端错误重试没有意义，对该URL是终态
		return "", backoff.Permanent(models.NewFetchError(url, resp.StatusCode, nil))
	default:
		return "", models.NewFetchError(url, resp.StatusCode, nil)
	}

	// 上游站点可能使用非UTF-8编码（如ISO-8859-9），统一解码为UTF-8
	reader, err := charset.NewReader(resp.Body, resp.Header.Get("Content-Type"))
	if err != nil {
		reader = resp.Body
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return "", models.NewFetchError(url, resp.StatusCode, fmt.Errorf("read body: %w", err))
	}

	f.logger.WithFields(logrus.Fields{
		"url":    url,
		"status": resp.StatusCode,
		"bytes":  len(data),
	}).Debug("Page fetched")

	return string(data), nil
}
