package models

import (
	"errors"
	"fmt"
)

var (
	// ErrIndexContainerNotFound 索引页中找不到法规卡片容器
	// 说明站点版式变更或抓到了错误页面，必须中止整个批次
	ErrIndexContainerNotFound = errors.New("legislation card container not found")

	// ErrRunNotFound 抓取运行记录不存在错误
	ErrRunNotFound = errors.New("crawl run not found")

	// ErrEmptyCorpus 语料库中没有任何文档记录
	ErrEmptyCorpus = errors.New("corpus contains no documents")
)

// FetchError 页面获取错误
// 网络失败、非成功HTTP状态码或超时都归入此类
type FetchError struct {
	URL    string // 请求的URL
	Status int    // HTTP状态码，网络层失败时为0
	Err    error  // 底层错误
}

// Error 实现error接口
func (e *FetchError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap 返回底层错误，支持errors.Is/As
func (e *FetchError) Unwrap() error {
	return e.Err
}

// NewFetchError 创建页面获取错误
func NewFetchError(url string, status int, err error) *FetchError {
	return &FetchError{URL: url, Status: status, Err: err}
}

// ParseError 页面结构解析错误
// 预期的标记结构（容器、卡片、分节元素）不存在时返回
type ParseError struct {
	URL     string // 出错的页面URL
	Missing string // 缺失的结构描述
	Err     error  // 底层错误（可选）
}

// Error 实现error接口
func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s: %s: %v", e.URL, e.Missing, e.Err)
	}
	return fmt.Sprintf("parse %s: %s", e.URL, e.Missing)
}

// Unwrap 返回底层错误，支持errors.Is/As
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError 创建页面结构解析错误
func NewParseError(url string, missing string, err error) *ParseError {
	return &ParseError{URL: url, Missing: missing, Err: err}
}

// IsFetchError 判断错误是否为页面获取错误
func IsFetchError(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe)
}

// IsParseError 判断错误是否为页面结构解析错误
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}
