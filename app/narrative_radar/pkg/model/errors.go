package model

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstream 外部服务不可用或超时
	ErrUpstream = errors.New("upstream unavailable")
	// ErrNoData 某个阶段没有产出可用数据
	ErrNoData = errors.New("no results")
	// ErrMalformed 外部服务返回的内容不符合约定格式
	ErrMalformed = errors.New("malformed upstream output")
	// ErrInvalidInput 请求参数不合法
	ErrInvalidInput = errors.New("invalid input")
)

// NoResultsError 携带检索上下文的无结果错误
type NoResultsError struct {
	Query      string
	WindowDays int
	Stage      string
}

func (e *NoResultsError) Error() string {
	return fmt.Sprintf("%s: no results for %q within %d days", e.Stage, e.Query, e.WindowDays)
}

func (e *NoResultsError) Unwrap() error { return ErrNoData }

// InvalidInput 构造参数校验错误
func InvalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
