package search

import (
	"context"
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Searcher 定义通用的搜索接口
type Searcher interface {
	Search(ctx context.Context, req *Request) (*Response, error)
}

// Window 检索时间窗口，左闭右开
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains 时间是否落在窗口内
func (w *Window) Contains(t time.Time) bool {
	if w == nil {
		return true
	}
	return !t.Before(w.Start) && t.Before(w.End)
}

// Days 窗口跨越的天数（向上取整）
func (w *Window) Days() int {
	if w == nil {
		return 0
	}
	d := w.End.Sub(w.Start)
	days := int(d / (24 * time.Hour))
	if d%(24*time.Hour) != 0 {
		days++
	}
	return days
}

// Request 通用搜索请求
type Request struct {
	Query      string
	Topic      string // "news" or "general"
	MaxResults int
	// Window 为 nil 表示不限时间
	Window *Window
}

// Response 通用搜索响应
type Response struct {
	Results []Result
}

// Result 单条搜索结果
type Result struct {
	Title         string
	URL           string
	Content       string
	Source        string
	// SourceURL 链接是聚合站跳转地址时，发布方的主页地址
	SourceURL     string
	Score         float64
	PublishedDate string
}

// FilterWindow 丢弃发布时间明确落在窗口外的结果，无法解析时间的结果保留
func FilterWindow(results []Result, w *Window, now time.Time) []Result {
	if w == nil {
		return results
	}
	kept := results[:0:0]
	for _, r := range results {
		if t, ok := model.ParseDateHint(r.PublishedDate, now); ok && !w.Contains(t) {
			continue
		}
		kept = append(kept, r)
	}
	return kept
}
