package model

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// PeriodLayout 时间段标签格式
const PeriodLayout = "2006-01-02"

var relativeHint = regexp.MustCompile(`^(\d+)\s*(second|minute|min|hour|day|week|month|year)s?\s+ago$`)

// 检索服务常见的、dateparse 无法识别的格式
var extraLayouts = []string{
	"01/02/2006, 03:04 PM, -0700 MST",
	"01/02/2006, 03:04 PM",
	"Jan 2, 2006",
}

// ParseDateHint 解析检索服务返回的发布时间提示，支持绝对时间与 "3 days ago" 这类相对时间
func ParseDateHint(hint string, now time.Time) (time.Time, bool) {
	hint = strings.TrimSpace(hint)
	if hint == "" {
		return time.Time{}, false
	}
	lower := strings.ToLower(hint)
	if lower == "yesterday" {
		return now.AddDate(0, 0, -1), true
	}
	if lower == "today" || lower == "just now" {
		return now, true
	}
	if m := relativeHint.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, false
		}
		switch m[2] {
		case "second":
			return now.Add(-time.Duration(n) * time.Second), true
		case "minute", "min":
			return now.Add(-time.Duration(n) * time.Minute), true
		case "hour":
			return now.Add(-time.Duration(n) * time.Hour), true
		case "day":
			return now.AddDate(0, 0, -n), true
		case "week":
			return now.AddDate(0, 0, -7*n), true
		case "month":
			return now.AddDate(0, -n, 0), true
		case "year":
			return now.AddDate(-n, 0, 0), true
		}
	}
	for _, layout := range extraLayouts {
		if t, err := time.Parse(layout, hint); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseAny(hint); err == nil {
		return t, true
	}
	return time.Time{}, false
}

// ParsePeriodLabel 解析时间段标签
func ParsePeriodLabel(label string) (time.Time, bool) {
	t, err := time.Parse(PeriodLayout, label)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// BestDate 优先使用发布时间提示，否则使用时间段标签
func (a Article) BestDate(now time.Time) (time.Time, bool) {
	if t, ok := ParseDateHint(a.PublishedHint, now); ok {
		return t, true
	}
	return ParsePeriodLabel(a.PeriodLabel)
}
