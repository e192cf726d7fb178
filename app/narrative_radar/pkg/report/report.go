package report

import (
	"fmt"
	"html/template"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// Period 页面中的一个时间段
type Period struct {
	Label string
	model.PeriodSummary
}

// Page 报告页面数据
type Page struct {
	Report      model.TrendReport
	Periods     []Period
	Degraded    bool
	GeneratedAt string
}

// NewPage 按时间段标签升序组织页面数据
func NewPage(r model.TrendReport, periods map[string]model.PeriodSummary, degraded bool, now time.Time) Page {
	labels := make([]string, 0, len(periods))
	for l := range periods {
		labels = append(labels, l)
	}
	sort.Strings(labels)

	p := Page{Report: r, Degraded: degraded, GeneratedAt: now.Format("2006-01-02 15:04")}
	for _, l := range labels {
		p.Periods = append(p.Periods, Period{Label: l, PeriodSummary: periods[l]})
	}
	return p
}

var pageTpl = template.Must(template.New("report").Funcs(template.FuncMap{
	"score": func(f float64) string { return fmt.Sprintf("%+.3f", f) },
}).Parse(htmlTpl))

// Render 渲染报告 HTML
func Render(w io.Writer, p Page) error {
	return pageTpl.Execute(w, p)
}

// WriteFile 渲染报告并写入文件，必要时创建目录
func WriteFile(path string, p Page) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Render(f, p)
}

const htmlTpl = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Narrative Radar - {{.Report.Keyword}}</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --text-main: #1e293b;
            --text-secondary: #64748b;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 32px; }
        .date-info { color: var(--text-secondary); }
        .card { background: #fff; padding: 24px; border-radius: 12px; margin-bottom: 24px; border: 1px solid #e2e8f0; }
        .card h2 { margin-top: 0; border-bottom: 2px solid var(--primary-color); padding-bottom: 8px; display: inline-block; }
        .degraded { background: #fef2f2; border-left: 4px solid #ef4444; padding: 12px; margin-bottom: 24px; }
        .period { border-left: 4px solid #cbd5e1; padding: 8px 16px; margin-bottom: 16px; background: #f8fafc; }
        .period .meta { color: var(--text-secondary); font-size: 0.9em; }
        .strategy { margin-bottom: 12px; }
        .strategy .why { color: var(--text-secondary); font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>📡 {{.Report.Keyword}}</h1>
            <div class="date-info">Generated {{.GeneratedAt}}</div>
        </header>

        {{if .Degraded}}
        <div class="degraded">Parts of this report were produced by fallback paths and are not fully grounded.</div>
        {{end}}

        <div class="card">
            <h2>Executive Summary</h2>
            <p>{{.Report.ExecutiveSummary}}</p>
        </div>

        <div class="card">
            <h2>Trend Analysis</h2>
            <p>{{.Report.TrendAnalysis}}</p>
        </div>

        <div class="card">
            <h2>Mitigation Strategies</h2>
            {{range .Report.MitigationStrategies}}
            <div class="strategy">
                <strong>{{.Name}}</strong>
                <div>{{.Description}}</div>
                <div class="why">{{.Justification}}</div>
            </div>
            {{else}}
            <p>No strategies were proposed.</p>
            {{end}}
        </div>

        <div class="card">
            <h2>Periods</h2>
            {{range .Periods}}
            <div class="period">
                <strong>{{.Label}}</strong>
                <div class="meta">{{.ArticleCount}} articles · sentiment {{score .AverageSentiment}}{{if .Degraded}} · fallback{{end}}</div>
                <p>{{.Narrative}}</p>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
