package server

import (
	"context"
	"encoding/json"
	nethttp "net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// HealthPrefix 健康检查路由前缀
const HealthPrefix = "/healthz"

// Check 依赖检查，返回 nil 表示正常
type Check func(ctx context.Context) error

// Health 存活与就绪检查
type Health struct {
	checks  map[string]Check
	timeout time.Duration
}

// NewHealth 创建健康检查，checks 按名称注册依赖检查
func NewHealth(checks map[string]Check) *Health {
	if checks == nil {
		checks = map[string]Check{}
	}
	return &Health{checks: checks, timeout: 3 * time.Second}
}

// Handler 挂载在 HealthPrefix 下的 chi 路由
func (h *Health) Handler() nethttp.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/live", h.live)
	r.Get("/ready", h.ready)
	return nethttp.StripPrefix(HealthPrefix, r)
}

func (h *Health) live(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]string{"status": "ok"})
}

func (h *Health) ready(w nethttp.ResponseWriter, r *nethttp.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for n := range h.checks {
		names = append(names, n)
	}
	sort.Strings(names)

	status := nethttp.StatusOK
	results := make(map[string]string, len(names))
	for _, n := range names {
		if err := h.checks[n](ctx); err != nil {
			results[n] = err.Error()
			status = nethttp.StatusServiceUnavailable
			continue
		}
		results[n] = "ok"
	}
	writeJSON(w, status, map[string]any{"status": nethttp.StatusText(status), "checks": results})
}

func writeJSON(w nethttp.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
