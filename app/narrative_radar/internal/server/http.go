package server

import (
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/internal/service"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/config"
)

// NewHTTPServer 创建 HTTP 服务并注册业务路由与健康检查
func NewHTTPServer(c config.ServerConfig, s *service.RadarService, health *Health, logger log.Logger) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Addr != "" {
		opts = append(opts, http.Address(c.Addr))
	}
	if c.Timeout > 0 {
		opts = append(opts, http.Timeout(c.Timeout))
	}

	srv := http.NewServer(opts...)
	log.NewHelper(logger).Infof("HTTP 服务监听 %s", c.Addr)
	s.Register(srv)
	if health != nil {
		srv.HandlePrefix(HealthPrefix, health.Handler())
	}
	return srv
}
