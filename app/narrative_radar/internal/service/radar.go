package service

import (
	"context"
	"errors"
	"strconv"

	kerrors "github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-kratos/kratos/v2/transport/http"

	"github.com/iWorld-y/narrative_radar/app/narrative_radar/internal/usecase"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/engine"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/factgraph"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/llm"
	"github.com/iWorld-y/narrative_radar/app/narrative_radar/pkg/model"
)

// rawLimit 错误元数据中附带的模型原文长度
const rawLimit = 2000

// Pipeline 分析流水线
type Pipeline interface {
	Trend(ctx context.Context, req engine.TrendRequest) (*engine.TrendResponse, error)
	Counterspeech(ctx context.Context, req engine.CounterRequest) (*engine.CounterResponse, error)
	Search(ctx context.Context, query string) (*engine.SearchResponse, error)
	AnalyzeQuery(ctx context.Context, query string) (*engine.AnalysisResponse, error)
	CompareNarratives(ctx context.Context, intended, media string) (*engine.Comparison, error)
	GroundTruth(ctx context.Context, query string) (*factgraph.Answer, error)
}

// QueryRequest 自然语言问题
type QueryRequest struct {
	Query string `json:"query"`
}

// CompareRequest 叙事差距分析请求
type CompareRequest struct {
	IntendedTruth string `json:"intended_truth"`
	MediaText     string `json:"media_text"`
}

// RadarService HTTP 接口
type RadarService struct {
	pipeline Pipeline
	analyses *usecase.AnalysisUseCase
	log      *log.Helper
}

// NewRadarService 创建服务
func NewRadarService(p Pipeline, analyses *usecase.AnalysisUseCase, logger log.Logger) *RadarService {
	return &RadarService{pipeline: p, analyses: analyses, log: log.NewHelper(logger)}
}

// Register 注册路由
func (s *RadarService) Register(srv *http.Server) {
	r := srv.Route("/")
	r.POST("/analyze-perception-trend", s.trend)
	r.POST("/counterspeech", s.counterspeech)
	r.POST("/search", s.search)
	r.POST("/analyze-query", s.analyzeQuery)
	r.GET("/analyses/{id}", s.getAnalysis)
	r.POST("/compare-narratives", s.compare)
	r.POST("/query-ground-truth", s.groundTruth)
}

// handle 解析请求体并经过服务端中间件执行 fn
func handle[Req any](ctx http.Context, operation string, fn func(context.Context, *Req) (any, error)) error {
	var in Req
	if err := ctx.Bind(&in); err != nil {
		return kerrors.BadRequest("INVALID_INPUT", err.Error())
	}
	http.SetOperation(ctx, operation)
	h := ctx.Middleware(func(c context.Context, req any) (any, error) {
		return fn(c, req.(*Req))
	})
	out, err := h(ctx, &in)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.Result(200, out)
}

func (s *RadarService) trend(ctx http.Context) error {
	return handle(ctx, "/narrative.v1.Radar/Trend", func(c context.Context, req *engine.TrendRequest) (any, error) {
		s.log.Infof("趋势分析请求: %s (%d/%d)", req.Keywords, req.TotalDays, req.ChunkDays)
		return s.pipeline.Trend(c, *req)
	})
}

func (s *RadarService) counterspeech(ctx http.Context) error {
	return handle(ctx, "/narrative.v1.Radar/Counterspeech", func(c context.Context, req *engine.CounterRequest) (any, error) {
		return s.pipeline.Counterspeech(c, *req)
	})
}

func (s *RadarService) search(ctx http.Context) error {
	return handle(ctx, "/narrative.v1.Radar/Search", func(c context.Context, req *QueryRequest) (any, error) {
		return s.pipeline.Search(c, req.Query)
	})
}

func (s *RadarService) analyzeQuery(ctx http.Context) error {
	return handle(ctx, "/narrative.v1.Radar/AnalyzeQuery", func(c context.Context, req *QueryRequest) (any, error) {
		return s.pipeline.AnalyzeQuery(c, req.Query)
	})
}

func (s *RadarService) compare(ctx http.Context) error {
	return handle(ctx, "/narrative.v1.Radar/CompareNarratives", func(c context.Context, req *CompareRequest) (any, error) {
		return s.pipeline.CompareNarratives(c, req.IntendedTruth, req.MediaText)
	})
}

func (s *RadarService) groundTruth(ctx http.Context) error {
	return handle(ctx, "/narrative.v1.Radar/GroundTruth", func(c context.Context, req *QueryRequest) (any, error) {
		return s.pipeline.GroundTruth(c, req.Query)
	})
}

func (s *RadarService) getAnalysis(ctx http.Context) error {
	id := ctx.Vars().Get("id")
	http.SetOperation(ctx, "/narrative.v1.Radar/GetAnalysis")
	h := ctx.Middleware(func(c context.Context, _ any) (any, error) {
		return s.analyses.Get(c, id)
	})
	out, err := h(ctx, nil)
	if err != nil {
		return toHTTPError(err)
	}
	return ctx.Result(200, out)
}

// toHTTPError 把领域错误映射为 kratos 错误
func toHTTPError(err error) error {
	var nr *model.NoResultsError
	var kerr *kerrors.Error
	switch {
	case errors.As(err, &kerr):
		return kerr
	case errors.As(err, &nr):
		return kerrors.NotFound("NO_RESULTS", nr.Error()).WithMetadata(map[string]string{
			"query":       nr.Query,
			"window_days": strconv.Itoa(nr.WindowDays),
			"stage":       nr.Stage,
		})
	case errors.Is(err, model.ErrInvalidInput):
		return kerrors.BadRequest("INVALID_INPUT", err.Error())
	case errors.Is(err, usecase.ErrNotFound):
		return kerrors.NotFound("ANALYSIS_NOT_FOUND", err.Error())
	case errors.Is(err, model.ErrMalformed):
		e := kerrors.New(502, "MALFORMED_OUTPUT", err.Error())
		if raw := rawOutput(err); raw != "" {
			e = e.WithMetadata(map[string]string{"raw": model.Truncate(raw, rawLimit)})
		}
		return e
	case errors.Is(err, model.ErrUpstream):
		return kerrors.ServiceUnavailable("UPSTREAM_UNAVAILABLE", err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return kerrors.GatewayTimeout("TIMEOUT", err.Error())
	default:
		return kerrors.InternalServer("INTERNAL", err.Error())
	}
}

func rawOutput(err error) string {
	var me *llm.MalformedError
	if errors.As(err, &me) {
		return me.Raw
	}
	return ""
}
