package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/BaSui01/queryflow/api"
	"github.com/BaSui01/queryflow/config"
	"github.com/BaSui01/queryflow/internal/cache"
	"github.com/BaSui01/queryflow/internal/metrics"
	"github.com/BaSui01/queryflow/query"
	"github.com/BaSui01/queryflow/types"
)

// =============================================================================
// 🔎 查询处理 Handler
// =============================================================================

// VariableLoader 加载工作流变量
type VariableLoader interface {
	ListByWorkflow(ctx context.Context, workflowID string) ([]*types.WorkflowVariable, error)
	ListByIDs(ctx context.Context, variableIDs []string) ([]*types.WorkflowVariable, error)
}

// ResourceRefLoader 按工作流加载资源引用
type ResourceRefLoader interface {
	ListRefsByWorkflow(ctx context.Context, workflowID string) ([]types.ResourceRef, error)
}

// RefCache 资源引用缓存
type RefCache interface {
	GetRefs(ctx context.Context, workflowID string) ([]types.ResourceRef, error)
	SetRefs(ctx context.Context, workflowID string, refs []types.ResourceRef, ttl time.Duration) error
}

// TokenCounter token 计数器
type TokenCounter interface {
	CountTokens(text string) (int, error)
	Model() string
}

// QueryHandler 查询处理器
type QueryHandler struct {
	variables VariableLoader
	resources ResourceRefLoader
	refCache  RefCache
	metrics   *metrics.Collector
	tokenizer TokenCounter
	cfg       config.QueryConfig
	logger    *zap.Logger
}

// NewQueryHandler 创建查询处理器
// variables/resources/refCache/metrics/tokenizer 均可为 nil，
// 缺失的依赖对应能力降级（不回源、不缓存、不计数）
func NewQueryHandler(
	variables VariableLoader,
	resources ResourceRefLoader,
	refCache RefCache,
	collector *metrics.Collector,
	tokenizer TokenCounter,
	cfg config.QueryConfig,
	logger *zap.Logger,
) *QueryHandler {
	return &QueryHandler{
		variables: variables,
		resources: resources,
		refCache:  refCache,
		metrics:   collector,
		tokenizer: tokenizer,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "query_handler")),
	}
}

// HandleProcess 处理查询处理请求
// @Summary 查询处理
// @Description 解析查询中的提及标记，返回展示态与规范态
// @Tags 查询
// @Accept json
// @Produce json
// @Param request body api.ProcessQueryRequest true "查询处理请求"
// @Success 200 {object} api.ProcessQueryResponse "处理结果"
// @Failure 400 {object} Response "无效请求"
// @Failure 413 {object} Response "查询过长"
// @Security BearerAuth
// @Router /v1/query/process [post]
func (h *QueryHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.ProcessQueryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	ctx := r.Context()
	if req.TraceID != "" {
		ctx = types.WithTraceID(ctx, req.TraceID)
	}

	start := time.Now()
	resp, apiErr := h.processOne(ctx, &req)
	duration := time.Since(start)

	if apiErr != nil {
		h.recordQuery("process", "error", len(req.Query), duration)
		WriteError(w, apiErr, h.logger)
		return
	}
	h.recordQuery("process", "success", len(req.Query), duration)

	h.logger.Info("query processed",
		zap.String("trace_id", req.TraceID),
		zap.String("workflow_id", req.WorkflowID),
		zap.Int("query_bytes", len(req.Query)),
		zap.Int("resource_vars", len(resp.ResourceVars)),
		zap.Duration("duration", duration),
	)

	WriteSuccess(w, resp)
}

// HandleBatch 处理批量查询请求
// @Summary 批量查询处理
// @Description 并发处理多条查询，结果保持入参顺序
// @Tags 查询
// @Accept json
// @Produce json
// @Param request body api.BatchProcessRequest true "批量处理请求"
// @Success 200 {object} api.BatchProcessResponse "批量处理结果"
// @Failure 400 {object} Response "无效请求"
// @Security BearerAuth
// @Router /v1/query/process/batch [post]
func (h *QueryHandler) HandleBatch(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.BatchProcessRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if len(req.Items) == 0 {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "items must not be empty"), h.logger)
		return
	}
	if h.cfg.MaxBatchSize > 0 && len(req.Items) > h.cfg.MaxBatchSize {
		WriteError(w, types.NewError(types.ErrInvalidRequest, "batch size exceeds limit"), h.logger)
		return
	}

	start := time.Now()
	results := make([]api.ProcessQueryResponse, len(req.Items))

	g, ctx := errgroup.WithContext(r.Context())
	if h.cfg.BatchConcurrency > 0 {
		g.SetLimit(h.cfg.BatchConcurrency)
	}

	for i := range req.Items {
		g.Go(func() error {
			resp, apiErr := h.processOne(ctx, &req.Items[i])
			if apiErr != nil {
				return apiErr
			}
			results[i] = *resp
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		h.recordQuery("batch", "error", 0, time.Since(start))
		WriteError(w, types.ToError(err), h.logger)
		return
	}
	h.recordQuery("batch", "success", 0, time.Since(start))

	h.logger.Info("batch processed",
		zap.Int("items", len(req.Items)),
		zap.Duration("duration", time.Since(start)),
	)

	WriteSuccess(w, api.BatchProcessResponse{Results: results})
}

// HandleRewrite 处理规范态改写请求
// @Summary 资源提及改写
// @Description 刷新已保存查询中资源标记的 id 与 name
// @Tags 查询
// @Accept json
// @Produce json
// @Param request body api.RewriteQueryRequest true "改写请求"
// @Success 200 {object} api.RewriteQueryResponse "改写结果"
// @Failure 400 {object} Response "无效请求"
// @Security BearerAuth
// @Router /v1/query/rewrite [post]
func (h *QueryHandler) HandleRewrite(w http.ResponseWriter, r *http.Request) {
	if !ValidateContentType(w, r, h.logger) {
		return
	}

	var req api.RewriteQueryRequest
	if err := DecodeJSONBody(w, r, &req, h.logger); err != nil {
		return
	}

	if apiErr := h.checkQuerySize(req.Query); apiErr != nil {
		WriteError(w, apiErr, h.logger)
		return
	}

	variables := req.Variables
	if variables == nil && req.WorkflowID != "" && h.variables != nil {
		loaded, err := h.variables.ListByWorkflow(r.Context(), req.WorkflowID)
		if err != nil {
			WriteError(w, types.ToError(err), h.logger)
			return
		}
		variables = loaded
	}

	start := time.Now()
	updated := query.ReplaceResourceMentionsInQuery(req.Query, variables, req.EntityIDMap)
	h.recordQuery("rewrite", "success", len(req.Query), time.Since(start))

	WriteSuccess(w, api.RewriteQueryResponse{UpdatedQuery: updated})
}

// =============================================================================
// 🔧 内部方法
// =============================================================================

// processOne 执行单条查询处理，供 process 与 batch 共用
func (h *QueryHandler) processOne(ctx context.Context, req *api.ProcessQueryRequest) (*api.ProcessQueryResponse, *types.Error) {
	if apiErr := h.checkQuerySize(req.Query); apiErr != nil {
		return nil, apiErr
	}

	if req.WorkflowID != "" {
		ctx = types.WithWorkflowID(ctx, req.WorkflowID)
	}

	opts := &query.ProcessOptions{
		ReplaceVars: req.ReplaceVars,
		Variables:   req.Variables,
		Resources:   req.Resources,
	}

	if opts.Variables == nil && h.variables != nil {
		switch {
		case len(req.VariableIDs) > 0:
			loaded, err := h.variables.ListByIDs(ctx, req.VariableIDs)
			if err != nil {
				return nil, types.ToError(err)
			}
			opts.Variables = loaded
		case req.WorkflowID != "":
			loaded, err := h.variables.ListByWorkflow(ctx, req.WorkflowID)
			if err != nil {
				return nil, types.ToError(err)
			}
			opts.Variables = loaded
		}
	}

	if opts.Resources == nil && req.WorkflowID != "" && h.resources != nil {
		refs, err := h.loadResourceRefs(ctx, req.WorkflowID)
		if err != nil {
			return nil, types.ToError(err)
		}
		opts.Resources = refs
	}

	result := query.ProcessQueryWithMentions(req.Query, opts)
	h.recordMentions(req.Query, opts, result)

	resp := &api.ProcessQueryResponse{
		ProcessedQuery: result.ProcessedQuery,
		UpdatedQuery:   result.UpdatedQuery,
		ResourceVars:   result.ResourceVars,
	}

	if req.CountTokens && h.tokenizer != nil {
		count, err := h.tokenizer.CountTokens(result.ProcessedQuery)
		if err != nil {
			// token 计数失败不影响处理结果
			h.logger.Warn("token counting failed", zap.Error(err))
		} else {
			resp.TokenCount = count
			if h.metrics != nil {
				h.metrics.RecordTokensCounted(h.tokenizer.Model(), count)
			}
		}
	}

	return resp, nil
}

// loadResourceRefs 加载工作流资源引用，优先走缓存
func (h *QueryHandler) loadResourceRefs(ctx context.Context, workflowID string) ([]types.ResourceRef, error) {
	if h.refCache != nil {
		refs, err := h.refCache.GetRefs(ctx, workflowID)
		if err == nil {
			if h.metrics != nil {
				h.metrics.RecordCacheHit("resource_refs")
			}
			return refs, nil
		}
		if !cache.IsCacheMiss(err) {
			// 缓存故障时直接回源
			traceID, _ := types.TraceID(ctx)
			h.logger.Warn("ref cache unavailable",
				zap.String("trace_id", traceID),
				zap.Error(err))
		}
		if h.metrics != nil {
			h.metrics.RecordCacheMiss("resource_refs")
		}
	}

	refs, err := h.resources.ListRefsByWorkflow(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	if h.refCache != nil {
		if err := h.refCache.SetRefs(ctx, workflowID, refs, 0); err != nil {
			h.logger.Warn("ref cache populate failed", zap.Error(err))
		}
	}
	return refs, nil
}

// checkQuerySize 校验查询长度
func (h *QueryHandler) checkQuerySize(q string) *types.Error {
	if h.cfg.MaxQueryBytes > 0 && len(q) > h.cfg.MaxQueryBytes {
		return types.NewError(types.ErrQueryTooLong, "query exceeds maximum length")
	}
	return nil
}

// recordQuery 记录查询处理指标
func (h *QueryHandler) recordQuery(mode, status string, queryBytes int, duration time.Duration) {
	if h.metrics == nil {
		return
	}
	h.metrics.RecordQueryProcessed(mode, status, queryBytes, duration)
}

// recordMentions 记录提及解析指标
// 解析结论在这里粗粒度复推一遍，仅用于观测
func (h *QueryHandler) recordMentions(q string, opts *query.ProcessOptions, result *query.ProcessResult) {
	if h.metrics == nil {
		return
	}

	matches, skipped := query.ScanAllWithSkipped(q)
	for _, m := range matches {
		h.metrics.RecordMentionResolved(string(m.Type), h.mentionOutcome(m, opts))
	}
	for i := 0; i < skipped; i++ {
		h.metrics.RecordMalformedMention()
	}

	if n := len(result.ResourceVars); n > 0 {
		h.metrics.RecordResourceVarsCollected(n)
	}
}

func (h *QueryHandler) mentionOutcome(m query.Match, opts *query.ProcessOptions) string {
	switch m.Type {
	case types.MentionVar:
		if opts.ReplaceVars && hasTextVariable(opts.Variables, m.ID) {
			return "substituted"
		}
		return "fallback"
	case types.MentionResource:
		if hasResourceRef(opts.Resources, m.ID) || hasResourceVariable(opts.Variables, m.ID) {
			return "substituted"
		}
		return "fallback"
	default:
		return "passthrough"
	}
}

func hasTextVariable(variables []*types.WorkflowVariable, id string) bool {
	for _, v := range variables {
		if v != nil && v.VariableID == id {
			_, ok := v.FirstText()
			return ok
		}
	}
	return false
}

func hasResourceRef(refs []types.ResourceRef, id string) bool {
	for i := range refs {
		if refs[i].ResourceID == id {
			return true
		}
	}
	return false
}

func hasResourceVariable(variables []*types.WorkflowVariable, id string) bool {
	for _, v := range variables {
		if v == nil || v.VariableType != types.VariableResource {
			continue
		}
		if r, ok := v.FirstResource(); ok && r.EntityID == id {
			return true
		}
	}
	return false
}
