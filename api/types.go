package api

import (
	"github.com/BaSui01/queryflow/types"
)

// =============================================================================
// 查询处理类型
// =============================================================================

// ProcessQueryRequest 查询处理请求。
// @Description 查询处理请求结构
type ProcessQueryRequest struct {
	// 用于请求跟踪的跟踪 ID
	TraceID string `json:"trace_id,omitempty" example:"trace-123"`
	// 含提及标记的原始查询
	Query string `json:"query" example:"hello @{type=var,id=v1,name=city}" binding:"required"`
	// 工作流 ID，提供时未内联的变量与资源从仓储加载
	WorkflowID string `json:"workflow_id,omitempty" example:"wf-1"`
	// 变量 ID 列表，提供时按 ID 精确加载变量，优先于工作流全量加载
	VariableIDs []string `json:"variable_ids,omitempty"`
	// 是否将变量提及替换为变量取值
	ReplaceVars bool `json:"replace_vars,omitempty"`
	// 内联变量列表，优先于仓储加载
	Variables []*types.WorkflowVariable `json:"variables,omitempty"`
	// 显式资源引用列表，优先于变量匹配
	Resources []types.ResourceRef `json:"resources,omitempty"`
	// 是否统计处理后查询的 token 数
	CountTokens bool `json:"count_tokens,omitempty"`
}

// ProcessQueryResponse 查询处理响应。
// @Description 查询处理响应结构
type ProcessQueryResponse struct {
	// 展示态查询：提及替换为显示名或变量取值
	ProcessedQuery string `json:"processed_query"`
	// 规范态查询：标记结构保留，资源名称已刷新
	UpdatedQuery string `json:"updated_query"`
	// 解析过程中用到的资源变量
	ResourceVars []*types.WorkflowVariable `json:"resource_vars,omitempty"`
	// 处理后查询的 token 数（仅在 count_tokens 时返回）
	TokenCount int `json:"token_count,omitempty"`
}

// =============================================================================
// 批量处理类型
// =============================================================================

// BatchProcessRequest 批量查询处理请求。
// @Description 批量查询处理请求结构
type BatchProcessRequest struct {
	// 待处理的查询列表，响应保持入参顺序
	Items []ProcessQueryRequest `json:"items" binding:"required"`
}

// BatchProcessResponse 批量查询处理响应。
// @Description 批量查询处理响应结构
type BatchProcessResponse struct {
	// 与请求同序的处理结果
	Results []ProcessQueryResponse `json:"results"`
}

// =============================================================================
// 规范态改写类型
// =============================================================================

// RewriteQueryRequest 资源提及改写请求。
// 资源复制或重命名后用于刷新已保存查询中的资源标记。
// @Description 资源提及改写请求结构
type RewriteQueryRequest struct {
	// 含提及标记的已保存查询
	Query string `json:"query" binding:"required"`
	// 工作流 ID，提供时未内联的变量从仓储加载
	WorkflowID string `json:"workflow_id,omitempty"`
	// 内联变量列表，用于刷新资源名称
	Variables []*types.WorkflowVariable `json:"variables,omitempty"`
	// 实体 ID 重映射表（旧 ID → 新 ID），优先于变量匹配
	EntityIDMap map[string]string `json:"entity_id_map,omitempty"`
}

// RewriteQueryResponse 资源提及改写响应。
// @Description 资源提及改写响应结构
type RewriteQueryResponse struct {
	// 改写后的规范态查询
	UpdatedQuery string `json:"updated_query"`
}
