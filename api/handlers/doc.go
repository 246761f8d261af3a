// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
Package handlers 提供 QueryFlow HTTP API 的请求处理器实现。

# 概述

handlers 包实现了 QueryFlow 所有 HTTP 端点的请求处理逻辑，
包括查询处理、批量处理、规范态改写、健康检查以及统一的
响应/错误处理。所有 Handler 均遵循标准 net/http 接口，
通过 Swagger 注解生成 API 文档。

# 核心类型

  - QueryHandler     — 查询处理器：process、batch、rewrite 三个端点
  - HealthHandler    — 服务健康检查（/health, /healthz, /ready）
  - Response         — 统一 JSON 响应结构（success + data + error + timestamp）
  - ErrorInfo        — 结构化错误信息，含 code、message、retryable 标记
  - ResponseWriter   — 包装 http.ResponseWriter 以捕获状态码
  - HealthCheck      — 可插拔健康检查接口（Database、Redis 等）

# 主要能力

  - 统一响应格式：WriteSuccess / WriteError / WriteJSON 辅助函数
  - 请求验证：DecodeJSONBody（严格模式）、ValidateContentType
  - ErrorCode → HTTP 状态码自动映射（4xx/5xx）
  - 变量与资源的仓储回源：workflow_id 提供时自动加载，
    资源引用走 Redis 缓存
  - 批量处理：errgroup 并发执行，结果保持入参顺序
  - 可扩展健康检查：RegisterCheck 注册自定义 HealthCheck 实现
*/
package handlers
