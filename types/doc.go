// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
Package types 提供 QueryFlow 的全局共享类型定义。

# 概述

types 是最底层的公共包，不依赖任何内部包，为 query、store、api 等上层
模块提供统一的类型契约。所有跨包共享的结构体、枚举和错误码均定义于此，
以避免循环依赖。

# 核心类型

  - MentionType       — 提及 Token 的目标类型（var / resource / step / toolset / tool）
  - WorkflowVariable  — 工作流变量（ID + 名称 + 类型 + 多段取值）
  - VariableValue     — 变量取值片段（text 或 resource）
  - Resource          — 资源记录（EntityID、Name、FileType、StorageKey）
  - ResourceRef       — 轻量资源引用（ResourceID、Title、ResourceType）
  - Error / ErrorCode — 结构化错误体系，含 HTTP 状态码与 Retryable 标记

# 主要能力

  - 变量取值辅助：FirstText / FirstResource
  - 错误工具链：WrapError / AsError / IsErrorCode / IsRetryable
  - 请求上下文：WithTraceID / WithWorkflowID / WithUserID 及对应取值函数
*/
package types
