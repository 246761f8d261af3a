// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
Package main 提供 QueryFlow 服务端程序入口。

# 概述

cmd/queryflow 是 QueryFlow 服务的可执行入口，提供查询处理 HTTP API、
数据库迁移、健康检查和版本查询等子命令。程序支持 YAML 配置文件加载、
结构化日志（zap）、Prometheus 指标采集以及 OpenTelemetry 链路追踪。

# 核心类型

  - Server           — 主服务器，管理 HTTP、Metrics 双端口及优雅关闭
  - Middleware        — HTTP 中间件函数签名 func(http.Handler) http.Handler
  - responseWriter    — 包装 http.ResponseWriter 以捕获状态码

# 主要能力

  - 子命令：serve（启动服务）、migrate（数据库迁移）、version、health
  - 中间件链：Recovery、RequestID、SecurityHeaders、RequestLogger、
    CORS、MetricsMiddleware、OTelTracing、RateLimiter（基于 IP）、
    JWTAuth（Bearer token，HS256）
  - API 路由：/v1/query/process、/v1/query/process/batch、/v1/query/rewrite
  - Metrics 服务器：独立端口暴露 /metrics（Prometheus）
  - 优雅关闭：信号监听 → 关闭 HTTP → 关闭 Metrics → 关闭缓存/连接池 → Wait
  - 构建注入：Version、BuildTime、GitCommit 通过 ldflags 设置
*/
package main
