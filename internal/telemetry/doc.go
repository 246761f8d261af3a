// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
包 telemetry 装配 OpenTelemetry SDK，为查询处理链路提供分布式
追踪与指标导出。

# 概述

本包只负责 SDK 装配：OTLP gRPC exporter、采样器、服务 resource
与全局 provider/propagator 注册。span 的创建发生在 HTTP 中间件，
业务代码通过全局 otel.Tracer 取用。遥测关闭时返回 noop Providers，
不连接任何外部服务。

# 核心类型

  - Providers：持有 TracerProvider 与 MeterProvider，提供
    Enabled/Shutdown。Shutdown 刷出未导出的数据并关闭 exporter，
    对 noop 实例调用安全。

# 采样

采样率来自配置 telemetry.sample_rate，未设置（<=0）时全量采样。
*/
package telemetry
