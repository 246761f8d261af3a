// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
Package store 提供工作流变量与资源的持久化层。

# 概述

store 基于 GORM 实现两个仓储：

  - VariableStore — 工作流变量（取值片段以 JSON 列存储）
  - ResourceStore — 资源记录与轻量资源引用查询

支持 postgres / mysql / sqlite 三种驱动（sqlite 使用纯 Go 驱动，
便于开发与测试）。所有方法接受 context，未命中返回 NOT_FOUND 结构化
错误，其余数据库错误包装为 STORE_ERROR。
*/
package store
