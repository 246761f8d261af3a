// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
Package query 提供查询提及（mention）替换处理器。

# 概述

query 包将用户在编辑器中书写的查询字符串中的结构化提及 Token
（`@{type=T,id=ID,name=N}`）重写为两种并行输出：

  - ProcessedQuery — 展示/替换形态，Token 被替换为 `@`+显示名，
    或（var 替换路径）直接注入变量文本值
  - UpdatedQuery   — 规范形态，Token 结构保留，仅 resource Token 的
    name=（以及显式重映射时的 id=）被刷新

同时收集解析过程中命中的 resource 变量（ResourceVars），供下游上下文
附加使用。

# 设计约束

  - 纯函数：不修改输入 query、variables、resources
  - 从不失败：缺失数据与畸形 Token 一律降级为字面回显
  - 单次左到右扫描，线性时间，无共享可变状态，可安全并发调用

# 核心组件

  - Scanner                       — 手写 Token 扫描器，产出 Match 序列
  - ProcessQueryWithMentions      — 完整处理入口（展示 + 规范 + 收集）
  - ReplaceResourceMentionsInQuery — 仅规范化重写入口（实体 ID 重映射 + 名称刷新）
*/
package query
