// Package config 提供 QueryFlow 的配置加载与默认值。
// 配置优先级: 默认值 → YAML 文件 → 环境变量（QUERYFLOW_ 前缀）。
package config
