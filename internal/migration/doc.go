// Copyright (c) QueryFlow Authors.
// Licensed under the MIT License.

/*
包 migration 管理 QueryFlow 的数据库 Schema 迁移，维护
workflow_variables 与 resources 两张业务表，基于 golang-migrate
实现，支持 PostgreSQL、MySQL 与 SQLite。

# 概述

本包通过 embed.FS 内嵌各方言的 SQL 迁移脚本，迁移随二进制分发，
部署时无需携带脚本目录。支持正向迁移、回滚、跳转到指定版本以及
强制设置版本号（修复 dirty 状态）。

# 核心类型

  - Migrator：迁移器，封装 golang-migrate 实例与数据库连接，
    提供 Up/Down/DownAll/Goto/Force/Version/StatusAll/Summary。
  - Config：迁移配置（方言、连接 URL、版本表名）。
  - Dialect：方言枚举（postgres/mysql/sqlite），ParseDialect
    接受常见别名。
  - CLI：migrate 子命令的输出层，提供 RunUp/RunDown/RunStatus 等
    面向终端的格式化操作。

# 工厂函数

NewMigratorFromDatabaseConfig 从应用数据库配置创建迁移器，
NewMigratorFromURL 接受显式连接串（migrate 子命令的 --db-url）。
MigrationURL 按方言拼接 golang-migrate 风格的连接串，注意与
gorm 的 DSN 格式不同。
*/
package migration
