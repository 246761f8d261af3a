package migration

import (
	"fmt"

	appconfig "github.com/BaSui01/queryflow/config"
)

// NewMigratorFromDatabaseConfig 从应用数据库配置创建迁移器
// 连接串按方言从配置字段拼装（sqlite 的 Name 即文件路径）
func NewMigratorFromDatabaseConfig(dbCfg appconfig.DatabaseConfig) (*Migrator, error) {
	dialect, err := ParseDialect(dbCfg.Driver)
	if err != nil {
		return nil, fmt.Errorf("invalid database driver: %w", err)
	}

	return NewMigrator(&Config{
		Dialect:     dialect,
		DatabaseURL: MigrationURL(dialect, dbCfg),
	})
}

// NewMigratorFromURL 从显式连接串创建迁移器（migrate 子命令的 --db-url 路径）
func NewMigratorFromURL(driver, dbURL string) (*Migrator, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	return NewMigrator(&Config{
		Dialect:     dialect,
		DatabaseURL: dbURL,
	})
}

// MigrationURL 拼装 golang-migrate 风格的连接串
// 注意与 gorm 的 DSN 格式不同: postgres 走 URL 形式，mysql 必须开启
// multiStatements 才能执行多语句迁移脚本
func MigrationURL(dialect Dialect, dbCfg appconfig.DatabaseConfig) string {
	switch dialect {
	case DialectPostgres:
		sslMode := dbCfg.SSLMode
		if sslMode == "" {
			sslMode = "require"
		}
		return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
			dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name, sslMode)
	case DialectMySQL:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&multiStatements=true",
			dbCfg.User, dbCfg.Password, dbCfg.Host, dbCfg.Port, dbCfg.Name)
	case DialectSQLite:
		return fmt.Sprintf("file:%s?mode=rwc&_foreign_keys=on", dbCfg.Name)
	default:
		return ""
	}
}
