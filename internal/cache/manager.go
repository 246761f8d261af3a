package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/BaSui01/queryflow/types"
)

// =============================================================================
// 💾 资源引用缓存
// =============================================================================
// 按工作流缓存已解析的资源引用列表，重复的聊天输入渲染不必每次
// 回源数据库。缓存仅是优化：查询处理器本身保持纯函数。
// =============================================================================

// Manager 资源引用缓存管理器
type Manager struct {
	redis  *redis.Client
	config Config
	logger *zap.Logger
	mu     sync.RWMutex
	closed bool
}

// Config 缓存配置
type Config struct {
	// Redis 地址
	Addr string `yaml:"addr" json:"addr"`

	// 密码
	Password string `yaml:"password" json:"password"`

	// 数据库编号
	DB int `yaml:"db" json:"db"`

	// 资源引用默认过期时间
	DefaultTTL time.Duration `yaml:"default_ttl" json:"default_ttl"`

	// 最大重试次数
	MaxRetries int `yaml:"max_retries" json:"max_retries"`

	// 连接池大小
	PoolSize int `yaml:"pool_size" json:"pool_size"`

	// 最小空闲连接数
	MinIdleConns int `yaml:"min_idle_conns" json:"min_idle_conns"`

	// 健康检查间隔
	HealthCheckInterval time.Duration `yaml:"health_check_interval" json:"health_check_interval"`
}

// DefaultConfig 返回默认缓存配置
func DefaultConfig() Config {
	return Config{
		Addr:                "localhost:6379",
		Password:            "",
		DB:                  0,
		DefaultTTL:          5 * time.Minute,
		MaxRetries:          3,
		PoolSize:            10,
		MinIdleConns:        2,
		HealthCheckInterval: 30 * time.Second,
	}
}

// NewManager 创建缓存管理器
func NewManager(config Config, logger *zap.Logger) (*Manager, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		MaxRetries:   config.MaxRetries,
		PoolSize:     config.PoolSize,
		MinIdleConns: config.MinIdleConns,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	m := &Manager{
		redis:  client,
		config: config,
		logger: logger.With(zap.String("component", "resource_ref_cache")),
	}

	// 启动健康检查
	if config.HealthCheckInterval > 0 {
		go m.healthCheckLoop()
	}

	logger.Info("resource ref cache initialized",
		zap.String("addr", config.Addr),
		zap.Duration("default_ttl", config.DefaultTTL),
	)

	return m, nil
}

// refsKey 构造工作流资源引用的缓存键
func refsKey(workflowID string) string {
	return "queryflow:refs:" + workflowID
}

// =============================================================================
// 🎯 核心方法
// =============================================================================

// GetRefs 读取工作流的缓存资源引用
// 未命中返回 ErrCacheMiss
func (m *Manager) GetRefs(ctx context.Context, workflowID string) ([]types.ResourceRef, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, fmt.Errorf("cache manager is closed")
	}

	val, err := m.redis.Get(ctx, refsKey(workflowID)).Result()
	if err == redis.Nil {
		return nil, ErrCacheMiss
	}
	if err != nil {
		m.logger.Error("ref cache get failed", zap.String("workflow_id", workflowID), zap.Error(err))
		return nil, fmt.Errorf("ref cache get failed: %w", err)
	}

	var refs []types.ResourceRef
	if err := json.Unmarshal([]byte(val), &refs); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached refs: %w", err)
	}
	return refs, nil
}

// SetRefs 写入工作流的资源引用，ttl 为 0 时使用默认 TTL
func (m *Manager) SetRefs(ctx context.Context, workflowID string, refs []types.ResourceRef, ttl time.Duration) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	if ttl == 0 {
		ttl = m.config.DefaultTTL
	}

	data, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to marshal refs: %w", err)
	}

	if err := m.redis.Set(ctx, refsKey(workflowID), string(data), ttl).Err(); err != nil {
		m.logger.Error("ref cache set failed", zap.String("workflow_id", workflowID), zap.Error(err))
		return fmt.Errorf("ref cache set failed: %w", err)
	}
	return nil
}

// Invalidate 失效工作流的资源引用缓存
// 资源重命名或删除后调用，保证下次处理读到新名称
func (m *Manager) Invalidate(ctx context.Context, workflowIDs ...string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	if len(workflowIDs) == 0 {
		return nil
	}

	keys := make([]string, 0, len(workflowIDs))
	for _, id := range workflowIDs {
		keys = append(keys, refsKey(id))
	}

	if err := m.redis.Del(ctx, keys...).Err(); err != nil {
		m.logger.Error("ref cache invalidate failed", zap.Strings("workflow_ids", workflowIDs), zap.Error(err))
		return fmt.Errorf("ref cache invalidate failed: %w", err)
	}
	return nil
}

// Ping 检查 Redis 连接
func (m *Manager) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return fmt.Errorf("cache manager is closed")
	}

	return m.redis.Ping(ctx).Err()
}

// Close 关闭缓存管理器
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}

	m.closed = true
	m.logger.Info("closing resource ref cache")

	return m.redis.Close()
}

// =============================================================================
// 🏥 健康检查
// =============================================================================

// healthCheckLoop 健康检查循环
func (m *Manager) healthCheckLoop() {
	ticker := time.NewTicker(m.config.HealthCheckInterval)
	defer ticker.Stop()

	for range ticker.C {
		m.mu.RLock()
		if m.closed {
			m.mu.RUnlock()
			return
		}
		m.mu.RUnlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := m.Ping(ctx); err != nil {
			m.logger.Error("cache health check failed", zap.Error(err))
		} else {
			m.logger.Debug("cache health check passed")
		}
		cancel()
	}
}

// =============================================================================
// 🔧 辅助函数
// =============================================================================

// ErrCacheMiss 缓存未命中错误
var ErrCacheMiss = fmt.Errorf("cache miss")

// IsCacheMiss 判断是否为缓存未命中错误
func IsCacheMiss(err error) bool {
	return err == ErrCacheMiss
}
