package store

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BaSui01/queryflow/types"
)

// =============================================================================
// 📁 资源仓储
// =============================================================================

// ResourceStore 资源仓储
type ResourceStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewResourceStore 创建资源仓储
func NewResourceStore(db *gorm.DB, logger *zap.Logger) *ResourceStore {
	return &ResourceStore{
		db:     db,
		logger: logger.With(zap.String("component", "resource_store")),
	}
}

// Upsert 创建或更新资源（以 entity_id 为业务主键）
func (s *ResourceStore) Upsert(ctx context.Context, workflowID string, r *types.Resource, resourceType string) error {
	record := &ResourceRecord{
		EntityID:     r.EntityID,
		WorkflowID:   workflowID,
		Name:         r.Name,
		ResourceType: resourceType,
		FileType:     r.FileType,
		StorageKey:   r.StorageKey,
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "entity_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"workflow_id", "name", "resource_type", "file_type", "storage_key", "updated_at"}),
		}).
		Create(record).Error
	if err != nil {
		s.logger.Error("resource upsert failed", zap.String("entity_id", r.EntityID), zap.Error(err))
		return types.WrapError(types.ErrStoreError, "resource upsert failed", err).WithRetryable(true)
	}
	return nil
}

// Get 按实体 ID 查询资源
func (s *ResourceStore) Get(ctx context.Context, entityID string) (*types.Resource, error) {
	var record ResourceRecord
	err := s.db.WithContext(ctx).Where("entity_id = ?", entityID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, "resource not found: "+entityID)
	}
	if err != nil {
		return nil, types.WrapError(types.ErrStoreError, "resource query failed", err).WithRetryable(true)
	}
	return &types.Resource{
		EntityID:   record.EntityID,
		Name:       record.Name,
		FileType:   record.FileType,
		StorageKey: record.StorageKey,
	}, nil
}

// ListRefsByWorkflow 查询工作流下全部资源的轻量引用
// 供查询处理接口作为显式 resources 列表使用
func (s *ResourceStore) ListRefsByWorkflow(ctx context.Context, workflowID string) ([]types.ResourceRef, error) {
	var records []ResourceRecord
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, types.WrapError(types.ErrStoreError, "resource ref query failed", err).WithRetryable(true)
	}

	refs := make([]types.ResourceRef, 0, len(records))
	for i := range records {
		refs = append(refs, records[i].ToRef())
	}
	return refs, nil
}

// Rename 更新资源显示名称
// 查询中的 resource 提及会在下次处理时刷新为新名称
func (s *ResourceStore) Rename(ctx context.Context, entityID, name string) error {
	result := s.db.WithContext(ctx).
		Model(&ResourceRecord{}).
		Where("entity_id = ?", entityID).
		Update("name", name)
	if result.Error != nil {
		return types.WrapError(types.ErrStoreError, "resource rename failed", result.Error).WithRetryable(true)
	}
	if result.RowsAffected == 0 {
		return types.NewError(types.ErrNotFound, "resource not found: "+entityID)
	}
	return nil
}

// Delete 删除资源
func (s *ResourceStore) Delete(ctx context.Context, entityID string) error {
	result := s.db.WithContext(ctx).Where("entity_id = ?", entityID).Delete(&ResourceRecord{})
	if result.Error != nil {
		return types.WrapError(types.ErrStoreError, "resource delete failed", result.Error).WithRetryable(true)
	}
	if result.RowsAffected == 0 {
		return types.NewError(types.ErrNotFound, "resource not found: "+entityID)
	}
	return nil
}
