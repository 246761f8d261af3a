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
// 🗂️ 工作流变量仓储
// =============================================================================

// VariableStore 工作流变量仓储
type VariableStore struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewVariableStore 创建变量仓储
func NewVariableStore(db *gorm.DB, logger *zap.Logger) *VariableStore {
	return &VariableStore{
		db:     db,
		logger: logger.With(zap.String("component", "variable_store")),
	}
}

// Upsert 创建或更新变量（以 variable_id 为业务主键）
func (s *VariableStore) Upsert(ctx context.Context, workflowID string, v *types.WorkflowVariable) error {
	record, err := NewVariableRecord(workflowID, v)
	if err != nil {
		return types.WrapError(types.ErrInvalidRequest, "invalid variable value", err)
	}

	err = s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "variable_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"workflow_id", "name", "variable_type", "value_json", "updated_at"}),
		}).
		Create(record).Error
	if err != nil {
		s.logger.Error("variable upsert failed", zap.String("variable_id", v.VariableID), zap.Error(err))
		return types.WrapError(types.ErrStoreError, "variable upsert failed", err).WithRetryable(true)
	}
	return nil
}

// Get 按变量 ID 查询
func (s *VariableStore) Get(ctx context.Context, variableID string) (*types.WorkflowVariable, error) {
	var record VariableRecord
	err := s.db.WithContext(ctx).Where("variable_id = ?", variableID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, types.NewError(types.ErrNotFound, "variable not found: "+variableID)
	}
	if err != nil {
		return nil, types.WrapError(types.ErrStoreError, "variable query failed", err).WithRetryable(true)
	}
	return record.ToVariable()
}

// ListByIDs 批量查询变量，保持入参顺序，缺失的 ID 静默跳过
// （解析是尽力而为的：缺失变量意味着对应提及回退为字面名称）
func (s *VariableStore) ListByIDs(ctx context.Context, variableIDs []string) ([]*types.WorkflowVariable, error) {
	if len(variableIDs) == 0 {
		return nil, nil
	}

	var records []VariableRecord
	err := s.db.WithContext(ctx).Where("variable_id IN ?", variableIDs).Find(&records).Error
	if err != nil {
		return nil, types.WrapError(types.ErrStoreError, "variable batch query failed", err).WithRetryable(true)
	}

	byID := make(map[string]*VariableRecord, len(records))
	for i := range records {
		byID[records[i].VariableID] = &records[i]
	}

	out := make([]*types.WorkflowVariable, 0, len(records))
	for _, id := range variableIDs {
		record, ok := byID[id]
		if !ok {
			continue
		}
		v, convErr := record.ToVariable()
		if convErr != nil {
			s.logger.Warn("skipping undecodable variable", zap.String("variable_id", id), zap.Error(convErr))
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// ListByWorkflow 查询工作流下的全部变量
func (s *VariableStore) ListByWorkflow(ctx context.Context, workflowID string) ([]*types.WorkflowVariable, error) {
	var records []VariableRecord
	err := s.db.WithContext(ctx).
		Where("workflow_id = ?", workflowID).
		Order("id").
		Find(&records).Error
	if err != nil {
		return nil, types.WrapError(types.ErrStoreError, "workflow variable query failed", err).WithRetryable(true)
	}

	out := make([]*types.WorkflowVariable, 0, len(records))
	for i := range records {
		v, convErr := records[i].ToVariable()
		if convErr != nil {
			s.logger.Warn("skipping undecodable variable",
				zap.String("variable_id", records[i].VariableID), zap.Error(convErr))
			continue
		}
		out = append(out, v)
	}
	return out, nil
}

// Delete 删除变量
func (s *VariableStore) Delete(ctx context.Context, variableID string) error {
	result := s.db.WithContext(ctx).Where("variable_id = ?", variableID).Delete(&VariableRecord{})
	if result.Error != nil {
		return types.WrapError(types.ErrStoreError, "variable delete failed", result.Error).WithRetryable(true)
	}
	if result.RowsAffected == 0 {
		return types.NewError(types.ErrNotFound, "variable not found: "+variableID)
	}
	return nil
}
