package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BaSui01/queryflow/types"
)

// VariableRecord 工作流变量表
type VariableRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	VariableID string `gorm:"size:64;not null;uniqueIndex" json:"variable_id"` // 业务主键
	WorkflowID string `gorm:"size:64;not null;index:idx_var_workflow" json:"workflow_id"`
	Name       string `gorm:"size:255;not null" json:"name"`
	// 变量类型: string / resource / option
	VariableType string `gorm:"size:32;not null" json:"variable_type"`
	// 取值片段，JSON 序列化的 []types.VariableValue
	ValueJSON string `gorm:"type:text" json:"value_json"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (VariableRecord) TableName() string {
	return "workflow_variables"
}

// ResourceRecord 资源表
type ResourceRecord struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	EntityID   string `gorm:"size:64;not null;uniqueIndex" json:"entity_id"`
	WorkflowID string `gorm:"size:64;index:idx_res_workflow" json:"workflow_id"`
	Name       string `gorm:"size:512;not null" json:"name"`
	// 资源类型: document / image / weblink ...
	ResourceType string `gorm:"size:32" json:"resource_type"`
	FileType     string `gorm:"size:32" json:"file_type"`
	StorageKey   string `gorm:"size:512" json:"storage_key"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 指定表名
func (ResourceRecord) TableName() string {
	return "resources"
}

// ToVariable 将记录转换为领域类型
func (r *VariableRecord) ToVariable() (*types.WorkflowVariable, error) {
	v := &types.WorkflowVariable{
		VariableID:   r.VariableID,
		Name:         r.Name,
		VariableType: types.VariableType(r.VariableType),
	}
	if r.ValueJSON != "" {
		if err := json.Unmarshal([]byte(r.ValueJSON), &v.Value); err != nil {
			return nil, fmt.Errorf("failed to decode variable value: %w", err)
		}
	}
	return v, nil
}

// NewVariableRecord 从领域类型构造记录
func NewVariableRecord(workflowID string, v *types.WorkflowVariable) (*VariableRecord, error) {
	data, err := json.Marshal(v.Value)
	if err != nil {
		return nil, fmt.Errorf("failed to encode variable value: %w", err)
	}
	return &VariableRecord{
		VariableID:   v.VariableID,
		WorkflowID:   workflowID,
		Name:         v.Name,
		VariableType: string(v.VariableType),
		ValueJSON:    string(data),
	}, nil
}

// ToRef 将资源记录转换为轻量引用
func (r *ResourceRecord) ToRef() types.ResourceRef {
	return types.ResourceRef{
		ResourceID:   r.EntityID,
		Title:        r.Name,
		ResourceType: r.ResourceType,
	}
}
