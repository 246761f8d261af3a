package store

import (
	"context"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"

	"github.com/BaSui01/queryflow/types"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, AutoMigrate(db))
	return db
}

func stringVariable(id, name, text string) *types.WorkflowVariable {
	return &types.WorkflowVariable{
		VariableID:   id,
		Name:         name,
		VariableType: types.VariableString,
		Value:        []types.VariableValue{{Type: types.ValueText, Text: text}},
	}
}

// =============================================================================
// 🧪 VariableStore 测试
// =============================================================================

func TestVariableStoreUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	s := NewVariableStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	v := &types.WorkflowVariable{
		VariableID:   "var-1",
		Name:         "city",
		VariableType: types.VariableResource,
		Value: []types.VariableValue{{
			Type:     types.ValueResource,
			Resource: &types.Resource{EntityID: "entity-1", Name: "guide.pdf", FileType: "pdf", StorageKey: "static/entity-1"},
		}},
	}
	require.NoError(t, s.Upsert(ctx, "wf-1", v))

	got, err := s.Get(ctx, "var-1")
	require.NoError(t, err)
	assert.Equal(t, "city", got.Name)
	assert.Equal(t, types.VariableResource, got.VariableType)

	r, ok := got.FirstResource()
	require.True(t, ok)
	assert.Equal(t, "entity-1", r.EntityID)
	assert.Equal(t, "guide.pdf", r.Name)
	assert.Equal(t, "static/entity-1", r.StorageKey)
}

func TestVariableStoreUpsertUpdatesExisting(t *testing.T) {
	db := setupTestDB(t)
	s := NewVariableStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-1", "old", "a")))
	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-1", "new", "b")))

	got, err := s.Get(ctx, "var-1")
	require.NoError(t, err)
	assert.Equal(t, "new", got.Name)
	text, ok := got.FirstText()
	require.True(t, ok)
	assert.Equal(t, "b", text)

	var count int64
	db.Model(&VariableRecord{}).Count(&count)
	assert.Equal(t, int64(1), count)
}

func TestVariableStoreGetNotFound(t *testing.T) {
	db := setupTestDB(t)
	s := NewVariableStore(db, zaptest.NewLogger(t))

	_, err := s.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
}

func TestVariableStoreListByIDs(t *testing.T) {
	db := setupTestDB(t)
	s := NewVariableStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-1", "a", "1")))
	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-2", "b", "2")))
	require.NoError(t, s.Upsert(ctx, "wf-2", stringVariable("var-3", "c", "3")))

	// 顺序保持、缺失 ID 静默跳过
	got, err := s.ListByIDs(ctx, []string{"var-3", "missing", "var-1"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "var-3", got[0].VariableID)
	assert.Equal(t, "var-1", got[1].VariableID)

	// 空入参
	got, err = s.ListByIDs(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestVariableStoreListByWorkflow(t *testing.T) {
	db := setupTestDB(t)
	s := NewVariableStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-1", "a", "1")))
	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-2", "b", "2")))
	require.NoError(t, s.Upsert(ctx, "wf-2", stringVariable("var-3", "c", "3")))

	got, err := s.ListByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "var-1", got[0].VariableID)
	assert.Equal(t, "var-2", got[1].VariableID)
}

func TestVariableStoreDelete(t *testing.T) {
	db := setupTestDB(t)
	s := NewVariableStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", stringVariable("var-1", "a", "1")))
	require.NoError(t, s.Delete(ctx, "var-1"))

	err := s.Delete(ctx, "var-1")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
}

// =============================================================================
// 🧪 ResourceStore 测试
// =============================================================================

func TestResourceStoreUpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	s := NewResourceStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	r := &types.Resource{EntityID: "entity-1", Name: "report.pdf", FileType: "pdf", StorageKey: "static/entity-1"}
	require.NoError(t, s.Upsert(ctx, "wf-1", r, "document"))

	got, err := s.Get(ctx, "entity-1")
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", got.Name)
	assert.Equal(t, "pdf", got.FileType)
}

func TestResourceStoreListRefsByWorkflow(t *testing.T) {
	db := setupTestDB(t)
	s := NewResourceStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", &types.Resource{EntityID: "e1", Name: "a.pdf"}, "document"))
	require.NoError(t, s.Upsert(ctx, "wf-1", &types.Resource{EntityID: "e2", Name: "b.png"}, "image"))
	require.NoError(t, s.Upsert(ctx, "wf-2", &types.Resource{EntityID: "e3", Name: "c.txt"}, "document"))

	refs, err := s.ListRefsByWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, types.ResourceRef{ResourceID: "e1", Title: "a.pdf", ResourceType: "document"}, refs[0])
	assert.Equal(t, types.ResourceRef{ResourceID: "e2", Title: "b.png", ResourceType: "image"}, refs[1])
}

func TestResourceStoreRename(t *testing.T) {
	db := setupTestDB(t)
	s := NewResourceStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", &types.Resource{EntityID: "e1", Name: "old.pdf"}, "document"))
	require.NoError(t, s.Rename(ctx, "e1", "new.pdf"))

	got, err := s.Get(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, "new.pdf", got.Name)

	err = s.Rename(ctx, "missing", "x")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
}

func TestResourceStoreDelete(t *testing.T) {
	db := setupTestDB(t)
	s := NewResourceStore(db, zaptest.NewLogger(t))
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, "wf-1", &types.Resource{EntityID: "e1", Name: "a.pdf"}, "document"))
	require.NoError(t, s.Delete(ctx, "e1"))

	_, err := s.Get(ctx, "e1")
	require.Error(t, err)
	assert.True(t, types.IsErrorCode(err, types.ErrNotFound))
}
