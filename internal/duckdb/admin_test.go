package duckdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinytelemetry/logsearch/internal/admin"
	"github.com/tinytelemetry/logsearch/internal/model"
)

func TestLocalAdminIndex(t *testing.T) {
	la := NewLocalAdmin(newTestStore(t), "", "")
	ctx := context.Background()

	st, err := la.IndexStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.Configured())

	require.NoError(t, la.EnableIndex(ctx))
	require.NoError(t, la.EnableIndex(ctx))
	st, err = la.IndexStatus(ctx)
	require.NoError(t, err)
	require.Len(t, st.Entries, 1)
	assert.True(t, st.Ready())
	assert.True(t, st.Has("FULL_TEXT", "MESSAGE"))

	require.NoError(t, la.DisableIndex(ctx))
	st, err = la.IndexStatus(ctx)
	require.NoError(t, err)
	assert.False(t, st.Configured())
}

func TestLocalAdminWarehouse(t *testing.T) {
	la := NewLocalAdmin(newTestStore(t), "", "")
	ctx := context.Background()

	assert.Equal(t, "SEARCH_WH", la.WarehouseName())
	size, err := la.CurrentSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "X-Small", size)

	require.NoError(t, la.SetSize(ctx, "XXLARGE"))
	size, err = la.CurrentSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "2X-Large", size)

	assert.Error(t, la.SetSize(ctx, "HUGE"))
}

func TestLocalAdminConfiguredWarehouse(t *testing.T) {
	la := NewLocalAdmin(newTestStore(t), "", "MY_WH")
	svc := admin.NewService(la, la, "", nil)
	ctx := context.Background()

	size, err := svc.CurrentSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.DefaultWarehouseSize, size)

	res, err := svc.Resize(ctx, "X-Small")
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = svc.Resize(ctx, "Medium")
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, "Warehouse MY_WH resized to Medium.", res.Message)

	size, err = la.CurrentSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Medium", size)

	other := NewLocalAdmin(la.store, "", "")
	size, err = other.CurrentSize(ctx)
	require.NoError(t, err)
	assert.Equal(t, "X-Small", size)
}

func TestAdminServiceOverLocalBackend(t *testing.T) {
	la := NewLocalAdmin(newTestStore(t), "", "")
	svc := admin.NewService(la, la, "", nil)
	ctx := context.Background()

	res, err := svc.EnableSearchOptimization(ctx)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	res, err = svc.EnableSearchOptimization(ctx)
	require.NoError(t, err)
	assert.False(t, res.Changed)

	res, err = svc.Resize(ctx, "X-Small")
	require.NoError(t, err)
	assert.False(t, res.Changed)
	res, err = svc.Resize(ctx, "Medium")
	require.NoError(t, err)
	assert.True(t, res.Changed)
}
