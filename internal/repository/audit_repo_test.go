package repository

import (
	"context"
	"testing"
	"time"

	"billing/internal/model"
	"billing/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuditRepository_Find(t *testing.T) {
	db := testutil.NewDB(t)
	repo := NewAuditRepository(db)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, e := range []struct{ entity, action string }{
		{"7", model.ActionOverrideInvoiceStatus},
		{"8", model.ActionRecomputeInvoiceStatus},
		{"7", model.ActionRecomputeInvoiceStatus},
	} {
		require.NoError(t, repo.Append(ctx, &model.AuditLog{
			EntityID:  e.entity,
			Action:    e.action,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, total, err := repo.Find(ctx, AuditQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, all, 3)
	assert.Equal(t, model.ActionRecomputeInvoiceStatus, all[0].Action, "newest first")

	history, total, err := repo.Find(ctx, AuditQuery{EntityID: "7", Chronological: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	require.Len(t, history, 2)
	assert.Equal(t, model.ActionOverrideInvoiceStatus, history[0].Action)
	assert.Equal(t, model.ActionRecomputeInvoiceStatus, history[1].Action)

	recomputes, total, err := repo.Find(ctx, AuditQuery{Action: model.ActionRecomputeInvoiceStatus, Page: 2, Limit: 1})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total, "total ignores paging")
	require.Len(t, recomputes, 1)
	assert.Equal(t, "8", recomputes[0].EntityID)

	none, total, err := repo.Find(ctx, AuditQuery{EntityID: "404"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, none)
}
