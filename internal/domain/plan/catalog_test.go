package plan

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	ierr "github.com/streamkey/streamkey/internal/errors"
	"github.com/streamkey/streamkey/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogList(t *testing.T) {
	repo := NewCatalogRepository()

	plans, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, plans, 4)

	// Ranks ascend with the declared order
	for i := 1; i < len(plans); i++ {
		assert.Greater(t, plans[i].Rank, plans[i-1].Rank)
	}
}

func TestCatalogGet(t *testing.T) {
	repo := NewCatalogRepository()

	p, err := repo.Get(context.Background(), types.PlanStandard)
	require.NoError(t, err)
	assert.True(t, p.MonthlyPrice.Equal(decimal.RequireFromString("14.99")))
	require.NotNil(t, p.YearlyPrice)
	assert.True(t, p.YearlyPrice.Equal(decimal.RequireFromString("179")))

	_, err = repo.Get(context.Background(), types.PlanID("gold"))
	assert.True(t, ierr.IsNotFound(err))
}

func TestPlanPriceFallsBackToMonthly(t *testing.T) {
	repo := NewCatalogRepository()

	p, err := repo.Get(context.Background(), types.PlanBasicPlus)
	require.NoError(t, err)
	assert.False(t, p.SupportsYearly())
	assert.True(t, p.Price(true).Equal(p.MonthlyPrice))
}

func TestPlanIsFree(t *testing.T) {
	repo := NewCatalogRepository()

	basic, err := repo.Get(context.Background(), types.PlanBasic)
	require.NoError(t, err)
	assert.True(t, basic.IsFree())
	assert.True(t, basic.MonthlyPrice.IsZero())

	premium, err := repo.Get(context.Background(), types.PlanPremium)
	require.NoError(t, err)
	assert.False(t, premium.IsFree())
}
