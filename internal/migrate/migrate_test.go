package migrate

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calibworks/calibtrack/internal/kvstore"
	"github.com/calibworks/calibtrack/internal/transport"
	"github.com/calibworks/calibtrack/pkg/models"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}

// newPopulatedSource builds a local store carrying the seeded dataset plus
// one extra completed order that only exists locally.
func newPopulatedSource(t *testing.T) kvstore.KV {
	t.Helper()
	store, err := kvstore.OpenFile(filepath.Join(t.TempDir(), "source.json"))
	require.NoError(t, err)

	local := transport.NewLocalClient(store, testLogger())
	local.DisableDelays()
	ctx := context.Background()

	// Touching the collections seeds them.
	_, err = local.Invoke(ctx, transport.OpGetOrders, nil)
	require.NoError(t, err)
	_, err = local.Invoke(ctx, transport.OpGetProducts, nil)
	require.NoError(t, err)
	_, err = local.Invoke(ctx, transport.OpGetCustomers, nil)
	require.NoError(t, err)
	_, err = local.Invoke(ctx, transport.OpGetTechnicians, nil)
	require.NoError(t, err)

	_, err = local.Invoke(ctx, transport.OpCreateOrder, transport.CreateOrderPayload{
		Lines: []models.NewOrderLine{{
			OrderNumber:  "CAL-LOCAL-777",
			CustomerName: "Standalone Lab",
			ProductName:  "Torque wrench",
			Quantity:     1,
			UnitPrice:    500,
			DiscountRate: 100,
		}},
	})
	require.NoError(t, err)
	_, err = local.Invoke(ctx, transport.OpUpdateOrderStatusByNo, transport.StatusUpdatePayload{
		OrderNumber: "CAL-LOCAL-777",
		Status:      models.StatusCompleted,
	})
	require.NoError(t, err)

	return store
}

func newTarget(t *testing.T) transport.Transport {
	t.Helper()
	store, err := kvstore.OpenFile(filepath.Join(t.TempDir(), "target.json"))
	require.NoError(t, err)
	target := transport.NewLocalClient(store, testLogger())
	target.DisableDelays()
	return target
}

func TestRunMigratesLocalOnlyOrders(t *testing.T) {
	source := newPopulatedSource(t)
	target := newTarget(t)
	ctx := context.Background()

	m := New(source, target, DefaultConfig(), testLogger())
	result, err := m.Run(ctx)
	require.NoError(t, err)

	// The seeded order exists on both sides and is skipped; the
	// local-only order moves over.
	assert.Equal(t, 1, result.OrdersMigrated)
	assert.Equal(t, 1, result.OrdersSkipped)
	assert.Equal(t, 0, result.Failed)

	raw, err := target.Invoke(ctx, transport.OpGetOrders, nil)
	require.NoError(t, err)
	lines := raw.([]models.OrderLine)

	var migrated []models.OrderLine
	for _, l := range lines {
		if l.OrderNumber == "CAL-LOCAL-777" {
			migrated = append(migrated, l)
		}
	}
	require.Len(t, migrated, 1)
	assert.Equal(t, models.StatusCompleted, migrated[0].Status, "source status is re-applied after the create")
	assert.True(t, migrated[0].IsArchived)
}

func TestRunDryRunWritesNothing(t *testing.T) {
	source := newPopulatedSource(t)
	target := newTarget(t)
	ctx := context.Background()

	cfg := DefaultConfig()
	cfg.DryRun = true
	m := New(source, target, cfg, testLogger())
	result, err := m.Run(ctx)
	require.NoError(t, err)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.OrdersMigrated, "dry run counts what would move")

	raw, err := target.Invoke(ctx, transport.OpGetOrders, nil)
	require.NoError(t, err)
	for _, l := range raw.([]models.OrderLine) {
		assert.NotEqual(t, "CAL-LOCAL-777", l.OrderNumber, "dry run must not create orders")
	}
}

func TestVerifyReportsMissingOrders(t *testing.T) {
	source := newPopulatedSource(t)
	target := newTarget(t)
	ctx := context.Background()

	m := New(source, target, DefaultConfig(), testLogger())

	before, err := m.Verify(ctx)
	require.NoError(t, err)
	assert.False(t, before.Complete)
	assert.Contains(t, before.MissingOnTarget, "CAL-LOCAL-777")

	_, err = m.Run(ctx)
	require.NoError(t, err)

	after, err := m.Verify(ctx)
	require.NoError(t, err)
	assert.True(t, after.Complete)
	assert.Empty(t, after.MissingOnTarget)
}

func TestCatalogDeduplicatedByName(t *testing.T) {
	source := newPopulatedSource(t)
	target := newTarget(t)
	ctx := context.Background()

	// Prime the target so its seeded catalog matches the source's.
	_, err := target.Invoke(ctx, transport.OpGetProducts, nil)
	require.NoError(t, err)
	_, err = target.Invoke(ctx, transport.OpGetCustomers, nil)
	require.NoError(t, err)
	_, err = target.Invoke(ctx, transport.OpGetTechnicians, nil)
	require.NoError(t, err)

	m := New(source, target, DefaultConfig(), testLogger())
	result, err := m.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, result.CatalogMigrated, "identical catalogs move nothing")
}
