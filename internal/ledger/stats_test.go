package ledger

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func statsSnapshot() Snapshot {
	return Snapshot{
		Suppliers: []Supplier{
			{ID: "s1", Name: "Al Noor Trading"},
			{ID: "s2", Name: "City Wholesale"},
		},
		Products: []Product{
			{ID: "p1", Name: "Flour 25kg", SupplierID: "s1"},
			{ID: "p2", Name: "Sugar 10kg", SupplierID: "s2"},
		},
		PurchaseInvoices: []PurchaseInvoice{
			{ID: "pi1", SupplierID: "s1", TotalAmount: 1000},
			{ID: "pi2", SupplierID: "s1", TotalAmount: 250},
			{ID: "pi3", SupplierID: "s2", TotalAmount: 400},
		},
		SaleInvoices: []SaleInvoice{
			{ID: "si1", Items: []SaleItem{
				{ProductID: "p1", Quantity: 3, SalePrice: 150, Total: 450},
				{ProductID: "p2", Quantity: 1, SalePrice: 55, Total: 55},
			}},
			{ID: "si2", Items: []SaleItem{
				{ProductID: "p1", Quantity: 1, SalePrice: 150, Total: 150},
				{ProductID: "ghost", Quantity: 2, SalePrice: 10, Total: 20},
			}},
		},
		Payments: []Payment{
			{ID: "pay1", SupplierID: "s1", Amount: 400},
			{ID: "pay2", SupplierID: "s2", Amount: 600},
		},
	}
}

func TestSupplierStatsAggregates(t *testing.T) {
	snap := statsSnapshot()

	stats := ComputeSupplierStats(snap, "s1")
	require.InDelta(t, 1250, stats.TotalPurchased, 1e-9)
	require.InDelta(t, 400, stats.TotalPaid, 1e-9)
	require.InDelta(t, 850, stats.RemainingBalance, 1e-9)
	// Items whose product no longer resolves contribute nothing.
	require.InDelta(t, 600, stats.TotalSoldValue, 1e-9)
}

func TestSupplierStatsCreditBalance(t *testing.T) {
	// A supplier that was only ever paid carries a negative (receivable)
	// balance.
	snap := Snapshot{
		Suppliers: []Supplier{{ID: "s3", Name: "Fresh Farms"}},
		Payments:  []Payment{{ID: "pay1", SupplierID: "s3", Amount: 200}},
	}

	stats := ComputeSupplierStats(snap, "s3")
	require.Zero(t, stats.TotalPurchased)
	require.InDelta(t, 200, stats.TotalPaid, 1e-9)
	require.InDelta(t, -200, stats.RemainingBalance, 1e-9)
}

func TestSupplierStatsUseCurrentProductLinkage(t *testing.T) {
	snap := statsSnapshot()

	before := ComputeSupplierStats(snap, "s2")
	require.InDelta(t, 55, before.TotalSoldValue, 1e-9)

	// Re-linking p1 to s2 (as a purchase edit would) moves its sold value,
	// regardless of who supplied it at sale time.
	snap.Products[0].SupplierID = "s2"
	after := ComputeSupplierStats(snap, "s2")
	require.InDelta(t, 655, after.TotalSoldValue, 1e-9)
}

func TestSupplierStatsIdempotent(t *testing.T) {
	snap := statsSnapshot()
	require.Equal(t, ComputeSupplierStats(snap, "s1"), ComputeSupplierStats(snap, "s1"))
}

func TestSupplierStatsUnknownSupplier(t *testing.T) {
	require.Equal(t, SupplierStats{}, ComputeSupplierStats(statsSnapshot(), "nobody"))
}
