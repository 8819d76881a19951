package ledger

// ComputeSupplierStats derives the supplier's aggregate position from a
// snapshot. Sold value is attributed through the *current* product-supplier
// linkage rather than the linkage at sale time: a purchase edit that
// reassigns a product's supplier retroactively moves its sold value too.
//
// The result is recomputed on every call; nothing is cached across snapshot
// versions, so two calls with no intervening mutation always agree.
func ComputeSupplierStats(snap Snapshot, supplierID string) SupplierStats {
	var stats SupplierStats

	for _, inv := range snap.PurchaseInvoices {
		if inv.SupplierID == supplierID {
			stats.TotalPurchased += inv.TotalAmount
		}
	}
	for _, p := range snap.Payments {
		if p.SupplierID == supplierID {
			stats.TotalPaid += p.Amount
		}
	}

	byID := make(map[string]*Product, len(snap.Products))
	for i := range snap.Products {
		byID[snap.Products[i].ID] = &snap.Products[i]
	}
	for _, inv := range snap.SaleInvoices {
		for _, item := range inv.Items {
			if prod, ok := byID[item.ProductID]; ok && prod.SupplierID == supplierID {
				stats.TotalSoldValue += item.Total
			}
		}
	}

	// Positive = payable to the supplier, negative = credit held with them.
	stats.RemainingBalance = stats.TotalPurchased - stats.TotalPaid
	return stats
}
