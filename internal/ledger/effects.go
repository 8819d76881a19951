package ledger

// Effect functions compute a new product collection from an old one plus an
// invoice being applied or reverted. They never mutate their input; callers
// (the store, background jobs) decide what to do with the result.
//
// Items referencing a product id absent from the collection are silently
// skipped, except on the apply-purchase path which synthesizes the product.
// No oversell or negative-stock validation happens here; stock is allowed to
// go negative when invoices are edited out of order.

func indexByID(products []Product, id string) int {
	for i := range products {
		if products[i].ID == id {
			return i
		}
	}
	return -1
}

// ApplyPurchaseEffects adds purchased quantities to stock, records the last
// purchase price and re-links each product to the invoice's supplier
// (last writer wins). Unknown product ids are minted as new products with a
// zero sale price.
func ApplyPurchaseEffects(products []Product, inv PurchaseInvoice) []Product {
	next := append([]Product(nil), products...)
	for _, item := range inv.Items {
		if i := indexByID(next, item.ProductID); i >= 0 {
			next[i].QuantityInStock += item.Quantity
			next[i].LastPurchasePrice = item.PurchasePrice
			next[i].SupplierID = inv.SupplierID
			continue
		}
		next = append(next, Product{
			ID:                item.ProductID,
			Name:              item.ProductNameSnapshot,
			SupplierID:        inv.SupplierID,
			LastPurchasePrice: item.PurchasePrice,
			SalePrice:         0,
			QuantityInStock:   item.Quantity,
			QuantitySold:      0,
		})
	}
	return next
}

// RevertPurchaseEffects subtracts the purchased quantities. It deliberately
// leaves LastPurchasePrice and SupplierID alone: revert is stock-only and
// asymmetric with apply.
func RevertPurchaseEffects(products []Product, inv PurchaseInvoice) []Product {
	next := append([]Product(nil), products...)
	for _, item := range inv.Items {
		if i := indexByID(next, item.ProductID); i >= 0 {
			next[i].QuantityInStock -= item.Quantity
		}
	}
	return next
}

// ApplySaleEffects moves sold quantities out of stock and onto the sold
// counter.
func ApplySaleEffects(products []Product, inv SaleInvoice) []Product {
	next := append([]Product(nil), products...)
	for _, item := range inv.Items {
		if i := indexByID(next, item.ProductID); i >= 0 {
			next[i].QuantityInStock -= item.Quantity
			next[i].QuantitySold += item.Quantity
		}
	}
	return next
}

// RevertSaleEffects is the exact inverse of ApplySaleEffects.
func RevertSaleEffects(products []Product, inv SaleInvoice) []Product {
	next := append([]Product(nil), products...)
	for _, item := range inv.Items {
		if i := indexByID(next, item.ProductID); i >= 0 {
			next[i].QuantityInStock += item.Quantity
			next[i].QuantitySold -= item.Quantity
		}
	}
	return next
}
