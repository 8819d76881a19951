// Package docstore provides a small document store over five named
// collections, each a mapping from entity id to its full JSON record.
package docstore

import "context"

// Collection names a top-level document collection.
type Collection string

const (
	Suppliers        Collection = "suppliers"
	Products         Collection = "products"
	PurchaseInvoices Collection = "purchaseInvoices"
	SaleInvoices     Collection = "saleInvoices"
	Payments         Collection = "payments"
)

// Collections lists every collection in fetch order.
func Collections() []Collection {
	return []Collection{Suppliers, Products, PurchaseInvoices, SaleInvoices, Payments}
}

// Store is the remote collaborator contract. Documents are opaque JSON;
// callers own serialization. There are no version tokens: last writer wins
// at the document level.
type Store interface {
	// FetchAll loads every collection. It fails if any sub-fetch fails.
	FetchAll(ctx context.Context) (map[Collection][][]byte, error)
	// Put fully upserts one document.
	Put(ctx context.Context, c Collection, id string, doc []byte) error
	// Delete removes one document. Deleting an absent id is not an error.
	Delete(ctx context.Context, c Collection, id string) error
	// BatchUpdate applies updates to multiple records as a single atomic
	// round trip.
	BatchUpdate(ctx context.Context, c Collection, docs map[string][]byte) error
}
