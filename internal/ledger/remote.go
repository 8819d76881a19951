package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hisab-erp/hisab-erp/internal/platform/docstore"
)

// Remote is the store's view of the remote collaborator, expressed in
// domain terms. Calls are issued in the background by the store and are not
// retried; a failed call triggers exactly one full reload.
type Remote interface {
	FetchAll(ctx context.Context) (Snapshot, error)
	PutSupplier(ctx context.Context, s Supplier) error
	DeleteSupplier(ctx context.Context, id string) error
	PutProduct(ctx context.Context, p Product) error
	UpdateProducts(ctx context.Context, products []Product) error
	PutPurchaseInvoice(ctx context.Context, inv PurchaseInvoice) error
	DeletePurchaseInvoice(ctx context.Context, id string) error
	PutSaleInvoice(ctx context.Context, inv SaleInvoice) error
	DeleteSaleInvoice(ctx context.Context, id string) error
	PutPayment(ctx context.Context, p Payment) error
	DeletePayment(ctx context.Context, id string) error
}

// DocstoreRemote adapts the generic document store to the Remote port.
// Entities are serialized as JSON documents keyed by id; optional fields
// carry omitempty so no absent-value sentinel ever hits the wire.
type DocstoreRemote struct {
	store docstore.Store
}

// NewDocstoreRemote wraps a docstore backend.
func NewDocstoreRemote(store docstore.Store) *DocstoreRemote {
	return &DocstoreRemote{store: store}
}

// FetchAll loads and decodes every collection. Document stores return
// records in arbitrary order, so collections are sorted the way the UI
// shows them: newest first, products by name.
func (r *DocstoreRemote) FetchAll(ctx context.Context) (Snapshot, error) {
	raw, err := r.store.FetchAll(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	var snap Snapshot
	if err := decodeDocs(raw[docstore.Suppliers], &snap.Suppliers); err != nil {
		return Snapshot{}, fmt.Errorf("ledger: decode suppliers: %w", err)
	}
	if err := decodeDocs(raw[docstore.Products], &snap.Products); err != nil {
		return Snapshot{}, fmt.Errorf("ledger: decode products: %w", err)
	}
	if err := decodeDocs(raw[docstore.PurchaseInvoices], &snap.PurchaseInvoices); err != nil {
		return Snapshot{}, fmt.Errorf("ledger: decode purchase invoices: %w", err)
	}
	if err := decodeDocs(raw[docstore.SaleInvoices], &snap.SaleInvoices); err != nil {
		return Snapshot{}, fmt.Errorf("ledger: decode sale invoices: %w", err)
	}
	if err := decodeDocs(raw[docstore.Payments], &snap.Payments); err != nil {
		return Snapshot{}, fmt.Errorf("ledger: decode payments: %w", err)
	}

	sort.Slice(snap.Suppliers, func(i, j int) bool { return snap.Suppliers[i].CreatedAt > snap.Suppliers[j].CreatedAt })
	sort.Slice(snap.Products, func(i, j int) bool { return snap.Products[i].Name < snap.Products[j].Name })
	sort.Slice(snap.PurchaseInvoices, func(i, j int) bool { return snap.PurchaseInvoices[i].Date > snap.PurchaseInvoices[j].Date })
	sort.Slice(snap.SaleInvoices, func(i, j int) bool { return snap.SaleInvoices[i].Date > snap.SaleInvoices[j].Date })
	sort.Slice(snap.Payments, func(i, j int) bool { return snap.Payments[i].Date > snap.Payments[j].Date })
	return snap, nil
}

func decodeDocs[T any](docs [][]byte, out *[]T) error {
	for _, doc := range docs {
		var v T
		if err := json.Unmarshal(doc, &v); err != nil {
			return err
		}
		*out = append(*out, v)
	}
	return nil
}

func (r *DocstoreRemote) put(ctx context.Context, c docstore.Collection, id string, v any) error {
	doc, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("ledger: encode %s/%s: %w", c, id, err)
	}
	return r.store.Put(ctx, c, id, doc)
}

func (r *DocstoreRemote) PutSupplier(ctx context.Context, s Supplier) error {
	return r.put(ctx, docstore.Suppliers, s.ID, s)
}

func (r *DocstoreRemote) DeleteSupplier(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.Suppliers, id)
}

func (r *DocstoreRemote) PutProduct(ctx context.Context, p Product) error {
	return r.put(ctx, docstore.Products, p.ID, p)
}

// UpdateProducts pushes all changed products in one batch round trip.
func (r *DocstoreRemote) UpdateProducts(ctx context.Context, products []Product) error {
	if len(products) == 0 {
		return nil
	}
	docs := make(map[string][]byte, len(products))
	for _, p := range products {
		doc, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("ledger: encode product %s: %w", p.ID, err)
		}
		docs[p.ID] = doc
	}
	return r.store.BatchUpdate(ctx, docstore.Products, docs)
}

func (r *DocstoreRemote) PutPurchaseInvoice(ctx context.Context, inv PurchaseInvoice) error {
	return r.put(ctx, docstore.PurchaseInvoices, inv.ID, inv)
}

func (r *DocstoreRemote) DeletePurchaseInvoice(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.PurchaseInvoices, id)
}

func (r *DocstoreRemote) PutSaleInvoice(ctx context.Context, inv SaleInvoice) error {
	return r.put(ctx, docstore.SaleInvoices, inv.ID, inv)
}

func (r *DocstoreRemote) DeleteSaleInvoice(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.SaleInvoices, id)
}

func (r *DocstoreRemote) PutPayment(ctx context.Context, p Payment) error {
	return r.put(ctx, docstore.Payments, p.ID, p)
}

func (r *DocstoreRemote) DeletePayment(ctx context.Context, id string) error {
	return r.store.Delete(ctx, docstore.Payments, id)
}
