package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// State is what the store exposes upward: the five collections plus sync
// status. Collections are deep copies; mutating them does not touch the
// store.
type State struct {
	Snapshot
	Loading bool   `json:"isLoading"`
	Err     string `json:"error,omitempty"`
}

// Store owns the in-memory snapshot of all five collections and keeps it
// consistent with the remote collaborator under an optimistic-update
// protocol: every mutation lands in memory synchronously, persistence runs
// in the background, and a failed persistence call triggers exactly one
// corrective action, a full reload from the remote source of truth.
//
// Mutations are serialized by the store's mutex. Background persistence
// calls are not ordered relative to each other or to later mutations; two
// quick edits of the same invoice can race remotely. Accepted weakness.
type Store struct {
	mu      sync.Mutex
	data    Snapshot
	loading bool
	errMsg  string

	remote Remote
	logger *slog.Logger
	wg     sync.WaitGroup

	now   func() time.Time
	newID func() string
}

// New builds a Store around a remote collaborator. The snapshot starts
// empty; call Refresh to load authoritative state.
func New(remote Remote, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		remote: remote,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Refresh discards the in-memory snapshot and reloads authoritative state.
// On fetch failure the last known snapshot is kept and the error is recorded
// for the UI; calling Refresh again is the retry path.
func (s *Store) Refresh(ctx context.Context) error {
	s.mu.Lock()
	s.loading = true
	s.errMsg = ""
	s.mu.Unlock()

	snap, err := s.remote.FetchAll(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	s.data = snap
	return nil
}

// State returns a copy of the current snapshot plus sync status.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return State{Snapshot: s.data.Clone(), Loading: s.loading, Err: s.errMsg}
}

// SupplierStats computes the supplier's position against the live snapshot.
func (s *Store) SupplierStats(supplierID string) SupplierStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ComputeSupplierStats(s.data, supplierID)
}

// Wait blocks until all in-flight background persistence has settled. Used
// by graceful shutdown and by tests.
func (s *Store) Wait() {
	s.wg.Wait()
}

// ClearError dismisses the sync error banner.
func (s *Store) ClearError() {
	s.mu.Lock()
	s.errMsg = ""
	s.mu.Unlock()
}

func (s *Store) spawn(fn func(context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(context.Background())
	}()
}

// fail handles a failed critical persistence call: resynchronize from the
// remote store, then surface the error. The optimistic change that caused
// the failure is discarded by the reload rather than rolled back one by one.
func (s *Store) fail(op string, err error) {
	s.logger.Error("persistence failed, reloading", slog.String("op", op), slog.Any("error", err))
	if rerr := s.Refresh(context.Background()); rerr != nil {
		s.logger.Error("reload after failed persistence", slog.Any("error", rerr))
	}
	s.mu.Lock()
	s.errMsg = fmt.Sprintf("%s: %v", op, err)
	s.mu.Unlock()
}

// ---------------------------------------------------------------------------
// Suppliers

// AddSupplier mints a supplier and prepends it to the collection.
func (s *Store) AddSupplier(name, phone, notes string) Supplier {
	sup := Supplier{
		ID:        s.newID(),
		Name:      strings.TrimSpace(name),
		Phone:     phone,
		Notes:     notes,
		CreatedAt: s.now().UnixMilli(),
	}

	s.mu.Lock()
	s.data.Suppliers = append([]Supplier{sup}, s.data.Suppliers...)
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.PutSupplier(ctx, sup); err != nil {
			s.fail("add supplier", err)
		}
	})
	return sup
}

// DeleteSupplier removes a supplier unless products or purchase invoices
// still reference it, in which case the whole operation is blocked with no
// state change.
func (s *Store) DeleteSupplier(id string) error {
	s.mu.Lock()
	for _, p := range s.data.Products {
		if p.SupplierID == id {
			s.mu.Unlock()
			return ErrSupplierInUse
		}
	}
	for _, inv := range s.data.PurchaseInvoices {
		if inv.SupplierID == id {
			s.mu.Unlock()
			return ErrSupplierInUse
		}
	}
	kept := s.data.Suppliers[:0:0]
	for _, sup := range s.data.Suppliers {
		if sup.ID != id {
			kept = append(kept, sup)
		}
	}
	s.data.Suppliers = kept
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.DeleteSupplier(ctx, id); err != nil {
			s.fail("delete supplier", err)
		}
	})
	return nil
}

// ---------------------------------------------------------------------------
// Purchase invoices

// SavePurchaseInvoice creates or edits a purchase invoice, keyed by whether
// its id already exists in the collection. Editing reverts the old invoice's
// stock effects before applying the new ones; that revert-then-reapply is
// the only correct transition between two arbitrary item sets.
//
// Items naming a product with no catalog match mint that product first, so
// the invoice never references an id the catalog does not know.
func (s *Store) SavePurchaseInvoice(inv PurchaseInvoice) PurchaseInvoice {
	now := s.now().UnixMilli()
	if inv.ID == "" {
		inv.ID = s.newID()
	}
	if inv.Date == 0 {
		inv.Date = now
	}
	inv.TotalAmount = 0
	for i := range inv.Items {
		if inv.Items[i].ProductID == "" {
			inv.Items[i].ProductID = s.newID()
		}
		inv.Items[i].Total = inv.Items[i].Quantity * inv.Items[i].PurchasePrice
		inv.TotalAmount += inv.Items[i].Total
	}

	s.mu.Lock()
	idx := -1
	for i := range s.data.PurchaseInvoices {
		if s.data.PurchaseInvoices[i].ID == inv.ID {
			idx = i
			break
		}
	}
	isEdit := idx >= 0

	var oldInv PurchaseInvoice
	if isEdit {
		oldInv = s.data.PurchaseInvoices[idx]
		inv.CreatedAt = oldInv.CreatedAt
		inv.UpdatedAt = now
	} else {
		inv.CreatedAt = now
	}

	products := s.data.Products
	var createdIDs []string
	for _, item := range inv.Items {
		if indexByID(products, item.ProductID) < 0 && !containsID(createdIDs, item.ProductID) {
			createdIDs = append(createdIDs, item.ProductID)
		}
	}

	if isEdit {
		products = RevertPurchaseEffects(products, oldInv)
		s.data.PurchaseInvoices[idx] = inv
	} else {
		s.data.PurchaseInvoices = append([]PurchaseInvoice{inv}, s.data.PurchaseInvoices...)
	}
	products = ApplyPurchaseEffects(products, inv)
	s.data.Products = products

	created := pickProducts(products, createdIDs)
	touched := pickProducts(products, itemProductIDs(inv.Items))
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		for _, p := range created {
			if err := s.remote.PutProduct(ctx, p); err != nil {
				s.logger.Error("background product create failed",
					slog.String("product_id", p.ID), slog.Any("error", err))
			}
		}
		if isEdit {
			// No multi-document transaction is available: delete the old
			// document, then write the new one. A crash between the two
			// leaves the remote store without the invoice.
			if err := s.remote.DeletePurchaseInvoice(ctx, inv.ID); err != nil {
				s.fail("save purchase invoice", err)
				return
			}
		}
		if err := s.remote.PutPurchaseInvoice(ctx, inv); err != nil {
			s.fail("save purchase invoice", err)
			return
		}
		if err := s.remote.UpdateProducts(ctx, touched); err != nil {
			s.logger.Error("background product update failed", slog.Any("error", err))
		}
	})
	return inv
}

// DeletePurchaseInvoice reverts the invoice's stock effects and removes it.
// Unknown ids are a no-op.
func (s *Store) DeletePurchaseInvoice(id string) {
	s.mu.Lock()
	idx := -1
	for i := range s.data.PurchaseInvoices {
		if s.data.PurchaseInvoices[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	inv := s.data.PurchaseInvoices[idx]
	s.data.Products = RevertPurchaseEffects(s.data.Products, inv)
	s.data.PurchaseInvoices = append(s.data.PurchaseInvoices[:idx:idx], s.data.PurchaseInvoices[idx+1:]...)
	touched := pickProducts(s.data.Products, itemProductIDs(inv.Items))
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.DeletePurchaseInvoice(ctx, id); err != nil {
			s.fail("delete purchase invoice", err)
			return
		}
		if err := s.remote.UpdateProducts(ctx, touched); err != nil {
			s.logger.Error("background product update failed", slog.Any("error", err))
		}
	})
}

// ---------------------------------------------------------------------------
// Sale invoices

// SaveSaleInvoice mirrors SavePurchaseInvoice without the product-creation
// step: sales never mint products, and items referencing unknown products
// simply have no stock effect.
func (s *Store) SaveSaleInvoice(inv SaleInvoice) SaleInvoice {
	now := s.now().UnixMilli()
	if inv.ID == "" {
		inv.ID = s.newID()
	}
	if inv.Date == 0 {
		inv.Date = now
	}
	if strings.TrimSpace(inv.CustomerName) == "" {
		inv.CustomerName = DefaultCustomerName
	}
	inv.TotalAmount = 0
	for i := range inv.Items {
		inv.Items[i].Total = inv.Items[i].Quantity * inv.Items[i].SalePrice
		inv.TotalAmount += inv.Items[i].Total
	}

	s.mu.Lock()
	idx := -1
	for i := range s.data.SaleInvoices {
		if s.data.SaleInvoices[i].ID == inv.ID {
			idx = i
			break
		}
	}
	isEdit := idx >= 0

	products := s.data.Products
	if isEdit {
		oldInv := s.data.SaleInvoices[idx]
		inv.CreatedAt = oldInv.CreatedAt
		inv.UpdatedAt = now
		products = RevertSaleEffects(products, oldInv)
		s.data.SaleInvoices[idx] = inv
	} else {
		inv.CreatedAt = now
		s.data.SaleInvoices = append([]SaleInvoice{inv}, s.data.SaleInvoices...)
	}
	products = ApplySaleEffects(products, inv)
	s.data.Products = products

	touched := pickProducts(products, saleItemProductIDs(inv.Items))
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if isEdit {
			if err := s.remote.DeleteSaleInvoice(ctx, inv.ID); err != nil {
				s.fail("save sale invoice", err)
				return
			}
		}
		if err := s.remote.PutSaleInvoice(ctx, inv); err != nil {
			s.fail("save sale invoice", err)
			return
		}
		if err := s.remote.UpdateProducts(ctx, touched); err != nil {
			s.logger.Error("background product update failed", slog.Any("error", err))
		}
	})
	return inv
}

// DeleteSaleInvoice reverts the sale's effects and removes the invoice.
func (s *Store) DeleteSaleInvoice(id string) {
	s.mu.Lock()
	idx := -1
	for i := range s.data.SaleInvoices {
		if s.data.SaleInvoices[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return
	}
	inv := s.data.SaleInvoices[idx]
	s.data.Products = RevertSaleEffects(s.data.Products, inv)
	s.data.SaleInvoices = append(s.data.SaleInvoices[:idx:idx], s.data.SaleInvoices[idx+1:]...)
	touched := pickProducts(s.data.Products, saleItemProductIDs(inv.Items))
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.DeleteSaleInvoice(ctx, id); err != nil {
			s.fail("delete sale invoice", err)
			return
		}
		if err := s.remote.UpdateProducts(ctx, touched); err != nil {
			s.logger.Error("background product update failed", slog.Any("error", err))
		}
	})
}

// ---------------------------------------------------------------------------
// Payments

// SavePayment upserts a payment by id: edit when the id exists, otherwise
// prepend.
func (s *Store) SavePayment(p Payment) Payment {
	if p.ID == "" {
		p.ID = s.newID()
	}
	if p.Date == 0 {
		p.Date = s.now().UnixMilli()
	}

	s.mu.Lock()
	idx := -1
	for i := range s.data.Payments {
		if s.data.Payments[i].ID == p.ID {
			idx = i
			break
		}
	}
	if idx >= 0 {
		s.data.Payments[idx] = p
	} else {
		s.data.Payments = append([]Payment{p}, s.data.Payments...)
	}
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.PutPayment(ctx, p); err != nil {
			s.fail("save payment", err)
		}
	})
	return p
}

// DeletePayment removes a payment by id.
func (s *Store) DeletePayment(id string) {
	s.mu.Lock()
	kept := s.data.Payments[:0:0]
	for _, p := range s.data.Payments {
		if p.ID != id {
			kept = append(kept, p)
		}
	}
	s.data.Payments = kept
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.DeletePayment(ctx, id); err != nil {
			s.fail("delete payment", err)
		}
	})
}

// ---------------------------------------------------------------------------
// Products

// UpdateProductPrice sets a product's sale price. No other effects.
func (s *Store) UpdateProductPrice(productID string, newPrice float64) error {
	s.mu.Lock()
	i := indexByID(s.data.Products, productID)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("%w: product %s", ErrNotFound, productID)
	}
	s.data.Products[i].SalePrice = newPrice
	updated := s.data.Products[i]
	s.mu.Unlock()

	s.spawn(func(ctx context.Context) {
		if err := s.remote.UpdateProducts(ctx, []Product{updated}); err != nil {
			s.logger.Error("background product update failed",
				slog.String("product_id", productID), slog.Any("error", err))
		}
	})
	return nil
}

// ---------------------------------------------------------------------------
// helpers

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func itemProductIDs(items []PurchaseItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !containsID(ids, item.ProductID) {
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func saleItemProductIDs(items []SaleItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		if !containsID(ids, item.ProductID) {
			ids = append(ids, item.ProductID)
		}
	}
	return ids
}

func pickProducts(products []Product, ids []string) []Product {
	out := make([]Product, 0, len(ids))
	for _, p := range products {
		if containsID(ids, p.ID) {
			out = append(out, p)
		}
	}
	return out
}
