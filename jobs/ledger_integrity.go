package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"

	"github.com/hibiken/asynq"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/hisab-erp/hisab-erp/internal/ledger"
)

// LedgerIntegrityJob audits the remote store against the invariants the
// optimistic store maintains in memory: invoice totals must equal the sum of
// their item totals, every supplier/product link must resolve, and negative
// stock levels are reported (they are allowed, but worth knowing about).
type LedgerIntegrityJob struct {
	remote ledger.Remote
	logger *slog.Logger
	msgs   *message.Printer
}

// NewLedgerIntegrityJob constructs the job.
func NewLedgerIntegrityJob(remote ledger.Remote, logger *slog.Logger) *LedgerIntegrityJob {
	return &LedgerIntegrityJob{
		remote: remote,
		logger: logger,
		msgs:   message.NewPrinter(language.English),
	}
}

// Handle processes TaskLedgerIntegrity tasks.
func (j *LedgerIntegrityJob) Handle(ctx context.Context, t *asynq.Task) error {
	payload := IntegrityPayload{Tolerance: 0.01}
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
	}

	snap, err := j.remote.FetchAll(ctx)
	if err != nil {
		return err
	}

	findings := 0

	supplierIDs := make(map[string]bool, len(snap.Suppliers))
	for _, s := range snap.Suppliers {
		supplierIDs[s.ID] = true
	}
	productIDs := make(map[string]bool, len(snap.Products))
	for _, p := range snap.Products {
		productIDs[p.ID] = true
	}

	for _, inv := range snap.PurchaseInvoices {
		var sum float64
		for _, item := range inv.Items {
			if math.Abs(item.Total-item.Quantity*item.PurchasePrice) > payload.Tolerance {
				findings++
				j.logger.Warn("purchase item total mismatch",
					slog.String("invoice_id", inv.ID), slog.String("product_id", item.ProductID))
			}
			if !productIDs[item.ProductID] {
				findings++
				j.logger.Warn("purchase item references unknown product",
					slog.String("invoice_id", inv.ID), slog.String("product_id", item.ProductID))
			}
			sum += item.Total
		}
		if math.Abs(inv.TotalAmount-sum) > payload.Tolerance {
			findings++
			j.logger.Warn("purchase invoice total mismatch",
				slog.String("invoice_id", inv.ID),
				slog.String("stored", j.msgs.Sprintf("%.2f", inv.TotalAmount)),
				slog.String("computed", j.msgs.Sprintf("%.2f", sum)))
		}
		if !supplierIDs[inv.SupplierID] {
			findings++
			j.logger.Warn("purchase invoice references unknown supplier",
				slog.String("invoice_id", inv.ID), slog.String("supplier_id", inv.SupplierID))
		}
	}

	for _, inv := range snap.SaleInvoices {
		var sum float64
		for _, item := range inv.Items {
			if math.Abs(item.Total-item.Quantity*item.SalePrice) > payload.Tolerance {
				findings++
				j.logger.Warn("sale item total mismatch",
					slog.String("invoice_id", inv.ID), slog.String("product_id", item.ProductID))
			}
			sum += item.Total
		}
		if math.Abs(inv.TotalAmount-sum) > payload.Tolerance {
			findings++
			j.logger.Warn("sale invoice total mismatch",
				slog.String("invoice_id", inv.ID),
				slog.String("stored", j.msgs.Sprintf("%.2f", inv.TotalAmount)),
				slog.String("computed", j.msgs.Sprintf("%.2f", sum)))
		}
	}

	for _, p := range snap.Payments {
		if !supplierIDs[p.SupplierID] {
			findings++
			j.logger.Warn("payment references unknown supplier",
				slog.String("payment_id", p.ID), slog.String("supplier_id", p.SupplierID))
		}
	}

	for _, p := range snap.Products {
		if p.QuantityInStock < 0 {
			findings++
			j.logger.Warn("product stock is negative",
				slog.String("product_id", p.ID), slog.String("name", p.Name),
				slog.Float64("quantity", p.QuantityInStock))
		}
		if p.SupplierID != "" && !supplierIDs[p.SupplierID] {
			findings++
			j.logger.Warn("product references unknown supplier",
				slog.String("product_id", p.ID), slog.String("supplier_id", p.SupplierID))
		}
	}

	j.logger.Info("ledger integrity scan finished",
		slog.Int("findings", findings),
		slog.Int("suppliers", len(snap.Suppliers)),
		slog.Int("products", len(snap.Products)),
		slog.Int("purchase_invoices", len(snap.PurchaseInvoices)),
		slog.Int("sale_invoices", len(snap.SaleInvoices)),
		slog.Int("payments", len(snap.Payments)))
	return nil
}
