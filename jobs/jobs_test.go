package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/hisab-erp/hisab-erp/internal/ledger"
)

// stubRemote serves a fixed snapshot; writes are never exercised by jobs.
type stubRemote struct {
	snap ledger.Snapshot
	err  error
}

func (r *stubRemote) FetchAll(ctx context.Context) (ledger.Snapshot, error) {
	return r.snap, r.err
}
func (r *stubRemote) PutSupplier(ctx context.Context, s ledger.Supplier) error       { return nil }
func (r *stubRemote) DeleteSupplier(ctx context.Context, id string) error            { return nil }
func (r *stubRemote) PutProduct(ctx context.Context, p ledger.Product) error         { return nil }
func (r *stubRemote) UpdateProducts(ctx context.Context, p []ledger.Product) error   { return nil }
func (r *stubRemote) PutPurchaseInvoice(ctx context.Context, inv ledger.PurchaseInvoice) error {
	return nil
}
func (r *stubRemote) DeletePurchaseInvoice(ctx context.Context, id string) error     { return nil }
func (r *stubRemote) PutSaleInvoice(ctx context.Context, inv ledger.SaleInvoice) error { return nil }
func (r *stubRemote) DeleteSaleInvoice(ctx context.Context, id string) error         { return nil }
func (r *stubRemote) PutPayment(ctx context.Context, p ledger.Payment) error         { return nil }
func (r *stubRemote) DeletePayment(ctx context.Context, id string) error             { return nil }

func cleanSnapshot() ledger.Snapshot {
	return ledger.Snapshot{
		Suppliers: []ledger.Supplier{{ID: "s1", Name: "Al Noor Trading"}},
		Products:  []ledger.Product{{ID: "p1", Name: "Flour 25kg", SupplierID: "s1", QuantityInStock: 10}},
		PurchaseInvoices: []ledger.PurchaseInvoice{{
			ID: "pi1", SupplierID: "s1", TotalAmount: 800,
			Items: []ledger.PurchaseItem{{ProductID: "p1", Quantity: 10, PurchasePrice: 80, Total: 800}},
		}},
		SaleInvoices: []ledger.SaleInvoice{{
			ID: "si1", TotalAmount: 190,
			Items: []ledger.SaleItem{{ProductID: "p1", Quantity: 2, SalePrice: 95, Total: 190}},
		}},
		Payments: []ledger.Payment{{ID: "pay1", SupplierID: "s1", Amount: 400}},
	}
}

func TestIntegrityScanCleanLedger(t *testing.T) {
	var buf bytes.Buffer
	job := NewLedgerIntegrityJob(&stubRemote{snap: cleanSnapshot()},
		slog.New(slog.NewTextHandler(&buf, nil)))

	task, err := NewLedgerIntegrityTask(0.01)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Contains(t, buf.String(), "findings=0")
	require.NotContains(t, buf.String(), "level=WARN")
}

func TestIntegrityScanReportsViolations(t *testing.T) {
	snap := cleanSnapshot()
	// Corrupt the stored purchase total, point the payment at a ghost
	// supplier, and push stock below zero.
	snap.PurchaseInvoices[0].TotalAmount = 999
	snap.Payments[0].SupplierID = "ghost"
	snap.Products[0].QuantityInStock = -3

	var buf bytes.Buffer
	job := NewLedgerIntegrityJob(&stubRemote{snap: snap},
		slog.New(slog.NewTextHandler(&buf, nil)))

	task, err := NewLedgerIntegrityTask(0.01)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	out := buf.String()
	require.Contains(t, out, "purchase invoice total mismatch")
	require.Contains(t, out, "payment references unknown supplier")
	require.Contains(t, out, "product stock is negative")
	require.Contains(t, out, "findings=3")
}

func TestIntegrityScanToleranceFromPayload(t *testing.T) {
	snap := cleanSnapshot()
	// Half a unit off, within a generous tolerance.
	snap.PurchaseInvoices[0].TotalAmount = 800.5
	snap.PurchaseInvoices[0].Items[0].Total = 800.5

	var buf bytes.Buffer
	job := NewLedgerIntegrityJob(&stubRemote{snap: snap},
		slog.New(slog.NewTextHandler(&buf, nil)))

	task, err := NewLedgerIntegrityTask(1.0)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Contains(t, buf.String(), "findings=0")
}

func TestIntegrityScanBadPayloadSkipsRetry(t *testing.T) {
	job := NewLedgerIntegrityJob(&stubRemote{snap: cleanSnapshot()},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	task := asynq.NewTask(TaskLedgerIntegrity, []byte("{not json"))
	require.ErrorIs(t, job.Handle(context.Background(), task), asynq.SkipRetry)
}

func TestIntegrityScanFetchErrorRetries(t *testing.T) {
	job := NewLedgerIntegrityJob(&stubRemote{err: io.ErrUnexpectedEOF},
		slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := NewLedgerIntegrityTask(0.01)
	require.NoError(t, err)
	// A fetch failure is transient; the error propagates so asynq retries.
	require.ErrorIs(t, job.Handle(context.Background(), task), io.ErrUnexpectedEOF)
}

func TestStatsWarmupCachesSupplierStats(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	job := NewStatsWarmupJob(&stubRemote{snap: cleanSnapshot()}, client, "hisabtest",
		5*time.Minute, slog.New(slog.NewTextHandler(io.Discard, nil)))

	task, err := NewStatsWarmupTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	raw := mr.HGet("hisabtest:supplierStats", "s1")
	require.NotEmpty(t, raw)
	var stats ledger.SupplierStats
	require.NoError(t, json.Unmarshal([]byte(raw), &stats))
	require.InDelta(t, 800, stats.TotalPurchased, 1e-9)
	require.InDelta(t, 400, stats.TotalPaid, 1e-9)
	require.InDelta(t, 400, stats.RemainingBalance, 1e-9)
	require.InDelta(t, 190, stats.TotalSoldValue, 1e-9)

	ttl := mr.TTL("hisabtest:supplierStats")
	require.Greater(t, ttl, time.Duration(0))
}

func TestTaskConstructors(t *testing.T) {
	task, err := NewLedgerIntegrityTask(0.05)
	require.NoError(t, err)
	require.Equal(t, TaskLedgerIntegrity, task.Type())
	require.True(t, strings.Contains(string(task.Payload()), "0.05"))

	warm, err := NewStatsWarmupTask()
	require.NoError(t, err)
	require.Equal(t, TaskStatsWarmup, warm.Type())
	require.Empty(t, warm.Payload())
}
