package ledger

import (
	"errors"
)

// DefaultCustomerName is used for sale invoices sold over the counter
// without a named customer.
const DefaultCustomerName = "cash customer"

var (
	// ErrSupplierInUse blocks supplier deletion while products or purchase
	// invoices still reference it.
	ErrSupplierInUse = errors.New("ledger: supplier has linked products or invoices")
	// ErrNotFound indicates the referenced entity is absent from the snapshot.
	ErrNotFound = errors.New("ledger: not found")
)

// Supplier is a party the business buys from.
type Supplier struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Phone     string `json:"phone,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}

// Product is a catalog entry. Identity is minted the first time a purchase
// invoice item references a name with no existing match; after that the
// product lives independently of the invoice that created it.
type Product struct {
	ID                string  `json:"id"`
	Name              string  `json:"name"`
	SupplierID        string  `json:"supplierId"`
	LastPurchasePrice float64 `json:"lastPurchasePrice"`
	SalePrice         float64 `json:"salePrice"`
	QuantityInStock   float64 `json:"quantityInStock"`
	QuantitySold      float64 `json:"quantitySold"`
}

// PurchaseItem is an invoice line. Total = Quantity * PurchasePrice.
type PurchaseItem struct {
	ProductID           string  `json:"productId"`
	ProductNameSnapshot string  `json:"productNameSnapshot"`
	Quantity            float64 `json:"quantity"`
	PurchasePrice       float64 `json:"purchasePrice"`
	Total               float64 `json:"total"`
}

// PurchaseInvoice owns its items; item ProductIDs are references, not
// ownership. TotalAmount = sum of item totals.
type PurchaseInvoice struct {
	ID            string         `json:"id"`
	InvoiceNumber string         `json:"invoiceNumber"`
	Date          int64          `json:"date"`
	SupplierID    string         `json:"supplierId"`
	Notes         string         `json:"notes,omitempty"`
	Items         []PurchaseItem `json:"items"`
	TotalAmount   float64        `json:"totalAmount"`
	CreatedAt     int64          `json:"createdAt"`
	UpdatedAt     int64          `json:"updatedAt,omitempty"`
}

// SaleItem mirrors PurchaseItem with the sale price.
type SaleItem struct {
	ProductID           string  `json:"productId"`
	ProductNameSnapshot string  `json:"productNameSnapshot"`
	Quantity            float64 `json:"quantity"`
	SalePrice           float64 `json:"salePrice"`
	Total               float64 `json:"total"`
}

// SaleInvoice mirrors PurchaseInvoice with a free-text customer instead of a
// supplier link.
type SaleInvoice struct {
	ID            string     `json:"id"`
	InvoiceNumber string     `json:"invoiceNumber"`
	Date          int64      `json:"date"`
	CustomerName  string     `json:"customerName"`
	Notes         string     `json:"notes,omitempty"`
	Items         []SaleItem `json:"items"`
	TotalAmount   float64    `json:"totalAmount"`
	CreatedAt     int64      `json:"createdAt"`
	UpdatedAt     int64      `json:"updatedAt,omitempty"`
}

// Payment reduces a supplier's outstanding balance. Payments are aggregate;
// they are never allocated to particular invoice lines.
type Payment struct {
	ID         string  `json:"id"`
	Date       int64   `json:"date"`
	SupplierID string  `json:"supplierId"`
	Amount     float64 `json:"amount"`
	Notes      string  `json:"notes,omitempty"`
}

// SupplierStats is derived on demand and never persisted.
type SupplierStats struct {
	TotalPurchased   float64 `json:"totalPurchased"`
	TotalPaid        float64 `json:"totalPaid"`
	RemainingBalance float64 `json:"remainingBalance"`
	TotalSoldValue   float64 `json:"totalSoldValue"`
}

// Snapshot is the complete in-memory copy of the five entity collections.
type Snapshot struct {
	Suppliers        []Supplier        `json:"suppliers"`
	Products         []Product         `json:"products"`
	PurchaseInvoices []PurchaseInvoice `json:"purchaseInvoices"`
	SaleInvoices     []SaleInvoice     `json:"saleInvoices"`
	Payments         []Payment         `json:"payments"`
}

// Clone returns a deep copy so callers can hand out state without exposing
// the store's backing slices.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{
		Suppliers:        append([]Supplier(nil), s.Suppliers...),
		Products:         append([]Product(nil), s.Products...),
		PurchaseInvoices: append([]PurchaseInvoice(nil), s.PurchaseInvoices...),
		SaleInvoices:     append([]SaleInvoice(nil), s.SaleInvoices...),
		Payments:         append([]Payment(nil), s.Payments...),
	}
	for i := range out.PurchaseInvoices {
		out.PurchaseInvoices[i].Items = append([]PurchaseItem(nil), out.PurchaseInvoices[i].Items...)
	}
	for i := range out.SaleInvoices {
		out.SaleInvoices[i].Items = append([]SaleItem(nil), out.SaleInvoices[i].Items...)
	}
	return out
}
