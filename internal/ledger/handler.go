package ledger

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/hisab-erp/hisab-erp/internal/platform/httpx"
)

// Handler wires the JSON API for the ledger store. Mutations return the
// optimistically updated entity immediately; persistence status is reported
// through GET /state, matching the store's fire-and-forget protocol.
type Handler struct {
	logger   *slog.Logger
	store    *Store
	validate *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, store *Store) *Handler {
	return &Handler{logger: logger, store: store, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/state", h.handleState)
	r.Post("/refresh", h.handleRefresh)

	r.Post("/suppliers", h.handleAddSupplier)
	r.Delete("/suppliers/{id}", h.handleDeleteSupplier)
	r.Get("/suppliers/{id}/stats", h.handleSupplierStats)

	r.Put("/purchase-invoices", h.handleSavePurchaseInvoice)
	r.Delete("/purchase-invoices/{id}", h.handleDeletePurchaseInvoice)

	r.Put("/sale-invoices", h.handleSaveSaleInvoice)
	r.Delete("/sale-invoices/{id}", h.handleDeleteSaleInvoice)

	r.Put("/payments", h.handleSavePayment)
	r.Delete("/payments/{id}", h.handleDeletePayment)

	r.Patch("/products/{id}/price", h.handleUpdateProductPrice)
}

type addSupplierRequest struct {
	Name  string `json:"name" validate:"required,max=200"`
	Phone string `json:"phone" validate:"omitempty,max=50"`
	Notes string `json:"notes" validate:"omitempty,max=1000"`
}

type invoiceItemRequest struct {
	ProductID   string  `json:"productId"`
	ProductName string  `json:"productName" validate:"required,max=200"`
	Quantity    float64 `json:"quantity" validate:"required,gt=0"`
	Price       float64 `json:"price" validate:"gte=0"`
}

type savePurchaseInvoiceRequest struct {
	ID            string               `json:"id"`
	InvoiceNumber string               `json:"invoiceNumber" validate:"required,max=50"`
	Date          int64                `json:"date"`
	SupplierID    string               `json:"supplierId" validate:"required"`
	Notes         string               `json:"notes"`
	Items         []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type saveSaleInvoiceRequest struct {
	ID            string               `json:"id"`
	InvoiceNumber string               `json:"invoiceNumber" validate:"required,max=50"`
	Date          int64                `json:"date"`
	CustomerName  string               `json:"customerName" validate:"omitempty,max=200"`
	Notes         string               `json:"notes"`
	Items         []invoiceItemRequest `json:"items" validate:"required,min=1,dive"`
}

type savePaymentRequest struct {
	ID         string  `json:"id"`
	Date       int64   `json:"date"`
	SupplierID string  `json:"supplierId" validate:"required"`
	Amount     float64 `json:"amount" validate:"required,gt=0"`
	Notes      string  `json:"notes"`
}

type updatePriceRequest struct {
	SalePrice float64 `json:"salePrice" validate:"gte=0"`
}

func (h *Handler) decodeValid(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return h.validate.Struct(target)
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Refresh(r.Context()); err != nil {
		h.logger.Error("refresh failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Refresh Failed", err.Error())
		return
	}
	httpx.JSON(w, http.StatusOK, h.store.State())
}

func (h *Handler) handleAddSupplier(w http.ResponseWriter, r *http.Request) {
	var req addSupplierRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sup := h.store.AddSupplier(req.Name, req.Phone, req.Notes)
	httpx.JSON(w, http.StatusCreated, sup)
}

func (h *Handler) handleDeleteSupplier(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteSupplier(id); err != nil {
		if errors.Is(err, ErrSupplierInUse) {
			httpx.Problem(w, http.StatusConflict, "Supplier In Use",
				"supplier has linked products or purchase invoices")
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSupplierStats(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	httpx.JSON(w, http.StatusOK, h.store.SupplierStats(id))
}

func (h *Handler) handleSavePurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	var req savePurchaseInvoiceRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv := PurchaseInvoice{
		ID:            req.ID,
		InvoiceNumber: req.InvoiceNumber,
		Date:          req.Date,
		SupplierID:    req.SupplierID,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, PurchaseItem{
			ProductID:           item.ProductID,
			ProductNameSnapshot: item.ProductName,
			Quantity:            item.Quantity,
			PurchasePrice:       item.Price,
		})
	}
	httpx.JSON(w, http.StatusOK, h.store.SavePurchaseInvoice(inv))
}

func (h *Handler) handleDeletePurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	h.store.DeletePurchaseInvoice(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSaveSaleInvoice(w http.ResponseWriter, r *http.Request) {
	var req saveSaleInvoiceRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	inv := SaleInvoice{
		ID:            req.ID,
		InvoiceNumber: req.InvoiceNumber,
		Date:          req.Date,
		CustomerName:  req.CustomerName,
		Notes:         req.Notes,
	}
	for _, item := range req.Items {
		inv.Items = append(inv.Items, SaleItem{
			ProductID:           item.ProductID,
			ProductNameSnapshot: item.ProductName,
			Quantity:            item.Quantity,
			SalePrice:           item.Price,
		})
	}
	httpx.JSON(w, http.StatusOK, h.store.SaveSaleInvoice(inv))
}

func (h *Handler) handleDeleteSaleInvoice(w http.ResponseWriter, r *http.Request) {
	h.store.DeleteSaleInvoice(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSavePayment(w http.ResponseWriter, r *http.Request) {
	var req savePaymentRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	p := Payment{
		ID:         req.ID,
		Date:       req.Date,
		SupplierID: req.SupplierID,
		Amount:     req.Amount,
		Notes:      req.Notes,
	}
	httpx.JSON(w, http.StatusOK, h.store.SavePayment(p))
}

func (h *Handler) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	h.store.DeletePayment(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleUpdateProductPrice(w http.ResponseWriter, r *http.Request) {
	var req updatePriceRequest
	if err := h.decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.store.UpdateProductPrice(chi.URLParam(r, "id"), req.SalePrice); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
