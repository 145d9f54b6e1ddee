/*
handlers.go - HTTP API handlers for the inventory engine

PURPOSE:
  Exposes the inventory ledger and transaction engines via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to
  domain logic.

ENDPOINTS:
  Catalogue:
    GET    /api/products               List all products
    POST   /api/products               Create/update product
    GET    /api/products/{id}          Get product details
    GET    /api/products/{id}/history  Reconstructed movement history
    GET    /api/products/{id}/stock    Per-location stock breakdown
    GET    /api/locations              List all locations
    POST   /api/locations              Create/update location

  Transactions:
    POST   /api/purchases              Record a purchase
    POST   /api/productions            Run a BOM process
    POST   /api/transfers              Move stock between locations
    POST   /api/sales                  Record a multi-line sale
    POST   /api/wastages               Write off stock
    POST   /api/transactions/{id}/reverse  Void by compensation

  Reports:
    GET    /api/reports/low-stock      Products at or below min stock
    GET    /api/processes              BOM process catalogue

  Demo:
    POST   /api/seed                   Reset and load the demo catalogue

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Unknown product/location/process/transaction
  - 409: Insufficient stock, already-voided transaction
  - 500: Internal errors

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - seed.go: Demo catalogue loader
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"github.com/nikkanikki/inventory-engine/bom"
	"github.com/nikkanikki/inventory-engine/inventory"
	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store    ledger.TxStore
	Registry *bom.Registry
	History  *ledger.History

	Productions *inventory.ProductionEngine
	Sales       *inventory.SaleEngine
	Transfers   *inventory.TransferEngine
	Wastages    *inventory.WastageEngine
	Purchases   *inventory.PurchaseEngine
	Reversals   *inventory.ReversalCoordinator

	Log      *logrus.Logger
	validate *validator.Validate
}

// NewHandler wires a handler over the store and registry, constructing the
// engines it fronts.
func NewHandler(store ledger.TxStore, registry *bom.Registry, log *logrus.Logger) *Handler {
	recorder := ledger.NewRecorder(store)
	customers := &inventory.LoggedCustomerLedger{Log: log}
	return &Handler{
		Store:       store,
		Registry:    registry,
		History:     ledger.NewHistory(store, registry),
		Productions: inventory.NewProductionEngine(store, recorder, registry),
		Sales:       inventory.NewSaleEngine(store, recorder, customers, log),
		Transfers:   inventory.NewTransferEngine(store, recorder),
		Wastages:    inventory.NewWastageEngine(store, recorder),
		Purchases:   inventory.NewPurchaseEngine(store, recorder),
		Reversals:   inventory.NewReversalCoordinator(store, recorder, customers, log),
		Log:         log,
		validate:    validator.New(validator.WithRequiredStructEnabled()),
	}
}

// decodeAndValidate parses the body into req and runs struct validation.
// Returns false after writing the error response itself.
func (h *Handler) decodeAndValidate(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// =============================================================================
// PRODUCT HANDLERS
// =============================================================================

// ListProducts returns all products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	dtos := make([]ProductDTO, len(products))
	for i, p := range products {
		dtos[i] = toProductDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProduct returns a single product.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))

	product, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toProductDTO(*product))
}

// CreateProduct creates or updates a product. The aggregate quantity is not
// settable here; it only moves through recorded transactions.
func (h *Handler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	existing, err := h.Store.GetProduct(r.Context(), ledger.ProductID(req.ID))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to check product", err)
		return
	}

	product := ledger.Product{
		ID:       ledger.ProductID(req.ID),
		Name:     req.Name,
		Stage:    ledger.Stage(req.Stage),
		MinStock: req.MinStock,
	}
	if existing != nil {
		product.Quantity = existing.Quantity
	}

	if err := h.Store.SaveProduct(r.Context(), product); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save product", err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductDTO(product))
}

// GetProductHistory returns the reconstructed movement history of a product,
// newest first. ?location_id= restricts the view to one location.
func (h *Handler) GetProductHistory(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))

	var locationID *ledger.LocationID
	if loc := r.URL.Query().Get("location_id"); loc != "" {
		l := ledger.LocationID(loc)
		locationID = &l
	}

	seq, err := h.History.ForProduct(r.Context(), id, locationID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	views := seq.Collect()
	dtos := make([]MovementDTO, len(views))
	for i, v := range views {
		dtos[i] = toMovementDTO(v)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetProductStock returns the per-location stock breakdown for a product.
func (h *Handler) GetProductStock(w http.ResponseWriter, r *http.Request) {
	id := ledger.ProductID(chi.URLParam(r, "id"))

	product, err := h.Store.GetProduct(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get product", err)
		return
	}
	if product == nil {
		writeError(w, http.StatusNotFound, "Product not found", nil)
		return
	}

	locations, err := h.Store.ListLocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list locations", err)
		return
	}

	stocks := make([]StockDTO, 0, len(locations))
	for _, loc := range locations {
		qty, err := h.Store.GetLocationStock(r.Context(), id, loc.ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to get stock", err)
			return
		}
		stocks = append(stocks, StockDTO{
			ProductID:  string(id),
			LocationID: string(loc.ID),
			Quantity:   qty,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"product":   toProductDTO(*product),
		"locations": stocks,
	})
}

// =============================================================================
// LOCATION HANDLERS
// =============================================================================

// ListLocations returns all locations.
func (h *Handler) ListLocations(w http.ResponseWriter, r *http.Request) {
	locations, err := h.Store.ListLocations(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list locations", err)
		return
	}

	dtos := make([]LocationDTO, len(locations))
	for i, l := range locations {
		dtos[i] = LocationDTO{ID: string(l.ID), Name: l.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLocation creates or updates a location.
func (h *Handler) CreateLocation(w http.ResponseWriter, r *http.Request) {
	var req CreateLocationRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	location := ledger.Location{ID: ledger.LocationID(req.ID), Name: req.Name}
	if err := h.Store.SaveLocation(r.Context(), location); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save location", err)
		return
	}
	writeJSON(w, http.StatusCreated, LocationDTO{ID: req.ID, Name: req.Name})
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// RecordPurchase records incoming stock.
func (h *Handler) RecordPurchase(w http.ResponseWriter, r *http.Request) {
	var req PurchaseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	var locationID *ledger.LocationID
	if req.LocationID != nil {
		l := ledger.LocationID(*req.LocationID)
		locationID = &l
	}

	record, err := h.Purchases.RecordPurchase(r.Context(),
		ledger.ProductID(req.ProductID), locationID, req.Quantity, date, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPurchaseDTO(*record))
}

// RecordProduction runs one BOM process.
func (h *Handler) RecordProduction(w http.ResponseWriter, r *http.Request) {
	var req ProductionRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	record, err := h.Productions.RecordProduction(r.Context(), req.ProcessName, req.Quantity, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProductionDTO(*record))
}

// RecordTransfer moves stock between two locations.
func (h *Handler) RecordTransfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	transfer, err := h.Transfers.RecordTransfer(r.Context(),
		ledger.ProductID(req.ProductID),
		ledger.LocationID(req.FromLocationID),
		ledger.LocationID(req.ToLocationID),
		req.Quantity, date)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransferDTO(*transfer))
}

// RecordWastage writes off stock.
func (h *Handler) RecordWastage(w http.ResponseWriter, r *http.Request) {
	var req WastageRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	var locationID *ledger.LocationID
	if req.LocationID != nil {
		l := ledger.LocationID(*req.LocationID)
		locationID = &l
	}

	record, err := h.Wastages.RecordWastage(r.Context(),
		ledger.ProductID(req.ProductID), locationID, req.Quantity, date, req.Reason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWastageDTO(*record))
}

// RecordSale records one multi-line sale.
func (h *Handler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}

	input := inventory.SaleInput{
		Buyer:      req.Buyer,
		SaleDate:   date,
		CreditSale: req.CreditSale,
	}
	if input.BillDiscountPct, err = parseDecimal(req.BillDiscountPct); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bill_discount_pct", err)
		return
	}
	if input.BillDiscountAmount, err = parseDecimal(req.BillDiscountAmount); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid bill_discount_amount", err)
		return
	}
	if input.PaymentReceived, err = parseDecimal(req.PaymentReceived); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_received", err)
		return
	}

	for _, item := range req.Items {
		line := inventory.SaleItemInput{
			ProductID:   ledger.ProductID(item.ProductID),
			LocationID:  ledger.LocationID(item.LocationID),
			Quantity:    item.Quantity,
			TradeScheme: item.TradeScheme,
		}
		if line.PricePerUnit, err = parseDecimal(item.PricePerUnit); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid price_per_unit", err)
			return
		}
		if line.DiscountPct, err = parseDecimal(item.DiscountPct); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discount_pct", err)
			return
		}
		if line.DiscountAmount, err = parseDecimal(item.DiscountAmount); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid discount_amount", err)
			return
		}
		input.Items = append(input.Items, line)
	}

	sale, err := h.Sales.RecordSale(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSaleDTO(*sale))
}

// ReverseTransaction voids a committed transaction by compensation.
func (h *Handler) ReverseTransaction(w http.ResponseWriter, r *http.Request) {
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req ReverseRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	err := h.Reversals.Reverse(r.Context(), id, ledger.TransactionKind(req.Type))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "voided",
		"id":     string(id),
		"type":   req.Type,
	})
}

// =============================================================================
// LISTING HANDLERS
// =============================================================================

// ListSales returns all sales, newest first.
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.Store.ListSales(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sales", err)
		return
	}
	dtos := make([]SaleDTO, len(sales))
	for i, s := range sales {
		dtos[i] = toSaleDTO(s)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListTransfers returns all transfers, newest first.
func (h *Handler) ListTransfers(w http.ResponseWriter, r *http.Request) {
	transfers, err := h.Store.ListTransfers(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transfers", err)
		return
	}
	dtos := make([]TransferDTO, len(transfers))
	for i, t := range transfers {
		dtos[i] = toTransferDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListProductions returns all production runs.
func (h *Handler) ListProductions(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListProductions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list productions", err)
		return
	}
	dtos := make([]ProductionDTO, len(records))
	for i, p := range records {
		dtos[i] = toProductionDTO(p)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListWastages returns all write-offs, newest first.
func (h *Handler) ListWastages(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListWastages(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list wastages", err)
		return
	}
	dtos := make([]WastageDTO, len(records))
	for i, rec := range records {
		dtos[i] = toWastageDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPurchases returns all purchases, newest first.
func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPurchases(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list purchases", err)
		return
	}
	dtos := make([]PurchaseDTO, len(records))
	for i, rec := range records {
		dtos[i] = toPurchaseDTO(rec)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// LowStockReport returns every product whose aggregate quantity has fallen
// to its min-stock threshold.
func (h *Handler) LowStockReport(w http.ResponseWriter, r *http.Request) {
	products, err := h.Store.ListProducts(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list products", err)
		return
	}

	rows := make([]LowStockDTO, 0)
	for _, p := range products {
		if !p.BelowMinStock() {
			continue
		}
		rows = append(rows, LowStockDTO{
			ProductID: string(p.ID),
			Name:      p.Name,
			Stage:     string(p.Stage),
			Quantity:  p.Quantity,
			MinStock:  *p.MinStock,
		})
	}
	writeJSON(w, http.StatusOK, rows)
}

// ListProcesses returns the BOM process catalogue.
func (h *Handler) ListProcesses(w http.ResponseWriter, r *http.Request) {
	processes := h.Registry.Processes()
	dtos := make([]ProcessDTO, len(processes))
	for i, p := range processes {
		inputs := make([]ProcessInputDTO, len(p.Inputs))
		for j, in := range p.Inputs {
			inputs[j] = ProcessInputDTO{Product: in.Product, Ratio: in.Ratio}
		}
		dtos[i] = ProcessDTO{
			Name:        p.Name,
			Inputs:      inputs,
			Output:      p.Output,
			OutputRatio: p.OutputRatio,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// ERROR MAPPING
// =============================================================================

// writeDomainError maps domain errors to HTTP status codes. Insufficient
// stock and double reversal are conflicts with current state, not bad input.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrValidation):
		writeErrorCode(w, http.StatusBadRequest, "validation_failed", err)
	case ledger.IsNotFound(err):
		writeErrorCode(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ledger.ErrInsufficientStock):
		var stockErr *ledger.InsufficientStockError
		if errors.As(err, &stockErr) {
			shortfalls := make([]map[string]any, len(stockErr.Shortfalls))
			for i, s := range stockErr.Shortfalls {
				shortfalls[i] = map[string]any{
					"product_id": string(s.ProductID),
					"product":    s.Product,
					"required":   s.Required,
					"available":  s.Available,
				}
				if s.LocationID != nil {
					shortfalls[i]["location_id"] = string(*s.LocationID)
				}
			}
			writeJSON(w, http.StatusConflict, ErrorResponse{
				Error:   err.Error(),
				Code:    "insufficient_stock",
				Details: shortfalls,
			})
			return
		}
		writeErrorCode(w, http.StatusConflict, "insufficient_stock", err)
	case errors.Is(err, ledger.ErrAlreadyVoided):
		writeErrorCode(w, http.StatusConflict, "already_voided", err)
	default:
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeErrorCode(w http.ResponseWriter, status int, code string, err error) {
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}
