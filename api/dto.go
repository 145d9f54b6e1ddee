/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY FIELDS:
  Decimal amounts travel as JSON strings ("150.00"), never floats.
  shopspring/decimal marshals that way by default.

VALIDATION:
  Request structs carry go-playground/validator tags; handlers run the
  shared validator instance before touching domain logic.

SEE ALSO:
  - handlers.go: Uses these types
  - ledger/types.go: The domain model these map to
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// ProductDTO represents a product in API responses.
type ProductDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Stage         string `json:"stage"`
	Quantity      int64  `json:"quantity"`
	MinStock      *int64 `json:"min_stock,omitempty"`
	BelowMinStock bool   `json:"below_min_stock"`
}

// CreateProductRequest is the request to create or update a product.
type CreateProductRequest struct {
	ID       string `json:"id" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Stage    string `json:"stage" validate:"required,oneof=raw intermediate ready finished"`
	MinStock *int64 `json:"min_stock,omitempty" validate:"omitempty,min=0"`
}

// LocationDTO represents a stock location.
type LocationDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CreateLocationRequest is the request to create or update a location.
type CreateLocationRequest struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name" validate:"required"`
}

// StockDTO is one (product, location) quantity cell.
type StockDTO struct {
	ProductID  string `json:"product_id"`
	LocationID string `json:"location_id"`
	Quantity   int64  `json:"quantity"`
}

// PurchaseRequest records incoming stock.
type PurchaseRequest struct {
	ProductID  string  `json:"product_id" validate:"required"`
	LocationID *string `json:"location_id,omitempty"`
	Quantity   int64   `json:"quantity" validate:"required,gt=0"`
	Date       string  `json:"date,omitempty"` // YYYY-MM-DD, defaults to today
	Notes      string  `json:"notes,omitempty"`
}

// ProductionRequest runs one BOM process.
type ProductionRequest struct {
	ProcessName string `json:"process_name" validate:"required"`
	Quantity    int64  `json:"quantity" validate:"required,gt=0"`
	Date        string `json:"date,omitempty"`
}

// TransferRequest moves stock between two locations.
type TransferRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	FromLocationID string `json:"from_location_id" validate:"required"`
	ToLocationID   string `json:"to_location_id" validate:"required,nefield=FromLocationID"`
	Quantity       int64  `json:"quantity" validate:"required,gt=0"`
	Date           string `json:"date,omitempty"`
}

// WastageRequest writes off damaged or expired stock.
type WastageRequest struct {
	ProductID  string  `json:"product_id" validate:"required"`
	LocationID *string `json:"location_id,omitempty"`
	Quantity   int64   `json:"quantity" validate:"required,gt=0"`
	Date       string  `json:"date,omitempty"`
	Reason     string  `json:"reason,omitempty"`
}

// SaleRequest records one multi-line sale.
type SaleRequest struct {
	Buyer              string            `json:"buyer,omitempty"`
	Date               string            `json:"date,omitempty"`
	Items              []SaleItemRequest `json:"items" validate:"required,min=1,dive"`
	BillDiscountPct    string            `json:"bill_discount_pct,omitempty"`
	BillDiscountAmount string            `json:"bill_discount_amount,omitempty"`
	PaymentReceived    string            `json:"payment_received,omitempty"`
	CreditSale         bool              `json:"credit_sale,omitempty"`
}

// SaleItemRequest is one requested sale line.
type SaleItemRequest struct {
	ProductID      string `json:"product_id" validate:"required"`
	LocationID     string `json:"location_id" validate:"required"`
	Quantity       int64  `json:"quantity" validate:"required,gt=0"`
	PricePerUnit   string `json:"price_per_unit" validate:"required"`
	TradeScheme    string `json:"trade_scheme,omitempty"`
	DiscountPct    string `json:"discount_pct,omitempty"`
	DiscountAmount string `json:"discount_amount,omitempty"`
}

// ReverseRequest voids a previously committed transaction.
type ReverseRequest struct {
	Type string `json:"type" validate:"required,oneof=sale transfer production wastage purchase"`
}

// SaleDTO represents a committed sale.
type SaleDTO struct {
	ID                 string        `json:"id"`
	InvoiceNumber      string        `json:"invoice_number"`
	Buyer              string        `json:"buyer,omitempty"`
	SaleDate           string        `json:"sale_date"`
	Items              []SaleItemDTO `json:"items"`
	BillDiscountPct    string        `json:"bill_discount_pct"`
	BillDiscountAmount string        `json:"bill_discount_amount"`
	TotalAmount        string        `json:"total_amount"`
	FinalAmount        string        `json:"final_amount"`
	PaymentReceived    string        `json:"payment_received"`
	CreditSale         bool          `json:"credit_sale"`
	Void               bool          `json:"void"`
}

// SaleItemDTO is one committed sale line.
type SaleItemDTO struct {
	ProductID      string `json:"product_id"`
	LocationID     string `json:"location_id"`
	Quantity       int64  `json:"quantity"`
	PricePerUnit   string `json:"price_per_unit"`
	TradeScheme    string `json:"trade_scheme,omitempty"`
	DiscountPct    string `json:"discount_pct"`
	DiscountAmount string `json:"discount_amount"`
	TotalPrice     string `json:"total_price"`
	FinalPrice     string `json:"final_price"`
}

// TransferDTO represents a committed transfer.
type TransferDTO struct {
	ID             string `json:"id"`
	ProductID      string `json:"product_id"`
	FromLocationID string `json:"from_location_id"`
	ToLocationID   string `json:"to_location_id"`
	Quantity       int64  `json:"quantity"`
	TransferDate   string `json:"transfer_date"`
	Void           bool   `json:"void"`
}

// ProductionDTO represents a committed production run.
type ProductionDTO struct {
	ID             string `json:"id"`
	ProcessName    string `json:"process_name"`
	Quantity       int64  `json:"quantity"`
	ProductionDate string `json:"production_date"`
	Void           bool   `json:"void"`
}

// WastageDTO represents a committed write-off.
type WastageDTO struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"product_id"`
	LocationID  *string `json:"location_id,omitempty"`
	Quantity    int64   `json:"quantity"`
	WastageDate string  `json:"wastage_date"`
	Reason      string  `json:"reason,omitempty"`
	Void        bool    `json:"void"`
}

// PurchaseDTO represents a committed purchase.
type PurchaseDTO struct {
	ID           string  `json:"id"`
	ProductID    string  `json:"product_id"`
	LocationID   *string `json:"location_id,omitempty"`
	Quantity     int64   `json:"quantity"`
	PurchaseDate string  `json:"purchase_date"`
	Notes        string  `json:"notes,omitempty"`
	Void         bool    `json:"void"`
}

// MovementDTO is one reconstructed history entry.
type MovementDTO struct {
	ProductID         string  `json:"product_id"`
	LocationID        *string `json:"location_id,omitempty"`
	QuantityChange    int64   `json:"quantity_change"`
	Type              string  `json:"type"`
	OccurredAt        string  `json:"occurred_at"`
	SourceTransaction string  `json:"source_transaction_id"`
	Synthesized       bool    `json:"synthesized"`
	Notes             string  `json:"notes,omitempty"`
}

// ProcessDTO describes one BOM process.
type ProcessDTO struct {
	Name        string            `json:"name"`
	Inputs      []ProcessInputDTO `json:"inputs"`
	Output      string            `json:"output"`
	OutputRatio float64           `json:"output_ratio"`
}

// ProcessInputDTO is one process input line.
type ProcessInputDTO struct {
	Product string  `json:"product"`
	Ratio   float64 `json:"ratio"`
}

// LowStockDTO is one low-stock report row.
type LowStockDTO struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Stage     string `json:"stage"`
	Quantity  int64  `json:"quantity"`
	MinStock  int64  `json:"min_stock"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toProductDTO(p ledger.Product) ProductDTO {
	return ProductDTO{
		ID:            string(p.ID),
		Name:          p.Name,
		Stage:         string(p.Stage),
		Quantity:      p.Quantity,
		MinStock:      p.MinStock,
		BelowMinStock: p.BelowMinStock(),
	}
}

func toSaleDTO(s ledger.SaleTransaction) SaleDTO {
	items := make([]SaleItemDTO, len(s.Items))
	for i, item := range s.Items {
		items[i] = SaleItemDTO{
			ProductID:      string(item.ProductID),
			LocationID:     string(item.LocationID),
			Quantity:       item.Quantity,
			PricePerUnit:   item.PricePerUnit.String(),
			TradeScheme:    item.TradeScheme,
			DiscountPct:    item.DiscountPct.String(),
			DiscountAmount: item.DiscountAmount.String(),
			TotalPrice:     item.TotalPrice.String(),
			FinalPrice:     item.FinalPrice.String(),
		}
	}
	return SaleDTO{
		ID:                 string(s.ID),
		InvoiceNumber:      s.InvoiceNumber,
		Buyer:              s.Buyer,
		SaleDate:           s.SaleDate.Format("2006-01-02"),
		Items:              items,
		BillDiscountPct:    s.BillDiscountPct.String(),
		BillDiscountAmount: s.BillDiscountAmount.String(),
		TotalAmount:        s.TotalAmount.String(),
		FinalAmount:        s.FinalAmount.String(),
		PaymentReceived:    s.PaymentReceived.String(),
		CreditSale:         s.CreditSale,
		Void:               s.Void,
	}
}

func toTransferDTO(t ledger.Transfer) TransferDTO {
	return TransferDTO{
		ID:             string(t.ID),
		ProductID:      string(t.ProductID),
		FromLocationID: string(t.FromLocationID),
		ToLocationID:   string(t.ToLocationID),
		Quantity:       t.Quantity,
		TransferDate:   t.TransferDate.Format("2006-01-02"),
		Void:           t.Void,
	}
}

func toProductionDTO(p ledger.ProductionRecord) ProductionDTO {
	return ProductionDTO{
		ID:             string(p.ID),
		ProcessName:    p.ProcessName,
		Quantity:       p.Quantity,
		ProductionDate: p.ProductionDate.Format("2006-01-02"),
		Void:           p.Void,
	}
}

func toWastageDTO(w ledger.WastageRecord) WastageDTO {
	return WastageDTO{
		ID:          string(w.ID),
		ProductID:   string(w.ProductID),
		LocationID:  locationIDString(w.LocationID),
		Quantity:    w.Quantity,
		WastageDate: w.WastageDate.Format("2006-01-02"),
		Reason:      w.Reason,
		Void:        w.Void,
	}
}

func toPurchaseDTO(p ledger.PurchaseRecord) PurchaseDTO {
	return PurchaseDTO{
		ID:           string(p.ID),
		ProductID:    string(p.ProductID),
		LocationID:   locationIDString(p.LocationID),
		Quantity:     p.Quantity,
		PurchaseDate: p.PurchaseDate.Format("2006-01-02"),
		Notes:        p.Notes,
		Void:         p.Void,
	}
}

func toMovementDTO(v ledger.MovementView) MovementDTO {
	return MovementDTO{
		ProductID:         string(v.ProductID),
		LocationID:        locationIDString(v.LocationID),
		QuantityChange:    v.QuantityChange,
		Type:              string(v.Type),
		OccurredAt:        v.OccurredAt.Format(time.RFC3339),
		SourceTransaction: string(v.SourceTransaction),
		Synthesized:       v.Synthesized,
		Notes:             v.Notes,
	}
}

func locationIDString(id *ledger.LocationID) *string {
	if id == nil {
		return nil
	}
	s := string(*id)
	return &s
}

// parseDecimal treats an empty string as zero; malformed input surfaces
// as a validation error in the handler.
func parseDecimal(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

// parseDate accepts YYYY-MM-DD; empty means "now" (zero time, the engines
// substitute their clock).
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse("2006-01-02", s)
}
