/*
Package sqlite provides a SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.TxStore using SQLite. In production the same patterns
  apply to PostgreSQL - only minor SQL dialect differences.

APPEND-ONLY ENFORCEMENT:
  - No UPDATE or DELETE statements on the movements table
  - Transaction headers are inserted once; the only UPDATE that exists on
    them sets the void flag
  - Stock quantities are the only continuously mutated rows, and every
    mutation checks the never-negative invariant before writing

KEY TABLES:
  products:        catalogue + derived aggregate quantity
  locations:       physical places holding stock
  location_stock:  per-(product, location) quantity cells
  movements:       immutable ledger of all stock changes
  sales, sale_items, transfers, productions, wastages, purchases:
                   transaction headers

INDEXES:
  - idx_movements_product_occurred: history reconstruction (hot path)
  - idx_movements_source: reversal fetches everything a transaction caused

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. SQLite is opened with WAL
  (Write-Ahead Logging): multiple readers don't block, single writer at
  a time, better crash recovery.

MONEY:
  Decimal amounts are stored as TEXT and parsed back through
  shopspring/decimal, never as floats.

USAGE:
  store, err := sqlite.New("./data/inventory.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  recorder := ledger.NewRecorder(store)

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - ledger/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS products (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		stage TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		min_stock INTEGER,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS locations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS location_stock (
		product_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		quantity INTEGER NOT NULL DEFAULT 0 CHECK (quantity >= 0),
		PRIMARY KEY (product_id, location_id)
	);

	CREATE TABLE IF NOT EXISTS movements (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		location_id TEXT,
		quantity_change INTEGER NOT NULL,
		movement_type TEXT NOT NULL,
		occurred_at TEXT NOT NULL,
		source_transaction_id TEXT NOT NULL,
		notes TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_movements_product_occurred
		ON movements(product_id, occurred_at DESC);
	CREATE INDEX IF NOT EXISTS idx_movements_source
		ON movements(source_transaction_id);
	CREATE INDEX IF NOT EXISTS idx_movements_type
		ON movements(movement_type);

	CREATE TABLE IF NOT EXISTS sales (
		id TEXT PRIMARY KEY,
		invoice_number TEXT NOT NULL UNIQUE,
		buyer TEXT,
		sale_date TEXT NOT NULL,
		bill_discount_pct TEXT NOT NULL,
		bill_discount_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		final_amount TEXT NOT NULL,
		payment_received TEXT NOT NULL,
		credit_sale BOOLEAN NOT NULL DEFAULT FALSE,
		void BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS sale_items (
		sale_id TEXT NOT NULL,
		line_no INTEGER NOT NULL,
		product_id TEXT NOT NULL,
		location_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		price_per_unit TEXT NOT NULL,
		trade_scheme TEXT,
		discount_pct TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		total_price TEXT NOT NULL,
		final_price TEXT NOT NULL,
		PRIMARY KEY (sale_id, line_no)
	);

	CREATE TABLE IF NOT EXISTS transfers (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		from_location_id TEXT NOT NULL,
		to_location_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		transfer_date TEXT NOT NULL,
		void BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS productions (
		id TEXT PRIMARY KEY,
		process_name TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		production_date TEXT NOT NULL,
		void BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS wastages (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		location_id TEXT,
		quantity INTEGER NOT NULL,
		wastage_date TEXT NOT NULL,
		reason TEXT,
		void BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS purchases (
		id TEXT PRIMARY KEY,
		product_id TEXT NOT NULL,
		location_id TEXT,
		quantity INTEGER NOT NULL,
		purchase_date TEXT NOT NULL,
		notes TEXT,
		void BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TEXT NOT NULL
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// execer is satisfied by both *sql.DB and *sql.Tx, so every query helper
// below works unchanged inside and outside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// CATALOGUE
// =============================================================================

func (s *Store) SaveProduct(ctx context.Context, p ledger.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveProduct(ctx, s.db, p)
}

func saveProduct(ctx context.Context, db execer, p ledger.Product) error {
	query := `
		INSERT INTO products (id, name, stage, quantity, min_stock, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			stage = excluded.stage,
			min_stock = excluded.min_stock
	`
	var minStock any
	if p.MinStock != nil {
		minStock = *p.MinStock
	}
	_, err := db.ExecContext(ctx, query,
		p.ID, p.Name, p.Stage, p.Quantity, minStock,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save product: %w", err)
	}
	return nil
}

func (s *Store) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduct(ctx, s.db, "id = ?", string(id))
}

func (s *Store) GetProductByName(ctx context.Context, name string) (*ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduct(ctx, s.db, "name = ?", name)
}

func getProduct(ctx context.Context, db execer, where string, arg any) (*ledger.Product, error) {
	var p ledger.Product
	var minStock sql.NullInt64
	err := db.QueryRowContext(ctx,
		"SELECT id, name, stage, quantity, min_stock FROM products WHERE "+where, arg,
	).Scan(&p.ID, &p.Name, &p.Stage, &p.Quantity, &minStock)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if minStock.Valid {
		v := minStock.Int64
		p.MinStock = &v
	}
	return &p, nil
}

func (s *Store) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProducts(ctx, s.db)
}

func listProducts(ctx context.Context, db execer) ([]ledger.Product, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, name, stage, quantity, min_stock FROM products ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var products []ledger.Product
	for rows.Next() {
		var p ledger.Product
		var minStock sql.NullInt64
		if err := rows.Scan(&p.ID, &p.Name, &p.Stage, &p.Quantity, &minStock); err != nil {
			return nil, err
		}
		if minStock.Valid {
			v := minStock.Int64
			p.MinStock = &v
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *Store) SaveLocation(ctx context.Context, l ledger.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveLocation(ctx, s.db, l)
}

func saveLocation(ctx context.Context, db execer, l ledger.Location) error {
	query := `
		INSERT INTO locations (id, name, created_at)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name
	`
	_, err := db.ExecContext(ctx, query, l.ID, l.Name, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to save location: %w", err)
	}
	return nil
}

func (s *Store) GetLocation(ctx context.Context, id ledger.LocationID) (*ledger.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLocation(ctx, s.db, id)
}

func getLocation(ctx context.Context, db execer, id ledger.LocationID) (*ledger.Location, error) {
	var l ledger.Location
	err := db.QueryRowContext(ctx,
		"SELECT id, name FROM locations WHERE id = ?", string(id),
	).Scan(&l.ID, &l.Name)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get location: %w", err)
	}
	return &l, nil
}

func (s *Store) ListLocations(ctx context.Context) ([]ledger.Location, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listLocations(ctx, s.db)
}

func listLocations(ctx context.Context, db execer) ([]ledger.Location, error) {
	rows, err := db.QueryContext(ctx, "SELECT id, name FROM locations ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var locations []ledger.Location
	for rows.Next() {
		var l ledger.Location
		if err := rows.Scan(&l.ID, &l.Name); err != nil {
			return nil, err
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// =============================================================================
// STOCK
// =============================================================================

func (s *Store) GetLocationStock(ctx context.Context, productID ledger.ProductID, locationID ledger.LocationID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLocationStock(ctx, s.db, productID, locationID)
}

func getLocationStock(ctx context.Context, db execer, productID ledger.ProductID, locationID ledger.LocationID) (int64, error) {
	var qty int64
	err := db.QueryRowContext(ctx,
		"SELECT quantity FROM location_stock WHERE product_id = ? AND location_id = ?",
		string(productID), string(locationID),
	).Scan(&qty)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get location stock: %w", err)
	}
	return qty, nil
}

func (s *Store) AdjustProductQuantity(ctx context.Context, productID ledger.ProductID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustProductQuantity(ctx, s.db, productID, delta)
}

// adjustProductQuantity reads then writes; the caller (mutex or SQL
// transaction) guarantees the pair is not interleaved.
func adjustProductQuantity(ctx context.Context, db execer, productID ledger.ProductID, delta int64) error {
	p, err := getProduct(ctx, db, "id = ?", string(productID))
	if err != nil {
		return err
	}
	if p == nil {
		return &ledger.NotFoundError{Kind: "product", Ref: string(productID)}
	}
	if p.Quantity+delta < 0 {
		return &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
			ProductID: p.ID,
			Product:   p.Name,
			Stage:     p.Stage,
			Required:  -delta,
			Available: p.Quantity,
		}}}
	}

	_, err = db.ExecContext(ctx,
		"UPDATE products SET quantity = quantity + ? WHERE id = ?",
		delta, string(productID))
	if err != nil {
		return fmt.Errorf("failed to adjust product quantity: %w", err)
	}
	return nil
}

func (s *Store) AdjustLocationStock(ctx context.Context, productID ledger.ProductID, locationID ledger.LocationID, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustLocationStock(ctx, s.db, productID, locationID, delta)
}

func adjustLocationStock(ctx context.Context, db execer, productID ledger.ProductID, locationID ledger.LocationID, delta int64) error {
	current, err := getLocationStock(ctx, db, productID, locationID)
	if err != nil {
		return err
	}
	if current+delta < 0 {
		p, _ := getProduct(ctx, db, "id = ?", string(productID))
		l, _ := getLocation(ctx, db, locationID)
		shortfall := ledger.Shortfall{
			ProductID:  productID,
			LocationID: &locationID,
			Required:   -delta,
			Available:  current,
		}
		if p != nil {
			shortfall.Product = p.Name
			shortfall.Stage = p.Stage
		}
		if l != nil {
			shortfall.Location = l.Name
		}
		return &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{shortfall}}
	}

	query := `
		INSERT INTO location_stock (product_id, location_id, quantity)
		VALUES (?, ?, ?)
		ON CONFLICT(product_id, location_id) DO UPDATE SET
			quantity = location_stock.quantity + excluded.quantity
	`
	_, err = db.ExecContext(ctx, query, string(productID), string(locationID), delta)
	if err != nil {
		return fmt.Errorf("failed to adjust location stock: %w", err)
	}
	return nil
}

// =============================================================================
// MOVEMENTS (append-only)
// =============================================================================

func (s *Store) AppendMovement(ctx context.Context, m ledger.Movement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return appendMovement(ctx, s.db, m)
}

func appendMovement(ctx context.Context, db execer, m ledger.Movement) error {
	query := `
		INSERT INTO movements
		(id, product_id, location_id, quantity_change, movement_type,
		 occurred_at, source_transaction_id, notes, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	var locationID any
	if m.LocationID != nil {
		locationID = string(*m.LocationID)
	}
	_, err := db.ExecContext(ctx, query,
		m.ID,
		m.ProductID,
		locationID,
		m.QuantityChange,
		m.Type,
		m.OccurredAt.UTC().Format(time.RFC3339Nano),
		m.SourceTransaction,
		m.Notes,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to append movement: %w", err)
	}
	return nil
}

func (s *Store) MovementsByTransaction(ctx context.Context, txID ledger.TransactionID) ([]ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return movementsByTransaction(ctx, s.db, txID)
}

func movementsByTransaction(ctx context.Context, db execer, txID ledger.TransactionID) ([]ledger.Movement, error) {
	query := `
		SELECT id, product_id, location_id, quantity_change, movement_type,
		       occurred_at, source_transaction_id, notes
		FROM movements
		WHERE source_transaction_id = ?
		ORDER BY created_at ASC
	`
	return queryMovements(ctx, db, query, string(txID))
}

func (s *Store) MovementsByProduct(ctx context.Context, productID ledger.ProductID, locationID *ledger.LocationID) ([]ledger.Movement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return movementsByProduct(ctx, s.db, productID, locationID)
}

func movementsByProduct(ctx context.Context, db execer, productID ledger.ProductID, locationID *ledger.LocationID) ([]ledger.Movement, error) {
	query := `
		SELECT id, product_id, location_id, quantity_change, movement_type,
		       occurred_at, source_transaction_id, notes
		FROM movements
		WHERE product_id = ?
	`
	args := []any{string(productID)}
	if locationID != nil {
		query += " AND location_id = ?"
		args = append(args, string(*locationID))
	}
	query += " ORDER BY occurred_at DESC, created_at DESC"

	return queryMovements(ctx, db, query, args...)
}

func queryMovements(ctx context.Context, db execer, query string, args ...any) ([]ledger.Movement, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query movements: %w", err)
	}
	defer rows.Close()

	var movements []ledger.Movement
	for rows.Next() {
		var (
			m          ledger.Movement
			locationID sql.NullString
			occurredAt string
			notes      sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.ProductID, &locationID, &m.QuantityChange,
			&m.Type, &occurredAt, &m.SourceTransaction, &notes); err != nil {
			return nil, fmt.Errorf("failed to scan movement: %w", err)
		}
		if locationID.Valid {
			loc := ledger.LocationID(locationID.String)
			m.LocationID = &loc
		}
		m.OccurredAt, _ = time.Parse(time.RFC3339Nano, occurredAt)
		m.Notes = notes.String
		movements = append(movements, m)
	}
	return movements, rows.Err()
}

// =============================================================================
// SALES
// =============================================================================

func (s *Store) InsertSale(ctx context.Context, sale ledger.SaleTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertSale(ctx, s.db, sale)
}

func insertSale(ctx context.Context, db execer, sale ledger.SaleTransaction) error {
	query := `
		INSERT INTO sales
		(id, invoice_number, buyer, sale_date, bill_discount_pct, bill_discount_amount,
		 total_amount, final_amount, payment_received, credit_sale, void, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		sale.ID, sale.InvoiceNumber, sale.Buyer,
		sale.SaleDate.UTC().Format(time.RFC3339),
		sale.BillDiscountPct.String(), sale.BillDiscountAmount.String(),
		sale.TotalAmount.String(), sale.FinalAmount.String(),
		sale.PaymentReceived.String(), sale.CreditSale, sale.Void,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert sale: %w", err)
	}

	itemQuery := `
		INSERT INTO sale_items
		(sale_id, line_no, product_id, location_id, quantity, price_per_unit,
		 trade_scheme, discount_pct, discount_amount, total_price, final_price)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for i, item := range sale.Items {
		_, err := db.ExecContext(ctx, itemQuery,
			sale.ID, i, item.ProductID, item.LocationID, item.Quantity,
			item.PricePerUnit.String(), item.TradeScheme,
			item.DiscountPct.String(), item.DiscountAmount.String(),
			item.TotalPrice.String(), item.FinalPrice.String(),
		)
		if err != nil {
			return fmt.Errorf("failed to insert sale item: %w", err)
		}
	}
	return nil
}

func (s *Store) GetSale(ctx context.Context, id ledger.TransactionID) (*ledger.SaleTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSale(ctx, s.db, id)
}

func getSale(ctx context.Context, db execer, id ledger.TransactionID) (*ledger.SaleTransaction, error) {
	sales, err := querySales(ctx, db, "WHERE id = ?", string(id))
	if err != nil || len(sales) == 0 {
		return nil, err
	}
	return &sales[0], nil
}

func (s *Store) ListSales(ctx context.Context) ([]ledger.SaleTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySales(ctx, s.db, "ORDER BY created_at DESC")
}

func querySales(ctx context.Context, db execer, clause string, args ...any) ([]ledger.SaleTransaction, error) {
	query := `
		SELECT id, invoice_number, buyer, sale_date, bill_discount_pct,
		       bill_discount_amount, total_amount, final_amount,
		       payment_received, credit_sale, void
		FROM sales ` + clause

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales: %w", err)
	}
	defer rows.Close()

	var sales []ledger.SaleTransaction
	for rows.Next() {
		var (
			sale                          ledger.SaleTransaction
			buyer                         sql.NullString
			saleDate                      string
			pct, amt, total, final, paid  string
		)
		if err := rows.Scan(&sale.ID, &sale.InvoiceNumber, &buyer, &saleDate,
			&pct, &amt, &total, &final, &paid, &sale.CreditSale, &sale.Void); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sale.Buyer = buyer.String
		sale.SaleDate, _ = time.Parse(time.RFC3339, saleDate)
		sale.BillDiscountPct = mustDecimal(pct)
		sale.BillDiscountAmount = mustDecimal(amt)
		sale.TotalAmount = mustDecimal(total)
		sale.FinalAmount = mustDecimal(final)
		sale.PaymentReceived = mustDecimal(paid)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range sales {
		items, err := saleItems(ctx, db, sales[i].ID)
		if err != nil {
			return nil, err
		}
		sales[i].Items = items
	}
	return sales, nil
}

func saleItems(ctx context.Context, db execer, saleID ledger.TransactionID) ([]ledger.SaleItem, error) {
	query := `
		SELECT product_id, location_id, quantity, price_per_unit, trade_scheme,
		       discount_pct, discount_amount, total_price, final_price
		FROM sale_items
		WHERE sale_id = ?
		ORDER BY line_no ASC
	`
	rows, err := db.QueryContext(ctx, query, string(saleID))
	if err != nil {
		return nil, fmt.Errorf("failed to query sale items: %w", err)
	}
	defer rows.Close()

	var items []ledger.SaleItem
	for rows.Next() {
		var (
			item                          ledger.SaleItem
			scheme                        sql.NullString
			price, pct, amt, total, final string
		)
		if err := rows.Scan(&item.ProductID, &item.LocationID, &item.Quantity,
			&price, &scheme, &pct, &amt, &total, &final); err != nil {
			return nil, fmt.Errorf("failed to scan sale item: %w", err)
		}
		item.PricePerUnit = mustDecimal(price)
		item.TradeScheme = scheme.String
		item.DiscountPct = mustDecimal(pct)
		item.DiscountAmount = mustDecimal(amt)
		item.TotalPrice = mustDecimal(total)
		item.FinalPrice = mustDecimal(final)
		items = append(items, item)
	}
	return items, rows.Err()
}

// =============================================================================
// TRANSFERS
// =============================================================================

func (s *Store) InsertTransfer(ctx context.Context, t ledger.Transfer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertTransfer(ctx, s.db, t)
}

func insertTransfer(ctx context.Context, db execer, t ledger.Transfer) error {
	query := `
		INSERT INTO transfers
		(id, product_id, from_location_id, to_location_id, quantity, transfer_date, void, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		t.ID, t.ProductID, t.FromLocationID, t.ToLocationID, t.Quantity,
		t.TransferDate.UTC().Format(time.RFC3339), t.Void,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transfer: %w", err)
	}
	return nil
}

func (s *Store) GetTransfer(ctx context.Context, id ledger.TransactionID) (*ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransfer(ctx, s.db, id)
}

func getTransfer(ctx context.Context, db execer, id ledger.TransactionID) (*ledger.Transfer, error) {
	var t ledger.Transfer
	var date string
	err := db.QueryRowContext(ctx,
		`SELECT id, product_id, from_location_id, to_location_id, quantity, transfer_date, void
		 FROM transfers WHERE id = ?`, string(id),
	).Scan(&t.ID, &t.ProductID, &t.FromLocationID, &t.ToLocationID, &t.Quantity, &date, &t.Void)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transfer: %w", err)
	}
	t.TransferDate, _ = time.Parse(time.RFC3339, date)
	return &t, nil
}

func (s *Store) ListTransfers(ctx context.Context) ([]ledger.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransfers(ctx, s.db)
}

func listTransfers(ctx context.Context, db execer) ([]ledger.Transfer, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, product_id, from_location_id, to_location_id, quantity, transfer_date, void
		 FROM transfers ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var transfers []ledger.Transfer
	for rows.Next() {
		var t ledger.Transfer
		var date string
		if err := rows.Scan(&t.ID, &t.ProductID, &t.FromLocationID, &t.ToLocationID,
			&t.Quantity, &date, &t.Void); err != nil {
			return nil, err
		}
		t.TransferDate, _ = time.Parse(time.RFC3339, date)
		transfers = append(transfers, t)
	}
	return transfers, rows.Err()
}

// =============================================================================
// PRODUCTIONS
// =============================================================================

func (s *Store) InsertProduction(ctx context.Context, p ledger.ProductionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertProduction(ctx, s.db, p)
}

func insertProduction(ctx context.Context, db execer, p ledger.ProductionRecord) error {
	query := `
		INSERT INTO productions (id, process_name, quantity, production_date, void, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := db.ExecContext(ctx, query,
		p.ID, p.ProcessName, p.Quantity,
		p.ProductionDate.UTC().Format(time.RFC3339), p.Void,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert production: %w", err)
	}
	return nil
}

func (s *Store) GetProduction(ctx context.Context, id ledger.TransactionID) (*ledger.ProductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getProduction(ctx, s.db, id)
}

func getProduction(ctx context.Context, db execer, id ledger.TransactionID) (*ledger.ProductionRecord, error) {
	var p ledger.ProductionRecord
	var date string
	err := db.QueryRowContext(ctx,
		"SELECT id, process_name, quantity, production_date, void FROM productions WHERE id = ?",
		string(id),
	).Scan(&p.ID, &p.ProcessName, &p.Quantity, &date, &p.Void)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get production: %w", err)
	}
	p.ProductionDate, _ = time.Parse(time.RFC3339, date)
	return &p, nil
}

func (s *Store) ListProductions(ctx context.Context) ([]ledger.ProductionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listProductions(ctx, s.db)
}

func listProductions(ctx context.Context, db execer) ([]ledger.ProductionRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, process_name, quantity, production_date, void FROM productions ORDER BY created_at ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.ProductionRecord
	for rows.Next() {
		var p ledger.ProductionRecord
		var date string
		if err := rows.Scan(&p.ID, &p.ProcessName, &p.Quantity, &date, &p.Void); err != nil {
			return nil, err
		}
		p.ProductionDate, _ = time.Parse(time.RFC3339, date)
		records = append(records, p)
	}
	return records, rows.Err()
}

// =============================================================================
// WASTAGES
// =============================================================================

func (s *Store) InsertWastage(ctx context.Context, w ledger.WastageRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertWastage(ctx, s.db, w)
}

func insertWastage(ctx context.Context, db execer, w ledger.WastageRecord) error {
	query := `
		INSERT INTO wastages (id, product_id, location_id, quantity, wastage_date, reason, void, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var locationID any
	if w.LocationID != nil {
		locationID = string(*w.LocationID)
	}
	_, err := db.ExecContext(ctx, query,
		w.ID, w.ProductID, locationID, w.Quantity,
		w.WastageDate.UTC().Format(time.RFC3339), w.Reason, w.Void,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wastage: %w", err)
	}
	return nil
}

func (s *Store) GetWastage(ctx context.Context, id ledger.TransactionID) (*ledger.WastageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWastage(ctx, s.db, id)
}

func getWastage(ctx context.Context, db execer, id ledger.TransactionID) (*ledger.WastageRecord, error) {
	var (
		w          ledger.WastageRecord
		locationID sql.NullString
		date       string
		reason     sql.NullString
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, product_id, location_id, quantity, wastage_date, reason, void FROM wastages WHERE id = ?",
		string(id),
	).Scan(&w.ID, &w.ProductID, &locationID, &w.Quantity, &date, &reason, &w.Void)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get wastage: %w", err)
	}
	if locationID.Valid {
		loc := ledger.LocationID(locationID.String)
		w.LocationID = &loc
	}
	w.WastageDate, _ = time.Parse(time.RFC3339, date)
	w.Reason = reason.String
	return &w, nil
}

func (s *Store) ListWastages(ctx context.Context) ([]ledger.WastageRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listWastages(ctx, s.db)
}

func listWastages(ctx context.Context, db execer) ([]ledger.WastageRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, product_id, location_id, quantity, wastage_date, reason, void FROM wastages ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.WastageRecord
	for rows.Next() {
		var (
			w          ledger.WastageRecord
			locationID sql.NullString
			date       string
			reason     sql.NullString
		)
		if err := rows.Scan(&w.ID, &w.ProductID, &locationID, &w.Quantity, &date, &reason, &w.Void); err != nil {
			return nil, err
		}
		if locationID.Valid {
			loc := ledger.LocationID(locationID.String)
			w.LocationID = &loc
		}
		w.WastageDate, _ = time.Parse(time.RFC3339, date)
		w.Reason = reason.String
		records = append(records, w)
	}
	return records, rows.Err()
}

// =============================================================================
// PURCHASES
// =============================================================================

func (s *Store) InsertPurchase(ctx context.Context, p ledger.PurchaseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return insertPurchase(ctx, s.db, p)
}

func insertPurchase(ctx context.Context, db execer, p ledger.PurchaseRecord) error {
	query := `
		INSERT INTO purchases (id, product_id, location_id, quantity, purchase_date, notes, void, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	var locationID any
	if p.LocationID != nil {
		locationID = string(*p.LocationID)
	}
	_, err := db.ExecContext(ctx, query,
		p.ID, p.ProductID, locationID, p.Quantity,
		p.PurchaseDate.UTC().Format(time.RFC3339), p.Notes, p.Void,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert purchase: %w", err)
	}
	return nil
}

func (s *Store) GetPurchase(ctx context.Context, id ledger.TransactionID) (*ledger.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPurchase(ctx, s.db, id)
}

func getPurchase(ctx context.Context, db execer, id ledger.TransactionID) (*ledger.PurchaseRecord, error) {
	var (
		p          ledger.PurchaseRecord
		locationID sql.NullString
		date       string
		notes      sql.NullString
	)
	err := db.QueryRowContext(ctx,
		"SELECT id, product_id, location_id, quantity, purchase_date, notes, void FROM purchases WHERE id = ?",
		string(id),
	).Scan(&p.ID, &p.ProductID, &locationID, &p.Quantity, &date, &notes, &p.Void)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase: %w", err)
	}
	if locationID.Valid {
		loc := ledger.LocationID(locationID.String)
		p.LocationID = &loc
	}
	p.PurchaseDate, _ = time.Parse(time.RFC3339, date)
	p.Notes = notes.String
	return &p, nil
}

func (s *Store) ListPurchases(ctx context.Context) ([]ledger.PurchaseRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPurchases(ctx, s.db)
}

func listPurchases(ctx context.Context, db execer) ([]ledger.PurchaseRecord, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT id, product_id, location_id, quantity, purchase_date, notes, void FROM purchases ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ledger.PurchaseRecord
	for rows.Next() {
		var (
			p          ledger.PurchaseRecord
			locationID sql.NullString
			date       string
			notes      sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.ProductID, &locationID, &p.Quantity, &date, &notes, &p.Void); err != nil {
			return nil, err
		}
		if locationID.Valid {
			loc := ledger.LocationID(locationID.String)
			p.LocationID = &loc
		}
		p.PurchaseDate, _ = time.Parse(time.RFC3339, date)
		p.Notes = notes.String
		records = append(records, p)
	}
	return records, rows.Err()
}

// =============================================================================
// VOID FLAG
// =============================================================================

var voidTables = map[ledger.TransactionKind]string{
	ledger.KindSale:       "sales",
	ledger.KindTransfer:   "transfers",
	ledger.KindProduction: "productions",
	ledger.KindWastage:    "wastages",
	ledger.KindPurchase:   "purchases",
}

func (s *Store) MarkVoid(ctx context.Context, kind ledger.TransactionKind, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markVoid(ctx, s.db, kind, id)
}

func markVoid(ctx context.Context, db execer, kind ledger.TransactionKind, id ledger.TransactionID) error {
	table, ok := voidTables[kind]
	if !ok {
		return &ledger.ValidationError{Field: "type", Message: fmt.Sprintf("unknown transaction type %q", kind)}
	}

	res, err := db.ExecContext(ctx, "UPDATE "+table+" SET void = TRUE WHERE id = ?", string(id))
	if err != nil {
		return fmt.Errorf("failed to mark %s void: %w", kind, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &ledger.NotFoundError{Kind: "transaction", Ref: string(id)}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes a function within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("%w: commit failed: %v", ledger.ErrPersistence, err)
	}
	return nil
}

// txStore routes every Store call through the open SQL transaction. The
// outer WithTx holds the mutex, so no additional locking here.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SaveProduct(ctx context.Context, p ledger.Product) error {
	return saveProduct(ctx, ts.tx, p)
}

func (ts *txStore) GetProduct(ctx context.Context, id ledger.ProductID) (*ledger.Product, error) {
	return getProduct(ctx, ts.tx, "id = ?", string(id))
}

func (ts *txStore) GetProductByName(ctx context.Context, name string) (*ledger.Product, error) {
	return getProduct(ctx, ts.tx, "name = ?", name)
}

func (ts *txStore) ListProducts(ctx context.Context) ([]ledger.Product, error) {
	return listProducts(ctx, ts.tx)
}

func (ts *txStore) SaveLocation(ctx context.Context, l ledger.Location) error {
	return saveLocation(ctx, ts.tx, l)
}

func (ts *txStore) GetLocation(ctx context.Context, id ledger.LocationID) (*ledger.Location, error) {
	return getLocation(ctx, ts.tx, id)
}

func (ts *txStore) ListLocations(ctx context.Context) ([]ledger.Location, error) {
	return listLocations(ctx, ts.tx)
}

func (ts *txStore) GetLocationStock(ctx context.Context, productID ledger.ProductID, locationID ledger.LocationID) (int64, error) {
	return getLocationStock(ctx, ts.tx, productID, locationID)
}

func (ts *txStore) AdjustProductQuantity(ctx context.Context, productID ledger.ProductID, delta int64) error {
	return adjustProductQuantity(ctx, ts.tx, productID, delta)
}

func (ts *txStore) AdjustLocationStock(ctx context.Context, productID ledger.ProductID, locationID ledger.LocationID, delta int64) error {
	return adjustLocationStock(ctx, ts.tx, productID, locationID, delta)
}

func (ts *txStore) AppendMovement(ctx context.Context, m ledger.Movement) error {
	return appendMovement(ctx, ts.tx, m)
}

func (ts *txStore) MovementsByTransaction(ctx context.Context, txID ledger.TransactionID) ([]ledger.Movement, error) {
	return movementsByTransaction(ctx, ts.tx, txID)
}

func (ts *txStore) MovementsByProduct(ctx context.Context, productID ledger.ProductID, locationID *ledger.LocationID) ([]ledger.Movement, error) {
	return movementsByProduct(ctx, ts.tx, productID, locationID)
}

func (ts *txStore) InsertSale(ctx context.Context, sale ledger.SaleTransaction) error {
	return insertSale(ctx, ts.tx, sale)
}

func (ts *txStore) GetSale(ctx context.Context, id ledger.TransactionID) (*ledger.SaleTransaction, error) {
	return getSale(ctx, ts.tx, id)
}

func (ts *txStore) ListSales(ctx context.Context) ([]ledger.SaleTransaction, error) {
	return querySales(ctx, ts.tx, "ORDER BY created_at DESC")
}

func (ts *txStore) InsertTransfer(ctx context.Context, t ledger.Transfer) error {
	return insertTransfer(ctx, ts.tx, t)
}

func (ts *txStore) GetTransfer(ctx context.Context, id ledger.TransactionID) (*ledger.Transfer, error) {
	return getTransfer(ctx, ts.tx, id)
}

func (ts *txStore) ListTransfers(ctx context.Context) ([]ledger.Transfer, error) {
	return listTransfers(ctx, ts.tx)
}

func (ts *txStore) InsertProduction(ctx context.Context, p ledger.ProductionRecord) error {
	return insertProduction(ctx, ts.tx, p)
}

func (ts *txStore) GetProduction(ctx context.Context, id ledger.TransactionID) (*ledger.ProductionRecord, error) {
	return getProduction(ctx, ts.tx, id)
}

func (ts *txStore) ListProductions(ctx context.Context) ([]ledger.ProductionRecord, error) {
	return listProductions(ctx, ts.tx)
}

func (ts *txStore) InsertWastage(ctx context.Context, w ledger.WastageRecord) error {
	return insertWastage(ctx, ts.tx, w)
}

func (ts *txStore) GetWastage(ctx context.Context, id ledger.TransactionID) (*ledger.WastageRecord, error) {
	return getWastage(ctx, ts.tx, id)
}

func (ts *txStore) ListWastages(ctx context.Context) ([]ledger.WastageRecord, error) {
	return listWastages(ctx, ts.tx)
}

func (ts *txStore) InsertPurchase(ctx context.Context, p ledger.PurchaseRecord) error {
	return insertPurchase(ctx, ts.tx, p)
}

func (ts *txStore) GetPurchase(ctx context.Context, id ledger.TransactionID) (*ledger.PurchaseRecord, error) {
	return getPurchase(ctx, ts.tx, id)
}

func (ts *txStore) ListPurchases(ctx context.Context) ([]ledger.PurchaseRecord, error) {
	return listPurchases(ctx, ts.tx)
}

func (ts *txStore) MarkVoid(ctx context.Context, kind ledger.TransactionKind, id ledger.TransactionID) error {
	return markVoid(ctx, ts.tx, kind, id)
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"movements", "sale_items", "sales", "transfers",
		"productions", "wastages", "purchases", "location_stock", "products", "locations"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
