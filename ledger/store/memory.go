// Package store provides Store implementations.
package store

import (
	"context"
	"sync"

	"github.com/nikkanikki/inventory-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu sync.RWMutex

	products  map[ledger.ProductID]ledger.Product
	locations map[ledger.LocationID]ledger.Location
	stock     map[stockKey]int64

	movements []ledger.Movement

	sales       map[ledger.TransactionID]ledger.SaleTransaction
	transfers   map[ledger.TransactionID]ledger.Transfer
	productions map[ledger.TransactionID]ledger.ProductionRecord
	wastages    map[ledger.TransactionID]ledger.WastageRecord
	purchases   map[ledger.TransactionID]ledger.PurchaseRecord

	order []ledger.TransactionID // header insertion order, for List methods
}

type stockKey struct {
	ProductID  ledger.ProductID
	LocationID ledger.LocationID
}

func NewMemory() *Memory {
	return &Memory{
		products:    make(map[ledger.ProductID]ledger.Product),
		locations:   make(map[ledger.LocationID]ledger.Location),
		stock:       make(map[stockKey]int64),
		sales:       make(map[ledger.TransactionID]ledger.SaleTransaction),
		transfers:   make(map[ledger.TransactionID]ledger.Transfer),
		productions: make(map[ledger.TransactionID]ledger.ProductionRecord),
		wastages:    make(map[ledger.TransactionID]ledger.WastageRecord),
		purchases:   make(map[ledger.TransactionID]ledger.PurchaseRecord),
	}
}

// =============================================================================
// CATALOGUE
// =============================================================================

func (m *Memory) SaveProduct(_ context.Context, p ledger.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *Memory) GetProduct(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) GetProductByName(_ context.Context, name string) (*ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, p := range m.products {
		if p.Name == name {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]ledger.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, p)
	}
	return out, nil
}

func (m *Memory) SaveLocation(_ context.Context, l ledger.Location) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locations[l.ID] = l
	return nil
}

func (m *Memory) GetLocation(_ context.Context, id ledger.LocationID) (*ledger.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (m *Memory) ListLocations(_ context.Context) ([]ledger.Location, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]ledger.Location, 0, len(m.locations))
	for _, l := range m.locations {
		out = append(out, l)
	}
	return out, nil
}

// =============================================================================
// STOCK
// =============================================================================

func (m *Memory) GetLocationStock(_ context.Context, productID ledger.ProductID, locationID ledger.LocationID) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.stock[stockKey{productID, locationID}], nil
}

func (m *Memory) AdjustProductQuantity(_ context.Context, productID ledger.ProductID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustProductLocked(productID, delta)
}

func (m *Memory) adjustProductLocked(productID ledger.ProductID, delta int64) error {
	p, ok := m.products[productID]
	if !ok {
		return &ledger.NotFoundError{Kind: "product", Ref: string(productID)}
	}
	if p.Quantity+delta < 0 {
		return &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
			ProductID: productID,
			Product:   p.Name,
			Stage:     p.Stage,
			Required:  -delta,
			Available: p.Quantity,
		}}}
	}
	p.Quantity += delta
	m.products[productID] = p
	return nil
}

func (m *Memory) AdjustLocationStock(_ context.Context, productID ledger.ProductID, locationID ledger.LocationID, delta int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustStockLocked(productID, locationID, delta)
}

func (m *Memory) adjustStockLocked(productID ledger.ProductID, locationID ledger.LocationID, delta int64) error {
	k := stockKey{productID, locationID}
	current := m.stock[k]
	if current+delta < 0 {
		var name string
		var stage ledger.Stage
		if p, ok := m.products[productID]; ok {
			name, stage = p.Name, p.Stage
		}
		var locName string
		if l, ok := m.locations[locationID]; ok {
			locName = l.Name
		}
		loc := locationID
		return &ledger.InsufficientStockError{Shortfalls: []ledger.Shortfall{{
			ProductID:  productID,
			Product:    name,
			Stage:      stage,
			LocationID: &loc,
			Location:   locName,
			Required:   -delta,
			Available:  current,
		}}}
	}
	m.stock[k] = current + delta
	return nil
}

// =============================================================================
// MOVEMENTS (append-only)
// =============================================================================

func (m *Memory) AppendMovement(_ context.Context, mv ledger.Movement) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.movements = append(m.movements, mv)
	return nil
}

func (m *Memory) MovementsByTransaction(_ context.Context, txID ledger.TransactionID) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Movement
	for _, mv := range m.movements {
		if mv.SourceTransaction == txID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (m *Memory) MovementsByProduct(_ context.Context, productID ledger.ProductID, locationID *ledger.LocationID) ([]ledger.Movement, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Movement
	// Walk backwards: newest first.
	for i := len(m.movements) - 1; i >= 0; i-- {
		mv := m.movements[i]
		if mv.ProductID != productID {
			continue
		}
		if locationID != nil && (mv.LocationID == nil || *mv.LocationID != *locationID) {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

// =============================================================================
// TRANSACTION HEADERS
// =============================================================================

func (m *Memory) InsertSale(_ context.Context, s ledger.SaleTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sales[s.ID] = s
	m.order = append(m.order, s.ID)
	return nil
}

func (m *Memory) GetSale(_ context.Context, id ledger.TransactionID) (*ledger.SaleTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sales[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) ListSales(_ context.Context) ([]ledger.SaleTransaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.SaleTransaction
	for _, id := range m.order {
		if s, ok := m.sales[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *Memory) InsertTransfer(_ context.Context, t ledger.Transfer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transfers[t.ID] = t
	m.order = append(m.order, t.ID)
	return nil
}

func (m *Memory) GetTransfer(_ context.Context, id ledger.TransactionID) (*ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.transfers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (m *Memory) ListTransfers(_ context.Context) ([]ledger.Transfer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.Transfer
	for _, id := range m.order {
		if t, ok := m.transfers[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Memory) InsertProduction(_ context.Context, p ledger.ProductionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.productions[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *Memory) GetProduction(_ context.Context, id ledger.TransactionID) (*ledger.ProductionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.productions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListProductions(_ context.Context) ([]ledger.ProductionRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.ProductionRecord
	for _, id := range m.order {
		if p, ok := m.productions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) InsertWastage(_ context.Context, w ledger.WastageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wastages[w.ID] = w
	m.order = append(m.order, w.ID)
	return nil
}

func (m *Memory) GetWastage(_ context.Context, id ledger.TransactionID) (*ledger.WastageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	w, ok := m.wastages[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (m *Memory) ListWastages(_ context.Context) ([]ledger.WastageRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.WastageRecord
	for _, id := range m.order {
		if w, ok := m.wastages[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (m *Memory) InsertPurchase(_ context.Context, p ledger.PurchaseRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purchases[p.ID] = p
	m.order = append(m.order, p.ID)
	return nil
}

func (m *Memory) GetPurchase(_ context.Context, id ledger.TransactionID) (*ledger.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.purchases[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *Memory) ListPurchases(_ context.Context) ([]ledger.PurchaseRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []ledger.PurchaseRecord
	for _, id := range m.order {
		if p, ok := m.purchases[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Memory) MarkVoid(_ context.Context, kind ledger.TransactionKind, id ledger.TransactionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.markVoidLocked(kind, id)
}

func (m *Memory) markVoidLocked(kind ledger.TransactionKind, id ledger.TransactionID) error {
	switch kind {
	case ledger.KindSale:
		if s, ok := m.sales[id]; ok {
			s.Void = true
			m.sales[id] = s
			return nil
		}
	case ledger.KindTransfer:
		if t, ok := m.transfers[id]; ok {
			t.Void = true
			m.transfers[id] = t
			return nil
		}
	case ledger.KindProduction:
		if p, ok := m.productions[id]; ok {
			p.Void = true
			m.productions[id] = p
			return nil
		}
	case ledger.KindWastage:
		if w, ok := m.wastages[id]; ok {
			w.Void = true
			m.wastages[id] = w
			return nil
		}
	case ledger.KindPurchase:
		if p, ok := m.purchases[id]; ok {
			p.Void = true
			m.purchases[id] = p
			return nil
		}
	}
	return &ledger.NotFoundError{Kind: "transaction", Ref: string(id)}
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction.
// For the memory store this is simulated with a snapshot + rollback on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snap := tm.snapshot()
	view := &txMemoryView{parent: tm}
	if err := fn(view); err != nil {
		tm.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	products    map[ledger.ProductID]ledger.Product
	locations   map[ledger.LocationID]ledger.Location
	stock       map[stockKey]int64
	movements   []ledger.Movement
	sales       map[ledger.TransactionID]ledger.SaleTransaction
	transfers   map[ledger.TransactionID]ledger.Transfer
	productions map[ledger.TransactionID]ledger.ProductionRecord
	wastages    map[ledger.TransactionID]ledger.WastageRecord
	purchases   map[ledger.TransactionID]ledger.PurchaseRecord
	order       []ledger.TransactionID
}

func (tm *TxMemory) snapshot() memorySnapshot {
	return memorySnapshot{
		products:    copyMap(tm.products),
		locations:   copyMap(tm.locations),
		stock:       copyMap(tm.stock),
		movements:   append([]ledger.Movement{}, tm.movements...),
		sales:       copyMap(tm.sales),
		transfers:   copyMap(tm.transfers),
		productions: copyMap(tm.productions),
		wastages:    copyMap(tm.wastages),
		purchases:   copyMap(tm.purchases),
		order:       append([]ledger.TransactionID{}, tm.order...),
	}
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.products = s.products
	tm.locations = s.locations
	tm.stock = s.stock
	tm.movements = s.movements
	tm.sales = s.sales
	tm.transfers = s.transfers
	tm.productions = s.productions
	tm.wastages = s.wastages
	tm.purchases = s.purchases
	tm.order = s.order
}

func copyMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// txMemoryView performs writes directly against the parent, which already
// holds the lock; rollback restores the snapshot.
type txMemoryView struct {
	parent *TxMemory
}

func (tv *txMemoryView) SaveProduct(_ context.Context, p ledger.Product) error {
	tv.parent.products[p.ID] = p
	return nil
}

func (tv *txMemoryView) GetProduct(_ context.Context, id ledger.ProductID) (*ledger.Product, error) {
	p, ok := tv.parent.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tv *txMemoryView) GetProductByName(_ context.Context, name string) (*ledger.Product, error) {
	for _, p := range tv.parent.products {
		if p.Name == name {
			p := p
			return &p, nil
		}
	}
	return nil, nil
}

func (tv *txMemoryView) ListProducts(_ context.Context) ([]ledger.Product, error) {
	out := make([]ledger.Product, 0, len(tv.parent.products))
	for _, p := range tv.parent.products {
		out = append(out, p)
	}
	return out, nil
}

func (tv *txMemoryView) SaveLocation(_ context.Context, l ledger.Location) error {
	tv.parent.locations[l.ID] = l
	return nil
}

func (tv *txMemoryView) GetLocation(_ context.Context, id ledger.LocationID) (*ledger.Location, error) {
	l, ok := tv.parent.locations[id]
	if !ok {
		return nil, nil
	}
	return &l, nil
}

func (tv *txMemoryView) ListLocations(_ context.Context) ([]ledger.Location, error) {
	out := make([]ledger.Location, 0, len(tv.parent.locations))
	for _, l := range tv.parent.locations {
		out = append(out, l)
	}
	return out, nil
}

func (tv *txMemoryView) GetLocationStock(_ context.Context, productID ledger.ProductID, locationID ledger.LocationID) (int64, error) {
	return tv.parent.stock[stockKey{productID, locationID}], nil
}

func (tv *txMemoryView) AdjustProductQuantity(_ context.Context, productID ledger.ProductID, delta int64) error {
	return tv.parent.adjustProductLocked(productID, delta)
}

func (tv *txMemoryView) AdjustLocationStock(_ context.Context, productID ledger.ProductID, locationID ledger.LocationID, delta int64) error {
	return tv.parent.adjustStockLocked(productID, locationID, delta)
}

func (tv *txMemoryView) AppendMovement(_ context.Context, mv ledger.Movement) error {
	tv.parent.movements = append(tv.parent.movements, mv)
	return nil
}

func (tv *txMemoryView) MovementsByTransaction(ctx context.Context, txID ledger.TransactionID) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for _, mv := range tv.parent.movements {
		if mv.SourceTransaction == txID {
			out = append(out, mv)
		}
	}
	return out, nil
}

func (tv *txMemoryView) MovementsByProduct(ctx context.Context, productID ledger.ProductID, locationID *ledger.LocationID) ([]ledger.Movement, error) {
	var out []ledger.Movement
	for i := len(tv.parent.movements) - 1; i >= 0; i-- {
		mv := tv.parent.movements[i]
		if mv.ProductID != productID {
			continue
		}
		if locationID != nil && (mv.LocationID == nil || *mv.LocationID != *locationID) {
			continue
		}
		out = append(out, mv)
	}
	return out, nil
}

func (tv *txMemoryView) InsertSale(_ context.Context, s ledger.SaleTransaction) error {
	tv.parent.sales[s.ID] = s
	tv.parent.order = append(tv.parent.order, s.ID)
	return nil
}

func (tv *txMemoryView) GetSale(_ context.Context, id ledger.TransactionID) (*ledger.SaleTransaction, error) {
	s, ok := tv.parent.sales[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (tv *txMemoryView) ListSales(ctx context.Context) ([]ledger.SaleTransaction, error) {
	var out []ledger.SaleTransaction
	for _, id := range tv.parent.order {
		if s, ok := tv.parent.sales[id]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}

func (tv *txMemoryView) InsertTransfer(_ context.Context, t ledger.Transfer) error {
	tv.parent.transfers[t.ID] = t
	tv.parent.order = append(tv.parent.order, t.ID)
	return nil
}

func (tv *txMemoryView) GetTransfer(_ context.Context, id ledger.TransactionID) (*ledger.Transfer, error) {
	t, ok := tv.parent.transfers[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (tv *txMemoryView) ListTransfers(ctx context.Context) ([]ledger.Transfer, error) {
	var out []ledger.Transfer
	for _, id := range tv.parent.order {
		if t, ok := tv.parent.transfers[id]; ok {
			out = append(out, t)
		}
	}
	return out, nil
}

func (tv *txMemoryView) InsertProduction(_ context.Context, p ledger.ProductionRecord) error {
	tv.parent.productions[p.ID] = p
	tv.parent.order = append(tv.parent.order, p.ID)
	return nil
}

func (tv *txMemoryView) GetProduction(_ context.Context, id ledger.TransactionID) (*ledger.ProductionRecord, error) {
	p, ok := tv.parent.productions[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tv *txMemoryView) ListProductions(ctx context.Context) ([]ledger.ProductionRecord, error) {
	var out []ledger.ProductionRecord
	for _, id := range tv.parent.order {
		if p, ok := tv.parent.productions[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (tv *txMemoryView) InsertWastage(_ context.Context, w ledger.WastageRecord) error {
	tv.parent.wastages[w.ID] = w
	tv.parent.order = append(tv.parent.order, w.ID)
	return nil
}

func (tv *txMemoryView) GetWastage(_ context.Context, id ledger.TransactionID) (*ledger.WastageRecord, error) {
	w, ok := tv.parent.wastages[id]
	if !ok {
		return nil, nil
	}
	return &w, nil
}

func (tv *txMemoryView) ListWastages(ctx context.Context) ([]ledger.WastageRecord, error) {
	var out []ledger.WastageRecord
	for _, id := range tv.parent.order {
		if w, ok := tv.parent.wastages[id]; ok {
			out = append(out, w)
		}
	}
	return out, nil
}

func (tv *txMemoryView) InsertPurchase(_ context.Context, p ledger.PurchaseRecord) error {
	tv.parent.purchases[p.ID] = p
	tv.parent.order = append(tv.parent.order, p.ID)
	return nil
}

func (tv *txMemoryView) GetPurchase(_ context.Context, id ledger.TransactionID) (*ledger.PurchaseRecord, error) {
	p, ok := tv.parent.purchases[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (tv *txMemoryView) ListPurchases(ctx context.Context) ([]ledger.PurchaseRecord, error) {
	var out []ledger.PurchaseRecord
	for _, id := range tv.parent.order {
		if p, ok := tv.parent.purchases[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (tv *txMemoryView) MarkVoid(_ context.Context, kind ledger.TransactionKind, id ledger.TransactionID) error {
	return tv.parent.markVoidLocked(kind, id)
}
