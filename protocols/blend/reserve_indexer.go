package blend

import "strings"

// Indexer builds indexed views over a pool's reserves.
type Indexer struct{}

// NewIndexer creates a new Indexer.
func NewIndexer() *Indexer {
	return &Indexer{}
}

// Index creates an indexed reserve set from a raw slice of reserves.
func (i *Indexer) Index(reserves []Reserve) *IndexableReserves {
	return NewIndexableReserves(reserves)
}

// IndexableReserves provides fast, indexed access to a pool's reserves.
type IndexableReserves struct {
	byAsset  map[string]Reserve
	bySymbol map[string]Reserve
	all      []Reserve
}

// NewIndexableReserves creates a new indexed reserve set from a raw slice.
// Symbols are matched case-insensitively; on duplicates the first reserve wins.
func NewIndexableReserves(reserves []Reserve) *IndexableReserves {
	byAsset := make(map[string]Reserve, len(reserves))
	bySymbol := make(map[string]Reserve, len(reserves))

	for _, r := range reserves {
		byAsset[r.AssetID] = r
		sym := strings.ToUpper(r.Symbol)
		if _, dup := bySymbol[sym]; !dup {
			bySymbol[sym] = r
		}
	}

	return &IndexableReserves{
		byAsset:  byAsset,
		bySymbol: bySymbol,
		all:      reserves,
	}
}

// GetByAsset retrieves a reserve by its asset contract id.
func (ir *IndexableReserves) GetByAsset(assetID string) (Reserve, bool) {
	r, ok := ir.byAsset[assetID]
	return r, ok
}

// GetBySymbol retrieves a reserve by its token symbol.
func (ir *IndexableReserves) GetBySymbol(symbol string) (Reserve, bool) {
	r, ok := ir.bySymbol[strings.ToUpper(symbol)]
	return r, ok
}

// Len returns the number of reserves.
func (ir *IndexableReserves) Len() int {
	return len(ir.all)
}

// All returns a defensive copy of the slice of all reserves in the pool.
func (ir *IndexableReserves) All() []Reserve {
	allCopy := make([]Reserve, len(ir.all))
	copy(allCopy, ir.all)
	return allCopy
}
