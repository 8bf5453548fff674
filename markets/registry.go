package markets

import (
	"errors"
	"strings"

	"github.com/defistate/lending-console-go/protocols/blend"
)

// Registry provides indexed access to a set of markets.
type Registry struct {
	byID map[blend.PoolID]Market
	all  []Market
}

// NewRegistry indexes markets. Later duplicates of an id replace earlier ones
// in the index but keep the first position in All.
func NewRegistry(markets []Market) *Registry {
	byID := make(map[blend.PoolID]Market, len(markets))
	all := make([]Market, 0, len(markets))
	pos := make(map[blend.PoolID]int, len(markets))

	for _, m := range markets {
		if i, ok := pos[m.ID]; ok {
			all[i] = m
		} else {
			pos[m.ID] = len(all)
			all = append(all, m)
		}
		byID[m.ID] = m
	}

	return &Registry{byID: byID, all: all}
}

// Get retrieves a market by its pool id.
func (r *Registry) Get(id blend.PoolID) (Market, bool) {
	m, ok := r.byID[id]
	return m, ok
}

// Len returns the number of markets.
func (r *Registry) Len() int { return len(r.all) }

// All returns a copy of every market in registration order.
func (r *Registry) All() []Market {
	out := make([]Market, len(r.all))
	copy(out, r.all)
	return out
}

// Search returns the markets whose name contains term, ignoring case.
// Inactive markets are left out unless includeInactive is set.
func (r *Registry) Search(term string, includeInactive bool) []Market {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []Market
	for _, m := range r.all {
		if !m.Active && !includeInactive {
			continue
		}
		if term != "" && !strings.Contains(strings.ToLower(m.Name), term) {
			continue
		}
		out = append(out, m)
	}
	return out
}

// Update returns a new registry with m replacing the market of the same id.
// The receiver is not modified.
func (r *Registry) Update(m Market) *Registry {
	return NewRegistry(append(r.All(), m))
}

// --- Compare selection ---

// MaxSelection is the number of markets that can be compared at once.
const MaxSelection = 3

var ErrSelectionFull = errors.New("markets: selection is full")

// Selection is the ordered set of markets picked for comparison.
type Selection struct {
	ids []blend.PoolID
}

// Toggle adds id when absent and removes it when present. It reports whether
// id is selected afterwards; adding to a full selection returns
// ErrSelectionFull and leaves it unchanged.
func (s *Selection) Toggle(id blend.PoolID) (bool, error) {
	for i, cur := range s.ids {
		if cur == id {
			s.ids = append(s.ids[:i:i], s.ids[i+1:]...)
			return false, nil
		}
	}
	if len(s.ids) >= MaxSelection {
		return false, ErrSelectionFull
	}
	s.ids = append(s.ids, id)
	return true, nil
}

// Contains reports whether id is selected.
func (s *Selection) Contains(id blend.PoolID) bool {
	for _, cur := range s.ids {
		if cur == id {
			return true
		}
	}
	return false
}

// IDs returns the selection in pick order.
func (s *Selection) IDs() []blend.PoolID {
	out := make([]blend.PoolID, len(s.ids))
	copy(out, s.ids)
	return out
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Full() bool { return len(s.ids) >= MaxSelection }

func (s *Selection) Clear() { s.ids = nil }

// Resolve looks the selected markets up in r, in pick order. Ids no longer in
// r are skipped.
func (s *Selection) Resolve(r *Registry) []Market {
	out := make([]Market, 0, len(s.ids))
	for _, id := range s.ids {
		if m, ok := r.Get(id); ok {
			out = append(out, m)
		}
	}
	return out
}
