package symbols

import (
	"sort"
	"strings"

	"fundingflow/internal/models"
)

// Table maps venue identifiers to canonical assets and back. K is the
// venue's native identifier type: a ticker string for name-based venues or
// a numeric market index for id-based ones. Tables are static and partial;
// a failed lookup means "ignore this message", never an error.
type Table[K comparable] struct {
	toAsset map[K]models.Asset
	toVenue map[models.Asset]K
	norm    func(K) K
}

// NewTable builds a table from asset -> venue identifier pairs.
func NewTable[K comparable](entries map[models.Asset]K) *Table[K] {
	t := &Table[K]{
		toAsset: make(map[K]models.Asset, len(entries)),
		toVenue: make(map[models.Asset]K, len(entries)),
	}
	for asset, id := range entries {
		t.toAsset[id] = asset
		t.toVenue[asset] = id
	}
	return t
}

// NewNameTable builds a case-insensitive ticker table. Aliases are extra
// venue spellings that resolve to an asset but are never used when
// subscribing.
func NewNameTable(entries map[models.Asset]string, aliases map[string]models.Asset) *Table[string] {
	norm := func(s string) string { return strings.ToUpper(strings.TrimSpace(s)) }
	t := &Table[string]{
		toAsset: make(map[string]models.Asset, len(entries)+len(aliases)),
		toVenue: make(map[models.Asset]string, len(entries)),
		norm:    norm,
	}
	for alias, asset := range aliases {
		t.toAsset[norm(alias)] = asset
	}
	for asset, id := range entries {
		t.toAsset[norm(id)] = asset
		t.toVenue[asset] = id
	}
	return t
}

// Asset resolves a venue identifier to its canonical asset.
func (t *Table[K]) Asset(id K) (models.Asset, bool) {
	if t == nil {
		return "", false
	}
	if t.norm != nil {
		id = t.norm(id)
	}
	a, ok := t.toAsset[id]
	return a, ok
}

// Identifier resolves a canonical asset to the venue identifier used in
// subscription messages.
func (t *Table[K]) Identifier(asset models.Asset) (K, bool) {
	var zero K
	if t == nil {
		return zero, false
	}
	id, ok := t.toVenue[asset]
	if !ok {
		return zero, false
	}
	return id, true
}

// Identifiers returns every mapped venue identifier in canonical asset order.
func (t *Table[K]) Identifiers() []K {
	if t == nil {
		return nil
	}
	assets := make([]models.Asset, 0, len(t.toVenue))
	for a := range t.toVenue {
		assets = append(assets, a)
	}
	sort.Slice(assets, func(i, j int) bool { return assets[i].Rank() < assets[j].Rank() })

	out := make([]K, 0, len(assets))
	for _, a := range assets {
		out = append(out, t.toVenue[a])
	}
	return out
}

// Len reports how many assets the venue trades.
func (t *Table[K]) Len() int {
	if t == nil {
		return 0
	}
	return len(t.toVenue)
}
