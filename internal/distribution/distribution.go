// Package distribution computes the proportional share each sales
// substream (domestic, import, export) should receive of a virgin-material
// total, based on each substream's current volume. It mirrors the
// driver-proportional allocation pattern used elsewhere in this codebase
// for distributing a total across named buckets.
package distribution

import (
	"github.com/shopspring/decimal"

	"github.com/example/refsim/internal/quantity"
	"github.com/example/refsim/internal/stream"
)

// Shares holds the fraction of virgin material each substream receives.
// The three fractions sum to 1 whenever at least one substream is enabled.
type Shares struct {
	Domestic decimal.Decimal
	Import   decimal.Decimal
	Export   decimal.Decimal
}

// Source supplies the current volume and enablement state a Distribute
// call needs, without requiring a direct dependency on *stream.Store (so
// the function stays testable with a plain map-backed fake).
type Source interface {
	SubstreamEnabled(sub stream.Substream) bool
	SubstreamVolume(sub stream.Substream) quantity.Quantity
}

// storeSource adapts a *stream.Store and use-key into a Source.
type storeSource struct {
	store *stream.Store
	key   stream.UseKey
}

func (s storeSource) SubstreamEnabled(sub stream.Substream) bool {
	return s.store.IsEnabled(s.key, sub)
}

func (s storeSource) SubstreamVolume(sub stream.Substream) quantity.Quantity {
	q, err := s.store.Get(s.key, stream.Name(sub))
	if err != nil {
		return quantity.Zero("kg")
	}
	return q
}

// FromStore builds a Source over a store and use-key.
func FromStore(store *stream.Store, key stream.UseKey) Source {
	return storeSource{store: store, key: key}
}

// Distribute computes (pct_domestic, pct_import, pct_export): proportional
// to each enabled substream's current absolute volume, falling back to 1/n
// across enabled substreams when all are zero, and zero for disabled
// substreams.
func Distribute(src Source) Shares {
	enabled := make(map[stream.Substream]bool, len(stream.AllSubstreams))
	total := decimal.Zero
	count := 0
	for _, sub := range stream.AllSubstreams {
		if !src.SubstreamEnabled(sub) {
			continue
		}
		enabled[sub] = true
		count++
		total = total.Add(src.SubstreamVolume(sub).Value.Abs())
	}

	shares := Shares{Domestic: decimal.Zero, Import: decimal.Zero, Export: decimal.Zero}
	if count == 0 {
		return shares
	}

	equal := decimal.NewFromInt(1).DivRound(decimal.NewFromInt(int64(count)), quantity.DivisionPrecision)
	for _, sub := range stream.AllSubstreams {
		if !enabled[sub] {
			continue
		}
		var share decimal.Decimal
		if total.IsZero() {
			share = equal
		} else {
			share = src.SubstreamVolume(sub).Value.Abs().DivRound(total, quantity.DivisionPrecision)
		}
		switch sub {
		case stream.SubDomestic:
			shares.Domestic = share
		case stream.SubImport:
			shares.Import = share
		case stream.SubExport:
			shares.Export = share
		}
	}
	return shares
}
