package data

import (
	"sort"
	"time"

	"github.com/quantpods/backtester/src/eventmodels"
)

// Feed loads bars from a source (CSV files, generated series, external
// stores).
type Feed interface {
	Name() string
	LoadBars(startDate, endDate time.Time, instruments []eventmodels.Instrument) ([]*Bar, error)
	AvailableInstruments() ([]eventmodels.Instrument, error)
}

// MemoryFeed serves bars held in memory. Useful in tests and for generated
// price series.
type MemoryFeed struct {
	name string
	bars []*Bar
}

func NewMemoryFeed(name string, bars []*Bar) *MemoryFeed {
	sorted := make([]*Bar, len(bars))
	copy(sorted, bars)
	sortBars(sorted)

	return &MemoryFeed{name: name, bars: sorted}
}

func (f *MemoryFeed) Name() string {
	return f.name
}

func (f *MemoryFeed) LoadBars(startDate, endDate time.Time, instruments []eventmodels.Instrument) ([]*Bar, error) {
	return filterBars(f.bars, startDate, endDate, instruments), nil
}

func (f *MemoryFeed) AvailableInstruments() ([]eventmodels.Instrument, error) {
	return collectInstruments(f.bars), nil
}

// AddBars merges new bars into the feed, keeping the series sorted.
func (f *MemoryFeed) AddBars(bars []*Bar) {
	f.bars = append(f.bars, bars...)
	sortBars(f.bars)
}

func sortBars(bars []*Bar) {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Timestamp.Before(bars[j].Timestamp)
	})
}

func filterBars(bars []*Bar, startDate, endDate time.Time, instruments []eventmodels.Instrument) []*Bar {
	wanted := make(map[eventmodels.Instrument]bool, len(instruments))
	for _, instrument := range instruments {
		wanted[instrument] = true
	}

	filtered := make([]*Bar, 0, len(bars))
	for _, bar := range bars {
		if bar.Timestamp.Before(startDate) || bar.Timestamp.After(endDate) {
			continue
		}

		if len(wanted) > 0 && !wanted[bar.Instrument] {
			continue
		}

		filtered = append(filtered, bar)
	}

	return filtered
}

func collectInstruments(bars []*Bar) []eventmodels.Instrument {
	seen := make(map[eventmodels.Instrument]bool)
	instruments := make([]eventmodels.Instrument, 0)

	for _, bar := range bars {
		if !seen[bar.Instrument] {
			seen[bar.Instrument] = true
			instruments = append(instruments, bar.Instrument)
		}
	}

	return instruments
}
