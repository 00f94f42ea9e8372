package data

import (
	"fmt"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/quantpods/backtester/src/eventmodels"
	"github.com/quantpods/backtester/src/utils"
)

// Manager aggregates bars from registered feeds and serves them to the
// simulation by timestamp. Later feeds overlay earlier ones when they carry
// the same instrument at the same timestamp.
type Manager struct {
	feeds       map[string]Feed
	feedOrder   []string
	cache       map[string][]*Bar
	instruments map[eventmodels.Instrument]bool
}

func NewManager() *Manager {
	return &Manager{
		feeds:       make(map[string]Feed),
		feedOrder:   make([]string, 0),
		cache:       make(map[string][]*Bar),
		instruments: make(map[eventmodels.Instrument]bool),
	}
}

func (m *Manager) RegisterFeed(feedID string, feed Feed) error {
	if _, found := m.feeds[feedID]; found {
		return fmt.Errorf("feed %s is already registered", feedID)
	}

	m.feeds[feedID] = feed
	m.feedOrder = append(m.feedOrder, feedID)

	available, err := feed.AvailableInstruments()
	if err != nil {
		return fmt.Errorf("failed to list instruments for feed %s: %w", feedID, err)
	}

	for _, instrument := range available {
		m.instruments[instrument] = true
	}

	log.Infof("registered data feed %s with %d instruments", feedID, len(available))

	return nil
}

// LoadData pulls bars from every feed for the window and caches them. A
// reversed window is normalized before loading. A feed that fails to load is
// skipped with a log line so the remaining feeds still serve.
func (m *Manager) LoadData(startDate, endDate time.Time, instruments []eventmodels.Instrument) {
	startDate, endDate = utils.GetMinTime(startDate, endDate), utils.GetMaxTime(startDate, endDate)

	if len(instruments) == 0 {
		instruments = m.GetAvailableInstruments()
	}

	log.Infof("loading data from %s to %s for %d instruments", startDate.Format(time.RFC3339), endDate.Format(time.RFC3339), len(instruments))

	for _, feedID := range m.feedOrder {
		bars, err := m.feeds[feedID].LoadBars(startDate, endDate, instruments)
		if err != nil {
			log.Errorf("failed to load data from feed %s: %v", feedID, err)
			continue
		}

		m.cache[feedID] = bars
		log.Infof("loaded %d bars from feed %s", len(bars), feedID)
	}
}

// GetDataForTimestamp returns the merged per-instrument payloads observed at
// exactly the given timestamp.
func (m *Manager) GetDataForTimestamp(timestamp time.Time) map[eventmodels.Instrument]map[string]float64 {
	result := make(map[eventmodels.Instrument]map[string]float64)

	for _, feedID := range m.feedOrder {
		for _, bar := range m.cache[feedID] {
			if !bar.Timestamp.Equal(timestamp) {
				continue
			}

			if existing, found := result[bar.Instrument]; found {
				for key, value := range bar.Fields() {
					existing[key] = value
				}
			} else {
				result[bar.Instrument] = bar.Fields()
			}
		}
	}

	return result
}

// GetHistoricalData returns the cached bars for one instrument inside a
// window, sorted by timestamp across all feeds.
func (m *Manager) GetHistoricalData(instrument eventmodels.Instrument, startDate, endDate time.Time) []*Bar {
	bars := make([]*Bar, 0)

	for _, feedID := range m.feedOrder {
		for _, bar := range m.cache[feedID] {
			if bar.Instrument != instrument {
				continue
			}

			if bar.Timestamp.Before(startDate) || bar.Timestamp.After(endDate) {
				continue
			}

			bars = append(bars, bar)
		}
	}

	sortBars(bars)

	return bars
}

// GetLatestData returns the most recent n cached bars for an instrument.
func (m *Manager) GetLatestData(instrument eventmodels.Instrument, n int) []*Bar {
	history := m.GetHistoricalData(instrument, time.Time{}, maxTime())
	if len(history) <= n {
		return history
	}

	return history[len(history)-n:]
}

func (m *Manager) GetAvailableInstruments() []eventmodels.Instrument {
	instruments := make([]eventmodels.Instrument, 0, len(m.instruments))
	for instrument := range m.instruments {
		instruments = append(instruments, instrument)
	}

	sort.Slice(instruments, func(i, j int) bool {
		return instruments[i] < instruments[j]
	})

	return instruments
}

func maxTime() time.Time {
	return time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)
}
