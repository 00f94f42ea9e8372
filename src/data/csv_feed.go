package data

import (
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/quantpods/backtester/src/eventmodels"
)

// CSVFeed loads bars from a CSV file with date, instrument and OHLCV
// columns. The file is read once and cached for subsequent loads.
type CSVFeed struct {
	name     string
	filePath string
	bars     []*Bar
}

func NewCSVFeed(name, filePath string) *CSVFeed {
	return &CSVFeed{name: name, filePath: filePath}
}

func (f *CSVFeed) Name() string {
	return f.name
}

func (f *CSVFeed) LoadBars(startDate, endDate time.Time, instruments []eventmodels.Instrument) ([]*Bar, error) {
	if err := f.ensureLoaded(); err != nil {
		return nil, err
	}

	return filterBars(f.bars, startDate, endDate, instruments), nil
}

func (f *CSVFeed) AvailableInstruments() ([]eventmodels.Instrument, error) {
	if err := f.ensureLoaded(); err != nil {
		return nil, err
	}

	return collectInstruments(f.bars), nil
}

func (f *CSVFeed) ensureLoaded() error {
	if f.bars != nil {
		return nil
	}

	file, err := os.Open(f.filePath)
	if err != nil {
		return fmt.Errorf("failed to open csv file %s: %w", f.filePath, err)
	}
	defer file.Close()

	var rows []*BarDTO
	if err := gocsv.UnmarshalFile(file, &rows); err != nil {
		return fmt.Errorf("failed to parse csv file %s: %w", f.filePath, err)
	}

	bars := make([]*Bar, 0, len(rows))
	for _, row := range rows {
		bar, err := row.ToBar()
		if err != nil {
			return fmt.Errorf("failed to convert csv row in %s: %w", f.filePath, err)
		}

		// rows without an instrument column belong to the feed itself
		if bar.Instrument == "" {
			bar.Instrument = eventmodels.Instrument(f.name)
		}

		bars = append(bars, bar)
	}

	sortBars(bars)
	f.bars = bars

	return nil
}
