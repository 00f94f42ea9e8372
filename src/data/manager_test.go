package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quantpods/backtester/src/eventmodels"
)

func day(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func testBar(timestamp time.Time, instrument eventmodels.Instrument, closePrice float64) *Bar {
	return &Bar{
		Timestamp:  timestamp,
		Instrument: instrument,
		Open:       closePrice - 1,
		High:       closePrice + 1,
		Low:        closePrice - 2,
		Close:      closePrice,
		Volume:     1000,
	}
}

func TestMemoryFeed(t *testing.T) {
	feed := NewMemoryFeed("test", []*Bar{
		testBar(day(3), "AAPL", 103),
		testBar(day(1), "AAPL", 101),
		testBar(day(2), "TSLA", 202),
	})

	t.Run("instruments", func(t *testing.T) {
		instruments, err := feed.AvailableInstruments()
		require.NoError(t, err)
		assert.ElementsMatch(t, []eventmodels.Instrument{"AAPL", "TSLA"}, instruments)
	})

	t.Run("window filter", func(t *testing.T) {
		bars, err := feed.LoadBars(day(1), day(2), nil)
		require.NoError(t, err)
		require.Len(t, bars, 2)
		assert.Equal(t, day(1), bars[0].Timestamp)
		assert.Equal(t, day(2), bars[1].Timestamp)
	})

	t.Run("instrument filter", func(t *testing.T) {
		bars, err := feed.LoadBars(day(1), day(3), []eventmodels.Instrument{"TSLA"})
		require.NoError(t, err)
		require.Len(t, bars, 1)
		assert.Equal(t, eventmodels.Instrument("TSLA"), bars[0].Instrument)
	})
}

func TestManagerGetDataForTimestamp(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterFeed("primary", NewMemoryFeed("primary", []*Bar{
		testBar(day(1), "AAPL", 101),
		testBar(day(2), "AAPL", 102),
		testBar(day(2), "TSLA", 202),
	})))

	manager.LoadData(day(1), day(3), nil)

	t.Run("exact timestamp match", func(t *testing.T) {
		snapshot := manager.GetDataForTimestamp(day(2))
		require.Len(t, snapshot, 2)
		assert.Equal(t, 102.0, snapshot["AAPL"]["close"])
		assert.Equal(t, 202.0, snapshot["TSLA"]["close"])
	})

	t.Run("gap day has no data", func(t *testing.T) {
		assert.Empty(t, manager.GetDataForTimestamp(day(3)))
	})
}

func TestManagerFeedOverlay(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterFeed("base", NewMemoryFeed("base", []*Bar{
		testBar(day(1), "AAPL", 100),
	})))
	require.NoError(t, manager.RegisterFeed("override", NewMemoryFeed("override", []*Bar{
		testBar(day(1), "AAPL", 105),
	})))

	manager.LoadData(day(1), day(1), nil)

	snapshot := manager.GetDataForTimestamp(day(1))
	assert.Equal(t, 105.0, snapshot["AAPL"]["close"])
}

func TestManagerDuplicateFeed(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterFeed("primary", NewMemoryFeed("primary", nil)))
	assert.Error(t, manager.RegisterFeed("primary", NewMemoryFeed("primary", nil)))
}

func TestManagerHistoricalData(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterFeed("primary", NewMemoryFeed("primary", []*Bar{
		testBar(day(1), "AAPL", 101),
		testBar(day(2), "AAPL", 102),
		testBar(day(3), "AAPL", 103),
		testBar(day(2), "TSLA", 202),
	})))
	manager.LoadData(day(1), day(3), nil)

	history := manager.GetHistoricalData("AAPL", day(2), day(3))
	require.Len(t, history, 2)
	assert.Equal(t, 102.0, history[0].Close)
	assert.Equal(t, 103.0, history[1].Close)

	latest := manager.GetLatestData("AAPL", 2)
	require.Len(t, latest, 2)
	assert.Equal(t, 103.0, latest[1].Close)
}

func TestCSVFeed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bars.csv")

	csv := "date,instrument,open,high,low,close,volume\n" +
		"2024-01-01,AAPL,100,102,99,101,500000\n" +
		"2024-01-02,AAPL,101,103,100,102,600000\n" +
		"2024-01-01,TSLA,200,204,198,202,700000\n"
	require.NoError(t, os.WriteFile(path, []byte(csv), 0644))

	feed := NewCSVFeed("bars", path)

	instruments, err := feed.AvailableInstruments()
	require.NoError(t, err)
	assert.ElementsMatch(t, []eventmodels.Instrument{"AAPL", "TSLA"}, instruments)

	bars, err := feed.LoadBars(day(1), day(2), []eventmodels.Instrument{"AAPL"})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 101.0, bars[0].Close)
	assert.Equal(t, 500000.0, bars[0].Volume)
	assert.Equal(t, day(2), bars[1].Timestamp)
}

func TestCSVFeedMissingFile(t *testing.T) {
	feed := NewCSVFeed("missing", "/nonexistent/bars.csv")

	_, err := feed.LoadBars(day(1), day(2), nil)
	assert.Error(t, err)
}

func TestBarDTOToBar(t *testing.T) {
	t.Run("rfc3339 date", func(t *testing.T) {
		dto := &BarDTO{Date: "2024-01-01T00:00:00Z", Instrument: "AAPL", Close: "101.5"}
		bar, err := dto.ToBar()
		require.NoError(t, err)
		assert.Equal(t, day(1), bar.Timestamp)
		assert.Equal(t, 101.5, bar.Close)
	})

	t.Run("plain date with blank fields", func(t *testing.T) {
		dto := &BarDTO{Date: "2024-01-01", Instrument: "AAPL", Close: "101", Volume: "NaN"}
		bar, err := dto.ToBar()
		require.NoError(t, err)
		assert.Equal(t, 0.0, bar.Volume)
	})

	t.Run("bad date", func(t *testing.T) {
		dto := &BarDTO{Date: "January 1st", Instrument: "AAPL"}
		_, err := dto.ToBar()
		assert.Error(t, err)
	})
}

func TestManagerLoadDataReversedWindow(t *testing.T) {
	manager := NewManager()
	require.NoError(t, manager.RegisterFeed("test", NewMemoryFeed("test", []*Bar{
		testBar(day(1), "AAPL", 101),
		testBar(day(2), "AAPL", 102),
	})))

	// a reversed window is normalized, not served as empty
	manager.LoadData(day(2), day(1), nil)

	assert.NotEmpty(t, manager.GetDataForTimestamp(day(1)))
	assert.NotEmpty(t, manager.GetDataForTimestamp(day(2)))
}
