package data

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quantpods/backtester/src/eventmodels"
)

// Bar is a single OHLCV observation for an instrument.
type Bar struct {
	Timestamp  time.Time              `json:"timestamp"`
	Instrument eventmodels.Instrument `json:"instrument"`
	Open       float64                `json:"open"`
	High       float64                `json:"high"`
	Low        float64                `json:"low"`
	Close      float64                `json:"close"`
	Volume     float64                `json:"volume"`
}

// Fields flattens the bar into the payload shape carried by market data
// events.
func (b *Bar) Fields() map[string]float64 {
	return map[string]float64{
		"open":   b.Open,
		"high":   b.High,
		"low":    b.Low,
		"close":  b.Close,
		"volume": b.Volume,
	}
}

// BarDTO mirrors a CSV row. Timestamps arrive as strings in either RFC 3339
// or plain date form.
type BarDTO struct {
	Date       string `csv:"date"`
	Instrument string `csv:"instrument"`
	Open       string `csv:"open"`
	High       string `csv:"high"`
	Low        string `csv:"low"`
	Close      string `csv:"close"`
	Volume     string `csv:"volume"`
}

func (dto *BarDTO) ToBar() (*Bar, error) {
	timestamp, err := time.Parse(time.RFC3339, dto.Date)
	if err != nil {
		timestamp, err = time.Parse("2006-01-02", dto.Date)
		if err != nil {
			return nil, fmt.Errorf("failed to parse date %q: %w", dto.Date, err)
		}
	}

	open, err := parseBarField("open", dto.Open)
	if err != nil {
		return nil, err
	}

	high, err := parseBarField("high", dto.High)
	if err != nil {
		return nil, err
	}

	low, err := parseBarField("low", dto.Low)
	if err != nil {
		return nil, err
	}

	closePrice, err := parseBarField("close", dto.Close)
	if err != nil {
		return nil, err
	}

	volume, err := parseBarField("volume", dto.Volume)
	if err != nil {
		return nil, err
	}

	return &Bar{
		Timestamp:  timestamp,
		Instrument: eventmodels.Instrument(dto.Instrument),
		Open:       open,
		High:       high,
		Low:        low,
		Close:      closePrice,
		Volume:     volume,
	}, nil
}

func parseBarField(name, raw string) (float64, error) {
	if raw == "" || raw == "NaN" {
		return 0, nil
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("failed to parse %s %q: %w", name, raw, err)
	}

	return value, nil
}
