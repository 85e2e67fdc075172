// Package store reads the input bar/feature table and writes run outputs
// as Parquet files.
package store

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/parquet-go/parquet-go"

	"github.com/newthinker/quantsim/internal/core"
)

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// FeatureValue is one named, pre-lagged feature on a bar row. A feature
// that is null for the row is simply absent from the list.
type FeatureValue struct {
	Name  string  `parquet:"name"`
	Value float64 `parquet:"value"`
}

// BarRecord is the Parquet schema for one (date, ticker) input row.
type BarRecord struct {
	Date      int64          `parquet:"date,timestamp(millisecond)"` // Unix ms
	Ticker    string         `parquet:"ticker"`
	Open      float64        `parquet:"open"`
	High      float64        `parquet:"high"`
	Low       float64        `parquet:"low"`
	Close     float64        `parquet:"close"`
	Volume    int64          `parquet:"volume"`
	MarketCap float64        `parquet:"market_cap"`
	Features  []FeatureValue `parquet:"features"`
}

// EquityRecord is the Parquet schema for one equity curve entry.
type EquityRecord struct {
	Date        int64   `parquet:"date,timestamp(millisecond)"`
	Equity      float64 `parquet:"equity"`
	DailyReturn float64 `parquet:"daily_return"`
	GrossReturn float64 `parquet:"gross_return"`
}

// TradeRecord is the Parquet schema for one trade ledger entry.
type TradeRecord struct {
	Date           int64   `parquet:"date,timestamp(millisecond)"`
	Ticker         string  `parquet:"ticker"`
	DeltaShares    int64   `parquet:"delta_shares"`
	ExecutionPrice float64 `parquet:"execution_price"`
	SpreadCost     float64 `parquet:"spread_cost"`
	ImpactCost     float64 `parquet:"impact_cost"`
	FeeCost        float64 `parquet:"fee_cost"`
	TotalCost      float64 `parquet:"total_cost"`
}

// ---------------------------------------------------------------------------
// Input
// ---------------------------------------------------------------------------

// ReadBars loads the full bar/feature table from a Parquet file, sorted by
// date ascending and ticker ascending within date.
func ReadBars(path string) ([]core.Bar, error) {
	records, err := readParquetFile[BarRecord](path)
	if err != nil {
		return nil, fmt.Errorf("reading bars from %s: %w", path, err)
	}

	bars := make([]core.Bar, 0, len(records))
	for _, r := range records {
		b := core.Bar{
			Date:      time.UnixMilli(r.Date).UTC(),
			Ticker:    r.Ticker,
			Open:      r.Open,
			High:      r.High,
			Low:       r.Low,
			Close:     r.Close,
			Volume:    r.Volume,
			MarketCap: r.MarketCap,
		}
		if len(r.Features) > 0 {
			b.Features = make(map[string]float64, len(r.Features))
			for _, f := range r.Features {
				b.Features[f.Name] = f.Value
			}
		}
		bars = append(bars, b)
	}

	sort.Slice(bars, func(i, j int) bool {
		if !bars[i].Date.Equal(bars[j].Date) {
			return bars[i].Date.Before(bars[j].Date)
		}
		return bars[i].Ticker < bars[j].Ticker
	})
	return bars, nil
}

// WriteBars writes a bar/feature table to a Parquet file. Feature maps are
// flattened to sorted name/value lists so output bytes are deterministic.
func WriteBars(path string, bars []core.Bar) error {
	records := make([]BarRecord, 0, len(bars))
	for _, b := range bars {
		r := BarRecord{
			Date:      b.Date.UnixMilli(),
			Ticker:    b.Ticker,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
			MarketCap: b.MarketCap,
		}
		names := make([]string, 0, len(b.Features))
		for name := range b.Features {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.Features = append(r.Features, FeatureValue{Name: name, Value: b.Features[name]})
		}
		records = append(records, r)
	}
	return writeParquetFile(path, records)
}

// ---------------------------------------------------------------------------
// Output
// ---------------------------------------------------------------------------

// WriteEquityCurve writes an equity curve to a Parquet file.
func WriteEquityCurve(path string, curve []core.EquityPoint) error {
	records := make([]EquityRecord, 0, len(curve))
	for _, p := range curve {
		records = append(records, EquityRecord{
			Date:        p.Date.UnixMilli(),
			Equity:      p.Equity,
			DailyReturn: p.DailyReturn,
			GrossReturn: p.GrossReturn,
		})
	}
	return writeParquetFile(path, records)
}

// WriteTrades writes a trade ledger to a Parquet file.
func WriteTrades(path string, trades []core.Trade) error {
	records := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, TradeRecord{
			Date:           t.Date.UnixMilli(),
			Ticker:         t.Ticker,
			DeltaShares:    t.DeltaShares,
			ExecutionPrice: t.ExecutionPrice,
			SpreadCost:     t.SpreadCost,
			ImpactCost:     t.ImpactCost,
			FeeCost:        t.FeeCost,
			TotalCost:      t.TotalCost,
		})
	}
	return writeParquetFile(path, records)
}

// ---------------------------------------------------------------------------
// Parquet file helpers
// ---------------------------------------------------------------------------

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// EquityCurveBytes encodes an equity curve as an in-memory Parquet file,
// for backends that take raw bytes rather than a local path.
func EquityCurveBytes(curve []core.EquityPoint) ([]byte, error) {
	records := make([]EquityRecord, 0, len(curve))
	for _, p := range curve {
		records = append(records, EquityRecord{
			Date:        p.Date.UnixMilli(),
			Equity:      p.Equity,
			DailyReturn: p.DailyReturn,
			GrossReturn: p.GrossReturn,
		})
	}
	return marshalParquet(records)
}

// TradesBytes encodes a trade ledger as an in-memory Parquet file.
func TradesBytes(trades []core.Trade) ([]byte, error) {
	records := make([]TradeRecord, 0, len(trades))
	for _, t := range trades {
		records = append(records, TradeRecord{
			Date:           t.Date.UnixMilli(),
			Ticker:         t.Ticker,
			DeltaShares:    t.DeltaShares,
			ExecutionPrice: t.ExecutionPrice,
			SpreadCost:     t.SpreadCost,
			ImpactCost:     t.ImpactCost,
			FeeCost:        t.FeeCost,
			TotalCost:      t.TotalCost,
		})
	}
	return marshalParquet(records)
}

func marshalParquet[T any](records []T) ([]byte, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(records); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
