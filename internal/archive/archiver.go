package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/newthinker/quantsim/internal/engine"
	"github.com/newthinker/quantsim/internal/store"
)

// Archiver writes completed run artifacts under runs/<run_id>/:
// a JSON result document plus Parquet equity curve and trade ledger.
type Archiver struct {
	storage Storage
	log     *zap.Logger
}

// NewArchiver creates an Archiver on top of a storage backend.
func NewArchiver(storage Storage, log *zap.Logger) *Archiver {
	return &Archiver{storage: storage, log: log}
}

// Save persists one run. Partial writes are possible on error; callers may
// re-save under the same run ID, writes are idempotent per path.
func (a *Archiver) Save(ctx context.Context, result *engine.Result) error {
	base := path.Join("runs", result.RunID)

	doc, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding result: %w", err)
	}
	if err := a.storage.Write(ctx, path.Join(base, "result.json"), doc); err != nil {
		return fmt.Errorf("writing result.json: %w", err)
	}

	equity, err := store.EquityCurveBytes(result.Curve)
	if err != nil {
		return fmt.Errorf("encoding equity curve: %w", err)
	}
	if err := a.storage.Write(ctx, path.Join(base, "equity.parquet"), equity); err != nil {
		return fmt.Errorf("writing equity.parquet: %w", err)
	}

	trades, err := store.TradesBytes(result.Trades)
	if err != nil {
		return fmt.Errorf("encoding trade ledger: %w", err)
	}
	if err := a.storage.Write(ctx, path.Join(base, "trades.parquet"), trades); err != nil {
		return fmt.Errorf("writing trades.parquet: %w", err)
	}

	a.log.Info("archived run",
		zap.String("run_id", result.RunID),
		zap.Int("trades", len(result.Trades)),
		zap.Int("equity_points", len(result.Curve)),
	)
	return nil
}

// LoadResult reads back an archived result document.
func (a *Archiver) LoadResult(ctx context.Context, runID string) (*engine.Result, error) {
	doc, err := a.storage.Read(ctx, path.Join("runs", runID, "result.json"))
	if err != nil {
		return nil, fmt.Errorf("reading archived result %s: %w", runID, err)
	}
	var result engine.Result
	if err := json.Unmarshal(doc, &result); err != nil {
		return nil, fmt.Errorf("decoding archived result %s: %w", runID, err)
	}
	return &result, nil
}

// ListRuns returns the run IDs present in the archive.
func (a *Archiver) ListRuns(ctx context.Context) ([]string, error) {
	paths, err := a.storage.List(ctx, "runs")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]bool)
	var ids []string
	for _, p := range paths {
		parts := strings.FieldsFunc(filepath.ToSlash(p), func(r rune) bool { return r == '/' })
		if len(parts) >= 2 && parts[0] == "runs" && !seen[parts[1]] {
			seen[parts[1]] = true
			ids = append(ids, parts[1])
		}
	}
	return ids, nil
}
