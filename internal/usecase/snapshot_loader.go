package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"LevRecon/internal/domain/models"
	applogger "LevRecon/pkg/logger"
)

// LoadResult counts what a snapshot file contributed.
type LoadResult struct {
	Loaded  int `json:"loaded"`
	Skipped int `json:"skipped"`
}

// LoadSnapshot reads a snapshot file and feeds it through the same ingest
// path as the Kafka consumers. Invalid envelopes are skipped and logged.
func LoadSnapshot(ctx context.Context, r io.Reader, tiers *TiersHandler, universe *UniverseHandler, log *applogger.Logger) (LoadResult, error) {
	var res LoadResult
	if log == nil {
		log = applogger.Nop()
	}

	var f models.SnapshotFile
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return res, fmt.Errorf("decode snapshot file: %w", err)
	}
	if err := universe.store.PutUniverse(ctx, f.Universe); err != nil {
		return res, fmt.Errorf("store universe: %w", err)
	}

	for i, env := range f.Envelopes {
		if err := tiers.Ingest(ctx, env); err != nil {
			res.Skipped++
			log.Warn("snapshot envelope skipped",
				applogger.Int("index", i),
				applogger.String("venue", env.Venue),
				applogger.String("symbol", env.Symbol),
				applogger.Error(err))
			continue
		}
		res.Loaded++
	}
	return res, nil
}
