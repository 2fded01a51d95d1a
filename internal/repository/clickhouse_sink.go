package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"LevRecon/internal/domain/models"
	"LevRecon/internal/domain/repository"
	applogger "LevRecon/pkg/logger"
)

const (
	suggestedTable = "suggested_tiers"
	streetTable    = "street_records"
)

// ClickHouseSink appends suggested tiers and street records of every run to
// history tables.
type ClickHouseSink struct {
	db        *sql.DB
	batchSize int
	log       *applogger.Logger
}

// NewClickHouseSink creates the sink. batchSize bounds rows per INSERT.
func NewClickHouseSink(db *sql.DB, batchSize int, log *applogger.Logger) *ClickHouseSink {
	if batchSize <= 0 {
		batchSize = 500
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &ClickHouseSink{db: db, batchSize: batchSize, log: log}
}

var _ repository.ResultSink = (*ClickHouseSink)(nil)

func (s *ClickHouseSink) Name() string { return "clickhouse" }

// Schema returns the DDL for the history tables.
func Schema() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ` + suggestedTable + ` (
	run_id String,
	generated_at DateTime64(3, 'UTC'),
	symbol LowCardinality(String),
	grp LowCardinality(String),
	tier_order UInt16,
	threshold Float64,
	leverage Float64,
	mmr Float64,
	leverage_source LowCardinality(String),
	mmr_source LowCardinality(String),
	fallback UInt8
) ENGINE = MergeTree ORDER BY (symbol, generated_at, tier_order)`,
		`CREATE TABLE IF NOT EXISTS ` + streetTable + ` (
	run_id String,
	generated_at DateTime64(3, 'UTC'),
	symbol LowCardinality(String),
	threshold Float64,
	best_leverage Nullable(Float64),
	leverage_venue LowCardinality(String),
	best_mmr Nullable(Float64),
	mmr_venue LowCardinality(String)
) ENGINE = MergeTree ORDER BY (symbol, generated_at, threshold)`,
	}
}

func (s *ClickHouseSink) Publish(ctx context.Context, _ models.RunSummary, reports []models.SymbolReport) error {
	var suggested, street [][]interface{}
	for i := range reports {
		r := &reports[i]
		ts := r.GeneratedAt.UTC()
		for order, t := range r.Suggested {
			suggested = append(suggested, []interface{}{
				r.RunID, ts, r.Symbol, r.Group, uint16(order + 1), t.Threshold,
				t.Leverage, t.MaintenanceMarginRate,
				string(t.LeverageSource), string(t.MMRSource), boolToUInt8(t.Fallback),
			})
		}
		for _, rec := range r.Street {
			lev, levVenue := sourcedValue(rec.BestLeverage)
			mmr, mmrVenue := sourcedValue(rec.BestMMR)
			street = append(street, []interface{}{
				r.RunID, ts, r.Symbol, rec.Threshold, lev, levVenue, mmr, mmrVenue,
			})
		}
	}

	if err := s.insert(ctx, suggestedTable,
		"run_id, generated_at, symbol, grp, tier_order, threshold, leverage, mmr, leverage_source, mmr_source, fallback",
		suggested); err != nil {
		return err
	}
	return s.insert(ctx, streetTable,
		"run_id, generated_at, symbol, threshold, best_leverage, leverage_venue, best_mmr, mmr_venue",
		street)
}

// insert writes rows with multi-row VALUES statements, chunked by batchSize.
func (s *ClickHouseSink) insert(ctx context.Context, table, columns string, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	width := len(rows[0])
	placeholder := "(" + strings.TrimSuffix(strings.Repeat("?, ", width), ", ") + ")"

	for start := 0; start < len(rows); start += s.batchSize {
		end := start + s.batchSize
		if end > len(rows) {
			end = len(rows)
		}
		values := make([]string, 0, end-start)
		args := make([]interface{}, 0, (end-start)*width)
		for _, row := range rows[start:end] {
			values = append(values, placeholder)
			args = append(args, row...)
		}
		q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, columns, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.log.Error("clickhouse insert failed",
				applogger.String("table", table),
				applogger.Int("rows", end-start),
				applogger.Error(err))
			return fmt.Errorf("insert %s: %w", table, err)
		}
	}
	return nil
}

// HistoryPoint is one suggested tier as recorded by a past run.
type HistoryPoint struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Threshold   float64   `json:"threshold"`
	Leverage    float64   `json:"leverage"`
	MMR         float64   `json:"mmr"`
	Fallback    bool      `json:"fallback"`
}

// History returns the suggested tiers recorded for symbol, newest first.
func (s *ClickHouseSink) History(ctx context.Context, symbol string, limit int) ([]HistoryPoint, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf(`SELECT run_id, generated_at, threshold, leverage, mmr, fallback
FROM %s WHERE symbol = ? ORDER BY generated_at DESC, tier_order ASC LIMIT %d`, suggestedTable, limit)

	rows, err := s.db.QueryContext(ctx, q, symbol)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var out []HistoryPoint
	for rows.Next() {
		var (
			p        HistoryPoint
			fallback uint8
		)
		if err := rows.Scan(&p.RunID, &p.GeneratedAt, &p.Threshold, &p.Leverage, &p.MMR, &fallback); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		p.Fallback = fallback == 1
		out = append(out, p)
	}
	return out, rows.Err()
}

func sourcedValue(s *models.Sourced) (*float64, string) {
	if s == nil {
		return nil, ""
	}
	v := s.Value
	return &v, string(s.Venue)
}

func boolToUInt8(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
