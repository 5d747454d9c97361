package recorder

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"TargetSentinel/internal/model"
)

// SQLiteStore persists prediction records to a SQLite database.
// Timestamps are stored as unix milliseconds.
type SQLiteStore struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewSQLiteStore opens (or creates) the SQLite database and runs migrations.
func NewSQLiteStore(dbPath string, log zerolog.Logger) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &SQLiteStore{db: db, log: log.With().Str("component", "sqlite").Logger()}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	s.log.Info().Str("path", dbPath).Msg("sqlite store opened")
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prediction_records (
			id                     INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol                 TEXT    NOT NULL,
			variant                TEXT    NOT NULL,
			created_at             INTEGER NOT NULL,
			sell_target            REAL    NOT NULL,
			sell_target_percentage REAL    NOT NULL,
			next_horizon_max_price REAL    NOT NULL DEFAULT 0,
			UNIQUE (symbol, variant, created_at)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_variant_created ON prediction_records(variant, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_prediction_created ON prediction_records(created_at)`,
	}

	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec model.PredictionRecord) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO prediction_records
		(symbol, variant, created_at, sell_target, sell_target_percentage, next_horizon_max_price)
		VALUES (?,?,?,?,?,?)`,
		rec.Symbol, string(rec.Variant), rec.CreatedAt.UnixMilli(),
		rec.SellTarget, rec.SellTargetPercentage, rec.NextHorizonMaxPrice,
	)
	if err != nil {
		return false, fmt.Errorf("insert prediction: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert prediction: %w", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) FindRecords(ctx context.Context, symbol string, variant model.Variant, r model.TimeRange) ([]model.PredictionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol, variant, created_at, sell_target, sell_target_percentage, next_horizon_max_price
		FROM prediction_records
		WHERE symbol = ? AND variant = ? AND created_at >= ? AND created_at < ?
		ORDER BY created_at`,
		symbol, string(variant), r.From.UnixMilli(), r.To.UnixMilli(),
	)
	if err != nil {
		return nil, fmt.Errorf("find records: %w", err)
	}
	defer rows.Close()

	var out []model.PredictionRecord
	for rows.Next() {
		var (
			rec       model.PredictionRecord
			v         string
			createdAt int64
		)
		if err := rows.Scan(&rec.Symbol, &v, &createdAt, &rec.SellTarget, &rec.SellTargetPercentage, &rec.NextHorizonMaxPrice); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Variant = model.Variant(v)
		rec.CreatedAt = time.UnixMilli(createdAt).UTC()
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ConditionalUpdateMax(ctx context.Context, symbol string, variant model.Variant, windowFrom, windowTo time.Time, newMax float64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE prediction_records
		SET next_horizon_max_price = ?
		WHERE symbol = ? AND variant = ?
		  AND created_at > ? AND created_at <= ?
		  AND next_horizon_max_price < ?`,
		newMax, symbol, string(variant), windowFrom.UnixMilli(), windowTo.UnixMilli(), newMax,
	)
	if err != nil {
		return 0, fmt.Errorf("update max %s/%s: %w", symbol, variant, err)
	}
	return res.RowsAffected()
}

func (s *SQLiteStore) CountInRange(ctx context.Context, variant *model.Variant, r model.TimeRange) (int64, error) {
	return s.count(ctx, "", variant, r)
}

func (s *SQLiteStore) CountSuccessInRange(ctx context.Context, variant *model.Variant, r model.TimeRange) (int64, error) {
	return s.count(ctx, " AND next_horizon_max_price >= sell_target", variant, r)
}

func (s *SQLiteStore) count(ctx context.Context, cond string, variant *model.Variant, r model.TimeRange) (int64, error) {
	q := `SELECT COUNT(*) FROM prediction_records WHERE created_at >= ? AND created_at < ?` + cond
	args := []any{r.From.UnixMilli(), r.To.UnixMilli()}
	if variant != nil {
		q += " AND variant = ?"
		args = append(args, string(*variant))
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) AverageSellPercentage(ctx context.Context, variant model.Variant, r *model.TimeRange) (float64, bool, error) {
	q := `SELECT AVG(sell_target_percentage) FROM prediction_records WHERE variant = ?`
	args := []any{string(variant)}
	if r != nil {
		q += " AND created_at >= ? AND created_at < ?"
		args = append(args, r.From.UnixMilli(), r.To.UnixMilli())
	}
	var avg sql.NullFloat64
	if err := s.db.QueryRowContext(ctx, q, args...).Scan(&avg); err != nil {
		return 0, false, fmt.Errorf("average sell percentage: %w", err)
	}
	return avg.Float64, avg.Valid, nil
}

func (s *SQLiteStore) Close() error {
	s.log.Info().Msg("closing sqlite store")
	return s.db.Close()
}
