package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"OilScope/internal/domain/models"
	"OilScope/internal/domain/repository"
	pkgch "OilScope/pkg/clickhouse"
	applogger "OilScope/pkg/logger"
)

// ClickHousePriceSink persists price rows to ClickHouse for long-term
// retention and dashboard queries.
type ClickHousePriceSink struct {
	db    *sql.DB
	ch    *pkgch.Client
	table string
	l     *applogger.Logger
}

// NewClickHousePriceSink creates a ClickHouse-backed price sink.
func NewClickHousePriceSink(ch *pkgch.Client, table string) *ClickHousePriceSink {
	return &ClickHousePriceSink{db: ch.DB(), ch: ch, table: table}
}

var _ repository.PriceSink = (*ClickHousePriceSink)(nil)

// SetLogger injects a structured logger.
func (s *ClickHousePriceSink) SetLogger(l *applogger.Logger) { s.l = l }

func (s *ClickHousePriceSink) Init(ctx context.Context) error {
	stmts := []string{
		fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            date Date,
            price Float64,
            source LowCardinality(String)
        ) ENGINE = ReplacingMergeTree
        ORDER BY (date)
    `, s.table),
	}
	return s.ch.InitSchema(ctx, stmts)
}

func (s *ClickHousePriceSink) StoreBatch(ctx context.Context, points []models.PricePoint) error {
	if len(points) == 0 {
		return nil
	}
	start := time.Now()

	// Chunked multi-row VALUES inserts to bound statement size.
	const chunkSize = 2000
	for lo := 0; lo < len(points); lo += chunkSize {
		hi := lo + chunkSize
		if hi > len(points) {
			hi = len(points)
		}

		values := make([]string, 0, hi-lo)
		args := make([]interface{}, 0, (hi-lo)*3)
		for _, p := range points[lo:hi] {
			if p.Date.IsZero() {
				continue
			}
			values = append(values, "(?, ?, ?)")
			args = append(args, p.Date, p.Price, "brent_csv")
		}
		if len(values) == 0 {
			continue
		}
		q := fmt.Sprintf("INSERT INTO %s (date, price, source) VALUES %s", s.table, strings.Join(values, ","))
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			if s.l != nil {
				s.l.Error("clickhouse price insert error",
					applogger.String("table", s.table),
					applogger.Int("rows", hi-lo),
					applogger.Error(err),
				)
			}
			return fmt.Errorf("store prices: %w", err)
		}
	}

	if s.l != nil {
		s.l.Info("clickhouse prices stored",
			applogger.String("table", s.table),
			applogger.Int("rows", len(points)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

func (s *ClickHousePriceSink) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHousePriceSink) Close() error {
	return s.ch.Close()
}
