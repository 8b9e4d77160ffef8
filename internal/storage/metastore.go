// Package storage caches exchange symbol metadata in SQLite so repeat
// startups don't depend on the exchangeInfo endpoint being reachable.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"
	"github.com/shopspring/decimal"

	"github.com/ishannitinzambareeee23-hub/orderbook-visualizer/internal/domain"
)

// MetaStore persists symbol metadata with an expiry.
type MetaStore struct {
	db  *sql.DB
	ttl time.Duration
}

// NewMetaStore opens (or creates) the metadata database with WAL mode
// enabled. Entries older than ttl are treated as missing.
func NewMetaStore(dbPath string, ttl time.Duration) (*MetaStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA cache_size=-2000;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma %s: %w", pragma, err)
		}
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS symbol_meta (
			symbol TEXT PRIMARY KEY,
			tick_size TEXT NOT NULL,
			lot_step TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create symbol_meta table: %w", err)
	}

	return &MetaStore{db: db, ttl: ttl}, nil
}

// Put upserts metadata for a symbol.
func (s *MetaStore) Put(ctx context.Context, meta domain.SymbolMeta) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO symbol_meta (symbol, tick_size, lot_step, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(symbol) DO UPDATE SET tick_size=excluded.tick_size, lot_step=excluded.lot_step, updated_at=excluded.updated_at`,
		meta.Symbol, meta.TickSize.String(), meta.LotStep.String(), time.Now().UnixMicro(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert symbol meta: %w", err)
	}
	return nil
}

// Get returns cached metadata for the symbol. The second return value
// is false when no fresh entry exists.
func (s *MetaStore) Get(ctx context.Context, symbol string) (domain.SymbolMeta, bool, error) {
	var tickStr, lotStr string
	var updatedAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT tick_size, lot_step, updated_at FROM symbol_meta WHERE symbol = ?",
		symbol,
	).Scan(&tickStr, &lotStr, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.SymbolMeta{}, false, nil
	}
	if err != nil {
		return domain.SymbolMeta{}, false, fmt.Errorf("failed to query symbol meta: %w", err)
	}

	if time.Since(time.UnixMicro(updatedAt)) > s.ttl {
		return domain.SymbolMeta{}, false, nil
	}

	tick, err := decimal.NewFromString(tickStr)
	if err != nil {
		return domain.SymbolMeta{}, false, fmt.Errorf("corrupt tick_size for %s: %w", symbol, err)
	}
	lot, err := decimal.NewFromString(lotStr)
	if err != nil {
		return domain.SymbolMeta{}, false, fmt.Errorf("corrupt lot_step for %s: %w", symbol, err)
	}

	return domain.SymbolMeta{Symbol: symbol, TickSize: tick, LotStep: lot}, true, nil
}

// Close closes the database connection.
func (s *MetaStore) Close() error {
	return s.db.Close()
}
