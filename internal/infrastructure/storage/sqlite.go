package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/crypto_liquidation_zones/internal/domain"
)

// SQLiteStore journals entry signals and closed positions.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS entry_signals (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			scale_factor REAL NOT NULL,
			created_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_entry_signals_symbol ON entry_signals(symbol);`,
		`CREATE TABLE IF NOT EXISTS position_history (
			id TEXT PRIMARY KEY,
			strategy TEXT NOT NULL,
			symbol TEXT NOT NULL,
			side TEXT NOT NULL,
			entry_price REAL NOT NULL,
			close_price REAL NOT NULL,
			scale_factor REAL NOT NULL,
			percentage_gain REAL NOT NULL,
			reason TEXT NOT NULL,
			opened_at DATETIME NOT NULL,
			closed_at DATETIME NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_position_history_strategy ON position_history(strategy, closed_at);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}
	return nil
}

// TradeRepository Implementation

func (s *SQLiteStore) SaveEntrySignal(ctx context.Context, strategy string, signal *domain.EntrySignal) error {
	query := `INSERT INTO entry_signals (strategy, symbol, side, entry_price, scale_factor, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		strategy, signal.Symbol, signal.Side, signal.EntryPrice, signal.ScaleFactor, signal.Timestamp)
	return err
}

func (s *SQLiteStore) ListEntrySignals(ctx context.Context, limit int) ([]*domain.EntrySignalRecord, error) {
	query := `SELECT id, strategy, symbol, side, entry_price, scale_factor, created_at FROM entry_signals ORDER BY id DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var signals []*domain.EntrySignalRecord
	for rows.Next() {
		var r domain.EntrySignalRecord
		if err := rows.Scan(&r.ID, &r.Strategy, &r.Symbol, &r.Side, &r.EntryPrice, &r.ScaleFactor, &r.Timestamp); err != nil {
			return nil, err
		}
		signals = append(signals, &r)
	}
	return signals, rows.Err()
}

func (s *SQLiteStore) SavePositionHistory(ctx context.Context, h *domain.ClosedPosition) error {
	query := `INSERT INTO position_history (id, strategy, symbol, side, entry_price, close_price, scale_factor, percentage_gain, reason, opened_at, closed_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		h.ID, h.Strategy, h.Symbol, h.Side, h.EntryPrice, h.ClosePrice, h.ScaleFactor,
		h.PercentageGain, h.Reason, h.OpenedAt, h.ClosedAt)
	return err
}

func (s *SQLiteStore) ListPositionHistory(ctx context.Context, limit int) ([]*domain.ClosedPosition, error) {
	query := `SELECT id, strategy, symbol, side, entry_price, close_price, scale_factor, percentage_gain, reason, opened_at, closed_at
			  FROM position_history ORDER BY closed_at DESC LIMIT ?`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []*domain.ClosedPosition
	for rows.Next() {
		var h domain.ClosedPosition
		if err := rows.Scan(&h.ID, &h.Strategy, &h.Symbol, &h.Side, &h.EntryPrice, &h.ClosePrice, &h.ScaleFactor,
			&h.PercentageGain, &h.Reason, &h.OpenedAt, &h.ClosedAt); err != nil {
			return nil, err
		}
		h.UpdatedAt = h.ClosedAt
		history = append(history, &h)
	}
	return history, rows.Err()
}

// NopStore discards every write. It is used when the journal is disabled.
type NopStore struct{}

func (NopStore) SaveEntrySignal(context.Context, string, *domain.EntrySignal) error { return nil }

func (NopStore) ListEntrySignals(context.Context, int) ([]*domain.EntrySignalRecord, error) {
	return nil, nil
}

func (NopStore) SavePositionHistory(context.Context, *domain.ClosedPosition) error { return nil }

func (NopStore) ListPositionHistory(context.Context, int) ([]*domain.ClosedPosition, error) {
	return nil, nil
}
