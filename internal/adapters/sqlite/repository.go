package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Repository implements ports.JournalRepository using SQLite.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository creates a new SQLite repository instance.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for SQLite repository")
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/signal_generator.db"
	}
	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("%w: open '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		err = fmt.Errorf("%w: ping '%s': %w", ports.ErrDBConnection, dbPath, err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}

	// One writer; SQLite serializes the rest.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(ctx); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(ctx, err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(ctx, "SQLite journal ready", map[string]interface{}{"path": dbPath})
	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS signals (
		row_id INTEGER PRIMARY KEY AUTOINCREMENT,
		signal_id TEXT NOT NULL,
		action TEXT NOT NULL,
		side TEXT NOT NULL,
		symbol TEXT NOT NULL,
		price REAL NOT NULL,
		strategy TEXT NOT NULL,
		order_id TEXT NULL,
		emitted_at TIMESTAMP NOT NULL,
		payload TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS position_changes (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		kind TEXT NOT NULL,
		origin TEXT NOT NULL,
		reason TEXT NULL,
		symbol TEXT NOT NULL,
		side TEXT NOT NULL,
		entry_price REAL NOT NULL,
		quantity REAL NOT NULL,
		strategy TEXT NULL,
		changed_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_signals_emitted_at ON signals (emitted_at);
	CREATE INDEX IF NOT EXISTS idx_position_changes_changed_at ON position_changes (changed_at);
	`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: schema: %w", ports.ErrQueryFailed, err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		r.logger.Info(context.Background(), "Closing SQLite database connection")
		return r.db.Close()
	}
	return nil
}

// SaveSignal stores the signal with its full JSON payload.
func (r *Repository) SaveSignal(ctx context.Context, sig *domain.Signal) (int64, error) {
	payload, err := json.Marshal(sig)
	if err != nil {
		return 0, fmt.Errorf("failed to encode signal %s: %w", sig.ID, err)
	}

	const query = `
	INSERT INTO signals (signal_id, action, side, symbol, price, strategy, order_id, emitted_at, payload)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var orderID sql.NullString
	if sig.OrderID != "" {
		orderID = sql.NullString{String: sig.OrderID, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		sig.ID, string(sig.Action), string(sig.Side), sig.Symbol, sig.Price, sig.Strategy, orderID, sig.Timestamp, string(payload))
	if err != nil {
		return 0, fmt.Errorf("%w: insert signal %s: %w", ports.ErrQueryFailed, sig.ID, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id for signal %s: %w", ports.ErrQueryFailed, sig.ID, err)
	}
	r.logger.Debug(ctx, "Signal journaled", map[string]interface{}{"rowID": id, "signalID": sig.ID, "action": sig.Action})
	return id, nil
}

// RecentSignals returns up to limit signals, newest first.
func (r *Repository) RecentSignals(ctx context.Context, limit int) ([]*domain.Signal, error) {
	const query = `SELECT payload FROM signals ORDER BY row_id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query signals: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	signals := make([]*domain.Signal, 0)
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("%w: scan signal: %w", ports.ErrQueryFailed, err)
		}
		sig := &domain.Signal{}
		if err := json.Unmarshal([]byte(payload), sig); err != nil {
			return nil, fmt.Errorf("%w: signal payload: %w", ports.ErrDecodeFailed, err)
		}
		signals = append(signals, sig)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating signal rows: %w", ports.ErrQueryFailed, err)
	}
	return signals, nil
}

// SavePositionChange stores an open or close transition and sets change.ID.
func (r *Repository) SavePositionChange(ctx context.Context, change *ports.PositionChange) (int64, error) {
	const query = `
	INSERT INTO position_changes (kind, origin, reason, symbol, side, entry_price, quantity, strategy, changed_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.db.ExecContext(ctx, query,
		change.Kind, change.Origin, nullString(change.Reason), change.Symbol, string(change.Side),
		change.EntryPrice, change.Quantity, nullString(change.StrategyID), change.At)
	if err != nil {
		return 0, fmt.Errorf("%w: insert position change for %s: %w", ports.ErrQueryFailed, change.Symbol, err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("%w: last insert id for position change: %w", ports.ErrQueryFailed, err)
	}
	change.ID = id
	r.logger.Debug(ctx, "Position change journaled", map[string]interface{}{"id": id, "kind": change.Kind, "symbol": change.Symbol})
	return id, nil
}

// RecentPositionChanges returns up to limit changes, newest first.
func (r *Repository) RecentPositionChanges(ctx context.Context, limit int) ([]*ports.PositionChange, error) {
	const query = `
	SELECT id, kind, origin, COALESCE(reason, ''), symbol, side, entry_price, quantity,
	       COALESCE(strategy, ''), changed_at
	FROM position_changes
	ORDER BY id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query position changes: %w", ports.ErrQueryFailed, err)
	}
	defer rows.Close()

	changes := make([]*ports.PositionChange, 0)
	for rows.Next() {
		c, err := scanPositionChange(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan position change: %w", ports.ErrQueryFailed, err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: iterating position change rows: %w", ports.ErrQueryFailed, err)
	}
	return changes, nil
}

// scanner defines an interface compatible with *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanPositionChange(s scanner) (*ports.PositionChange, error) {
	c := &ports.PositionChange{}
	var side string
	err := s.Scan(&c.ID, &c.Kind, &c.Origin, &c.Reason, &c.Symbol, &side,
		&c.EntryPrice, &c.Quantity, &c.StrategyID, &c.At)
	if err != nil {
		return nil, err
	}
	c.Side = domain.Side(side)
	return c, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
