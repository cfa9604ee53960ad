// Package journal records what a run did: fills, per-cycle quotes, and a
// sessions table with final statistics. The bot only ever writes here; it
// never reads the journal back at startup.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	// WAL mode for concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	// Run schema migration
	if _, err := db.Exec(schemaDDL); err != nil {
		db.Close()
		return nil, fmt.Errorf("schema migration: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Fill is one confirmed order fill within a session.
type Fill struct {
	SessionID int64
	Time      time.Time
	OrderID   string
	Side      string
	Price     float64
	Size      int
}

// Cycle is one quoting cycle's outcome.
type Cycle struct {
	SessionID int64
	Time      time.Time
	Fair      float64
	Bid       float64
	Ask       float64
	Inventory int
}

// Session is a row from the sessions table.
type Session struct {
	ID              int64
	StartedAt       time.Time
	EndedAt         sql.NullTime
	Platform        string
	Market          string
	DryRun          bool
	Trades          int
	Profit          float64
	EndingInventory int
}

// Totals aggregates all sessions.
type Totals struct {
	Sessions int
	Trades   int
	Profit   float64
}

func (s *Store) BeginSession(ctx context.Context, platform, market string, dryRun bool) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (started_at, platform, market, dry_run)
		VALUES (?, ?, ?, ?)`,
		time.Now().UTC(), platform, market, dryRun,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

func (s *Store) EndSession(ctx context.Context, id int64, trades int, profit float64, endingInventory int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE sessions
		SET ended_at = ?, trades = ?, profit = ?, ending_inventory = ?
		WHERE id = ?`,
		time.Now().UTC(), trades, profit, endingInventory, id,
	)
	return err
}

func (s *Store) RecordFill(ctx context.Context, f *Fill) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO fills (session_id, ts, order_id, side, price, size)
		VALUES (?, ?, ?, ?, ?, ?)`,
		f.SessionID, f.Time.UTC(), f.OrderID, f.Side, f.Price, f.Size,
	)
	return err
}

func (s *Store) RecordCycle(ctx context.Context, c *Cycle) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cycles (session_id, ts, fair, bid, ask, inventory)
		VALUES (?, ?, ?, ?, ?, ?)`,
		c.SessionID, c.Time.UTC(), c.Fair, c.Bid, c.Ask, c.Inventory,
	)
	return err
}

func (s *Store) Sessions(ctx context.Context) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, started_at, ended_at, platform, market, dry_run,
			trades, profit, ending_inventory
		FROM sessions ORDER BY started_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Session
	for rows.Next() {
		var sess Session
		if err := rows.Scan(&sess.ID, &sess.StartedAt, &sess.EndedAt, &sess.Platform,
			&sess.Market, &sess.DryRun, &sess.Trades, &sess.Profit, &sess.EndingInventory); err != nil {
			return nil, err
		}
		results = append(results, sess)
	}
	return results, rows.Err()
}

func (s *Store) RecentFills(ctx context.Context, limit int) ([]Fill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, ts, order_id, side, price, size
		FROM fills ORDER BY ts DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Fill
	for rows.Next() {
		var f Fill
		if err := rows.Scan(&f.SessionID, &f.Time, &f.OrderID, &f.Side, &f.Price, &f.Size); err != nil {
			return nil, err
		}
		results = append(results, f)
	}
	return results, rows.Err()
}

func (s *Store) GetTotals(ctx context.Context) (*Totals, error) {
	var t Totals
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(trades), 0), COALESCE(SUM(profit), 0)
		FROM sessions`).Scan(&t.Sessions, &t.Trades, &t.Profit)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
