// Package postgres persists alert history and registry snapshots so
// cooldowns survive restarts.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/sawpanic/launchradar/internal/alerts"
	"github.com/sawpanic/launchradar/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS alert_records (
	id         UUID PRIMARY KEY,
	mint       TEXT NOT NULL UNIQUE,
	symbol     TEXT NOT NULL,
	score      DOUBLE PRECISION NOT NULL,
	alerted_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS registry_snapshots (
	id         BIGSERIAL PRIMARY KEY,
	taken_at   TIMESTAMPTZ NOT NULL,
	mint       TEXT NOT NULL,
	best_score DOUBLE PRECISION NOT NULL,
	candidate  JSONB NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_snapshots_mint ON registry_snapshots (mint, taken_at DESC);
`

// Store wraps a Postgres connection for alert and snapshot persistence.
type Store struct {
	db *sqlx.DB
}

// Open connects, pings, and ensures the schema exists.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres connect: %w", err)
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// AlertStore adapts the database to the gate's record-store interface.
// Database errors are logged, not surfaced: a flaky database degrades the
// cooldown to best-effort instead of halting the pipeline.
type AlertStore struct {
	store *Store
}

// Alerts returns the gate-facing view of the store.
func (s *Store) Alerts() *AlertStore {
	return &AlertStore{store: s}
}

func (a *AlertStore) Get(mint string) (*alerts.AlertRecord, bool) {
	var rec alerts.AlertRecord
	err := a.store.db.Get(&rec,
		`SELECT id, mint, symbol, score, alerted_at FROM alert_records WHERE mint = $1`, mint)
	if err != nil {
		return nil, false
	}
	return &rec, true
}

func (a *AlertStore) Put(record *alerts.AlertRecord) {
	_, err := a.store.db.Exec(`
		INSERT INTO alert_records (id, mint, symbol, score, alerted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (mint) DO UPDATE
		SET id = EXCLUDED.id, symbol = EXCLUDED.symbol,
		    score = EXCLUDED.score, alerted_at = EXCLUDED.alerted_at`,
		record.ID, record.Mint, record.Symbol, record.Score, record.AlertedAt)
	if err != nil {
		log.Error().Err(err).Str("mint", record.Mint).Msg("Alert record write failed")
	}
}

func (a *AlertStore) Delete(mint string) {
	if _, err := a.store.db.Exec(`DELETE FROM alert_records WHERE mint = $1`, mint); err != nil {
		log.Error().Err(err).Str("mint", mint).Msg("Alert record delete failed")
	}
}

func (a *AlertStore) All() []*alerts.AlertRecord {
	var recs []*alerts.AlertRecord
	err := a.store.db.Select(&recs,
		`SELECT id, mint, symbol, score, alerted_at FROM alert_records`)
	if err != nil {
		log.Error().Err(err).Msg("Alert record scan failed")
		return nil
	}
	return recs
}

// SaveSnapshot writes one row per tracked token for post-session analysis.
func (s *Store) SaveSnapshot(ctx context.Context, takenAt time.Time, entries map[string]SnapshotEntry) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("snapshot begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PreparexContext(ctx, `
		INSERT INTO registry_snapshots (taken_at, mint, best_score, candidate)
		VALUES ($1, $2, $3, $4)`)
	if err != nil {
		return fmt.Errorf("snapshot prepare: %w", err)
	}
	defer stmt.Close()

	for mint, entry := range entries {
		blob, err := json.Marshal(entry.Candidate)
		if err != nil {
			return fmt.Errorf("snapshot encode %s: %w", mint, err)
		}
		if _, err := stmt.ExecContext(ctx, takenAt, mint, entry.BestScore, blob); err != nil {
			return fmt.Errorf("snapshot insert %s: %w", mint, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("snapshot commit: %w", err)
	}
	log.Debug().Int("tokens", len(entries)).Msg("Registry snapshot persisted")
	return nil
}

// SnapshotEntry is the per-token payload of a snapshot.
type SnapshotEntry struct {
	Candidate *models.TokenCandidate
	BestScore float64
}

// BestScores reads the highest score ever persisted per mint, newest first.
func (s *Store) BestScores(ctx context.Context, limit int) (map[string]float64, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT mint, MAX(best_score) AS best
		FROM registry_snapshots
		GROUP BY mint
		ORDER BY best DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("best scores query: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var mint string
		var best float64
		if err := rows.Scan(&mint, &best); err != nil {
			return nil, fmt.Errorf("best scores scan: %w", err)
		}
		out[mint] = best
	}
	return out, rows.Err()
}
