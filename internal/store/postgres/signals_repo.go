package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/pulsedeck/scanner/internal/store"
)

// uniqueViolation is the Postgres error code raised by the signals
// uniqueness constraint on (owner, strategy_id, symbol, bar_time_key).
const uniqueViolation = "23505"

// signalsRepo implements store.SignalRepo for PostgreSQL.
type signalsRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSignalsRepo creates a PostgreSQL signal repository.
func NewSignalsRepo(db *sqlx.DB, timeout time.Duration) store.SignalRepo {
	return &signalsRepo{db: db, timeout: timeout}
}

// signalRow is the flat row shape; payload travels as JSONB.
type signalRow struct {
	ID              string    `db:"id"`
	Owner           string    `db:"owner"`
	StrategyID      string    `db:"strategy_id"`
	Symbol          string    `db:"symbol"`
	Direction       string    `db:"direction"`
	Confidence      float64   `db:"confidence"`
	ConfidenceReady bool      `db:"confidence_ready"`
	Status          string    `db:"status"`
	BarTimeKey      string    `db:"bar_time_key"`
	SignalTime      time.Time `db:"signal_time"`
	Payload         []byte    `db:"payload"`
	CreatedAt       time.Time `db:"created_at"`
}

func (r *signalsRepo) Insert(ctx context.Context, sig store.Signal) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	payloadJSON, err := json.Marshal(sig.Payload)
	if err != nil {
		return fmt.Errorf("marshal signal payload: %w", err)
	}

	query := `
		INSERT INTO signals (id, owner, strategy_id, symbol, direction, confidence,
		                     confidence_ready, status, bar_time_key, signal_time, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err = r.db.ExecContext(ctx, query,
		sig.ID, sig.Owner, sig.StrategyID, sig.Symbol, sig.Direction,
		sig.Confidence, sig.ConfidenceReady, string(sig.Status),
		sig.BarTimeKey, sig.SignalTime, payloadJSON)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == uniqueViolation {
			return store.ErrDuplicateSignal
		}
		return fmt.Errorf("insert signal: %w", err)
	}
	return nil
}

func (r *signalsRepo) Latest(ctx context.Context, owner, strategyID, symbol string) (*store.Signal, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, owner, strategy_id, symbol, direction, confidence,
		       confidence_ready, status, bar_time_key, signal_time, payload, created_at
		FROM signals
		WHERE owner = $1 AND strategy_id = $2 AND symbol = $3
		ORDER BY signal_time DESC
		LIMIT 1`

	var row signalRow
	if err := r.db.GetContext(ctx, &row, query, owner, strategyID, symbol); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("query latest signal: %w", err)
	}
	return rowToSignal(row)
}

func (r *signalsRepo) CountSince(ctx context.Context, owner, symbol string, since time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var count int
	query := `SELECT COUNT(*) FROM signals WHERE owner = $1 AND symbol = $2 AND signal_time >= $3`
	if err := r.db.GetContext(ctx, &count, query, owner, symbol, since); err != nil {
		return 0, fmt.Errorf("count signals: %w", err)
	}
	return count, nil
}

func rowToSignal(row signalRow) (*store.Signal, error) {
	sig := &store.Signal{
		ID:              row.ID,
		Owner:           row.Owner,
		StrategyID:      row.StrategyID,
		Symbol:          row.Symbol,
		Direction:       row.Direction,
		Confidence:      row.Confidence,
		ConfidenceReady: row.ConfidenceReady,
		Status:          store.SignalStatus(row.Status),
		BarTimeKey:      row.BarTimeKey,
		SignalTime:      row.SignalTime,
		CreatedAt:       row.CreatedAt,
	}
	if len(row.Payload) > 0 {
		if err := json.Unmarshal(row.Payload, &sig.Payload); err != nil {
			return nil, fmt.Errorf("unmarshal signal payload: %w", err)
		}
	}
	return sig, nil
}
