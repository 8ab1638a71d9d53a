package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/pulsedeck/scanner/internal/market"
	"github.com/pulsedeck/scanner/internal/store"
)

// strategiesRepo implements store.StrategyRepo for PostgreSQL. Definitions
// with an empty owner form the shared core library, visible to every scan
// owner.
type strategiesRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewStrategiesRepo creates a PostgreSQL strategy repository.
func NewStrategiesRepo(db *sqlx.DB, timeout time.Duration) store.StrategyRepo {
	return &strategiesRepo{db: db, timeout: timeout}
}

type strategyRow struct {
	ID              string `db:"id"`
	Slug            string `db:"slug"`
	Owner           string `db:"owner"`
	TypeID          string `db:"type_id"`
	AssetScope      string `db:"asset_scope"`
	Timeframe       string `db:"timeframe"`
	CooldownMinutes int    `db:"cooldown_minutes"`
	OncePerSession  bool   `db:"once_per_session"`
	Enabled         bool   `db:"enabled"`
	Confidence      []byte `db:"confidence"`
}

func (r *strategiesRepo) ListEnabled(ctx context.Context, owner string) ([]store.StrategyDefinition, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id, slug, owner, type_id, asset_scope, timeframe,
		       cooldown_minutes, once_per_session, enabled, confidence
		FROM strategies
		WHERE enabled = true AND (owner = $1 OR owner = '')
		ORDER BY slug`

	var rows []strategyRow
	if err := r.db.SelectContext(ctx, &rows, query, owner); err != nil {
		return nil, fmt.Errorf("list enabled strategies: %w", err)
	}

	defs := make([]store.StrategyDefinition, 0, len(rows))
	for _, row := range rows {
		def := store.StrategyDefinition{
			ID:              row.ID,
			Slug:            row.Slug,
			Owner:           row.Owner,
			TypeID:          row.TypeID,
			AssetScope:      market.ParseClass(row.AssetScope),
			Timeframe:       row.Timeframe,
			CooldownMinutes: row.CooldownMinutes,
			OncePerSession:  row.OncePerSession,
			Enabled:         row.Enabled,
		}
		if len(row.Confidence) > 0 {
			if err := json.Unmarshal(row.Confidence, &def.Confidence); err != nil {
				return nil, fmt.Errorf("strategy %s: unmarshal confidence overrides: %w", row.Slug, err)
			}
		}
		if err := def.Validate(); err != nil {
			return nil, fmt.Errorf("invalid stored strategy: %w", err)
		}
		defs = append(defs, def)
	}
	return defs, nil
}
