package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"agility-scorer/internal/domain"

	"github.com/rs/zerolog"
)

// StateRepository keeps the persisted competition state as one JSON row.
type StateRepository struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

func NewStateRepository(db *sql.DB, logger zerolog.Logger) *StateRepository {
	return &StateRepository{db: db, logger: logger, now: time.Now}
}

// Load returns nil, nil when nothing is stored and domain.ErrIncompatibleState
// when the stored shape is not the current one.
func (r *StateRepository) Load(ctx context.Context) (*domain.PersistedState, error) {
	var payload []byte
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM competition_state WHERE id = 1`).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to read competition state")
		return nil, fmt.Errorf("failed to read competition state: %w", err)
	}

	var probe struct {
		Version *int `json:"version"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIncompatibleState, err)
	}
	if probe.Version == nil || *probe.Version != domain.PersistedStateVersion {
		return nil, fmt.Errorf("%w: stored version %v", domain.ErrIncompatibleState, versionOf(probe.Version))
	}

	var st domain.PersistedState
	if err := json.Unmarshal(payload, &st); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrIncompatibleState, err)
	}
	return &st, nil
}

func (r *StateRepository) Save(ctx context.Context, st domain.PersistedState) error {
	payload, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to encode competition state: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO competition_state (id, payload, updated_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		payload, r.now().UTC())
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to write competition state")
		return fmt.Errorf("failed to write competition state: %w", err)
	}
	return nil
}

func (r *StateRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM competition_state`); err != nil {
		r.logger.Error().Err(err).Msg("failed to clear competition state")
		return fmt.Errorf("failed to clear competition state: %w", err)
	}
	return nil
}

func versionOf(v *int) any {
	if v == nil {
		return "none"
	}
	return *v
}
