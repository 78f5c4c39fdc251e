package queries

import (
	"context"
	"database/sql"
	"time"
)

type WarningRecord struct {
	ID        int       `json:"id"`
	ObjectKey string    `json:"object_key"`
	Epoch     string    `json:"epoch"`
	DaysLeft  int       `json:"days_left"`
	WarnedAt  time.Time `json:"warned_at"`
}

type WarningRepository struct {
	db *sql.DB
}

func NewWarningRepository(db *sql.DB) *WarningRepository {
	return &WarningRepository{db: db}
}

func (r *WarningRepository) Insert(ctx context.Context, w *WarningRecord) error {
	query := `
		INSERT INTO expiration_warnings (object_key, epoch, days_left, warned_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (object_key, epoch) DO NOTHING
		RETURNING id`

	err := r.db.QueryRowContext(ctx, query, w.ObjectKey, w.Epoch, w.DaysLeft, w.WarnedAt).Scan(&w.ID)
	if err == sql.ErrNoRows {
		// Conflict: warning already recorded for this epoch.
		return nil
	}
	return err
}

func (r *WarningRepository) GetRecent(ctx context.Context, limit int) ([]WarningRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, object_key, epoch, days_left, warned_at
		FROM expiration_warnings
		ORDER BY warned_at DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []WarningRecord
	for rows.Next() {
		var w WarningRecord
		if err := rows.Scan(&w.ID, &w.ObjectKey, &w.Epoch, &w.DaysLeft, &w.WarnedAt); err != nil {
			return nil, err
		}
		records = append(records, w)
	}
	return records, rows.Err()
}
