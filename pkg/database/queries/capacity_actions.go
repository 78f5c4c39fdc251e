package queries

import (
	"context"
	"database/sql"
	"time"

	"github.com/cloudpilot-labs/cost-governor/pkg/models"
)

type CapacityActionRepository struct {
	db *sql.DB
}

func NewCapacityActionRepository(db *sql.DB) *CapacityActionRepository {
	return &CapacityActionRepository{db: db}
}

func (r *CapacityActionRepository) Insert(ctx context.Context, action *models.CapacityAction) error {
	query := `
		INSERT INTO capacity_actions
			(fleet_id, timestamp, trigger, direction, desired_before, desired_after, reason, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	return r.db.QueryRowContext(ctx, query,
		action.FleetID,
		action.Timestamp,
		action.Trigger,
		action.Direction,
		action.DesiredBefore,
		action.DesiredAfter,
		action.Reason,
		action.Status,
	).Scan(&action.ID)
}

func (r *CapacityActionRepository) GetByFleet(ctx context.Context, fleetID string, from, to time.Time, limit int) ([]models.CapacityAction, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, fleet_id, timestamp, trigger, direction, desired_before, desired_after, reason, status
		FROM capacity_actions
		WHERE fleet_id = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp DESC
		LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, fleetID, from, to, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActions(rows)
}

func (r *CapacityActionRepository) GetRecent(ctx context.Context, limit int) ([]models.CapacityAction, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, fleet_id, timestamp, trigger, direction, desired_before, desired_after, reason, status
		FROM capacity_actions
		ORDER BY timestamp DESC
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActions(rows)
}

type ActionStats struct {
	FleetID       string    `json:"fleet_id"`
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	UpCount       int       `json:"up_count"`
	DownCount     int       `json:"down_count"`
	ScheduleCount int       `json:"schedule_count"`
	SuccessCount  int       `json:"success_count"`
	FailedCount   int       `json:"failed_count"`
}

func (r *CapacityActionRepository) GetStats(ctx context.Context, fleetID string, from, to time.Time) (*ActionStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE direction = 'UP') AS up_count,
			COUNT(*) FILTER (WHERE direction = 'DOWN') AS down_count,
			COUNT(*) FILTER (WHERE trigger = 'schedule') AS schedule_count,
			COUNT(*) FILTER (WHERE status = 'success') AS success_count,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed_count
		FROM capacity_actions
		WHERE fleet_id = $1 AND timestamp >= $2 AND timestamp <= $3`

	var stats ActionStats
	err := r.db.QueryRowContext(ctx, query, fleetID, from, to).Scan(
		&stats.UpCount, &stats.DownCount, &stats.ScheduleCount,
		&stats.SuccessCount, &stats.FailedCount,
	)
	if err != nil {
		return nil, err
	}

	stats.FleetID = fleetID
	stats.From = from
	stats.To = to

	return &stats, nil
}

func scanActions(rows *sql.Rows) ([]models.CapacityAction, error) {
	var actions []models.CapacityAction
	for rows.Next() {
		var a models.CapacityAction
		err := rows.Scan(
			&a.ID, &a.FleetID, &a.Timestamp, &a.Trigger, &a.Direction,
			&a.DesiredBefore, &a.DesiredAfter, &a.Reason, &a.Status,
		)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	return actions, rows.Err()
}
