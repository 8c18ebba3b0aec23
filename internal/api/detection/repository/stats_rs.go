package detectionRepository

import (
	"SkinDetect/internal/entity"
	contextPkg "SkinDetect/pkg/context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (r *statsRepository) IncrementStats(ctx context.Context, diseasesFound int) error {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryIncrementStats, map[string]interface{}{
		"diseases_found": diseasesFound,
		"updated_at":     time.Now(),
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for IncrementStats")
		return err
	}
	query = r.q.Rebind(query)

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when updating detection stats")
		return err
	}

	return nil
}

// GetStats returns nil without error when the stats row does not exist.
func (r *statsRepository) GetStats(ctx context.Context) (*entity.DetectionStats, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var stats entity.DetectionStats
	if err := r.q.QueryRowxContext(ctx, queryGetStats).StructScan(&stats); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when reading detection stats")
		return nil, err
	}

	return &stats, nil
}
