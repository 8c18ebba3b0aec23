package detectionRepository

import (
	"SkinDetect/internal/entity"
	contextPkg "SkinDetect/pkg/context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type HistoryDB struct {
	ID               int64          `db:"id"`
	DetectionResults sql.NullString `db:"detection_results"`
	CreatedAt        time.Time      `db:"created_at"`
}

func (r *historyRepository) CreateHistory(ctx context.Context, imageData []byte, results []byte, createdAt time.Time) (int64, error) {
	requestID := contextPkg.GetRequestID(ctx)
	argsKV := map[string]interface{}{
		"image_data":        imageData,
		"detection_results": string(results),
		"created_at":        createdAt,
	}

	namedQuery := queryCreateHistory
	if r.driver == "postgres" {
		namedQuery += queryReturningID
	}

	query, args, err := sqlx.Named(namedQuery, argsKV)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to build SQL query for CreateHistory")
		return 0, err
	}
	query = r.q.Rebind(query)

	if r.driver == "postgres" {
		var id int64
		if err := r.q.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
			r.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"error":      err.Error(),
			}).Error("Database error when creating detection history")
			return 0, err
		}
		return id, nil
	}

	res, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when creating detection history")
		return 0, err
	}

	return res.LastInsertId()
}

func (r *historyRepository) GetRecentHistory(ctx context.Context, limit int) ([]entity.HistoryEntry, error) {
	requestID := contextPkg.GetRequestID(ctx)

	query, args, err := sqlx.Named(queryGetRecentHistory, map[string]interface{}{
		"limit": limit,
	})
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("GetRecentHistory named query preparation err")
		return nil, err
	}
	query = r.q.Rebind(query)

	var rows []HistoryDB
	if err := r.q.SelectContext(ctx, &rows, query, args...); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Database error when reading detection history")
		return nil, err
	}

	history := make([]entity.HistoryEntry, 0, len(rows))
	for _, row := range rows {
		history = append(history, row.toEntity())
	}

	return history, nil
}

// toEntity keeps detection_results only when it is valid JSON.
func (h HistoryDB) toEntity() entity.HistoryEntry {
	entry := entity.HistoryEntry{
		ID:        h.ID,
		CreatedAt: h.CreatedAt,
	}

	if h.DetectionResults.Valid && json.Valid([]byte(h.DetectionResults.String)) {
		entry.DetectionResults = json.RawMessage(h.DetectionResults.String)
	}

	return entry
}
