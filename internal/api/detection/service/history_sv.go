package detectionService

import (
	"SkinDetect/internal/api/detection"
	"SkinDetect/internal/entity"
	contextPkg "SkinDetect/pkg/context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *detectionService) GetHistory(ctx context.Context, limit int) (*detection.HistoryResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	switch {
	case limit < 0:
		return nil, detection.ErrInvalidLimit
	case limit == 0:
		limit = DefaultHistoryLimit
	case limit > MaxHistoryLimit:
		limit = MaxHistoryLimit
	}

	if s.repo == nil {
		return nil, detection.ErrStorageUnavailable
	}

	client, err := s.repo.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, detection.StorageFailure("open history", err)
	}

	history, err := client.History.GetRecentHistory(ctx, limit)
	if err != nil {
		return nil, detection.StorageFailure("read history", err)
	}

	return &detection.HistoryResponse{
		Success: true,
		History: history,
	}, nil
}

// GetStats reads the counters from Redis when configured, otherwise from the
// stats row.
func (s *detectionService) GetStats(ctx context.Context) (*detection.StatsResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	var (
		stats *entity.DetectionStats
		err   error
	)

	switch {
	case s.counter != nil:
		stats, err = s.counter.GetStats(ctx)
	case s.repo != nil:
		client, cerr := s.repo.NewClient(false)
		if cerr != nil {
			err = cerr
			break
		}
		stats, err = client.Stats.GetStats(ctx)
	default:
		return nil, detection.ErrStorageUnavailable
	}

	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to read detection stats")
		return nil, detection.StorageFailure("read stats", err)
	}

	return &detection.StatsResponse{
		Success: true,
		Stats:   stats,
	}, nil
}

func (s *detectionService) Health(_ context.Context) detection.HealthResponse {
	return detection.HealthResponse{
		Status:     "healthy",
		Strategy:   s.detector.Strategy(),
		Model:      s.detector.Info(),
		YoloLoaded: s.detector.Loaded(),
		Storage:    s.recorder.Kind(),
		Timestamp:  s.now().Format(time.RFC3339),
	}
}
