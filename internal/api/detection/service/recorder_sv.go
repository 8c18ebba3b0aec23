package detectionService

import (
	"SkinDetect/internal/api/detection"
	detectionRepository "SkinDetect/internal/api/detection/repository"
	"SkinDetect/internal/entity"
	contextPkg "SkinDetect/pkg/context"
	"SkinDetect/pkg/response"
	"SkinDetect/pkg/storage"
	"SkinDetect/pkg/utils"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	RecorderSQL         = "sql"
	RecorderFiles       = "files"
	RecorderNone        = "none"
	RecorderUnavailable = "unavailable"

	artifactTimeLayout = "20060102_150405"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Recorder persists one finished detection.
type Recorder interface {
	Record(ctx context.Context, raw, annotated []byte, batch *entity.DetectionBatch) (*entity.StoredDetection, error)
	Kind() string
}

type sqlRecorder struct {
	log        *logrus.Logger
	repo       detectionRepository.Repository
	countStats bool
	now        func() time.Time
}

// NewSQLRecorder stores the raw image and the detections as one history row.
// With countStats the stats row is updated in the same transaction.
func NewSQLRecorder(log *logrus.Logger, repo detectionRepository.Repository, countStats bool) Recorder {
	return &sqlRecorder{
		log:        log,
		repo:       repo,
		countStats: countStats,
		now:        time.Now,
	}
}

func (r *sqlRecorder) Kind() string {
	return RecorderSQL
}

func (r *sqlRecorder) Record(ctx context.Context, raw, _ []byte, batch *entity.DetectionBatch) (*entity.StoredDetection, error) {
	requestID := contextPkg.GetRequestID(ctx)

	results, err := json.Marshal(batch.Detections)
	if err != nil {
		return nil, detection.StorageFailure("encode results", err)
	}

	client, err := r.repo.NewClient(true)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to create repository client")
		return nil, detection.StorageFailure("begin transaction", err)
	}
	defer client.Rollback()

	id, err := client.History.CreateHistory(ctx, raw, results, r.now())
	if err != nil {
		return nil, detection.StorageFailure("insert history", err)
	}

	if r.countStats && !batch.Empty() {
		if err := client.Stats.IncrementStats(ctx, len(batch.Detections)); err != nil {
			return nil, detection.StorageFailure("update stats", err)
		}
	}

	if err := client.Commit(); err != nil {
		r.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to commit detection history")
		return nil, detection.StorageFailure("commit", err)
	}

	return &entity.StoredDetection{ImageID: &id}, nil
}

type fileRecorder struct {
	log   *logrus.Logger
	store storage.IArtifactStore
	now   func() time.Time
}

// NewFileRecorder writes a raw image, an annotated image and a results
// snapshot per request, all sharing one timestamp prefix.
func NewFileRecorder(log *logrus.Logger, store storage.IArtifactStore) Recorder {
	return &fileRecorder{
		log:   log,
		store: store,
		now:   time.Now,
	}
}

func (r *fileRecorder) Kind() string {
	return RecorderFiles + ":" + r.store.Kind()
}

func (r *fileRecorder) Record(ctx context.Context, raw, annotated []byte, batch *entity.DetectionBatch) (*entity.StoredDetection, error) {
	requestID := contextPkg.GetRequestID(ctx)
	now := r.now()
	ts := artifactPrefix(now)

	rawJPEG, err := utils.ReencodeJPEG(raw)
	if err != nil {
		return nil, detection.StorageFailure("encode raw image", err)
	}
	rawName, err := r.store.Put(ctx, ts+"_raw.jpg", rawJPEG, "image/jpeg")
	if err != nil {
		return nil, detection.StorageFailure("save raw image", err)
	}

	detectedJPEG, err := utils.ReencodeJPEG(annotated)
	if err != nil {
		return nil, detection.StorageFailure("encode detected image", err)
	}
	detectedName, err := r.store.Put(ctx, ts+"_detected.jpg", detectedJPEG, "image/jpeg")
	if err != nil {
		return nil, detection.StorageFailure("save detected image", err)
	}

	snapshot := detection.ResultsSnapshot{
		Timestamp:         now.Format(time.RFC3339),
		Detections:        batch.Detections,
		BestDetection:     batch.Best,
		RawImageFile:      rawName,
		DetectedImageFile: detectedName,
	}
	body, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return nil, detection.StorageFailure("encode results", err)
	}
	resultsName, err := r.store.Put(ctx, ts+"_results.json", body, "application/json")
	if err != nil {
		return nil, detection.StorageFailure("save results", err)
	}

	r.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"raw":        rawName,
		"detected":   detectedName,
		"results":    resultsName,
	}).Debug("Detection artifacts saved")

	return &entity.StoredDetection{
		RawImageFile:      rawName,
		DetectedImageFile: detectedName,
		ResultsJSONFile:   resultsName,
	}, nil
}

// artifactPrefix renders now as YYYYMMDD_HHMMSS_micro.
func artifactPrefix(now time.Time) string {
	return fmt.Sprintf("%s_%06d", now.Format(artifactTimeLayout), now.Nanosecond()/int(time.Microsecond))
}

type disabledRecorder struct {
	utils utils.IUtils
}

// NewDisabledRecorder persists nothing and hands back a synthetic record id.
func NewDisabledRecorder(utils utils.IUtils) Recorder {
	return &disabledRecorder{utils: utils}
}

func (r *disabledRecorder) Kind() string {
	return RecorderNone
}

func (r *disabledRecorder) Record(_ context.Context, _, _ []byte, _ *entity.DetectionBatch) (*entity.StoredDetection, error) {
	id, err := r.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return nil, detection.StorageFailure("generate id", err)
	}
	return &entity.StoredDetection{RecordID: id}, nil
}

type unavailableRecorder struct {
	reason error
}

// NewUnavailableRecorder fails every write. It stands in for storage that
// could not be opened at startup.
func NewUnavailableRecorder(reason error) Recorder {
	return &unavailableRecorder{reason: reason}
}

func (r *unavailableRecorder) Kind() string {
	return RecorderUnavailable
}

func (r *unavailableRecorder) Record(_ context.Context, _, _ []byte, _ *entity.DetectionBatch) (*entity.StoredDetection, error) {
	if r.reason != nil {
		return nil, response.Wrap(detection.ErrStorageUnavailable, r.reason)
	}
	return nil, detection.ErrStorageUnavailable
}
