package detectionService

import (
	"SkinDetect/internal/api/detection"
	detectionRepository "SkinDetect/internal/api/detection/repository"
	"SkinDetect/pkg/annotate"
	"SkinDetect/pkg/detector"
	"SkinDetect/pkg/redis"
	"SkinDetect/pkg/utils"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	DefaultHistoryLimit = 10
	MaxHistoryLimit     = 100
)

type IDetectionService interface {
	DetectUpload(ctx context.Context, file *multipart.FileHeader) (*detection.DetectResponse, error)
	DetectBase64(ctx context.Context, payload string) (*detection.DetectResponse, error)
	DetectFrame(ctx context.Context, frame []byte) (*detection.FrameResponse, error)
	GetHistory(ctx context.Context, limit int) (*detection.HistoryResponse, error)
	GetStats(ctx context.Context) (*detection.StatsResponse, error)
	Health(ctx context.Context) detection.HealthResponse
}

type detectionService struct {
	log       *logrus.Logger
	detector  detector.Detector
	annotator annotate.IAnnotator
	recorder  Recorder
	repo      detectionRepository.Repository
	counter   redis.IRedis
	utils     utils.IUtils
	now       func() time.Time
}

// NewDetectionService wires the pipeline. repo and counter may be nil when
// history and stats are not kept in SQL or Redis.
func NewDetectionService(
	log *logrus.Logger,
	detector detector.Detector,
	annotator annotate.IAnnotator,
	recorder Recorder,
	repo detectionRepository.Repository,
	counter redis.IRedis,
	utils utils.IUtils,
) IDetectionService {
	if recorder == nil {
		recorder = NewUnavailableRecorder(nil)
	}

	return &detectionService{
		log:       log,
		detector:  detector,
		annotator: annotator,
		recorder:  recorder,
		repo:      repo,
		counter:   counter,
		utils:     utils,
		now:       time.Now,
	}
}
