package detectionService

import (
	"SkinDetect/internal/api/detection"
	"SkinDetect/internal/entity"
	contextPkg "SkinDetect/pkg/context"
	"SkinDetect/pkg/detector"
	"SkinDetect/pkg/utils"
	"errors"
	"mime/multipart"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

func (s *detectionService) DetectUpload(ctx context.Context, file *multipart.FileHeader) (*detection.DetectResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if err := s.utils.ValidateImageFile(file); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Invalid image upload")
		return nil, inputError(err)
	}

	raw, err := s.utils.ReadImageFile(file)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Failed to read image upload")
		return nil, inputError(err)
	}

	return s.detect(ctx, raw)
}

func (s *detectionService) DetectBase64(ctx context.Context, payload string) (*detection.DetectResponse, error) {
	raw, err := s.utils.DecodeBase64Image(payload)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Failed to decode base64 image")
		return nil, inputError(err)
	}

	return s.detect(ctx, raw)
}

func (s *detectionService) detect(ctx context.Context, raw []byte) (*detection.DetectResponse, error) {
	requestID := contextPkg.GetRequestID(ctx)

	if _, _, err := utils.DecodeImage(raw); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Warn("Uploaded bytes are not an image")
		return nil, detection.ErrInvalidImage
	}

	batch, err := s.runDetector(ctx, raw)
	if err != nil {
		return nil, err
	}

	annotated, err := s.annotator.Annotate(raw, batch)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"error":      err.Error(),
		}).Error("Failed to annotate image")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored, err := s.recorder.Record(ctx, raw, annotated, batch)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"recorder":   s.recorder.Kind(),
			"error":      err.Error(),
		}).Error("Failed to persist detection")
		return nil, storageError(err)
	}

	s.countStats(ctx, batch)

	res := &detection.DetectResponse{
		Success:       true,
		Detections:    batch.Detections,
		BestDetection: batch.Best,
		ImageBase64:   s.utils.EncodeDataURI(annotated),
		Timestamp:     s.now().Format(time.RFC3339),
	}
	if stored != nil {
		res.ImageID = stored.ImageID
		res.RecordID = stored.RecordID
		res.RawImageFile = stored.RawImageFile
		res.DetectedImageFile = stored.DetectedImageFile
		res.ResultsJSONFile = stored.ResultsJSONFile
	}

	s.log.WithFields(logrus.Fields{
		"request_id": requestID,
		"strategy":   s.detector.Strategy(),
		"detections": len(batch.Detections),
	}).Info("Detection completed")

	return res, nil
}

// DetectFrame runs detection without annotation or persistence. Failures are
// reported inside the frame response so the stream stays open.
func (s *detectionService) DetectFrame(ctx context.Context, frame []byte) (*detection.FrameResponse, error) {
	timestamp := s.now().Format(time.RFC3339)

	if _, _, err := utils.DecodeImage(frame); err != nil {
		return &detection.FrameResponse{
			Detections: []entity.DetectionRecord{},
			Error:      detection.ErrInvalidImage.Error(),
			Timestamp:  timestamp,
		}, nil
	}

	batch, err := s.runDetector(ctx, frame)
	if err != nil {
		if errors.Is(err, detection.ErrModelUnavailable) {
			return &detection.FrameResponse{
				Detections: []entity.DetectionRecord{},
				Error:      err.Error(),
				Timestamp:  timestamp,
			}, nil
		}
		return nil, err
	}

	detections := batch.Detections
	if detections == nil {
		detections = []entity.DetectionRecord{}
	}

	return &detection.FrameResponse{
		Success:       true,
		Detections:    detections,
		BestDetection: batch.Best,
		Timestamp:     timestamp,
	}, nil
}

func (s *detectionService) runDetector(ctx context.Context, raw []byte) (*entity.DetectionBatch, error) {
	batch, err := s.detector.Detect(ctx, raw)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"strategy":   s.detector.Strategy(),
			"error":      err.Error(),
		}).Error("Detector failed")

		if errors.Is(err, detector.ErrModelUnavailable) {
			return nil, detection.ErrModelUnavailable
		}
		return nil, err
	}

	if batch == nil {
		batch = detector.Aggregate(nil)
	}

	return batch, nil
}

// countStats bumps the external counter after a successful write. A failure
// here does not fail the request.
func (s *detectionService) countStats(ctx context.Context, batch *entity.DetectionBatch) {
	if s.counter == nil || batch.Empty() {
		return
	}

	if err := s.counter.IncrementStats(ctx, 1, int64(len(batch.Detections))); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": contextPkg.GetRequestID(ctx),
			"error":      err.Error(),
		}).Warn("Failed to increment detection stats")
	}
}

func inputError(err error) error {
	switch {
	case errors.Is(err, utils.ErrNoFile):
		return detection.ErrNoImage
	case errors.Is(err, utils.ErrEmptyFilename):
		return detection.ErrEmptyFilename
	case errors.Is(err, utils.ErrFileTooLarge):
		return detection.ErrImageTooLarge
	case errors.Is(err, utils.ErrEmptyPayload):
		return detection.ErrNoImage
	case errors.Is(err, utils.ErrInvalidBase64):
		return detection.ErrInvalidBase64
	case errors.Is(err, utils.ErrInvalidImage):
		return detection.ErrInvalidImage
	default:
		return err
	}
}

func storageError(err error) error {
	if errors.Is(err, detection.ErrStorage) || errors.Is(err, detection.ErrStorageUnavailable) {
		return err
	}
	return detection.StorageFailure("record", err)
}
