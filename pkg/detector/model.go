package detector

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/utils"
	"fmt"
	"math"
	"strconv"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const DefaultMinConfidence = 0.30

type ModelConfig struct {
	MinConfDetection      float64
	MinConfClassification float64
	ModelPath             string
}

type modelDetector struct {
	log     *logrus.Logger
	backend Backend
	catalog *Catalog
	cfg     ModelConfig
}

// NewModel builds the model-backed strategy. backend may be nil when loading
// failed; Detect then reports ErrModelUnavailable.
func NewModel(log *logrus.Logger, backend Backend, catalog *Catalog, cfg ModelConfig) Detector {
	if backend != nil {
		log.WithFields(logrus.Fields{
			"backend": backend.Name(),
			"classes": backend.Classes(),
		}).Info("model detector ready")
	} else {
		log.Warn("model detector created without a backend")
	}

	return &modelDetector{
		log:     log,
		backend: backend,
		catalog: catalog,
		cfg:     cfg,
	}
}

func (d *modelDetector) Strategy() string {
	return StrategyModel
}

func (d *modelDetector) Loaded() bool {
	return d.backend != nil
}

func (d *modelDetector) Info() entity.ModelInfo {
	if d.backend == nil {
		return entity.ModelInfo{Status: "unavailable", Path: d.cfg.ModelPath}
	}
	return entity.ModelInfo{
		Status:  "loaded",
		Backend: d.backend.Name(),
		Path:    d.cfg.ModelPath,
		Classes: d.backend.Classes(),
	}
}

func (d *modelDetector) Detect(ctx context.Context, img []byte) (*entity.DetectionBatch, error) {
	if d.backend == nil {
		return nil, ErrModelUnavailable
	}

	decoded, _, err := utils.DecodeImage(img)
	if err != nil {
		return nil, err
	}

	out, err := d.backend.Infer(ctx, utils.ToRGBA(decoded))
	if err != nil {
		return nil, fmt.Errorf("%s inference: %w", d.backend.Name(), err)
	}

	return Aggregate(d.records(out)), nil
}

// records filters raw output by the per-mode thresholds. Detection records
// come before classification records.
func (d *modelDetector) records(out *entity.InferenceOutput) []entity.DetectionRecord {
	if out == nil {
		return nil
	}

	records := make([]entity.DetectionRecord, 0, len(out.Boxes)+len(out.Probs))

	for _, b := range out.Boxes {
		if b.Confidence < d.cfg.MinConfDetection {
			continue
		}

		label := labelFor(out.Names, b.Class)
		records = append(records, entity.DetectionRecord{
			Mode: entity.ModeDetection,
			Box: &entity.Box{
				X:      int(b.X1),
				Y:      int(b.Y1),
				Width:  int(b.X2 - b.X1),
				Height: int(b.Y2 - b.Y1),
			},
			Label:       label,
			Confidence:  round4(b.Confidence),
			Description: d.catalog.Describe(label),
		})
	}

	for cls, conf := range out.Probs {
		if conf < d.cfg.MinConfClassification {
			continue
		}

		label := labelFor(out.Names, cls)
		records = append(records, entity.DetectionRecord{
			Mode:        entity.ModeClassification,
			Label:       label,
			Confidence:  round4(conf),
			Description: d.catalog.Describe(label),
		})
	}

	return records
}

func labelFor(names map[int]string, cls int) string {
	if name, ok := names[cls]; ok {
		return name
	}
	return strconv.Itoa(cls)
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
