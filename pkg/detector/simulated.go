package detector

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/utils"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	DefaultDetectProbability = 0.7

	minSimulatedConfidence = 0.65
	maxSimulatedConfidence = 0.98
	maxSimulatedRecords    = 3
)

type SimulatedOption func(*simulatedDetector)

// WithRand replaces the random source. Used by tests to get repeatable output.
func WithRand(rng *rand.Rand) SimulatedOption {
	return func(d *simulatedDetector) {
		d.rng = rng
	}
}

// WithDetectProbability sets the chance that an image yields any record.
func WithDetectProbability(p float64) SimulatedOption {
	return func(d *simulatedDetector) {
		d.probability = p
	}
}

type simulatedDetector struct {
	log         *logrus.Logger
	catalog     *Catalog
	probability float64

	mu  sync.Mutex
	rng *rand.Rand
}

func NewSimulated(log *logrus.Logger, catalog *Catalog, opts ...SimulatedOption) Detector {
	now := uint64(time.Now().UnixNano())
	d := &simulatedDetector{
		log:         log,
		catalog:     catalog,
		probability: DefaultDetectProbability,
		rng:         rand.New(rand.NewPCG(now, now>>1|1)),
	}

	for _, opt := range opts {
		opt(d)
	}

	log.WithFields(logrus.Fields{
		"strategy": StrategySimulated,
		"diseases": catalog.Len(),
	}).Info("simulated detector ready")

	return d
}

func (d *simulatedDetector) Strategy() string {
	return StrategySimulated
}

func (d *simulatedDetector) Info() entity.ModelInfo {
	return entity.ModelInfo{
		Status:  "simulated",
		Version: "YOLOv8n",
	}
}

func (d *simulatedDetector) Loaded() bool {
	return true
}

// Detect never fails: an unreadable image is logged and yields an empty batch.
func (d *simulatedDetector) Detect(ctx context.Context, img []byte) (*entity.DetectionBatch, error) {
	decoded, _, err := utils.DecodeImage(img)
	if err != nil {
		d.log.WithFields(logrus.Fields{
			"error": err.Error(),
		}).Warn("simulated detection could not read image")
		return Aggregate(nil), nil
	}

	bounds := decoded.Bounds()
	records := d.sample(bounds.Dx(), bounds.Dy())

	return Aggregate(records), nil
}

func (d *simulatedDetector) sample(width, height int) []entity.DetectionRecord {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.rng.Float64() >= d.probability || d.catalog.Len() == 0 {
		return nil
	}

	count := randInt(d.rng, 1, maxSimulatedRecords)
	if count > d.catalog.Len() {
		count = d.catalog.Len()
	}

	picked := d.rng.Perm(d.catalog.Len())[:count]
	records := make([]entity.DetectionRecord, 0, count)

	for _, idx := range picked {
		disease := d.catalog.At(idx)

		boxW := randInt(d.rng, int(float64(width)*0.15), int(float64(width)*0.4))
		boxH := randInt(d.rng, int(float64(height)*0.15), int(float64(height)*0.4))
		boxX := randInt(d.rng, 0, width-boxW)
		boxY := randInt(d.rng, 0, height-boxH)

		confidence := minSimulatedConfidence + d.rng.Float64()*(maxSimulatedConfidence-minSimulatedConfidence)

		records = append(records, entity.DetectionRecord{
			Mode:        entity.ModeDetection,
			Box:         &entity.Box{X: boxX, Y: boxY, Width: boxW, Height: boxH},
			Label:       disease.Label,
			Confidence:  math.Round(confidence*100) / 100,
			Description: disease.Description,
		})
	}

	return records
}

// randInt returns a uniform integer in [lo, hi], both inclusive.
func randInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.IntN(hi-lo+1)
}
