package detector

import (
	"SkinDetect/internal/entity"
	"errors"
	"image"

	"golang.org/x/net/context"
)

const (
	StrategySimulated = "simulated"
	StrategyModel     = "model"
)

var ErrModelUnavailable = errors.New("model not loaded")

// Detector turns raw image bytes into an aggregated batch.
type Detector interface {
	Detect(ctx context.Context, img []byte) (*entity.DetectionBatch, error)
	Strategy() string
	Info() entity.ModelInfo
	Loaded() bool
}

// Backend runs one forward pass and returns raw, unfiltered output.
type Backend interface {
	Infer(ctx context.Context, img image.Image) (*entity.InferenceOutput, error)
	Name() string
	Classes() []string
}
