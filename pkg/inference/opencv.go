//go:build gocv

package inference

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/detector"
	"SkinDetect/pkg/inference/yolo"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	"gocv.io/x/gocv"
	"golang.org/x/net/context"
)

type OpenCVConfig struct {
	ModelPath     string
	ConfigPath    string
	MetadataPath  string
	CandidateConf float64
	IoU           float64
}

// OpenCV runs a YOLOv8 export through the OpenCV DNN module.
type OpenCV struct {
	log      *logrus.Logger
	metadata *yolo.Metadata
	opts     yolo.Options

	mu  sync.Mutex
	net gocv.Net
}

func NewOpenCV(log *logrus.Logger, cfg OpenCVConfig) (*OpenCV, error) {
	metadata, err := yolo.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return nil, err
	}

	net := gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	if net.Empty() {
		return nil, fmt.Errorf("failed to load network from %s", cfg.ModelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return nil, fmt.Errorf("failed to set preferable backend or target")
	}

	log.WithFields(logrus.Fields{
		"model":   cfg.ModelPath,
		"classes": metadata.Classes,
	}).Info("OpenCV network loaded")

	return &OpenCV{
		log:      log,
		metadata: metadata,
		opts:     yolo.Options{Conf: cfg.CandidateConf, IoU: cfg.IoU},
		net:      net,
	}, nil
}

func newOpenCVBackend(log *logrus.Logger, cfg OpenCVConfig) (detector.Backend, error) {
	return NewOpenCV(log, cfg)
}

func (o *OpenCV) Name() string {
	return BackendOpenCV
}

func (o *OpenCV) Classes() []string {
	return o.metadata.Classes
}

func (o *OpenCV) Infer(ctx context.Context, img image.Image) (*entity.InferenceOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	size := o.metadata.ImageSize
	out := &entity.InferenceOutput{Names: o.metadata.Names()}

	var (
		input *image.RGBA
		lb    yolo.Letterbox
	)
	if o.metadata.Task == yolo.TaskClassify {
		input = yolo.SquareImage(img, size)
	} else {
		input, lb = yolo.LetterboxImage(img, size)
	}

	mat, err := gocv.ImageToMatRGB(input)
	if err != nil {
		return nil, fmt.Errorf("failed to convert image: %w", err)
	}
	defer mat.Close()

	// ImageToMatRGB yields BGR channel order, so swapRB restores RGB.
	blob := gocv.BlobFromImage(mat, 1.0/255.0, image.Pt(size, size), gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	o.mu.Lock()
	defer o.mu.Unlock()

	o.net.SetInput(blob, "")
	output := o.net.Forward("")
	defer output.Close()

	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("failed to read output: %w", err)
	}

	nc := len(o.metadata.Classes)
	if o.metadata.Task == yolo.TaskClassify {
		out.Probs = yolo.Probabilities(data[:min(nc, len(data))])
		return out, nil
	}

	sizes := output.Size()
	numCandidates := sizes[len(sizes)-1]
	out.Boxes = yolo.DecodeDetections(data, nc, numCandidates, lb, o.opts)

	return out, nil
}

func (o *OpenCV) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.net.Close()
}
