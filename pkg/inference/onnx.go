package inference

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/inference/yolo"
	"fmt"
	"image"
	"sync"

	"github.com/sirupsen/logrus"
	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/net/context"
)

type ONNXConfig struct {
	ModelPath     string
	MetadataPath  string
	SharedLibPath string
	CandidateConf float64
	IoU           float64
}

// ONNX runs an exported YOLOv8 model through onnxruntime. The session owns
// fixed input and output tensors, so calls are serialised.
type ONNX struct {
	log      *logrus.Logger
	metadata *yolo.Metadata
	opts     yolo.Options

	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

func NewONNX(log *logrus.Logger, cfg ONNXConfig) (*ONNX, error) {
	metadata, err := yolo.LoadMetadata(cfg.MetadataPath)
	if err != nil {
		return nil, err
	}

	if cfg.SharedLibPath != "" {
		ort.SetSharedLibraryPath(cfg.SharedLibPath)
	}

	if !ort.IsInitialized() {
		if err := ort.InitializeEnvironment(); err != nil {
			return nil, fmt.Errorf("failed to initialize ONNX environment: %w", err)
		}
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.InputShape...))
	if err != nil {
		return nil, fmt.Errorf("failed to create input tensor: %w", err)
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(metadata.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("failed to create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(cfg.ModelPath,
		[]string{metadata.InputName}, []string{metadata.OutputName},
		[]ort.ArbitraryTensor{inputTensor}, []ort.ArbitraryTensor{outputTensor},
		nil)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("failed to create ONNX session: %w", err)
	}

	log.WithFields(logrus.Fields{
		"model":   cfg.ModelPath,
		"task":    metadata.Task,
		"classes": metadata.Classes,
	}).Info("ONNX model loaded")

	return &ONNX{
		log:      log,
		metadata: metadata,
		opts: yolo.Options{
			Conf: cfg.CandidateConf,
			IoU:  cfg.IoU,
		},
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
	}, nil
}

func (o *ONNX) Name() string {
	return BackendONNX
}

func (o *ONNX) Classes() []string {
	return o.metadata.Classes
}

func (o *ONNX) Infer(ctx context.Context, img image.Image) (*entity.InferenceOutput, error) {
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

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, err := yolo.ToCHW(input, o.inputTensor.GetData()); err != nil {
		return nil, fmt.Errorf("prepare input: %w", err)
	}

	if err := o.session.Run(); err != nil {
		return nil, fmt.Errorf("inference failed: %w", err)
	}

	data := o.outputTensor.GetData()
	nc := len(o.metadata.Classes)

	if o.metadata.Task == yolo.TaskClassify {
		out.Probs = yolo.Probabilities(data[:min(nc, len(data))])
		return out, nil
	}

	shape := o.metadata.OutputShape
	numCandidates := int(shape[len(shape)-1])
	out.Boxes = yolo.DecodeDetections(data, nc, numCandidates, lb, o.opts)

	return out, nil
}

func (o *ONNX) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.inputTensor != nil {
		o.inputTensor.Destroy()
	}
	if o.outputTensor != nil {
		o.outputTensor.Destroy()
	}
	if o.session != nil {
		o.session.Destroy()
	}
	ort.DestroyEnvironment()
}
