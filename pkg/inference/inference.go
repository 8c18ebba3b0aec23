// Package inference provides the model backends behind the model-backed
// detection strategy.
package inference

const (
	BackendONNX   = "onnx"
	BackendRemote = "remote"
	BackendGemini = "gemini"
	BackendOpenCV = "opencv"
)
