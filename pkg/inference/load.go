package inference

import (
	"SkinDetect/pkg/detector"
	"SkinDetect/pkg/gemini"
	websocketPkg "SkinDetect/pkg/websocket"
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type Config struct {
	Backend       string
	ModelPath     string
	MetadataPath  string
	ConfigPath    string
	SharedLibPath string
	CandidateConf float64
	IoU           float64

	InferenceURL string

	GeminiAPIKey    string
	GeminiModelName string

	// Classes labels the remote and gemini backends, which carry no metadata.
	Classes []string
}

// Load builds the configured backend. The returned closer releases any
// session or connection it holds.
func Load(ctx context.Context, log *logrus.Logger, cfg Config) (detector.Backend, io.Closer, error) {
	switch cfg.Backend {
	case BackendONNX, "":
		b, err := NewONNX(log, ONNXConfig{
			ModelPath:     cfg.ModelPath,
			MetadataPath:  cfg.MetadataPath,
			SharedLibPath: cfg.SharedLibPath,
			CandidateConf: cfg.CandidateConf,
			IoU:           cfg.IoU,
		})
		if err != nil {
			return nil, nil, err
		}
		return b, closerFunc(b.Close), nil

	case BackendRemote:
		ws := websocketPkg.NewAIWebSocketClient(log, cfg.InferenceURL)
		return NewRemote(ws, cfg.Classes), closerFunc(ws.Close), nil

	case BackendGemini:
		client, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelName)
		if err != nil {
			return nil, nil, err
		}
		return NewGemini(client, cfg.Classes), closerFunc(client.Close), nil

	case BackendOpenCV:
		b, err := newOpenCVBackend(log, OpenCVConfig{
			ModelPath:     cfg.ModelPath,
			ConfigPath:    cfg.ConfigPath,
			MetadataPath:  cfg.MetadataPath,
			CandidateConf: cfg.CandidateConf,
			IoU:           cfg.IoU,
		})
		if err != nil {
			return nil, nil, err
		}
		if c, ok := b.(interface{ Close() }); ok {
			return b, closerFunc(c.Close), nil
		}
		return b, closerFunc(func() {}), nil

	default:
		return nil, nil, fmt.Errorf("unknown model backend %q", cfg.Backend)
	}
}

type closerFunc func()

func (f closerFunc) Close() error {
	f()
	return nil
}
