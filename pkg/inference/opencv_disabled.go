//go:build !gocv

package inference

import (
	"SkinDetect/pkg/detector"
	"errors"

	"github.com/sirupsen/logrus"
)

type OpenCVConfig struct {
	ModelPath     string
	ConfigPath    string
	MetadataPath  string
	CandidateConf float64
	IoU           float64
}

func newOpenCVBackend(_ *logrus.Logger, _ OpenCVConfig) (detector.Backend, error) {
	return nil, errors.New("opencv backend requires a build with the gocv tag")
}
