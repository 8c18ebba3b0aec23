package yolo

import (
	"encoding/json"
	"fmt"
	"os"
)

const (
	TaskDetect   = "detect"
	TaskClassify = "classify"
)

// Metadata describes an exported model: its task, tensor names and shapes,
// and class names in index order.
type Metadata struct {
	Task        string   `json:"task"`
	InputName   string   `json:"input_name"`
	OutputName  string   `json:"output_name"`
	InputShape  []int64  `json:"input_shape"`
	OutputShape []int64  `json:"output_shape"`
	ImageSize   int      `json:"image_size"`
	Classes     []string `json:"classes"`
}

func LoadMetadata(path string) (*Metadata, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata: %w", err)
	}

	var m Metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}

	if err := m.normalize(); err != nil {
		return nil, err
	}

	return &m, nil
}

func (m *Metadata) normalize() error {
	if len(m.Classes) == 0 {
		return fmt.Errorf("metadata has no classes")
	}
	if m.Task == "" {
		m.Task = TaskDetect
	}
	if m.Task != TaskDetect && m.Task != TaskClassify {
		return fmt.Errorf("unsupported task %q", m.Task)
	}
	if len(m.InputShape) == 4 {
		h, w := m.InputShape[2], m.InputShape[3]
		if h != w || h <= 0 {
			return fmt.Errorf("input_shape %v is not a square image", m.InputShape)
		}
		if m.ImageSize <= 0 {
			m.ImageSize = int(h)
		}
		if int64(m.ImageSize) != h {
			return fmt.Errorf("image_size %d disagrees with input_shape %v", m.ImageSize, m.InputShape)
		}
	} else if len(m.InputShape) != 0 {
		return fmt.Errorf("input_shape %v must have 4 dimensions", m.InputShape)
	}
	if m.ImageSize <= 0 {
		m.ImageSize = DefaultImageSize
	}
	if m.InputName == "" {
		m.InputName = "images"
	}
	if m.OutputName == "" {
		m.OutputName = "output0"
	}
	if len(m.InputShape) == 0 {
		m.InputShape = []int64{1, 3, int64(m.ImageSize), int64(m.ImageSize)}
	}
	if len(m.OutputShape) == 0 {
		switch m.Task {
		case TaskClassify:
			m.OutputShape = []int64{1, int64(len(m.Classes))}
		default:
			m.OutputShape = []int64{1, int64(4 + len(m.Classes)), candidatesFor(m.ImageSize)}
		}
	}
	return nil
}

// candidatesFor is the anchor count of a YOLOv8 head at strides 8, 16 and 32.
func candidatesFor(size int) int64 {
	n := 0
	for _, stride := range []int{8, 16, 32} {
		g := size / stride
		n += g * g
	}
	return int64(n)
}

// Names maps class index to label.
func (m *Metadata) Names() map[int]string {
	names := make(map[int]string, len(m.Classes))
	for i, c := range m.Classes {
		names[i] = c
	}
	return names
}
