package entity

import (
	"encoding/json"
	"fmt"
	"time"
)

type Mode string

const (
	ModeDetection      Mode = "detection"
	ModeClassification Mode = "classification"
)

// Box is an axis-aligned rectangle in source-image pixels. On the wire it is
// the array [x, y, width, height].
type Box struct {
	X      int
	Y      int
	Width  int
	Height int
}

func (b Box) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]int{b.X, b.Y, b.Width, b.Height})
}

func (b *Box) UnmarshalJSON(data []byte) error {
	var arr []int
	if err := json.Unmarshal(data, &arr); err != nil {
		return err
	}
	if len(arr) != 4 {
		return fmt.Errorf("box: expected 4 values, got %d", len(arr))
	}
	b.X, b.Y, b.Width, b.Height = arr[0], arr[1], arr[2], arr[3]
	return nil
}

type DetectionRecord struct {
	Mode        Mode    `json:"mode"`
	Box         *Box    `json:"box"`
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Description string  `json:"description"`
}

type DetectionBatch struct {
	Detections []DetectionRecord `json:"detections"`
	Best       *DetectionRecord  `json:"best_detection"`
}

func (b *DetectionBatch) Empty() bool {
	return b == nil || len(b.Detections) == 0
}

type CatalogEntry struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// CandidateBox is one raw detection candidate in source-image pixels.
type CandidateBox struct {
	X1         float64
	Y1         float64
	X2         float64
	Y2         float64
	Confidence float64
	Class      int
}

type InferenceOutput struct {
	Names map[int]string
	Boxes []CandidateBox
	Probs []float64
}

type StoredDetection struct {
	ImageID           *int64 `json:"image_id,omitempty"`
	RawImageFile      string `json:"raw_image_file,omitempty"`
	DetectedImageFile string `json:"detected_image_file,omitempty"`
	ResultsJSONFile   string `json:"results_json_file,omitempty"`
	RecordID          string `json:"-"`
}

type HistoryEntry struct {
	ID               int64           `json:"id"`
	DetectionResults json.RawMessage `json:"detection_results"`
	CreatedAt        time.Time       `json:"created_at"`
}

type DetectionStats struct {
	ID                 int64     `json:"id" db:"id"`
	TotalDetections    int64     `json:"total_detections" db:"total_detections"`
	TotalDiseasesFound int64     `json:"total_diseases_found" db:"total_diseases_found"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

type ModelInfo struct {
	Status  string   `json:"status,omitempty"`
	Version string   `json:"version,omitempty"`
	Backend string   `json:"backend,omitempty"`
	Path    string   `json:"path,omitempty"`
	Classes []string `json:"classes,omitempty"`
}
