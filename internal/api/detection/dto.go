package detection

import "SkinDetect/internal/entity"

type DetectRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
}

type DetectResponse struct {
	Success           bool                     `json:"success"`
	Detections        []entity.DetectionRecord `json:"detections"`
	BestDetection     *entity.DetectionRecord  `json:"best_detection"`
	ImageID           *int64                   `json:"image_id,omitempty"`
	RecordID          string                   `json:"record_id,omitempty"`
	RawImageFile      string                   `json:"raw_image_file,omitempty"`
	DetectedImageFile string                   `json:"detected_image_file,omitempty"`
	ResultsJSONFile   string                   `json:"results_json_file,omitempty"`
	ImageBase64       string                   `json:"image_base64"`
	Timestamp         string                   `json:"timestamp"`
}

// FrameResponse is sent for every frame on the streaming route.
type FrameResponse struct {
	Success       bool                     `json:"success"`
	Detections    []entity.DetectionRecord `json:"detections"`
	BestDetection *entity.DetectionRecord  `json:"best_detection"`
	Error         string                   `json:"error,omitempty"`
	Timestamp     string                   `json:"timestamp"`
}

type HistoryQuery struct {
	Limit int `query:"limit" validate:"omitempty,min=1"`
}

type HistoryResponse struct {
	Success bool                  `json:"success"`
	History []entity.HistoryEntry `json:"history"`
}

type StatsResponse struct {
	Success bool                   `json:"success"`
	Stats   *entity.DetectionStats `json:"stats"`
}

type HealthResponse struct {
	Status     string           `json:"status"`
	Strategy   string           `json:"strategy"`
	Model      entity.ModelInfo `json:"model"`
	YoloLoaded bool             `json:"yolo_loaded"`
	Storage    string           `json:"storage"`
	Timestamp  string           `json:"timestamp"`
}

// ResultsSnapshot is the JSON document written next to the image artifacts.
type ResultsSnapshot struct {
	Timestamp         string                   `json:"timestamp"`
	Detections        []entity.DetectionRecord `json:"detections"`
	BestDetection     *entity.DetectionRecord  `json:"best_detection"`
	RawImageFile      string                   `json:"raw_image_file"`
	DetectedImageFile string                   `json:"detected_image_file"`
}
