package detector

import (
	"SkinDetect/internal/entity"
	"sort"
)

// Aggregate orders records by confidence, highest first, keeping the input
// order for ties, and picks the first one as the best detection.
func Aggregate(records []entity.DetectionRecord) *entity.DetectionBatch {
	sorted := make([]entity.DetectionRecord, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	batch := &entity.DetectionBatch{
		Detections: sorted,
	}
	if len(sorted) > 0 {
		best := sorted[0]
		batch.Best = &best
	}

	return batch
}
