package detectionRepository

const (
	queryCreateHistory = `
		INSERT INTO detection_history (
			image_data,
			detection_results,
			created_at
		) VALUES (
			:image_data,
			:detection_results,
			:created_at
		)
	`

	queryReturningID = ` RETURNING id`

	queryGetRecentHistory = `
		SELECT
			id,
			detection_results,
			created_at
		FROM detection_history
		ORDER BY created_at DESC, id DESC
		LIMIT :limit
	`

	queryIncrementStats = `
		UPDATE detection_stats
		SET total_detections = total_detections + 1,
			total_diseases_found = total_diseases_found + :diseases_found,
			updated_at = :updated_at
	`

	queryGetStats = `
		SELECT
			id,
			total_detections,
			total_diseases_found,
			updated_at
		FROM detection_stats
		ORDER BY id
		LIMIT 1
	`
)
