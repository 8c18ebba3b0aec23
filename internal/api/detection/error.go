package detection

import (
	"SkinDetect/pkg/response"
	"net/http"
)

var (
	ErrNoImage       = response.NewError(http.StatusBadRequest, "no image received")
	ErrEmptyFilename = response.NewError(http.StatusBadRequest, "no file selected")
	ErrInvalidBase64 = response.NewError(http.StatusBadRequest, "invalid base64 image data")
	ErrInvalidImage  = response.NewError(http.StatusBadRequest, "invalid image format")
	ErrImageTooLarge = response.NewError(http.StatusBadRequest, "image exceeds size limit")
	ErrInvalidLimit  = response.NewError(http.StatusBadRequest, "limit must be a positive integer")

	ErrModelUnavailable   = response.NewError(http.StatusInternalServerError, "model not loaded")
	ErrStorageUnavailable = response.NewError(http.StatusInternalServerError, "storage unavailable")
	ErrStorage            = response.NewError(http.StatusInternalServerError, "storage error")

	ErrInternalServerError = response.NewError(http.StatusInternalServerError, "internal server error")
)

// StorageFailure tags a persistence error with the step that failed.
func StorageFailure(step string, cause error) error {
	return response.WrapStep(ErrStorage, step, cause)
}
