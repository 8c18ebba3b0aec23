package detectionHandler

import (
	"SkinDetect/internal/api/detection"
	contextPkg "SkinDetect/pkg/context"
	"SkinDetect/pkg/handlerUtil"
	"SkinDetect/pkg/log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

// Detect accepts either a multipart "image" field or a JSON body carrying
// image_base64.
func (h *DetectionHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.timeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var (
		res *detection.DetectResponse
		err error
	)

	switch {
	case strings.HasPrefix(string(ctx.Request().Header.ContentType()), fiber.MIMEMultipartForm):
		file, ferr := ctx.FormFile("image")
		if ferr != nil {
			return errHandler.Handle(ctx, requestID, missingUpload(ctx), ctx.Path(), "read_form_file")
		}

		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		res, err = h.detectionService.DetectUpload(c, file)

	case len(ctx.Body()) > 0:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
		}).Debug("Processing JSON request")

		var req detection.DetectRequest
		if perr := ctx.BodyParser(&req); perr != nil {
			return errHandler.Handle(ctx, requestID, detection.ErrNoImage, ctx.Path(), "parse_request_body")
		}

		if verr := h.validator.Struct(req); verr != nil {
			return errHandler.Handle(ctx, requestID, detection.ErrNoImage, ctx.Path(), "validate_request")
		}

		res, err = h.detectionService.DetectBase64(c, req.ImageBase64)

	default:
		return errHandler.Handle(ctx, requestID, detection.ErrNoImage, ctx.Path(), "read_image")
	}

	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"detections": len(res.Detections),
		}).Info("Detection request successful")
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *DetectionHandler) GetHistory(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.timeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	var query detection.HistoryQuery
	if err := ctx.QueryParser(&query); err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrInvalidLimit, ctx.Path(), "parse_query")
	}

	if err := h.validator.Struct(query); err != nil {
		return errHandler.Handle(ctx, requestID, detection.ErrInvalidLimit, ctx.Path(), "validate_query")
	}

	res, err := h.detectionService.GetHistory(c, query.Limit)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_history")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *DetectionHandler) GetStats(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), h.timeout)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	res, err := h.detectionService.GetStats(c)
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_stats")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, res)
	}
}

func (h *DetectionHandler) Health(ctx *fiber.Ctx) error {
	return handlerUtil.New(h.log).HandleSuccess(ctx, fiber.StatusOK, h.detectionService.Health(contextPkg.FromFiberCtx(ctx)))
}

// missingUpload tells an "image" part sent with an empty filename apart from
// no part at all. Multipart parsing files the former under form values.
func missingUpload(ctx *fiber.Ctx) error {
	form, err := ctx.MultipartForm()
	if err != nil {
		return detection.ErrNoImage
	}
	if _, ok := form.Value["image"]; ok {
		return detection.ErrEmptyFilename
	}
	for _, fh := range form.File["image"] {
		if fh.Filename == "" {
			return detection.ErrEmptyFilename
		}
	}
	return detection.ErrNoImage
}
