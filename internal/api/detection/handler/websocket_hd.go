package detectionHandler

import (
	"SkinDetect/internal/api/detection"
	contextPkg "SkinDetect/pkg/context"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

const (
	wsReadTimeout  = 60 * time.Second
	wsWriteTimeout = 10 * time.Second
)

// handleWebSocket answers every binary frame with a detection batch. Nothing
// is annotated or persisted on this route.
func (h *DetectionHandler) handleWebSocket(c *websocket.Conn) {
	requestID, _ := c.Locals("X-Request-ID").(string)
	fields := logrus.Fields{"request_id": requestID, "path": "/api/detect/ws"}

	h.log.WithFields(fields).Info("Detection WebSocket client connected")
	defer h.log.WithFields(fields).Info("Detection WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.WithFields(fields).WithError(err).Warn("Failed to send pong")
		}
		return nil
	})

	ctx := contextPkg.WithRequestID(context.Background(), requestID)

	for {
		if err := c.SetReadDeadline(time.Now().Add(wsReadTimeout)); err != nil {
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.WithFields(fields).WithError(err).Error("Detection WebSocket error")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.WithFields(fields).Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		frameCtx, cancel := context.WithTimeout(ctx, h.timeout)
		result, err := h.detectionService.DetectFrame(frameCtx, message)
		cancel()
		if err != nil {
			h.log.WithFields(fields).WithError(err).Error("Failed to process frame")
			result = &detection.FrameResponse{
				Error:     detection.ErrInternalServerError.Error(),
				Timestamp: time.Now().Format(time.RFC3339),
			}
		}

		if err := c.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
			break
		}

		if err := c.WriteJSON(result); err != nil {
			h.log.WithFields(fields).WithError(err).Error("Failed to write frame result")
			break
		}
	}
}
