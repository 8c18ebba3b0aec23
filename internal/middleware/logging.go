package middleware

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
)

const maxLoggedFieldLength = 64

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (m *middleware) NewLoggingMiddleware() fiber.Handler {
	return LoggerConfig(m.log)
}

func LoggerConfig(logger *logrus.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		requestID, ok := c.Locals(RequestIDKey).(string)
		if !ok || requestID == "" {
			requestID = "unknown"
		}

		c.Locals("request_id", requestID)

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()

		if err != nil && status == fiber.StatusInternalServerError {
			return err
		}

		logFields := logrus.Fields{
			"request_id":    requestID,
			"method":        c.Method(),
			"path":          c.Path(),
			"status":        status,
			"latency_ms":    latency.Milliseconds(),
			"ip":            c.IP(),
			"user_agent":    c.Get("User-Agent"),
			"response_size": len(c.Response().Body()),
		}

		if body := c.Request().Body(); len(body) > 0 {
			logFields["request_body"] = sanitizeRequestBody(string(c.Request().Header.ContentType()), body)
		}

		entry := logger.WithFields(logFields)
		switch {
		case status >= 500:
			entry.Error("Server error")
		case status >= 400:
			entry.Warn("Client error")
		default:
			entry.Info("Success")
		}

		return err
	}
}

// sanitizeRequestBody keeps JSON bodies readable in the access log. Image
// payloads are cut short and credential-like fields are masked.
func sanitizeRequestBody(contentType string, body []byte) string {
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return fmt.Sprintf("[multipart body, %d bytes]", len(body))
	}

	var jsonBody map[string]interface{}
	if err := json.Unmarshal(body, &jsonBody); err != nil {
		return "[non-JSON body]"
	}

	for field, value := range jsonBody {
		lower := strings.ToLower(field)

		switch {
		case strings.Contains(lower, "key"), strings.Contains(lower, "secret"),
			strings.Contains(lower, "token"), strings.Contains(lower, "password"):
			jsonBody[field] = "[SECRET]"
		case strings.Contains(lower, "image"):
			if s, ok := value.(string); ok && len(s) > maxLoggedFieldLength {
				jsonBody[field] = fmt.Sprintf("%s...[%d bytes]", s[:maxLoggedFieldLength], len(s))
			}
		}
	}

	sanitized, err := json.Marshal(jsonBody)
	if err != nil {
		return "[sanitization-failed]"
	}

	return string(sanitized)
}
