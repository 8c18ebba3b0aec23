package detectionHandler

import (
	"SkinDetect/internal/api/detection"
	"SkinDetect/internal/entity"
	"SkinDetect/internal/middleware"
	logPkg "SkinDetect/pkg/log"
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/net/context"
)

type fakeService struct {
	uploads   int
	base64s   []string
	lastLimit int
	err       error
}

func (f *fakeService) DetectUpload(_ context.Context, file *multipart.FileHeader) (*detection.DetectResponse, error) {
	f.uploads++
	if f.err != nil {
		return nil, f.err
	}
	return &detection.DetectResponse{Success: true, Detections: []entity.DetectionRecord{}}, nil
}

func (f *fakeService) DetectBase64(_ context.Context, payload string) (*detection.DetectResponse, error) {
	f.base64s = append(f.base64s, payload)
	if f.err != nil {
		return nil, f.err
	}
	return &detection.DetectResponse{Success: true, Detections: []entity.DetectionRecord{}}, nil
}

func (f *fakeService) DetectFrame(context.Context, []byte) (*detection.FrameResponse, error) {
	return &detection.FrameResponse{Success: true}, nil
}

func (f *fakeService) GetHistory(_ context.Context, limit int) (*detection.HistoryResponse, error) {
	f.lastLimit = limit
	return &detection.HistoryResponse{Success: true, History: []entity.HistoryEntry{}}, nil
}

func (f *fakeService) GetStats(context.Context) (*detection.StatsResponse, error) {
	return &detection.StatsResponse{Success: true}, nil
}

func (f *fakeService) Health(context.Context) detection.HealthResponse {
	return detection.HealthResponse{Status: "healthy", Strategy: "simulated"}
}

func newTestApp(svc *fakeService) *fiber.App {
	log := logPkg.NewNopLogger()
	mw := middleware.New(log, middleware.Config{})

	app := fiber.New()
	app.Use(mw.NewRequestIDMiddleware())
	New(log, validator.New(), mw, svc, time.Second).Start(app)
	return app
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var body map[string]interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode body %q: %v", raw, err)
	}
	return body
}

func TestDetect_JSONBody(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(svc)

	for _, path := range []string{"/api/detect", "/api/kirimgambar"} {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"image_base64":"data:image/png;base64,AAAA"}`))
		req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("%s: %v", path, err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Errorf("%s: status = %d", path, resp.StatusCode)
		}
	}

	if len(svc.base64s) != 2 || svc.base64s[0] != "data:image/png;base64,AAAA" {
		t.Errorf("payloads = %v", svc.base64s)
	}
}

func TestDetect_Multipart(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(svc)

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", "skin.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	part.Write([]byte("fake image bytes"))
	w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/detect", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
	if svc.uploads != 1 {
		t.Errorf("uploads = %d", svc.uploads)
	}
}

func TestDetect_NoImage(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		contentType string
	}{
		{name: "empty body", body: ""},
		{name: "json without image", body: `{"other":"x"}`, contentType: fiber.MIMEApplicationJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			app := newTestApp(svc)

			req := httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(tt.body))
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}

			body := decodeBody(t, resp)
			if body["success"] != false || body["error"] != detection.ErrNoImage.Error() {
				t.Errorf("body = %v", body)
			}
			if len(svc.base64s) != 0 || svc.uploads != 0 {
				t.Error("service should not be called")
			}
		})
	}
}

func TestDetect_MultipartWithoutFile(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w *multipart.Writer) error
		wantErr string
	}{
		{
			name: "image part with empty filename",
			write: func(w *multipart.Writer) error {
				h := make(textproto.MIMEHeader)
				h.Set("Content-Disposition", `form-data; name="image"; filename=""`)
				h.Set("Content-Type", "application/octet-stream")
				_, err := w.CreatePart(h)
				return err
			},
			wantErr: detection.ErrEmptyFilename.Error(),
		},
		{
			name: "no image part",
			write: func(w *multipart.Writer) error {
				return w.WriteField("note", "hello")
			},
			wantErr: detection.ErrNoImage.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{}
			app := newTestApp(svc)

			var buf bytes.Buffer
			w := multipart.NewWriter(&buf)
			if err := tt.write(w); err != nil {
				t.Fatalf("write part: %v", err)
			}
			w.Close()

			req := httptest.NewRequest(http.MethodPost, "/api/detect", &buf)
			req.Header.Set("Content-Type", w.FormDataContentType())

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != fiber.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}

			body := decodeBody(t, resp)
			if body["error"] != tt.wantErr {
				t.Errorf("error = %v, want %q", body["error"], tt.wantErr)
			}
			if svc.uploads != 0 {
				t.Error("service should not be called")
			}
		})
	}
}

func TestDetect_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "bad base64", err: detection.ErrInvalidBase64, wantStatus: fiber.StatusBadRequest},
		{name: "model unavailable", err: detection.ErrModelUnavailable, wantStatus: fiber.StatusInternalServerError},
		{name: "storage", err: detection.StorageFailure("insert history", io.ErrUnexpectedEOF), wantStatus: fiber.StatusInternalServerError},
		{name: "timeout", err: context.DeadlineExceeded, wantStatus: fiber.StatusRequestTimeout},
		{name: "unexpected", err: io.ErrClosedPipe, wantStatus: fiber.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := newTestApp(&fakeService{err: tt.err})

			req := httptest.NewRequest(http.MethodPost, "/api/detect", strings.NewReader(`{"image_base64":"AAAA"}`))
			req.Header.Set("Content-Type", fiber.MIMEApplicationJSON)

			resp, err := app.Test(req)
			if err != nil {
				t.Fatalf("app.Test: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}

			body := decodeBody(t, resp)
			if body["success"] != false {
				t.Errorf("body = %v", body)
			}
			if tt.wantStatus == fiber.StatusInternalServerError && body["trace_id"] == nil {
				t.Errorf("server error without trace id: %v", body)
			}
			if tt.name == "unexpected" && strings.Contains(body["error"].(string), "closed pipe") {
				t.Errorf("internal detail leaked: %v", body["error"])
			}
		})
	}
}

func TestGetHistory_Limit(t *testing.T) {
	svc := &fakeService{}
	app := newTestApp(svc)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/history?limit=5", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK || svc.lastLimit != 5 {
		t.Errorf("status = %d, limit = %d", resp.StatusCode, svc.lastLimit)
	}

	for _, bad := range []string{"abc", "-3"} {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/history?limit="+bad, nil))
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("limit=%s: status = %d, want 400", bad, resp.StatusCode)
		}
	}
}

func TestHealthAndStats(t *testing.T) {
	app := newTestApp(&fakeService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if body := decodeBody(t, resp); body["status"] != "healthy" || body["strategy"] != "simulated" {
		t.Errorf("health = %v", body)
	}

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/stats", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Errorf("stats = %v", body)
	}
	if _, ok := body["stats"]; !ok {
		t.Error("stats key missing")
	}
}

func TestDetectWebSocketRequiresUpgrade(t *testing.T) {
	app := newTestApp(&fakeService{})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/detect/ws", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusUpgradeRequired {
		t.Errorf("status = %d, want 426", resp.StatusCode)
	}
}
