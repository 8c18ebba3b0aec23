package inference

import (
	"SkinDetect/pkg/detector"
	"context"
	"errors"
	"image"
	"strings"
	"testing"
)

var (
	_ detector.Backend = (*Remote)(nil)
	_ detector.Backend = (*Gemini)(nil)
	_ detector.Backend = (*ONNX)(nil)
)

type fakeWS struct {
	reply []byte
	err   error
	sent  [][]byte
}

func (f *fakeWS) Exchange(ctx context.Context, frame []byte) ([]byte, error) {
	f.sent = append(f.sent, frame)
	return f.reply, f.err
}
func (f *fakeWS) IsConnected() bool { return true }
func (f *fakeWS) Reconnect() error  { return nil }
func (f *fakeWS) Close()            {}

func TestRemote_Infer(t *testing.T) {
	ws := &fakeWS{reply: []byte(`{
		"names": {"0": "Acne", "1": "Eczema"},
		"boxes": [{"xyxy": [1.5, 2, 30, 40], "conf": 0.91, "cls": 1}],
		"probs": null
	}`)}

	out, err := NewRemote(ws, nil).Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 16, 16)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ws.sent) != 1 || len(ws.sent[0]) == 0 {
		t.Fatalf("frame not sent")
	}
	if len(out.Boxes) != 1 || out.Boxes[0].Class != 1 || out.Boxes[0].X1 != 1.5 {
		t.Errorf("boxes = %+v", out.Boxes)
	}
	if out.Names[1] != "Eczema" {
		t.Errorf("names = %v", out.Names)
	}
}

func TestParseRemoteReply_Errors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{name: "not json", reply: "nope"},
		{name: "service error", reply: `{"error": "model crashed"}`},
		{name: "bad box", reply: `{"boxes": [{"xyxy": [1, 2], "conf": 0.5, "cls": 0}]}`},
		{name: "bad index", reply: `{"names": {"x": "Acne"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseRemoteReply([]byte(tt.reply), nil); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestRemote_ExchangeError(t *testing.T) {
	boom := errors.New("connection refused")
	_, err := NewRemote(&fakeWS{err: boom}, nil).Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	if !errors.Is(err, boom) {
		t.Fatalf("got %v", err)
	}
}

type fakeGemini struct {
	reply  string
	prompt string
}

func (f *fakeGemini) AnalyzeImage(ctx context.Context, image []byte, mimeType string, prompt string) (string, error) {
	f.prompt = prompt
	return f.reply, nil
}
func (f *fakeGemini) Close() {}

func TestGemini_Infer(t *testing.T) {
	client := &fakeGemini{reply: "Sure! ```json\n" + `{
		"detections": [
			{"label": "eczema", "confidence": 0.8, "box": [10, 10, 500, 40]},
			{"label": "Dragon Scale", "confidence": 0.9, "box": [0, 0, 1, 1]}
		],
		"probabilities": {"Acne": 0.6, "Unknown": 0.3}
	}` + "\n```"}

	g := NewGemini(client, []string{"Acne", "Eczema"})
	out, err := g.Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 100, 50)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(client.prompt, "- Acne\n- Eczema") || !strings.Contains(client.prompt, "100 pixels wide") {
		t.Errorf("prompt missing labels or size:\n%s", client.prompt)
	}

	if len(out.Boxes) != 1 {
		t.Fatalf("unknown labels should be skipped, got %+v", out.Boxes)
	}
	if out.Boxes[0].Class != 1 || out.Boxes[0].X2 != 100 {
		t.Errorf("box = %+v", out.Boxes[0])
	}
	if len(out.Probs) != 2 || out.Probs[0] != 0.6 || out.Probs[1] != 0 {
		t.Errorf("probs = %v", out.Probs)
	}
}

func TestGemini_NoJSON(t *testing.T) {
	g := NewGemini(&fakeGemini{reply: "I cannot help with that."}, []string{"Acne"})
	if _, err := g.Infer(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4))); err == nil {
		t.Fatal("expected an error")
	}
}

func TestLoad_UnknownBackend(t *testing.T) {
	if _, _, err := Load(context.Background(), nil, Config{Backend: "tpu"}); err == nil {
		t.Fatal("expected an error")
	}
}
