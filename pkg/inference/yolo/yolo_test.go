package yolo

import (
	"SkinDetect/internal/entity"
	"errors"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// head builds a flattened [1, 4+nc, n] tensor from per-candidate rows.
func head(nc int, rows [][]float32) []float32 {
	n := len(rows)
	data := make([]float32, (4+nc)*n)
	for i, r := range rows {
		for c, v := range r {
			data[c*n+i] = v
		}
	}
	return data
}

func TestDecodeDetections(t *testing.T) {
	lb := Letterbox{Size: 640, Scale: 0.5, PadX: 0, PadY: 80, SrcW: 1280, SrcH: 960}

	data := head(2, [][]float32{
		{100, 180, 40, 40, 0.9, 0.1},
		{102, 182, 40, 40, 0.8, 0.05},
		{101, 181, 40, 40, 0.1, 0.85},
		{300, 300, 20, 20, 0.2, 0.1},
	})

	got := DecodeDetections(data, 2, 4, lb, Options{})
	if len(got) != 2 {
		t.Fatalf("got %d boxes, want 2: %+v", len(got), got)
	}

	first := got[0]
	if first.Class != 0 || math.Abs(first.Confidence-0.9) > 1e-6 {
		t.Errorf("unexpected first box %+v", first)
	}
	// (100-20)/0.5 = 160, (180-20-80)/0.5 = 160
	if math.Abs(first.X1-160) > 1e-6 || math.Abs(first.Y1-160) > 1e-6 {
		t.Errorf("box not mapped to source pixels: %+v", first)
	}
	if math.Abs(first.X2-first.X1-80) > 1e-6 {
		t.Errorf("width = %v, want 80", first.X2-first.X1)
	}

	if got[1].Class != 1 {
		t.Errorf("overlapping box of another class should survive NMS, got %+v", got[1])
	}
}

func TestDecodeDetections_ClampsAndRejectsShortInput(t *testing.T) {
	lb := Letterbox{Size: 100, Scale: 1, SrcW: 100, SrcH: 100}
	data := head(1, [][]float32{{2, 2, 10, 10, 0.9}})

	got := DecodeDetections(data, 1, 1, lb, Options{})
	if len(got) != 1 || got[0].X1 != 0 || got[0].Y1 != 0 {
		t.Fatalf("expected clamped box, got %+v", got)
	}

	if DecodeDetections(data[:3], 1, 1, lb, Options{}) != nil {
		t.Errorf("short tensor should decode to nil")
	}
}

func TestNMS_MaxDet(t *testing.T) {
	var boxes []entity.CandidateBox
	for i := 0; i < 10; i++ {
		x := float64(i * 20)
		boxes = append(boxes, entity.CandidateBox{X1: x, Y1: 0, X2: x + 10, Y2: 10, Confidence: float64(i) / 10})
	}

	got := NMS(boxes, 0.7, 3)
	if len(got) != 3 {
		t.Fatalf("got %d, want 3", len(got))
	}
	if got[0].Confidence != 0.9 {
		t.Errorf("highest score should come first, got %v", got[0].Confidence)
	}
}

func TestIoU(t *testing.T) {
	a := entity.CandidateBox{X1: 0, Y1: 0, X2: 10, Y2: 10}
	b := entity.CandidateBox{X1: 5, Y1: 0, X2: 15, Y2: 10}

	if got := IoU(a, b); math.Abs(got-50.0/150.0) > 1e-9 {
		t.Errorf("IoU = %v", got)
	}
	if got := IoU(a, entity.CandidateBox{X1: 20, Y1: 20, X2: 30, Y2: 30}); got != 0 {
		t.Errorf("disjoint IoU = %v", got)
	}
}

func TestLetterboxImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 200, 100))

	canvas, lb := LetterboxImage(src, 64)
	if canvas.Bounds().Dx() != 64 || canvas.Bounds().Dy() != 64 {
		t.Fatalf("canvas %v", canvas.Bounds())
	}
	if lb.Scale != 0.32 || lb.PadX != 0 || lb.PadY != 16 {
		t.Errorf("letterbox = %+v", lb)
	}
	if c := canvas.RGBAAt(0, 0); c != padColor {
		t.Errorf("padding pixel = %v", c)
	}

	tensor, err := ToCHW(canvas, nil)
	if err != nil {
		t.Fatalf("ToCHW: %v", err)
	}
	if len(tensor) != 3*64*64 {
		t.Fatalf("tensor len %d", len(tensor))
	}
	if math.Abs(float64(tensor[0])-114.0/255) > 1e-6 {
		t.Errorf("tensor[0] = %v", tensor[0])
	}
}

func TestProbabilities(t *testing.T) {
	p := Probabilities([]float32{0.1, 0.7, 0.2})
	if math.Abs(p[1]-0.7) > 1e-6 {
		t.Errorf("already normalised scores changed: %v", p)
	}

	p = Probabilities([]float32{2, -1, 0})
	sum := 0.0
	for _, v := range p {
		sum += v
	}
	if math.Abs(sum-1) > 1e-9 || p[0] < p[2] || p[2] < p[1] {
		t.Errorf("softmax = %v", p)
	}
}

func TestLoadMetadata(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")
	if err := os.WriteFile(path, []byte(`{"classes":["Acne","Eczema"]}`), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMetadata(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Task != TaskDetect || m.ImageSize != 640 || m.InputName != "images" {
		t.Errorf("defaults not applied: %+v", m)
	}
	if m.OutputShape[1] != 6 || m.OutputShape[2] != 8400 {
		t.Errorf("output shape = %v", m.OutputShape)
	}
	if m.Names()[1] != "Eczema" {
		t.Errorf("names = %v", m.Names())
	}

	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"task":"segment","classes":["a"]}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMetadata(bad); err == nil {
		t.Error("unsupported task should fail")
	}
}

func TestLoadMetadata_InputShape(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantErr    bool
		wantSize   int
		candidates int64
	}{
		{
			name:       "size taken from input shape",
			body:       `{"input_shape":[1,3,320,320],"classes":["Acne","Eczema"]}`,
			wantSize:   320,
			candidates: 2100,
		},
		{
			name:       "explicit size agrees",
			body:       `{"image_size":320,"input_shape":[1,3,320,320],"classes":["Acne"]}`,
			wantSize:   320,
			candidates: 2100,
		},
		{
			name:    "explicit size disagrees",
			body:    `{"image_size":640,"input_shape":[1,3,320,320],"classes":["Acne"]}`,
			wantErr: true,
		},
		{
			name:    "non-square input",
			body:    `{"input_shape":[1,3,320,640],"classes":["Acne"]}`,
			wantErr: true,
		},
		{
			name:    "wrong rank",
			body:    `{"input_shape":[3,320,320],"classes":["Acne"]}`,
			wantErr: true,
		},
	}

	dir := t.TempDir()
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, fmt.Sprintf("model%d.json", i))
			if err := os.WriteFile(path, []byte(tt.body), 0o644); err != nil {
				t.Fatal(err)
			}
			m, err := LoadMetadata(path)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %+v", m)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.ImageSize != tt.wantSize {
				t.Errorf("ImageSize = %d, want %d", m.ImageSize, tt.wantSize)
			}
			if m.OutputShape[2] != tt.candidates {
				t.Errorf("output shape = %v", m.OutputShape)
			}
		})
	}
}

func TestToCHW_TensorSize(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range canvas.Pix {
		canvas.Pix[i] = 255
	}

	tests := []struct {
		name    string
		dst     []float32
		wantErr bool
	}{
		{"exact", make([]float32, 3*8*8), false},
		{"too short", make([]float32, 3*4*4), true},
		{"too long", make([]float32, 3*16*16), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := ToCHW(canvas, tt.dst)
			if tt.wantErr {
				if !errors.Is(err, ErrTensorSize) {
					t.Fatalf("err = %v, want ErrTensorSize", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if &out[0] != &tt.dst[0] || tt.dst[0] != 1 {
				t.Errorf("tensor not written in place: dst[0] = %v", tt.dst[0])
			}
		})
	}
}
