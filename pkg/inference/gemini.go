package inference

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/gemini"
	"SkinDetect/pkg/utils"
	"encoding/json"
	"fmt"
	"image"
	"strings"

	"golang.org/x/net/context"
)

const geminiPrompt = `You are assisting a dermatology screening tool.
Look at the skin in this image and report visible lesions using ONLY these labels:
%s

Reply with JSON only, no extra text, in this exact format:
{
	"detections": [
		{"label": "<one of the labels>", "confidence": 0.0, "box": [x1, y1, x2, y2]}
	],
	"probabilities": {"<label>": 0.0}
}
Box coordinates are integer pixels of an image %d pixels wide and %d pixels high.
Use an empty "detections" array when no lesion is visible.`

type geminiDetection struct {
	Label      string    `json:"label"`
	Confidence float64   `json:"confidence"`
	Box        []float64 `json:"box"`
}

type geminiReply struct {
	Detections    []geminiDetection  `json:"detections"`
	Probabilities map[string]float64 `json:"probabilities"`
}

// Gemini asks a vision LLM to locate lesions from a fixed label list.
type Gemini struct {
	client  gemini.IGemini
	classes []string
	index   map[string]int
}

func NewGemini(client gemini.IGemini, classes []string) *Gemini {
	index := make(map[string]int, len(classes))
	for i, c := range classes {
		index[strings.ToLower(c)] = i
	}

	return &Gemini{
		client:  client,
		classes: classes,
		index:   index,
	}
}

func (g *Gemini) Name() string {
	return BackendGemini
}

func (g *Gemini) Classes() []string {
	return g.classes
}

func (g *Gemini) Infer(ctx context.Context, img image.Image) (*entity.InferenceOutput, error) {
	frame, err := utils.EncodeJPEG(img)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}

	b := img.Bounds()
	prompt := fmt.Sprintf(geminiPrompt, "- "+strings.Join(g.classes, "\n- "), b.Dx(), b.Dy())

	reply, err := g.client.AnalyzeImage(ctx, frame, "image/jpeg", prompt)
	if err != nil {
		return nil, err
	}

	return g.parse(reply, b.Dx(), b.Dy())
}

func (g *Gemini) parse(response string, width, height int) (*entity.InferenceOutput, error) {
	jsonStr, err := gemini.ExtractJSON(response)
	if err != nil {
		return nil, err
	}

	var reply geminiReply
	if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
		return nil, fmt.Errorf("failed to parse Gemini response: %w", err)
	}

	out := &entity.InferenceOutput{
		Names: make(map[int]string, len(g.classes)),
	}
	for i, c := range g.classes {
		out.Names[i] = c
	}

	for _, d := range reply.Detections {
		cls, ok := g.index[strings.ToLower(strings.TrimSpace(d.Label))]
		if !ok || len(d.Box) != 4 {
			continue
		}
		out.Boxes = append(out.Boxes, entity.CandidateBox{
			X1:         clampCoord(d.Box[0], width),
			Y1:         clampCoord(d.Box[1], height),
			X2:         clampCoord(d.Box[2], width),
			Y2:         clampCoord(d.Box[3], height),
			Confidence: d.Confidence,
			Class:      cls,
		})
	}

	if len(reply.Probabilities) > 0 {
		out.Probs = make([]float64, len(g.classes))
		for label, p := range reply.Probabilities {
			if cls, ok := g.index[strings.ToLower(strings.TrimSpace(label))]; ok {
				out.Probs[cls] = p
			}
		}
	}

	return out, nil
}

func clampCoord(v float64, limit int) float64 {
	if v < 0 {
		return 0
	}
	if v > float64(limit) {
		return float64(limit)
	}
	return v
}
