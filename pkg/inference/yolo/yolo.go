// Package yolo holds the pre- and post-processing shared by the local
// YOLOv8 backends.
package yolo

import (
	"SkinDetect/internal/entity"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"sort"

	"github.com/nfnt/resize"
)

const (
	DefaultImageSize = 640
	DefaultConf      = 0.25
	DefaultIoU       = 0.7
	DefaultMaxDet    = 300
)

var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

type Options struct {
	Conf   float64
	IoU    float64
	MaxDet int
}

func (o Options) withDefaults() Options {
	if o.Conf <= 0 {
		o.Conf = DefaultConf
	}
	if o.IoU <= 0 {
		o.IoU = DefaultIoU
	}
	if o.MaxDet <= 0 {
		o.MaxDet = DefaultMaxDet
	}
	return o
}

// Letterbox records how a source image was fitted into the square model input.
type Letterbox struct {
	Size  int
	Scale float64
	PadX  int
	PadY  int
	SrcW  int
	SrcH  int
}

// LetterboxImage scales img to fit a size x size square, keeping the aspect
// ratio, and centres it on a grey canvas.
func LetterboxImage(img image.Image, size int) (*image.RGBA, Letterbox) {
	b := img.Bounds()
	srcW, srcH := b.Dx(), b.Dy()

	scale := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	newW := max(1, int(math.Round(float64(srcW)*scale)))
	newH := max(1, int(math.Round(float64(srcH)*scale)))

	resized := resize.Resize(uint(newW), uint(newH), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), image.NewUniform(padColor), image.Point{}, draw.Src)

	padX := (size - newW) / 2
	padY := (size - newH) / 2
	draw.Draw(canvas, image.Rect(padX, padY, padX+newW, padY+newH), resized, resized.Bounds().Min, draw.Src)

	return canvas, Letterbox{
		Size:  size,
		Scale: scale,
		PadX:  padX,
		PadY:  padY,
		SrcW:  srcW,
		SrcH:  srcH,
	}
}

// SquareImage stretches img to size x size.
func SquareImage(img image.Image, size int) *image.RGBA {
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	canvas := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(canvas, canvas.Bounds(), resized, resized.Bounds().Min, draw.Src)
	return canvas
}

var ErrTensorSize = errors.New("tensor size does not match image")

// ToCHW converts a square RGBA image into a planar float tensor scaled to [0,1].
// A nil dst is allocated; any other dst must hold exactly 3*w*h values.
func ToCHW(img *image.RGBA, dst []float32) ([]float32, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	plane := w * h
	if dst == nil {
		dst = make([]float32, 3*plane)
	}
	if len(dst) != 3*plane {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrTensorSize, len(dst), 3*plane)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			off := img.PixOffset(x, y)
			i := y*w + x
			dst[i] = float32(img.Pix[off]) / 255
			dst[plane+i] = float32(img.Pix[off+1]) / 255
			dst[2*plane+i] = float32(img.Pix[off+2]) / 255
		}
	}

	return dst, nil
}

// DecodeDetections reads a [1, 4+nc, n] YOLOv8 head, maps boxes back to
// source pixels and applies class-aware NMS.
func DecodeDetections(data []float32, numClasses, numCandidates int, lb Letterbox, opts Options) []entity.CandidateBox {
	opts = opts.withDefaults()
	if numClasses <= 0 || numCandidates <= 0 || len(data) < (4+numClasses)*numCandidates {
		return nil
	}

	at := func(row, i int) float64 {
		return float64(data[row*numCandidates+i])
	}

	candidates := make([]entity.CandidateBox, 0, 64)
	for i := 0; i < numCandidates; i++ {
		bestCls, bestScore := 0, -1.0
		for c := 0; c < numClasses; c++ {
			if s := at(4+c, i); s > bestScore {
				bestCls, bestScore = c, s
			}
		}
		if bestScore < opts.Conf {
			continue
		}

		cx, cy, w, h := at(0, i), at(1, i), at(2, i), at(3, i)
		candidates = append(candidates, entity.CandidateBox{
			X1:         lb.toSourceX(cx - w/2),
			Y1:         lb.toSourceY(cy - h/2),
			X2:         lb.toSourceX(cx + w/2),
			Y2:         lb.toSourceY(cy + h/2),
			Confidence: bestScore,
			Class:      bestCls,
		})
	}

	return NMS(candidates, opts.IoU, opts.MaxDet)
}

func (lb Letterbox) toSourceX(v float64) float64 {
	return clamp((v-float64(lb.PadX))/lb.scale(), 0, float64(lb.SrcW))
}

func (lb Letterbox) toSourceY(v float64) float64 {
	return clamp((v-float64(lb.PadY))/lb.scale(), 0, float64(lb.SrcH))
}

func (lb Letterbox) scale() float64 {
	if lb.Scale <= 0 {
		return 1
	}
	return lb.Scale
}

// NMS keeps the highest scoring boxes, suppressing same-class overlaps above
// iou. At most maxDet boxes are returned.
func NMS(boxes []entity.CandidateBox, iou float64, maxDet int) []entity.CandidateBox {
	sorted := make([]entity.CandidateBox, len(boxes))
	copy(sorted, boxes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Confidence > sorted[j].Confidence
	})

	kept := make([]entity.CandidateBox, 0, len(sorted))
	for _, b := range sorted {
		if maxDet > 0 && len(kept) >= maxDet {
			break
		}

		suppressed := false
		for _, k := range kept {
			if k.Class == b.Class && IoU(k, b) > iou {
				suppressed = true
				break
			}
		}
		if !suppressed {
			kept = append(kept, b)
		}
	}

	return kept
}

func IoU(a, b entity.CandidateBox) float64 {
	ix1, iy1 := math.Max(a.X1, b.X1), math.Max(a.Y1, b.Y1)
	ix2, iy2 := math.Min(a.X2, b.X2), math.Min(a.Y2, b.Y2)

	inter := math.Max(0, ix2-ix1) * math.Max(0, iy2-iy1)
	union := area(a) + area(b) - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}

func area(b entity.CandidateBox) float64 {
	return math.Max(0, b.X2-b.X1) * math.Max(0, b.Y2-b.Y1)
}

// Probabilities returns scores as a probability vector, applying softmax when
// the head emits raw logits.
func Probabilities(scores []float32) []float64 {
	out := make([]float64, len(scores))
	sum := 0.0
	logits := false
	for i, s := range scores {
		out[i] = float64(s)
		sum += out[i]
		if out[i] < 0 || out[i] > 1 {
			logits = true
		}
	}

	if !logits && math.Abs(sum-1) < 0.01 {
		return out
	}

	maxV := math.Inf(-1)
	for _, v := range out {
		maxV = math.Max(maxV, v)
	}
	sum = 0
	for i, v := range out {
		out[i] = math.Exp(v - maxV)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
