package annotate

import (
	"SkinDetect/internal/entity"
	"SkinDetect/pkg/utils"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	strokeWidth  = 4
	labelOffset  = 22
	labelHeight  = 20
	labelCharW   = 7
	labelPadding = 8
)

var (
	outlineColor        = color.RGBA{R: 189, G: 147, B: 249, A: 255}
	labelBackground     = color.RGBA{R: 89, G: 57, B: 161, A: 255}
	labelTextColor      = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	classificationColor = color.RGBA{R: 255, A: 255}
)

type IAnnotator interface {
	Annotate(img []byte, batch *entity.DetectionBatch) ([]byte, error)
}

type annotator struct {
	face font.Face
}

func New() IAnnotator {
	return &annotator{
		face: basicfont.Face7x13,
	}
}

// Annotate draws every record of batch onto img and returns the result as
// JPEG. An empty batch returns img untouched.
func (a *annotator) Annotate(img []byte, batch *entity.DetectionBatch) ([]byte, error) {
	if batch.Empty() {
		return img, nil
	}

	decoded, _, err := utils.DecodeImage(img)
	if err != nil {
		return nil, err
	}

	canvas := utils.ToRGBA(decoded)

	for _, rec := range batch.Detections {
		text := Caption(rec)

		if rec.Box != nil && rec.Mode == entity.ModeDetection {
			a.drawBox(canvas, *rec.Box, text)
			continue
		}

		a.drawText(canvas, image.Pt(10, 10), text, classificationColor)
	}

	return utils.EncodeJPEG(canvas)
}

// Caption renders "label 87.5%".
func Caption(rec entity.DetectionRecord) string {
	return fmt.Sprintf("%s %.1f%%", rec.Label, rec.Confidence*100)
}

func (a *annotator) drawBox(canvas *image.RGBA, box entity.Box, text string) {
	x1, y1 := box.X, box.Y
	x2, y2 := box.X+box.Width, box.Y+box.Height

	for i := 0; i < strokeWidth; i++ {
		if x1+i > x2-i || y1+i > y2-i {
			break
		}
		fill(canvas, image.Rect(x1+i, y1+i, x2-i+1, y1+i+1), outlineColor)
		fill(canvas, image.Rect(x1+i, y2-i, x2-i+1, y2-i+1), outlineColor)
		fill(canvas, image.Rect(x1+i, y1+i, x1+i+1, y2-i+1), outlineColor)
		fill(canvas, image.Rect(x2-i, y1+i, x2-i+1, y2-i+1), outlineColor)
	}

	top := y1 - labelOffset
	if top < 0 {
		top = 0
	}
	textW := len(text)*labelCharW + labelPadding

	fill(canvas, image.Rect(x1, top, x1+textW+1, top+labelHeight+1), labelBackground)
	a.drawText(canvas, image.Pt(x1+4, top+3), text, labelTextColor)
}

// drawText places the top-left corner of text at pt.
func (a *annotator) drawText(canvas *image.RGBA, pt image.Point, text string, c color.Color) {
	d := &font.Drawer{
		Dst:  canvas,
		Src:  image.NewUniform(c),
		Face: a.face,
		Dot:  fixed.P(pt.X, pt.Y+a.face.Metrics().Ascent.Ceil()),
	}
	d.DrawString(text)
}

func fill(canvas *image.RGBA, r image.Rectangle, c color.Color) {
	r = r.Intersect(canvas.Bounds())
	if r.Empty() {
		return
	}
	draw.Draw(canvas, r, image.NewUniform(c), image.Point{}, draw.Src)
}
