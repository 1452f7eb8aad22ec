// Package overlay draws detection results onto frames for display or export.
package overlay

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"golang.org/x/image/font/basicfont"

	"github.com/promptvision/promptcam/pkg/frame"
	"github.com/promptvision/promptcam/pkg/model"
)

// palette cycles per detection so overlapping objects stay distinguishable.
var palette = []color.RGBA{
	{255, 94, 77, 255},   // coral
	{77, 196, 255, 255},  // sky
	{126, 211, 33, 255},  // lime
	{255, 200, 61, 255},  // amber
	{189, 111, 255, 255}, // violet
	{72, 219, 158, 255},  // mint
}

// Annotator renders detections onto a copy of a frame. The input frame is
// never mutated: the raw capture may still be needed elsewhere.
type Annotator struct {
	// MinConfidence skips detections below this value. Zero accepts
	// everything the invoker returned.
	MinConfidence float64

	// LineWidth is the box outline thickness in pixels.
	LineWidth float64

	// MaskAlpha is the blend factor for segmentation masks.
	MaskAlpha float64

	// DrawMasks enables mask rendering when detections carry one.
	DrawMasks bool
}

// New returns an annotator with production defaults.
func New() *Annotator {
	return &Annotator{
		LineWidth: 2,
		MaskAlpha: 0.45,
	}
}

// Annotate returns a new frame with boxes, labels, and optional masks drawn
// over it.
func (a *Annotator) Annotate(f *frame.Frame, dets []model.Detection) *frame.Frame {
	img := f.ToRGBA()
	dc := gg.NewContextForRGBA(img)
	dc.SetFontFace(basicfont.Face7x13)

	for i, det := range dets {
		if a.MinConfidence > 0 && det.Confidence < a.MinConfidence {
			continue
		}
		col := palette[i%len(palette)]

		if a.DrawMasks && det.Mask != nil {
			blendMask(img.Pix, img.Stride, det.Mask.Pix, f.Width, f.Height, col, a.MaskAlpha)
		}

		r := det.Rect(f.Width, f.Height)
		dc.SetColor(col)
		dc.SetLineWidth(a.LineWidth)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()

		label := fmt.Sprintf("%s %.2f", det.Label, det.Confidence)
		tw, th := dc.MeasureString(label)
		tx := float64(r.Min.X)
		ty := float64(r.Min.Y) - 4
		if ty-th < 0 {
			ty = float64(r.Min.Y) + th + 4
		}
		dc.SetColor(col)
		dc.DrawRectangle(tx, ty-th, tw+6, th+4)
		dc.Fill()
		dc.SetRGB255(0, 0, 0)
		dc.DrawString(label, tx+3, ty)
	}

	return frame.FromRGBA(img)
}

// blendMask alpha-blends col into pix wherever the mask is set.
func blendMask(pix []byte, stride int, mask []byte, width, height int, col color.RGBA, alpha float64) {
	if len(mask) < width*height {
		return
	}
	a := int(alpha * 256)
	for y := 0; y < height; y++ {
		row := pix[y*stride:]
		for x := 0; x < width; x++ {
			if mask[y*width+x] < 128 {
				continue
			}
			i := x * 4
			row[i] = byte((int(row[i])*(256-a) + int(col.R)*a) >> 8)
			row[i+1] = byte((int(row[i+1])*(256-a) + int(col.G)*a) >> 8)
			row[i+2] = byte((int(row[i+2])*(256-a) + int(col.B)*a) >> 8)
		}
	}
}
