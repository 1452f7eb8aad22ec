// Package frame holds the canonical in-memory image representation shared by
// every pipeline stage: an owned interleaved 8-bit RGB buffer with explicit
// dimensions. Camera backends deliver raw bytes in whatever layout their
// driver produces; Normalize converts them into a Frame before anything else
// touches them.
package frame

import (
	"fmt"
	"image"
	"time"
)

// Channels is the number of interleaved channels in a Frame (RGB).
const Channels = 3

// Frame is an owned 2-D pixel buffer, interleaved 8-bit RGB.
// Invariant: len(Pix) == Width*Height*Channels.
type Frame struct {
	Width  int
	Height int
	Pix    []byte
}

// New allocates a zeroed Frame of the given dimensions.
func New(width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}
	return &Frame{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*Channels),
	}, nil
}

// Clone returns a deep copy of the frame.
func (f *Frame) Clone() *Frame {
	pix := make([]byte, len(f.Pix))
	copy(pix, f.Pix)
	return &Frame{Width: f.Width, Height: f.Height, Pix: pix}
}

// ToRGBA expands the frame into an image.RGBA for drawing and encoding.
func (f *Frame) ToRGBA() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	si := 0
	for di := 0; di < len(img.Pix); di += 4 {
		img.Pix[di] = f.Pix[si]
		img.Pix[di+1] = f.Pix[si+1]
		img.Pix[di+2] = f.Pix[si+2]
		img.Pix[di+3] = 0xff
		si += Channels
	}
	return img
}

// FromRGBA packs an image.RGBA back into a Frame, dropping alpha.
func FromRGBA(img *image.RGBA) *Frame {
	b := img.Bounds()
	f := &Frame{
		Width:  b.Dx(),
		Height: b.Dy(),
		Pix:    make([]byte, b.Dx()*b.Dy()*Channels),
	}
	di := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			f.Pix[di] = row[x*4]
			f.Pix[di+1] = row[x*4+1]
			f.Pix[di+2] = row[x*4+2]
			di += Channels
		}
	}
	return f
}

// RawFrame is one capture result as delivered by a camera backend, before
// normalization. Bytes are interpreted according to Format.
type RawFrame struct {
	Bytes     []byte
	Format    PixelFormat
	Width     int
	Height    int
	Timestamp time.Time
}
