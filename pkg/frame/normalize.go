package frame

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
)

// Sentinel errors for normalization failures.
var (
	// ErrUnsupportedFormat is returned for pixel layouts Normalize cannot
	// convert. This is a configuration error, not a per-frame condition.
	ErrUnsupportedFormat = errors.New("frame: unsupported pixel format")

	// ErrShortBuffer is returned when the raw buffer is smaller than the
	// reported dimensions require.
	ErrShortBuffer = errors.New("frame: raw buffer too small")
)

// Normalize converts raw capture bytes into the canonical RGB Frame.
// It is a pure function: the input buffer is never retained.
func Normalize(raw []byte, format PixelFormat, width, height int) (*Frame, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("frame: invalid dimensions %dx%d", width, height)
	}

	switch format {
	case FormatRGB24:
		return fromPacked(raw, width, height, 0, 2)
	case FormatBGR24:
		return fromPacked(raw, width, height, 2, 0)
	case FormatYUYV:
		return fromYUYV(raw, width, height)
	case FormatMJPEG:
		return fromMJPEG(raw)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// NormalizeRaw is a convenience wrapper over Normalize for a RawFrame.
func NormalizeRaw(r *RawFrame) (*Frame, error) {
	return Normalize(r.Bytes, r.Format, r.Width, r.Height)
}

// fromPacked copies a 3-channel packed buffer, swapping the channel at
// rIdx with the one at bIdx (identity for RGB, swap for BGR).
func fromPacked(raw []byte, width, height, rIdx, bIdx int) (*Frame, error) {
	need := width * height * Channels
	if len(raw) < need {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrShortBuffer, len(raw), need)
	}
	f, err := New(width, height)
	if err != nil {
		return nil, err
	}
	for i := 0; i < need; i += Channels {
		f.Pix[i] = raw[i+rIdx]
		f.Pix[i+1] = raw[i+1]
		f.Pix[i+2] = raw[i+bIdx]
	}
	return f, nil
}

// fromYUYV converts YUYV 4:2:2 to RGB using integer BT.601 coefficients.
// Each 4-byte group (Y0 U Y1 V) produces two pixels, so the width must be
// even; 4:2:2 subsampling cannot describe an odd row.
func fromYUYV(raw []byte, width, height int) (*Frame, error) {
	if width%2 != 0 {
		return nil, fmt.Errorf("%w: YUYV width %d is odd", ErrUnsupportedFormat, width)
	}
	need := width * height * 2
	if len(raw) < need {
		return nil, fmt.Errorf("%w: got %d, need %d", ErrShortBuffer, len(raw), need)
	}
	f, err := New(width, height)
	if err != nil {
		return nil, err
	}

	di := 0
	for si := 0; si < need; si += 4 {
		y0 := int(raw[si])
		u := int(raw[si+1])
		y1 := int(raw[si+2])
		v := int(raw[si+3])

		for _, y := range [2]int{y0, y1} {
			c := y - 16
			d := u - 128
			e := v - 128

			f.Pix[di] = clampU8((298*c + 409*e + 128) >> 8)
			f.Pix[di+1] = clampU8((298*c - 100*d - 208*e + 128) >> 8)
			f.Pix[di+2] = clampU8((298*c + 516*d + 128) >> 8)
			di += Channels
		}
	}
	return f, nil
}

func fromMJPEG(raw []byte) (*Frame, error) {
	img, err := jpeg.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("frame: decode MJPEG: %w", err)
	}
	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}
	return FromRGBA(rgba), nil
}

func clampU8(x int) byte {
	if x < 0 {
		return 0
	}
	if x > 255 {
		return 255
	}
	return byte(x)
}
