// Package model wraps the external text-prompted detection/segmentation
// collaborator. The model's numerics, weights, and execution target are not
// implemented here; its configuration strings are passed through opaquely.
package model

import "image"

// Detection represents one detected object
type Detection struct {
	X, Y       float64 // Top-left position (0-1 normalized)
	W, H       float64 // Width and height (0-1 normalized)
	Confidence float64 // Detection confidence (0-1)
	Label      string  // The prompt string this detection matched

	// Mask is an optional per-pixel segmentation mask sized to the frame.
	Mask *image.Alpha
}

// Rect scales the normalized box to pixel coordinates for a width x height
// frame, clipped to the frame bounds.
func (d Detection) Rect(width, height int) image.Rectangle {
	r := image.Rect(
		int(d.X*float64(width)),
		int(d.Y*float64(height)),
		int((d.X+d.W)*float64(width)),
		int((d.Y+d.H)*float64(height)),
	)
	return r.Intersect(image.Rect(0, 0, width, height))
}
