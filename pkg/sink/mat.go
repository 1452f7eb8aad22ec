package sink

import (
	"gocv.io/x/gocv"

	"github.com/promptvision/promptcam/pkg/frame"
)

// matFromFrame converts a canonical RGB frame into the BGR mat OpenCV
// display and encoding expect. The caller owns the returned mat.
func matFromFrame(f *frame.Frame) (gocv.Mat, error) {
	bgr := make([]byte, len(f.Pix))
	for i := 0; i < len(f.Pix); i += frame.Channels {
		bgr[i] = f.Pix[i+2]
		bgr[i+1] = f.Pix[i+1]
		bgr[i+2] = f.Pix[i]
	}
	return gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8UC3, bgr)
}
