package frame

// PixelFormat describes how raw capture bytes are laid out.
type PixelFormat int

const (
	// FormatUnknown is the zero value; never valid for normalization.
	FormatUnknown PixelFormat = iota

	// FormatRGB24 is packed 8-bit RGB, the canonical layout.
	FormatRGB24

	// FormatBGR24 is packed 8-bit BGR as decoded by OpenCV captures.
	FormatBGR24

	// FormatYUYV is the YUYV 4:2:2 layout delivered by V4L2 webcams.
	FormatYUYV

	// FormatMJPEG is a JPEG-compressed frame.
	FormatMJPEG
)

// String returns the conventional FourCC-style name.
func (f PixelFormat) String() string {
	switch f {
	case FormatRGB24:
		return "RGB24"
	case FormatBGR24:
		return "BGR24"
	case FormatYUYV:
		return "YUYV"
	case FormatMJPEG:
		return "MJPG"
	default:
		return "UNKNOWN"
	}
}

// Supported reports whether Normalize can handle the format. Sources report
// their negotiated format at open time so this check runs once at startup
// instead of failing on the first frame.
func Supported(f PixelFormat) bool {
	switch f {
	case FormatRGB24, FormatBGR24, FormatYUYV, FormatMJPEG:
		return true
	default:
		return false
	}
}
