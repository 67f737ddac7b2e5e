package models

import "image"

// BoundingBox is a region in frame-pixel coordinates.
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// BoxFromRect converts an image.Rectangle into a BoundingBox.
func BoxFromRect(r image.Rectangle) BoundingBox {
	r = r.Canon()
	return BoundingBox{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()}
}

// Rect returns the box as an image.Rectangle.
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// Empty reports whether the box covers no pixels.
func (b BoundingBox) Empty() bool {
	return b.Width <= 0 || b.Height <= 0
}

// Area returns the number of pixels covered by the box.
func (b BoundingBox) Area() int {
	if b.Empty() {
		return 0
	}
	return b.Width * b.Height
}

// Clamp clips the box to bounds. The second return value is false when the
// box lies entirely outside bounds and must be discarded.
func (b BoundingBox) Clamp(bounds image.Rectangle) (BoundingBox, bool) {
	if b.Empty() {
		return BoundingBox{}, false
	}
	r := b.Rect().Intersect(bounds)
	if r.Empty() {
		return BoundingBox{}, false
	}
	return BoxFromRect(r), true
}

// Frame is a decoded video frame. Index is assigned at read time and is
// strictly increasing within a run.
type Frame struct {
	Index int
	Image image.Image
}

// Bounds returns the pixel bounds of the frame.
func (f Frame) Bounds() image.Rectangle {
	if f.Image == nil {
		return image.Rectangle{}
	}
	return f.Image.Bounds()
}

// OverlayStyle selects how an overlay is rendered.
type OverlayStyle int

const (
	StyleCalm OverlayStyle = iota
	StyleStressed
	StyleUnlabeled
	StyleCoasting
)

func (s OverlayStyle) String() string {
	switch s {
	case StyleCalm:
		return "calm"
	case StyleStressed:
		return "stressed"
	case StyleUnlabeled:
		return "unlabeled"
	case StyleCoasting:
		return "coasting"
	default:
		return "unknown"
	}
}

// Overlay is a box (and optional text) burned into an output frame.
type Overlay struct {
	Box   BoundingBox  `json:"box"`
	Text  string       `json:"text,omitempty"`
	Style OverlayStyle `json:"style"`
}

// OutputFrame is a frame ready for the sink, together with the tracking
// state that produced its overlays.
type OutputFrame struct {
	Frame    Frame
	Overlays []Overlay
	Result   DetectionResult
	State    TrackState
}
