// Package source provides the frame, mask and segmentation collaborators that
// feed the trajectory feature engine.
package source

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"math"
)

// Mask is a labeled segmentation of one frame. Label 0 is background.
type Mask struct {
	Width  int
	Height int
	Labels []int
}

// NewMask allocates an all-background mask.
func NewMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Labels: make([]int, w*h)}
}

// At returns the label at (x, y), or 0 outside the mask.
func (m *Mask) At(x, y int) int {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Labels[y*m.Width+x]
}

// Set assigns a label to (x, y); out-of-bounds writes are ignored.
func (m *Mask) Set(x, y, label int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Labels[y*m.Width+x] = label
}

// FillRect labels every pixel of r (clipped to the mask).
func (m *Mask) FillRect(r image.Rectangle, label int) {
	r = r.Intersect(image.Rect(0, 0, m.Width, m.Height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			m.Labels[y*m.Width+x] = label
		}
	}
}

// Bounds returns the mask rectangle.
func (m *Mask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// MaskFromImage converts a label image into a Mask. 16-bit images keep their
// full label range and paletted images use the palette index as the label;
// other color models are reduced to 16-bit gray.
func MaskFromImage(img image.Image) *Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	switch src := img.(type) {
	case *image.Gray16:
		for y := range m.Height {
			for x := range m.Width {
				m.Labels[y*m.Width+x] = int(src.Gray16At(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Gray:
		for y := range m.Height {
			for x := range m.Width {
				m.Labels[y*m.Width+x] = int(src.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			}
		}
	case *image.Paletted:
		for y := range m.Height {
			for x := range m.Width {
				m.Labels[y*m.Width+x] = int(src.ColorIndexAt(b.Min.X+x, b.Min.Y+y))
			}
		}
	default:
		for y := range m.Height {
			for x := range m.Width {
				g, ok := color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16)
				if ok {
					m.Labels[y*m.Width+x] = int(g.Y)
				}
			}
		}
	}
	return m
}

// EncodeMask writes m as a 16-bit grayscale PNG label image.
func EncodeMask(w io.Writer, m *Mask) error {
	if m == nil {
		return errors.New("nil mask")
	}
	img := image.NewGray16(image.Rect(0, 0, m.Width, m.Height))
	for i, l := range m.Labels {
		if l < 0 || l > math.MaxUint16 {
			return fmt.Errorf("label %d at index %d does not fit a 16-bit mask", l, i)
		}
		img.SetGray16(i%m.Width, i/m.Width, color.Gray16{Y: uint16(l)})
	}
	return png.Encode(w, img)
}
