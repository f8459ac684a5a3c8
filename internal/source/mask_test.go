package source

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask_AtOutsideBounds(t *testing.T) {
	m := NewMask(3, 2)
	m.Set(2, 1, 9)
	m.Set(5, 5, 9) // ignored

	assert.Equal(t, 9, m.At(2, 1))
	assert.Equal(t, 0, m.At(-1, 0))
	assert.Equal(t, 0, m.At(3, 0))
	assert.Equal(t, 0, m.At(0, 2))
}

func TestMask_FillRectClips(t *testing.T) {
	m := NewMask(4, 4)
	m.FillRect(image.Rect(2, 2, 10, 10), 3)

	count := 0
	for _, l := range m.Labels {
		if l == 3 {
			count++
		}
	}
	assert.Equal(t, 4, count)
}

func TestEncodeMask_RoundTrip(t *testing.T) {
	m := NewMask(5, 4)
	m.FillRect(image.Rect(0, 0, 2, 2), 1)
	m.FillRect(image.Rect(2, 1, 5, 4), 1200)

	var buf bytes.Buffer
	require.NoError(t, EncodeMask(&buf, m))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	_, ok := img.(*image.Gray16)
	require.True(t, ok, "masks are 16-bit")

	got := MaskFromImage(img)
	assert.Equal(t, m.Labels, got.Labels)
}

func TestEncodeMask_RejectsOutOfRange(t *testing.T) {
	m := NewMask(2, 1)
	m.Labels[1] = 70000
	assert.Error(t, EncodeMask(&bytes.Buffer{}, m))
	assert.Error(t, EncodeMask(&bytes.Buffer{}, nil))
}

func TestMaskFromImage_Gray8(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 2, 2))
	img.SetGray(1, 1, color.Gray{Y: 7})

	m := MaskFromImage(img)
	assert.Equal(t, 2, m.Width)
	assert.Equal(t, 7, m.At(1, 1))
	assert.Equal(t, 0, m.At(0, 0))
}

func TestMaskFromImage_PalettedUsesIndex(t *testing.T) {
	pal := color.Palette{
		color.Black,
		color.White,
		color.RGBA{R: 255, A: 255},
		color.Gray{Y: 200},
	}
	img := image.NewPaletted(image.Rect(5, 5, 8, 7), pal)
	img.SetColorIndex(5, 5, 1)
	img.SetColorIndex(6, 5, 2)
	img.SetColorIndex(7, 6, 3)

	m := MaskFromImage(img)
	require.Equal(t, 3, m.Width)
	require.Equal(t, 2, m.Height)
	assert.Equal(t, 1, m.At(0, 0))
	assert.Equal(t, 2, m.At(1, 0))
	assert.Equal(t, 3, m.At(2, 1))
	assert.Equal(t, 0, m.At(0, 1))

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	decoded, err := png.Decode(&buf)
	require.NoError(t, err)
	require.IsType(t, &image.Paletted{}, decoded)
	assert.Equal(t, m.Labels, MaskFromImage(decoded).Labels)
}
