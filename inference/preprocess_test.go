package inference

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepareInput_Layout(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	img.Set(3, 1, color.RGBA{G: 255, B: 51, A: 255})

	dst := make([]float32, 3*8)
	require.NoError(t, PrepareInput(img, image.Pt(4, 2), dst))

	// Planes are R, G, B, each row-major.
	assert.Equal(t, float32(1), dst[0])
	assert.Equal(t, float32(0), dst[8])
	assert.Equal(t, float32(0), dst[16])

	last := 7
	assert.Equal(t, float32(0), dst[last])
	assert.Equal(t, float32(1), dst[8+last])
	assert.InDelta(t, 0.2, dst[16+last], 0.0001)
}

func TestPrepareInput_Resizes(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 64, 48))
	for y := 0; y < 48; y++ {
		for x := 0; x < 64; x++ {
			img.Set(x, y, color.RGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}

	size := image.Pt(32, 32)
	dst := make([]float32, 3*32*32)
	require.NoError(t, PrepareInput(img, size, dst))

	for _, v := range dst {
		assert.InDelta(t, 128.0/255.0, v, 0.01)
	}
}

func TestPrepareInput_Errors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))

	assert.Error(t, PrepareInput(nil, image.Pt(4, 4), make([]float32, 48)))
	assert.Error(t, PrepareInput(img, image.Pt(0, 4), make([]float32, 48)))
	assert.Error(t, PrepareInput(img, image.Pt(4, 4), make([]float32, 47)))
}
