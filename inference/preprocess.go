package inference

import (
	"image"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"
)

// PrepareInput resizes img to the model input size and writes it into dst as
// planar RGB (CHW) scaled to [0, 1].
//
// Arguments:
//   - img: The frame to prepare.
//   - size: The model input resolution.
//   - dst: The destination buffer, at least 3 * size.X * size.Y floats.
//
// Returns:
//   - error: An error if the buffer is too small or the size is invalid.
func PrepareInput(img image.Image, size image.Point, dst []float32) error {
	if img == nil {
		return errors.New("nil image")
	}
	if size.X <= 0 || size.Y <= 0 {
		return errors.Errorf("invalid input size %v", size)
	}
	channelSize := size.X * size.Y
	if len(dst) < channelSize*3 {
		return errors.Errorf("destination holds %d floats, needs %d", len(dst), channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	bounds := img.Bounds()
	if bounds.Dx() != size.X || bounds.Dy() != size.Y {
		img = resize.Resize(uint(size.X), uint(size.Y), img, resize.Bilinear)
		bounds = img.Bounds()
	}

	i := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b, _ := img.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
