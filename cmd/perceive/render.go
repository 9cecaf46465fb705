package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/nvr-ai/go-perception/models/postprocess"
	"gocv.io/x/gocv"
)

var (
	blue    = color.RGBA{0, 0, 255, 0}
	red     = color.RGBA{255, 0, 0, 0}
	orange  = color.RGBA{255, 165, 0, 0}
	cyan    = color.RGBA{0, 255, 255, 0}
	magenta = color.RGBA{255, 0, 255, 0}
	purple  = color.RGBA{128, 0, 128, 0}
	green   = color.RGBA{0, 255, 0, 0}
	black   = color.RGBA{0, 0, 0, 0}
)

var labelColors = map[string]color.RGBA{
	"person":       blue,
	"car":          red,
	"truck":        red,
	"bus":          red,
	"chair":        orange,
	"couch":        orange,
	"dining table": orange,
	"tv":           cyan,
	"laptop":       cyan,
	"cell phone":   cyan,
	"bottle":       magenta,
	"cup":          magenta,
	"bowl":         magenta,
	"book":         purple,
	"clock":        purple,
	"vase":         purple,
}

// colorFor returns the box color of a label. Unlisted labels are green.
func colorFor(label string) color.RGBA {
	if c, ok := labelColors[label]; ok {
		return c
	}
	return green
}

// boxStyle picks the line thickness and font scale from the share of the
// frame a box covers, so small objects stay readable.
func boxStyle(box image.Rectangle, frame image.Point) (thickness int, scale float64) {
	frameArea := frame.X * frame.Y
	if frameArea <= 0 {
		return 2, 0.6
	}
	ratio := float64(box.Dx()*box.Dy()) / float64(frameArea)
	switch {
	case ratio > 0.1:
		return 4, 1.0
	case ratio < 0.01:
		return 1, 0.4
	}
	return 2, 0.6
}

func caption(d postprocess.Detection) string {
	return fmt.Sprintf("%s %d%%", d.Label, int(d.Score*100))
}

// captionOrigin keeps the caption above the box without leaving the frame.
func captionOrigin(box image.Rectangle, textHeight int) image.Point {
	return image.Pt(box.Min.X, max(box.Min.Y-5, textHeight+5))
}

func drawDetections(img *gocv.Mat, detections []postprocess.Detection) {
	frame := image.Pt(img.Cols(), img.Rows())
	for _, d := range detections {
		box := d.Box.Rectangle()
		c := colorFor(d.Label)
		thickness, scale := boxStyle(box, frame)
		gocv.Rectangle(img, box, c, thickness)

		text := caption(d)
		size := gocv.GetTextSize(text, gocv.FontHersheySimplex, scale, 1)
		origin := captionOrigin(box, size.Y)
		background := image.Rect(origin.X, origin.Y-size.Y-5, origin.X+size.X, origin.Y+5)
		gocv.Rectangle(img, background, c, -1)
		gocv.PutText(img, text, origin, gocv.FontHersheySimplex, scale, black, 1)
	}
}

func drawStatus(img *gocv.Mat, fps float64, objects int) {
	gocv.PutText(img, fmt.Sprintf("FPS: %.1f", fps), image.Pt(10, 30), gocv.FontHersheySimplex, 1.0, green, 2)
	gocv.PutText(img, fmt.Sprintf("Objects: %d", objects), image.Pt(10, 70), gocv.FontHersheySimplex, 1.0, green, 2)
}
