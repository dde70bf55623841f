package expression

import (
	"image"
	"math"

	"github.com/fogleman/gg"
)

// Face geometry on the reference 128x64 panel; other sizes scale from it.
const (
	refWidth  = 128.0
	refHeight = 64.0

	eyeY      = 20.0
	leftEyeX  = 35.0
	rightEyeX = 85.0
	eyeRX     = 8.0
	eyeRY     = 6.0
	pupilR    = 3.0
	mouthY    = 45.0
	mouthHalf = 15.0
	lineWidth = 2.0
)

// DrawFace renders f as a white-on-black image of the given size.
func DrawFace(f Frame, width, height int) image.Image {
	dc := gg.NewContext(width, height)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	sx := float64(width) / refWidth
	sy := float64(height) / refHeight
	dc.Scale(sx, sy)
	dc.SetLineWidth(lineWidth)

	for _, x := range []float64{leftEyeX, rightEyeX} {
		drawEye(dc, x, f.Eyes)
	}
	drawMouth(dc, refWidth/2, f.Mouth)

	return dc.Image()
}

func drawEye(dc *gg.Context, x float64, eyes Eyes) {
	dc.SetRGB(1, 1, 1)
	if eyes == EyesClosed {
		dc.DrawLine(x-eyeRX, eyeY, x+eyeRX, eyeY)
		dc.Stroke()
		return
	}

	dc.DrawEllipse(x, eyeY, eyeRX, eyeRY)
	dc.Fill()
	dc.SetRGB(0, 0, 0)
	dc.DrawCircle(x, eyeY, pupilR)
	dc.Fill()
}

func drawMouth(dc *gg.Context, x float64, mouth Mouth) {
	dc.SetRGB(1, 1, 1)
	switch mouth {
	case MouthSmile:
		// lower half of an ellipse: a U
		dc.DrawEllipticalArc(x, mouthY+2.5, mouthHalf, 7.5, 0, math.Pi)
		dc.Stroke()
	case MouthDots:
		for _, dx := range []float64{-10, -2, 6} {
			dc.DrawCircle(x+dx, mouthY, 2)
			dc.Fill()
		}
	default:
		dc.DrawLine(x-mouthHalf, mouthY, x+mouthHalf, mouthY)
		dc.Stroke()
	}
}
