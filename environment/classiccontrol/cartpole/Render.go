package cartpole

import (
	"fmt"
	"image/color"
	"math"

	"github.com/fogleman/gg"
)

const (
	ViewportW float64 = 600
	ViewportH float64 = 400

	cartW float64 = 50
	cartH float64 = 30
	poleW float64 = 10
)

var (
	skyShade   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	trackShade = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	cartShade  = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	poleShade  = color.RGBA{R: 202, G: 152, B: 101, A: 255}
	axleShade  = color.RGBA{R: 129, G: 132, B: 203, A: 255}
)

// Render draws the current state of the environment and saves it as a
// PNG image at path
func (c *base) Render(path string) error {
	worldWidth := 2 * FailPosition * 1.25
	scale := ViewportW / worldWidth
	poleLen := scale * 2 * c.halfPoleLength
	trackY := ViewportH * 0.75

	state := c.lastStep.Observation
	x, th := state.AtVec(0), state.AtVec(2)
	if math.IsNaN(x) || math.IsNaN(th) {
		return fmt.Errorf("render: cannot render NaN state")
	}

	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyShade)
	dc.Clear()

	// Track
	dc.SetColor(trackShade)
	dc.SetLineWidth(1.0)
	dc.DrawLine(0, trackY, ViewportW, trackY)
	dc.Stroke()

	// Cart
	cartX := x*scale + ViewportW/2
	dc.DrawRectangle(cartX-cartW/2, trackY-cartH/2, cartW, cartH)
	dc.SetColor(cartShade)
	dc.Fill()

	// Pole, rotated about the axle with angle 0 pointing straight up
	axleY := trackY - cartH/4
	dc.Push()
	dc.RotateAbout(th, cartX, axleY)
	dc.DrawRectangle(cartX-poleW/2, axleY-poleLen, poleW, poleLen)
	dc.SetColor(poleShade)
	dc.Fill()
	dc.Pop()

	// Axle
	dc.DrawCircle(cartX, axleY, poleW/2)
	dc.SetColor(axleShade)
	dc.Fill()

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("render: could not save frame: %v", err)
	}
	return nil
}
