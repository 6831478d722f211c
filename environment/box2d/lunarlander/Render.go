package lunarlander

import (
	"fmt"
	"image/color"

	"github.com/ByteArena/box2d"
	"github.com/fogleman/gg"
)

var (
	skyShade    = color.RGBA{R: 0, G: 0, B: 0, A: 255}
	moonShade   = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	landerShade = color.RGBA{R: 128, G: 102, B: 230, A: 255}
	legShade    = color.RGBA{R: 77, G: 77, B: 128, A: 255}
	flagShade   = color.RGBA{R: 204, G: 204, B: 0, A: 255}
)

// Render draws the current state of the environment and saves it as a
// PNG image at path
func (l *lunarLander) Render(path string) error {
	if l.lander == nil {
		return fmt.Errorf("render: environment has not been reset")
	}

	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyShade)
	dc.Clear()

	// Box2D's y axis points up
	toScreen := func(x, y float64) (float64, float64) {
		return x * Scale, ViewportH - y*Scale
	}

	dc.MoveTo(toScreen(0, 0))
	for _, p := range l.terrain {
		dc.LineTo(toScreen(p[0], p[1]))
	}
	dc.LineTo(toScreen(ViewportW/Scale, 0))
	dc.ClosePath()
	dc.SetColor(moonShade)
	dc.Fill()

	for _, x := range []float64{l.helipadX1, l.helipadX2} {
		x0, y0 := toScreen(x, l.helipadY)
		dc.SetColor(flagShade)
		dc.DrawLine(x0, y0, x0, y0-50)
		dc.Stroke()
		dc.DrawRectangle(x0, y0-50, 25, 10)
		dc.Fill()
	}

	drawBody := func(b *box2d.B2Body, shade color.Color) {
		for f := b.GetFixtureList(); f != nil; f = f.M_next {
			poly, ok := f.M_shape.(*box2d.B2PolygonShape)
			if !ok {
				continue
			}
			for i := 0; i < poly.M_count; i++ {
				v := box2d.B2TransformVec2Mul(b.M_xf, poly.M_vertices[i])
				dc.LineTo(toScreen(v.X, v.Y))
			}
			dc.ClosePath()
			dc.SetColor(shade)
			dc.Fill()
		}
	}
	for _, leg := range l.legs {
		drawBody(leg, legShade)
	}
	drawBody(l.lander, landerShade)

	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("render: could not save frame: %v", err)
	}
	return nil
}
