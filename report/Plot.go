package report

import (
	"fmt"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// PlotRewards plots rewards against episode number and saves the plot
// to path. The image format is determined by the extension of path.
func PlotRewards(rewards []float64, title, path string) error {
	if len(rewards) == 0 {
		return fmt.Errorf("plotRewards: no rewards to plot")
	}

	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Reward"
	p.Add(plotter.NewGrid())

	pts := make(plotter.XYs, len(rewards))
	for i := range rewards {
		pts[i].X = float64(i)
		pts[i].Y = rewards[i]
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("plotRewards: could not create line plotter: %v",
			err)
	}
	p.Add(line)

	if err := p.Save(8*vg.Inch, 5*vg.Inch, path); err != nil {
		return fmt.Errorf("plotRewards: could not save plot: %v", err)
	}
	return nil
}
