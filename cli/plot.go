package cli

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

var channelColors = []color.Color{
	color.RGBA{R: 46, G: 139, B: 87, A: 255},
	color.RGBA{R: 205, G: 92, B: 92, A: 255},
}

// plotSizes saves a plot of the points each recorder received per frame to fn. The image
// format follows the extension of fn.
func plotSizes(fn string, recorders []*replayRecorder) error {
	p := plot.New()
	p.Title.Text = "Points per frame"
	p.X.Label.Text = "Frame"
	p.Y.Label.Text = "Points"

	for i, r := range recorders {
		r.mu.Lock()
		pts := make(plotter.XYs, 0, len(r.sizes))
		for frame, size := range r.sizes {
			pts = append(pts, plotter.XY{X: float64(frame), Y: size})
		}
		r.mu.Unlock()

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = channelColors[i%len(channelColors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(r.channel, line)
	}
	return p.Save(8*vg.Inch, 4*vg.Inch, fn)
}
