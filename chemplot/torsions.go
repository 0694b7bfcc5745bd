/*
 * torsions.go, part of goConf.
 *
 * Copyright 2024 The goConf Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package chemplot

import (
	"fmt"
	"image/color"
	"math"

	"github.com/cockroachdb/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
)

// MaxTagged is the largest number of points that can be highlighted in a torsion map.
const MaxTagged = 4

func basicTorsionPlot(title, xlabel, ylabel string) *plot.Plot {
	p := plot.New()
	p.Title.Padding = 3 * vg.Millimeter
	p.Title.Text = title
	p.X.Label.Text = xlabel
	p.Y.Label.Text = ylabel
	//Constant axes
	p.X.Min = 0
	p.X.Max = 360
	p.Y.Min = 0
	p.Y.Max = 360
	p.Add(plotter.NewGrid())
	return p
}

// TorsionMap produces a PNG plot, plotname.png, of pairs of torsion angles, in
// degrees, such as the angles of two rotatable bonds in each of a series of
// conformers. Points are colored by their order in data. The points whose indexes
// are in tag (at most MaxTagged) are highlighted with a different glyph.
func TorsionMap(data [][2]float64, tag []int, title, plotname string) error {
	if data == nil {
		panic("Given nil data")
	}
	p := basicTorsionPlot(title, "Torsion 1 (deg)", "Torsion 2 (deg)")
	temp := make(plotter.XYs, 1)
	var tagged int //How many points have been tagged?
	for key, val := range data {
		temp[0].X = val[0]
		temp[0].Y = val[1]
		s, err := plotter.NewScatter(temp)
		if err != nil {
			return errors.Wrap(err, "TorsionMap")
		}
		if isInInt(tag, key) {
			shape, err := getShape(tagged)
			if err != nil {
				return errors.Wrap(err, "TorsionMap")
			}
			s.GlyphStyle.Shape = shape
			s.GlyphStyle.Radius = vg.Points(4)
			tagged++
		}
		r, g, b := colors(key, len(data))
		s.GlyphStyle.Color = color.RGBA{R: r, B: b, G: g, A: 255}
		p.Add(s)
	}
	return errors.Wrap(p.Save(4*vg.Inch, 4*vg.Inch, fmt.Sprintf("%s.png", plotname)), "TorsionMap")
}

// TracePlot produces a PNG plot, plotname.png, of the collision intensity and the
// contribution of a series of conformers, in the order in which they were generated.
// The two slices must have the same length.
func TracePlot(intensity, contribution []float64, title, plotname string) error {
	if len(intensity) != len(contribution) {
		return errors.Newf("TracePlot: %d intensities but %d contributions", len(intensity), len(contribution))
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Conformer"
	p.Y.Label.Text = "Value"
	p.Add(plotter.NewGrid())
	for i, series := range [][]float64{intensity, contribution} {
		pts := make(plotter.XYs, len(series))
		for j, v := range series {
			pts[j].X = float64(j + 1)
			pts[j].Y = v
		}
		l, s, err := plotter.NewLinePoints(pts)
		if err != nil {
			return errors.Wrap(err, "TracePlot")
		}
		r, g, b := colors(i, 2)
		l.Color = color.RGBA{R: r, G: g, B: b, A: 255}
		s.Color = l.Color
		p.Add(l, s)
		p.Legend.Add([]string{"intensity", "contribution"}[i], l, s)
	}
	return errors.Wrap(p.Save(6*vg.Inch, 4*vg.Inch, fmt.Sprintf("%s.png", plotname)), "TracePlot")
}

// takes hue (0-360), v and s (0-1), returns r,g,b (0-255)
func iHVS2RGB(h, v, s float64) (uint8, uint8, uint8) {
	var i, f, p, q, t float64
	var r, g, b float64
	maxcolor := 255.0
	conversion := maxcolor * v
	if s == 0.0 {
		return uint8(conversion), uint8(conversion), uint8(conversion)
	}
	h = h / 60
	i = math.Floor(h)
	f = h - i
	p = v * (1 - s)
	q = v * (1 - s*f)
	t = v * (1 - s*(1-f))
	switch int(i) {
	case 0:
		r, g, b = v, t, p
	case 1:
		r, g, b = q, v, p
	case 2:
		r, g, b = p, v, t
	case 3:
		r, g, b = p, q, v
	case 4:
		r, g, b = t, p, v
	default: //case 5
		r, g, b = v, p, q
	}
	return uint8(r * conversion), uint8(g * conversion), uint8(b * conversion)
}

// colors returns a color for the key-th of steps points, going from red to violet
// and skipping the yellows.
func colors(key, steps int) (r, g, b uint8) {
	norm := 260.0 / float64(steps)
	hp := float64(key)*norm + 20.0
	var h float64
	if hp < 55 {
		h = hp - 20.0
	} else {
		h = hp + 20.0
	}
	return iHVS2RGB(h, 1, 1)
}

func getShape(tagged int) (draw.GlyphDrawer, error) {
	switch tagged {
	case 0:
		return draw.PyramidGlyph{}, nil
	case 1:
		return draw.CircleGlyph{}, nil
	case 2:
		return draw.SquareGlyph{}, nil
	case 3:
		return draw.CrossGlyph{}, nil
	default:
		return draw.RingGlyph{}, errors.Newf("Maximum number of taggable points is %d", MaxTagged)
	}
}

// isInInt returns true if test is in container, false otherwise.
func isInInt(container []int, test int) bool {
	for _, i := range container {
		if test == i {
			return true
		}
	}
	return false
}
