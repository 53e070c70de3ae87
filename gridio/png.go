/*
Copyright © 2019 the rastergrid authors.
This file is part of rastergrid.

rastergrid is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

rastergrid is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with rastergrid.  If not, see <http://www.gnu.org/licenses/>.
*/

package gridio

import (
	"fmt"
	"image/color"
	"io"
	"math"

	"github.com/spatialmodel/rastergrid"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/palette"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
)

// gridXYZ adapts a grid to plotter.GridXYZ. No-data cells are NaN.
type gridXYZ struct {
	g    *rastergrid.Grid
	x, y []float64
}

func newGridXYZ(g *rastergrid.Grid) *gridXYZ {
	d := g.Dimensions()
	o := &gridXYZ{g: g, x: make([]float64, d.NCols()), y: make([]float64, d.NRows())}
	for c := range o.x {
		o.x[c], _ = d.CellX(int64(c)).Float64()
	}
	for r := range o.y {
		o.y[r], _ = d.CellY(int64(r)).Float64()
	}
	return o
}

func (g *gridXYZ) Dims() (c, r int) { return len(g.x), len(g.y) }
func (g *gridXYZ) X(c int) float64  { return g.x[c] }
func (g *gridXYZ) Y(r int) float64  { return g.y[r] }

func (g *gridXYZ) Z(c, r int) float64 {
	v := g.g.Get(int64(r), int64(c))
	if g.g.IsNoData(v) {
		return math.NaN()
	}
	return v.Float()
}

// WritePNG draws g as a heat map with the given title and writes it to w
// as a PNG image of width×height.
func WritePNG(w io.Writer, g *rastergrid.Grid, title string, width, height vg.Length) error {
	s, err := rastergrid.Summarize(g)
	if err != nil {
		return err
	}
	if s.Count == 0 {
		return fmt.Errorf("gridio: grid %s has no valid cells to draw", g.Name())
	}
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "x"
	p.Y.Label.Text = "y"

	h := plotter.NewHeatMap(newGridXYZ(g), palette.Heat(64, 1))
	h.Min, h.Max = s.Min, s.Max
	if h.Max == h.Min {
		h.Max = h.Min + 1
	}
	h.NaN = color.Transparent
	p.Add(h)

	wt, err := p.WriterTo(width, height, "png")
	if err != nil {
		return fmt.Errorf("gridio: drawing %s: %v", g.Name(), err)
	}
	if _, err := wt.WriteTo(w); err != nil {
		return fmt.Errorf("gridio: writing PNG: %v", err)
	}
	return g.Memory().CheckAndMaybeFreeMemory()
}
