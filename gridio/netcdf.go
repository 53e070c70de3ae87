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
	"math"
	"os"

	"github.com/ctessum/cdf"
	"github.com/spatialmodel/rastergrid"
)

// WriteNetCDF writes g to w as a NetCDF file holding the variable "data"
// with dimensions (y, x). The frame is stored in global attributes as
// exact fractions, so it is read back without rounding. Values are stored
// as float64, with no-data cells set to the "nodata" attribute.
func WriteNetCDF(w *os.File, g *rastergrid.Grid) error {
	d := g.Dimensions()
	nRows, nCols := int(d.NRows()), int(d.NCols())
	h := cdf.NewHeader([]string{"y", "x"}, []int{nRows, nCols})
	h.AddAttribute("", "comment", "rastergrid grid")
	h.AddAttribute("", "xmin", d.XMin().RatString())
	h.AddAttribute("", "ymin", d.YMin().RatString())
	h.AddAttribute("", "cellsize", d.CellSize().RatString())
	h.AddAttribute("", "kind", g.Kind().String())
	h.AddAttribute("", "nodata", []float64{g.NoData().Float()})
	h.AddAttribute("", "version", rastergrid.Version)
	h.AddVariable("data", []string{"y", "x"}, []float64{0})
	h.AddAttribute("data", "description", g.Name())
	h.Define()

	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("gridio: creating NetCDF file: %v", err)
	}
	noData := g.NoData().Float()
	mem := g.Memory()
	rows, _ := g.ChunkSize()
	for rowMin := 0; rowMin < nRows; rowMin += rows {
		rowMax := rowMin + rows
		if rowMax > nRows {
			rowMax = nRows
		}
		release := mem.Pin(g, g.ChunksCovering(int64(rowMin), int64(rowMax-1), 0, int64(nCols-1))...)
		data := make([]float64, 0, (rowMax-rowMin)*nCols)
		for row := rowMin; row < rowMax; row++ {
			for col := 0; col < nCols; col++ {
				v := g.Get(int64(row), int64(col))
				if g.IsNoData(v) {
					data = append(data, noData)
				} else {
					data = append(data, v.Float())
				}
			}
		}
		release()
		wr := f.Writer("data", []int{rowMin, 0}, []int{rowMax, nCols})
		if _, err := wr.Write(data); err != nil {
			return fmt.Errorf("gridio: writing NetCDF rows %d to %d: %v", rowMin, rowMax, err)
		}
		if err := mem.CheckAndMaybeFreeMemory(); err != nil {
			return fmt.Errorf("gridio: writing NetCDF file: %v", err)
		}
	}
	return cdf.UpdateNumRecs(w)
}

// ReadNetCDF reads a grid written by WriteNetCDF from rw, creating it
// with f.
func ReadNetCDF(rw cdf.ReaderWriterAt, f *rastergrid.Factory) (*rastergrid.Grid, error) {
	nc, err := cdf.Open(rw)
	if err != nil {
		return nil, fmt.Errorf("gridio: opening NetCDF file: %v", err)
	}
	attr := func(name string) (string, error) {
		s, ok := nc.Header.GetAttribute("", name).(string)
		if !ok {
			return "", fmt.Errorf("gridio: NetCDF file is missing the %s attribute", name)
		}
		return s, nil
	}
	var vals [4]string
	for i, name := range []string{"xmin", "ymin", "cellsize", "kind"} {
		if vals[i], err = attr(name); err != nil {
			return nil, err
		}
	}
	kind, err := rastergrid.ParseKind(vals[3])
	if err != nil {
		return nil, fmt.Errorf("gridio: reading NetCDF file: %w", err)
	}
	lengths := nc.Header.Lengths("data")
	if len(lengths) != 2 {
		return nil, fmt.Errorf("gridio: NetCDF variable data has %d dimensions, want 2", len(lengths))
	}
	nRows, nCols := lengths[0], lengths[1]
	d, err := rastergrid.ParseDimensions(vals[0], vals[1], vals[2], int64(nRows), int64(nCols))
	if err != nil {
		return nil, fmt.Errorf("gridio: reading NetCDF file: %v", err)
	}
	var opts []rastergrid.GridOption
	noData := math.NaN()
	if nd, ok := nc.Header.GetAttribute("", "nodata").([]float64); ok && len(nd) == 1 {
		noData = nd[0]
		opts = append(opts, rastergrid.WithNoData(rastergrid.FloatValue(noData)))
	}
	if desc, ok := nc.Header.GetAttribute("data", "description").(string); ok && desc != "" {
		opts = append(opts, rastergrid.WithName(desc))
	}
	g, err := f.Create(kind, d, opts...)
	if err != nil {
		return nil, err
	}
	mem := f.Memory()
	rows, _ := g.ChunkSize()
	for rowMin := 0; rowMin < nRows; rowMin += rows {
		rowMax := rowMin + rows
		if rowMax > nRows {
			rowMax = nRows
		}
		buf := make([]float64, (rowMax-rowMin)*nCols)
		r := nc.Reader("data", []int{rowMin, 0}, []int{rowMax, nCols})
		if _, err := r.Read(buf); err != nil {
			g.Dispose()
			return nil, fmt.Errorf("gridio: reading NetCDF rows %d to %d: %v", rowMin, rowMax, err)
		}
		for i, v := range buf {
			if v == noData || math.IsNaN(v) {
				continue
			}
			g.Set(int64(rowMin+i/nCols), int64(i%nCols), rastergrid.FloatValue(v))
		}
		if err := mem.CheckAndMaybeFreeMemory(); err != nil {
			g.Dispose()
			return nil, fmt.Errorf("gridio: reading NetCDF file: %v", err)
		}
	}
	return g, nil
}
