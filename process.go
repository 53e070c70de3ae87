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

package rastergrid

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary holds descriptive statistics of the valid cells of a grid.
type Summary struct {
	Count, NoData int64
	Min, Max      float64
	Sum, Mean     float64
	StdDev        float64 // sample standard deviation
}

func (s Summary) String() string {
	return fmt.Sprintf("count=%d nodata=%d min=%g max=%g sum=%g mean=%g stddev=%g",
		s.Count, s.NoData, s.Min, s.Max, s.Sum, s.Mean, s.StdDev)
}

// Summarize returns statistics of the valid cells of g, computed one
// chunk at a time. Min, Max, Mean and StdDev are NaN when there are no
// valid cells.
func Summarize(g *Grid) (Summary, error) {
	s := Summary{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), StdDev: math.NaN()}
	var m2 float64
	vals := make([]float64, 0, g.chunkNRows*g.chunkNCols)
	for _, id := range g.ChunkIDs() {
		release := g.mem.Pin(g, id)
		rowMin, rowMax, colMin, colMax := g.ChunkCells(id)
		vals = vals[:0]
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				v := g.Get(row, col)
				if g.IsNoData(v) {
					s.NoData++
					continue
				}
				vals = append(vals, v.Float())
			}
		}
		release()
		if len(vals) > 0 {
			n := float64(len(vals))
			mean, variance := stat.MeanVariance(vals, nil)
			if len(vals) == 1 {
				variance = 0
			}
			if s.Count == 0 {
				s.Min, s.Max, s.Mean = floats.Min(vals), floats.Max(vals), mean
				m2 = variance * (n - 1)
			} else {
				s.Min = math.Min(s.Min, floats.Min(vals))
				s.Max = math.Max(s.Max, floats.Max(vals))
				// Combine the running and chunk moments.
				c := float64(s.Count)
				delta := mean - s.Mean
				m2 += variance*(n-1) + delta*delta*c*n/(c+n)
				s.Mean += delta * n / (c + n)
			}
			s.Count += int64(len(vals))
			s.Sum += floats.Sum(vals)
		}
		if err := g.mem.CheckAndMaybeFreeMemory(); err != nil {
			return s, fmt.Errorf("rastergrid: summarizing %s: %v", g.name, err)
		}
	}
	if s.Count > 1 {
		s.StdDev = math.Sqrt(m2 / float64(s.Count-1))
	} else if s.Count == 1 {
		s.StdDev = 0
	}
	return s, nil
}

// Mask returns a copy of g that is no-data wherever mask is no-data.
// The grids must have equal dimensions.
func (e *Engine) Mask(g, mask *Grid) (*Grid, error) {
	if !g.dims.Equal(mask.dims) {
		return nil, fmt.Errorf("rastergrid: masking %s with %s: %w", g.name, mask.name, ErrNotCoincident)
	}
	e.Log.WithFields(logrus.Fields{
		"operation": "mask",
		"grid":      g.name,
		"source":    mask.name,
	}).Debug("masking")
	result, err := e.Factory.Create(g.kind, g.dims, WithChunkSize(g.chunkNRows, g.chunkNCols),
		WithNoData(g.noData), WithName(g.name+"_masked"))
	if err != nil {
		return nil, err
	}
	err = e.eachChunk("mask", result, func(id ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		release := pinCells(g, rowMin, rowMax-1, colMin, colMax-1)
		defer release()
		releaseMask := pinCells(mask, rowMin, rowMax-1, colMin, colMax-1)
		defer releaseMask()
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				v := g.Get(row, col)
				if g.IsNoData(v) || mask.IsNoData(mask.Get(row, col)) {
					continue
				}
				result.Set(row, col, v)
			}
		}
		return nil
	})
	if err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}

// Rescale returns a Float grid in which the valid values of g are
// linearly mapped from their range onto [min, max]. If all valid values
// of g are equal they map to min.
func (e *Engine) Rescale(g *Grid, min, max float64) (*Grid, error) {
	if min > max {
		return nil, fmt.Errorf("rastergrid: rescale: min %g is greater than max %g", min, max)
	}
	s, err := Summarize(g)
	if err != nil {
		return nil, err
	}
	e.Log.WithFields(logrus.Fields{
		"operation": "rescale",
		"grid":      g.name,
		"from":      fmt.Sprintf("[%g, %g]", s.Min, s.Max),
		"to":        fmt.Sprintf("[%g, %g]", min, max),
	}).Debug("rescaling")
	result, err := e.Factory.Create(Float, g.dims, WithChunkSize(g.chunkNRows, g.chunkNCols),
		WithName(g.name+"_rescaled"), WithNoData(computedNoData(Float)))
	if err != nil {
		return nil, err
	}
	scale := 0.
	if s.Max > s.Min {
		scale = (max - min) / (s.Max - s.Min)
	}
	err = e.eachChunk("rescale", result, func(id ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		release := pinCells(g, rowMin, rowMax-1, colMin, colMax-1)
		defer release()
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				v := g.Get(row, col)
				if g.IsNoData(v) {
					continue
				}
				result.Set(row, col, FloatValue(min+(v.Float()-s.Min)*scale))
			}
		}
		return nil
	})
	if err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}
