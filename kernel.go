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
	"gonum.org/v1/gonum/mat"
)

// Kernel is a table of non-negative weights indexed by offset from a
// centre cell. Row 0 of the table is the most southern offset.
type Kernel struct {
	w          *mat.Dense
	rRow, rCol int
}

// NewKernel returns a kernel with the given weights, which must have an
// odd number of rows and columns and no negative entries.
func NewKernel(weights *mat.Dense) (*Kernel, error) {
	r, c := weights.Dims()
	if r%2 != 1 || c%2 != 1 {
		return nil, fmt.Errorf("rastergrid: kernel must have odd dimensions, got %d×%d", r, c)
	}
	if mat.Min(weights) < 0 {
		return nil, fmt.Errorf("rastergrid: kernel weights must not be negative")
	}
	return &Kernel{w: mat.DenseCopyOf(weights), rRow: r / 2, rCol: c / 2}, nil
}

// DistanceWeightKernel returns a (2*radius+1)×(2*radius+1) kernel with
// weights (1-(d/bandwidth)²)², where d is the distance in cells from the
// centre, and zero beyond the bandwidth.
func DistanceWeightKernel(radius int, bandwidth float64) (*Kernel, error) {
	if radius < 0 || bandwidth <= 0 {
		return nil, fmt.Errorf("rastergrid: invalid kernel radius %d or bandwidth %g", radius, bandwidth)
	}
	n := 2*radius + 1
	w := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			d := math.Hypot(float64(i-radius), float64(j-radius))
			if d < bandwidth {
				x := 1 - (d/bandwidth)*(d/bandwidth)
				w.Set(i, j, x*x)
			}
		}
	}
	return NewKernel(w)
}

// Weight returns the weight for the cell dRow rows and dCol columns from
// the centre, or zero outside of the kernel.
func (k *Kernel) Weight(dRow, dCol int) float64 {
	if dRow < -k.rRow || dRow > k.rRow || dCol < -k.rCol || dCol > k.rCol {
		return 0
	}
	return k.w.At(dRow+k.rRow, dCol+k.rCol)
}

// FocalMean returns a Float grid in which every valid cell of g is
// replaced by the kernel-weighted mean of the valid cells around it.
func (e *Engine) FocalMean(g *Grid, k *Kernel) (*Grid, error) {
	e.Log.WithFields(logrus.Fields{
		"operation": "focalMean",
		"grid":      g.name,
	}).Debug("computing focal mean")
	result, err := e.Factory.Create(Float, g.dims, WithChunkSize(g.chunkNRows, g.chunkNCols),
		WithName(g.name+"_focal"), WithNoData(computedNoData(Float)))
	if err != nil {
		return nil, err
	}
	rr, rc := int64(k.rRow), int64(k.rCol)
	err = e.eachChunk("focalMean", result, func(id ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		release := pinCells(g, rowMin-rr, rowMax-1+rr, colMin-rc, colMax-1+rc)
		defer release()
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				if g.IsNoData(g.Get(row, col)) {
					continue
				}
				var sum, weight float64
				for i := -rr; i <= rr; i++ {
					for j := -rc; j <= rc; j++ {
						w := k.Weight(int(i), int(j))
						if w == 0 || !g.InGrid(row+i, col+j) {
							continue
						}
						v := g.Get(row+i, col+j)
						if g.IsNoData(v) {
							continue
						}
						sum += w * v.Float()
						weight += w
					}
				}
				if weight > 0 {
					result.Set(row, col, FloatValue(sum/weight))
				}
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
