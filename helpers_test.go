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
	"math"
	"testing"

	"github.com/kr/pretty"
)

// testEngine returns an engine whose grids have chunkRows×chunkCols
// chunks and share a budget of maxChunks.
func testEngine(maxChunks, chunkRows, chunkCols int) *Engine {
	return NewEngine(NewFactory(NewMemory(maxChunks, nil), chunkRows, chunkCols))
}

func testDims(t *testing.T, xMin, yMin, cellSize string, nRows, nCols int64) Dimensions {
	t.Helper()
	d, err := ParseDimensions(xMin, yMin, cellSize, nRows, nCols)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

// testGrid returns a grid holding vals, indexed [row][col] with row 0 the
// southernmost. NaN entries are left as no-data.
func testGrid(t *testing.T, e *Engine, kind Kind, d Dimensions, vals [][]float64, opts ...GridOption) *Grid {
	t.Helper()
	g, err := e.Factory.Create(kind, d, opts...)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range vals {
		for j, v := range row {
			if !math.IsNaN(v) {
				g.Set(int64(i), int64(j), FloatValue(v))
			}
		}
		if err := g.mem.CheckAndMaybeFreeMemory(); err != nil {
			t.Fatal(err)
		}
	}
	return g
}

// values returns the contents of g with no-data as NaN.
func values(g *Grid) [][]float64 {
	o := make([][]float64, g.NRows())
	for i := range o {
		o[i] = make([]float64, g.NCols())
		for j := range o[i] {
			v := g.Get(int64(i), int64(j))
			if g.IsNoData(v) {
				o[i][j] = math.NaN()
			} else {
				o[i][j] = v.Float()
			}
		}
	}
	return o
}

var nan = math.NaN()

func different(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) != math.IsNaN(b)
	}
	if a == b {
		return false
	}
	return 2*math.Abs(a-b)/math.Abs(a+b) > tolerance
}

func compareValues(t *testing.T, have, want [][]float64, tolerance float64) {
	t.Helper()
	if len(have) != len(want) {
		t.Fatalf("have %d rows, want %d", len(have), len(want))
	}
	for i := range want {
		if len(have[i]) != len(want[i]) {
			t.Fatalf("row %d: have %d columns, want %d", i, len(have[i]), len(want[i]))
		}
		for j := range want[i] {
			if different(have[i][j], want[i][j], tolerance) {
				t.Errorf("have %v, want %v\n%v", have, want, pretty.Diff(have, want))
				return
			}
		}
	}
}

func seq(rows, cols int) [][]float64 {
	o := make([][]float64, rows)
	for i := range o {
		o[i] = make([]float64, cols)
		for j := range o[i] {
			o[i][j] = float64(i*cols + j + 1)
		}
	}
	return o
}

func fill(rows, cols int, v float64) [][]float64 {
	o := make([][]float64, rows)
	for i := range o {
		o[i] = make([]float64, cols)
		for j := range o[i] {
			o[i][j] = v
		}
	}
	return o
}
