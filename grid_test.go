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
	"reflect"
	"testing"
)

func TestGridChunks(t *testing.T) {
	e := testEngine(0, 2, 3)
	g, err := e.Factory.Create(Float, testDims(t, "0", "0", "1", 5, 4), WithName("g"))
	if err != nil {
		t.Fatal(err)
	}
	want := []ChunkID{{0, 0}, {0, 1}, {1, 0}, {1, 1}, {2, 0}, {2, 1}}
	if have := g.ChunkIDs(); !reflect.DeepEqual(have, want) {
		t.Errorf("chunk ids: have %v, want %v", have, want)
	}
	rowMin, rowMax, colMin, colMax := g.ChunkCells(ChunkID{2, 1})
	if rowMin != 4 || rowMax != 5 || colMin != 3 || colMax != 4 {
		t.Errorf("edge chunk cells: have %d %d %d %d", rowMin, rowMax, colMin, colMax)
	}
	if have := g.ChunksCovering(-3, 1, 2, 10); !reflect.DeepEqual(have, []ChunkID{{0, 0}, {0, 1}}) {
		t.Errorf("covering: have %v", have)
	}
	if have := g.ChunksCovering(7, 9, 0, 0); have != nil {
		t.Errorf("covering outside: have %v", have)
	}
	if g.Name() != "g" {
		t.Errorf("name: have %q", g.Name())
	}
}

func TestGridSetGet(t *testing.T) {
	e := testEngine(0, 2, 2)
	g, err := e.Factory.Create(Int, testDims(t, "0", "0", "1", 3, 3), WithNoData(FloatValue(-1)))
	if err != nil {
		t.Fatal(err)
	}
	if !g.NoData().Equal(IntValue(-1)) {
		t.Errorf("no-data should be converted to the grid kind, have %v", g.NoData())
	}
	g.Set(2, 2, FloatValue(4.5))
	g.Set(3, 0, IntValue(9)) // outside, ignored
	if v := g.Get(2, 2); v.Int() != 5 || v.Kind() != Int {
		t.Errorf("have %v, want 5", v)
	}
	if !g.IsNoData(g.Get(0, 0)) || !g.IsNoData(FloatValue(math.NaN())) {
		t.Error("IsNoData is wrong")
	}
	g.SetNoData(2, 2)
	if !g.IsNoData(g.Get(2, 2)) {
		t.Error("SetNoData had no effect")
	}
}

func TestGridCopy(t *testing.T) {
	e := testEngine(1, 1, 2)
	want := seq(3, 3)
	want[0][0] = nan
	g := testGrid(t, e, Decimal, testDims(t, "0", "0", "1", 3, 3), want)
	c, err := g.Copy(e.Factory)
	if err != nil {
		t.Fatal(err)
	}
	if a := Classify(g, c); a.Kind != Identical {
		t.Errorf("copy should be identical, have %v", a.Kind)
	}
	compareValues(t, values(c), want, 0)
	g.Set(1, 1, IntValue(100))
	if v := c.Get(1, 1); v.Int() != 5 {
		t.Errorf("copy should not share storage, have %v", v)
	}
}

func TestGridCellCoordinates(t *testing.T) {
	e := testEngine(0, 2, 2)
	g, err := e.Factory.Create(Float, testDims(t, "10", "20", "0.5", 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	x, y := g.CellX(1), g.CellY(0)
	if id := g.CellID(x, y); id != (CellID{Row: 0, Col: 1}) {
		t.Errorf("have %v", id)
	}
	if !g.InGrid(1, 1) || g.InGrid(2, 0) {
		t.Error("InGrid is wrong")
	}
}
