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
	"math/big"
	"testing"
)

func TestDimensions(t *testing.T) {
	d := testDims(t, "-1/3", "10", "1/3", 3, 6)
	if d.XMax().Cmp(big.NewRat(5, 3)) != 0 {
		t.Errorf("xMax: have %s", d.XMax().RatString())
	}
	if d.YMax().Cmp(big.NewRat(11, 1)) != 0 {
		t.Errorf("yMax: have %s", d.YMax().RatString())
	}
	b := d.CellBounds(2, 1)
	if b.XLow.Sign() != 0 || b.XHigh.Cmp(big.NewRat(1, 3)) != 0 ||
		b.YLow.Cmp(big.NewRat(32, 3)) != 0 || b.YHigh.Cmp(big.NewRat(11, 1)) != 0 {
		t.Errorf("bounds: have %v", b)
	}
	if b.Area().Cmp(big.NewRat(1, 9)) != 0 {
		t.Errorf("area: have %s", b.Area().RatString())
	}
	if x := d.CellX(0); x.Cmp(big.NewRat(-1, 6)) != 0 {
		t.Errorf("cell x: have %s", x.RatString())
	}
}

func TestDimensionsCellID(t *testing.T) {
	d := testDims(t, "0", "0", "0.5", 4, 4)
	tests := []struct {
		x, y *big.Rat
		want CellID
	}{
		{big.NewRat(0, 1), big.NewRat(0, 1), CellID{0, 0}},
		{big.NewRat(1, 2), big.NewRat(1, 2), CellID{1, 1}},
		{big.NewRat(49, 100), big.NewRat(3, 2), CellID{3, 0}},
		{big.NewRat(-1, 10), big.NewRat(1, 10), CellID{0, -1}},
		{big.NewRat(2, 1), big.NewRat(0, 1), CellID{0, 4}},
	}
	for _, test := range tests {
		have := d.CellID(test.x, test.y)
		if have != test.want {
			t.Errorf("(%s, %s): have %v, want %v", test.x.RatString(), test.y.RatString(), have, test.want)
		}
	}
	if d.Contains(CellID{0, 4}) || d.Contains(CellID{0, -1}) || !d.Contains(CellID{3, 3}) {
		t.Error("Contains is wrong at the edges")
	}
}

func TestDimensionsIntersects(t *testing.T) {
	a := testDims(t, "0", "0", "1", 2, 2)
	tests := []struct {
		d    Dimensions
		want bool
	}{
		{testDims(t, "1", "1", "1", 2, 2), true},
		{testDims(t, "2", "0", "1", 2, 2), false}, // shares an edge only
		{testDims(t, "-5", "-5", "10", 1, 1), true},
		{testDims(t, "0", "3", "1", 1, 1), false},
	}
	for i, test := range tests {
		if have := a.Intersects(test.d); have != test.want {
			t.Errorf("%d: have %v, want %v", i, have, test.want)
		}
	}
}

func TestNewDimensionsInvalid(t *testing.T) {
	if _, err := ParseDimensions("0", "0", "0", 1, 1); err == nil {
		t.Error("zero cell size should fail")
	}
	if _, err := ParseDimensions("0", "0", "1", 0, 1); err == nil {
		t.Error("zero rows should fail")
	}
	if _, err := ParseDimensions("x", "0", "1", 1, 1); err == nil {
		t.Error("invalid number should fail")
	}
}
