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
	"errors"
	"math"
	"testing"
)

func TestSummarize(t *testing.T) {
	e := testEngine(2, 2, 2)
	vals := [][]float64{{1, 2, nan}, {4, 5, 6}, {nan, 8, 9}}
	g := testGrid(t, e, Float, testDims(t, "0", "0", "1", 3, 3), vals)
	s, err := Summarize(g)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 7 || s.NoData != 2 || s.Min != 1 || s.Max != 9 || s.Sum != 35 {
		t.Errorf("have %v", s)
	}
	if different(s.Mean, 5, 1e-12) {
		t.Errorf("mean: have %g, want 5", s.Mean)
	}
	// Squared deviations from the mean sum to 52.
	if want := math.Sqrt(52. / 6); different(s.StdDev, want, 1e-12) {
		t.Errorf("std dev: have %g, want %g", s.StdDev, want)
	}

	empty, err := e.Factory.Create(Int, testDims(t, "0", "0", "1", 2, 2))
	if err != nil {
		t.Fatal(err)
	}
	s, err = Summarize(empty)
	if err != nil {
		t.Fatal(err)
	}
	if s.Count != 0 || s.NoData != 4 || !math.IsNaN(s.Mean) {
		t.Errorf("empty: have %v", s)
	}
}

func TestMask(t *testing.T) {
	e := testEngine(0, 2, 2)
	d := testDims(t, "0", "0", "1", 2, 2)
	g := testGrid(t, e, Int, d, [][]float64{{1, 2}, {nan, 4}})
	mask := testGrid(t, e, Float, d, [][]float64{{0, nan}, {0, 0}})
	result, err := e.Mask(g, mask)
	if err != nil {
		t.Fatal(err)
	}
	compareValues(t, values(result), [][]float64{{1, nan}, {nan, 4}}, 0)

	other := testGrid(t, e, Float, testDims(t, "0", "0", "2", 1, 1), nil)
	if _, err := e.Mask(g, other); !errors.Is(err, ErrNotCoincident) {
		t.Errorf("want ErrNotCoincident, have %v", err)
	}
}

func TestRescale(t *testing.T) {
	e := testEngine(0, 2, 2)
	d := testDims(t, "0", "0", "1", 2, 2)
	g := testGrid(t, e, Int, d, [][]float64{{10, 20}, {nan, 30}})
	result, err := e.Rescale(g, 0, 1)
	if err != nil {
		t.Fatal(err)
	}
	compareValues(t, values(result), [][]float64{{0, 0.5}, {nan, 1}}, 1e-12)

	flat := testGrid(t, e, Float, d, fill(2, 2, 3))
	result, err = e.Rescale(flat, -1, 1)
	if err != nil {
		t.Fatal(err)
	}
	compareValues(t, values(result), fill(2, 2, -1), 0)

	if _, err := e.Rescale(g, 1, 0); err == nil {
		t.Error("inverted range should fail")
	}
}
