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
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestDistanceWeightKernel(t *testing.T) {
	k, err := DistanceWeightKernel(1, 2)
	if err != nil {
		t.Fatal(err)
	}
	tests := []struct {
		dRow, dCol int
		want       float64
	}{
		{0, 0, 1},
		{0, 1, 0.5625},  // (1 - 1/4)²
		{1, 1, 0.25},    // (1 - 2/4)²
		{2, 0, 0},       // outside
		{-1, 0, 0.5625}, // symmetric
	}
	for _, test := range tests {
		if w := k.Weight(test.dRow, test.dCol); different(w, test.want, 1e-12) {
			t.Errorf("(%d, %d): have %g, want %g", test.dRow, test.dCol, w, test.want)
		}
	}
	if _, err := NewKernel(mat.NewDense(2, 3, nil)); err == nil {
		t.Error("even kernel should fail")
	}
	if _, err := NewKernel(mat.NewDense(1, 1, []float64{-1})); err == nil {
		t.Error("negative weight should fail")
	}
}

func TestFocalMean(t *testing.T) {
	e := testEngine(2, 2, 2)
	k, err := NewKernel(mat.NewDense(3, 3, []float64{
		0, 1, 0,
		1, 2, 1,
		0, 1, 0,
	}))
	if err != nil {
		t.Fatal(err)
	}
	g := testGrid(t, e, Int, testDims(t, "0", "0", "1", 3, 3), [][]float64{
		{1, 1, 1},
		{1, 7, nan},
		{1, 1, 1},
	})
	result, err := e.FocalMean(g, k)
	if err != nil {
		t.Fatal(err)
	}
	want := [][]float64{
		{(2*1 + 1 + 1) / 4., (2*1 + 1 + 1 + 7) / 5., (2*1 + 1) / 3.},
		{(2*1 + 1 + 1 + 7) / 5., (2*7 + 1 + 1 + 1) / 5., nan},
		{(2*1 + 1 + 1) / 4., (2*1 + 1 + 1 + 7) / 5., (2*1 + 1) / 3.},
	}
	compareValues(t, values(result), want, 1e-12)
}
