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
	"bytes"
	"math/big"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spatialmodel/rastergrid"
	"github.com/stretchr/testify/require"
)

func testFactory(maxChunks int) *rastergrid.Factory {
	return rastergrid.NewFactory(rastergrid.NewMemory(maxChunks, nil), 2, 2)
}

// testGrid returns a 3×4 grid with no-data at (1, 2).
func testGrid(t *testing.T, f *rastergrid.Factory, kind rastergrid.Kind) *rastergrid.Grid {
	t.Helper()
	d, err := rastergrid.ParseDimensions("0.5", "-1", "0.25", 3, 4)
	require.NoError(t, err)
	g, err := f.Create(kind, d, rastergrid.WithName("test"))
	require.NoError(t, err)
	for row := int64(0); row < 3; row++ {
		for col := int64(0); col < 4; col++ {
			if row == 1 && col == 2 {
				continue
			}
			g.Set(row, col, rastergrid.FloatValue(float64(row*10+col)+0.5))
		}
	}
	return g
}

func requireSameGrid(t *testing.T, want, have *rastergrid.Grid) {
	t.Helper()
	require.True(t, want.Dimensions().Equal(have.Dimensions()), "dimensions: want %v, have %v",
		want.Dimensions(), have.Dimensions())
	for row := int64(0); row < want.NRows(); row++ {
		for col := int64(0); col < want.NCols(); col++ {
			w, h := want.Get(row, col), have.Get(row, col)
			require.Equal(t, want.IsNoData(w), have.IsNoData(h), "no-data at (%d, %d)", row, col)
			if !want.IsNoData(w) {
				require.InDelta(t, w.Float(), h.Float(), 1e-12, "value at (%d, %d)", row, col)
			}
		}
	}
}

const asciiGrid = `ncols 3
nrows 2
xllcenter 0.05
yllcenter 10.05
cellsize 0.1
NODATA_value -1
1 2 -1
4 5 6
`

func TestReadASCII(t *testing.T) {
	g, err := ReadASCII(strings.NewReader(asciiGrid), testFactory(0), rastergrid.Int)
	require.NoError(t, err)
	d := g.Dimensions()
	require.Equal(t, 0, d.XMin().Sign())
	require.Equal(t, 0, d.YMin().Cmp(big.NewRat(10, 1)))
	require.Equal(t, 0, d.CellSize().Cmp(big.NewRat(1, 10)))
	require.Equal(t, int32(4), g.Get(0, 0).Int())
	require.Equal(t, int32(2), g.Get(1, 1).Int())
	require.True(t, g.IsNoData(g.Get(1, 2)))
	require.Equal(t, int32(-1), g.NoData().Int())
}

func TestReadASCIIShort(t *testing.T) {
	_, err := ReadASCII(strings.NewReader(strings.TrimSuffix(asciiGrid, "6\n")), testFactory(0), rastergrid.Float)
	require.Error(t, err)
	_, err = ReadASCII(strings.NewReader("ncols 1\n1\n"), testFactory(0), rastergrid.Float)
	require.Error(t, err)
}

func TestASCIIRoundTrip(t *testing.T) {
	for _, kind := range []rastergrid.Kind{rastergrid.Float, rastergrid.Decimal} {
		t.Run(kind.String(), func(t *testing.T) {
			f := testFactory(1)
			g := testGrid(t, f, kind)
			var buf bytes.Buffer
			require.NoError(t, WriteASCII(&buf, g))
			require.True(t, strings.HasPrefix(buf.String(), "ncols 4\nnrows 3\nxllcorner 0.5\nyllcorner -1\ncellsize 0.25\n"),
				buf.String())
			g2, err := ReadASCII(&buf, f, kind)
			require.NoError(t, err)
			requireSameGrid(t, g, g2)
		})
	}
}

func TestRatString(t *testing.T) {
	for r, want := range map[*big.Rat]string{
		big.NewRat(3, 1):    "3",
		big.NewRat(1, 4):    "0.25",
		big.NewRat(3, 40):   "0.075",
		big.NewRat(-1, 10):  "-0.1",
		big.NewRat(1, 3):    "1/3",
		big.NewRat(-2, 7):   "-2/7",
		big.NewRat(7, 120):  "7/120",
		big.NewRat(1, 1024): "0.0009765625",
	} {
		require.Equal(t, want, ratString(r))
	}
}

func TestASCIIRoundTripFraction(t *testing.T) {
	f := testFactory(1)
	d, err := rastergrid.NewDimensions(big.NewRat(1, 3), big.NewRat(-2, 7), big.NewRat(1, 3), 2, 3)
	require.NoError(t, err)
	g, err := f.Create(rastergrid.Float, d)
	require.NoError(t, err)
	g.Set(0, 0, rastergrid.FloatValue(1.5))
	g.Set(1, 2, rastergrid.FloatValue(-3))

	var buf bytes.Buffer
	require.NoError(t, WriteASCII(&buf, g))
	require.True(t, strings.Contains(buf.String(), "cellsize 1/3\n"), buf.String())
	g2, err := ReadASCII(&buf, f, rastergrid.Float)
	require.NoError(t, err)
	requireSameGrid(t, g, g2)
	require.Equal(t, rastergrid.Identical, rastergrid.Classify(g2, g).Kind)
}

func TestNetCDFRoundTrip(t *testing.T) {
	f := testFactory(2)
	g := testGrid(t, f, rastergrid.Float)
	w, err := os.Create(filepath.Join(t.TempDir(), "grid.nc"))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, WriteNetCDF(w, g))

	g2, err := ReadNetCDF(w, f)
	require.NoError(t, err)
	require.Equal(t, rastergrid.Float, g2.Kind())
	require.Equal(t, "test", g2.Name())
	requireSameGrid(t, g, g2)
}

func TestNetCDFThirds(t *testing.T) {
	f := testFactory(0)
	d, err := rastergrid.ParseDimensions("1/3", "0", "1/3", 2, 1)
	require.NoError(t, err)
	g, err := f.Create(rastergrid.Int, d)
	require.NoError(t, err)
	g.Set(1, 0, rastergrid.IntValue(7))
	w, err := os.Create(filepath.Join(t.TempDir(), "grid.nc"))
	require.NoError(t, err)
	defer w.Close()
	require.NoError(t, WriteNetCDF(w, g))
	g2, err := ReadNetCDF(w, f)
	require.NoError(t, err)
	require.Equal(t, rastergrid.Int, g2.Kind())
	requireSameGrid(t, g, g2)
}
