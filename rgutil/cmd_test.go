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

package rgutil

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/spatialmodel/rastergrid"
	"github.com/spatialmodel/rastergrid/gridio"
	"github.com/stretchr/testify/require"
)

const grid4 = `ncols 4
nrows 4
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
1 2 3 4
5 6 7 8
9 10 11 12
13 14 15 16
`

const ones4 = `ncols 4
nrows 4
xllcorner 0
yllcorner 0
cellsize 1
NODATA_value -9999
1 1 1 1
1 1 1 1
1 1 1 1
1 1 1 1
`

// setDefaults resets the configuration variables used by the tests.
func setDefaults() {
	for k, v := range map[string]interface{}{
		"config":     "",
		"LogLevel":   "warning",
		"MaxChunks":  2,
		"ChunkRows":  2,
		"ChunkCols":  2,
		"SwapURL":    "mem://",
		"Precision":  10,
		"CacheSize":  4,
		"kind":       "float",
		"output":     "",
		"png":        "",
		"shp":        "",
		"statistic":  "sum",
		"factor":     2,
		"rowOffset":  0,
		"colOffset":  0,
		"target":     "",
		"resultKind": "float",
		"weight":     "",
		"rows":       "",
		"cols":       "",
	} {
		Cfg.Set(k, v)
	}
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	Root.SetOut(buf)
	Root.SetArgs(args)
	err := Root.Execute()
	return buf.String(), err
}

func readASCII(t *testing.T, path string) *rastergrid.Grid {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	g, err := gridio.ReadASCII(f, rastergrid.NewFactory(rastergrid.NewMemory(0, nil), 2, 2), rastergrid.Float)
	require.NoError(t, err)
	return g
}

func requireValues(t *testing.T, want [][]float64, g *rastergrid.Grid) {
	t.Helper()
	require.Equal(t, int64(len(want)), g.NRows())
	for row, vals := range want {
		require.Equal(t, int64(len(vals)), g.NCols())
		for col, v := range vals {
			require.InDelta(t, v, g.Get(int64(row), int64(col)).Float(), 1e-9, "(%d, %d)", row, col)
		}
	}
}

func TestVersion(t *testing.T) {
	setDefaults()
	out, err := execute("version")
	require.NoError(t, err)
	require.Contains(t, out, "rastergrid v"+rastergrid.Version)
}

func TestAggregateCmd(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.asc", grid4)
	out := filepath.Join(dir, "out.asc")
	Cfg.Set("output", out)
	_, err := execute("aggregate", in)
	require.NoError(t, err)
	requireValues(t, [][]float64{{46, 54}, {14, 22}}, readASCII(t, out))
}

func TestAggregateCmdTarget(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.asc", grid4)
	out := filepath.Join(dir, "out.asc")
	Cfg.Set("output", out)
	Cfg.Set("statistic", "mean")
	Cfg.Set("target", "0,0,2,2,2")
	_, err := execute("aggregate", in)
	require.NoError(t, err)
	requireValues(t, [][]float64{{11.5, 13.5}, {3.5, 5.5}}, readASCII(t, out))
}

func TestAggregateCmdNoOutput(t *testing.T) {
	setDefaults()
	in := writeFile(t, t.TempDir(), "in.asc", grid4)
	_, err := execute("aggregate", in)
	require.Error(t, err)
}

func TestDisaggregateCmd(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.asc", grid4)
	out := filepath.Join(dir, "out.asc")
	Cfg.Set("output", out)
	Cfg.Set("statistic", "mean")
	_, err := execute("disaggregate", in)
	require.NoError(t, err)
	g := readASCII(t, out)
	require.Equal(t, int64(8), g.NRows())
	require.Equal(t, 13.0, g.Get(1, 1).Float())
	require.Equal(t, 16.0, g.Get(0, 7).Float())
	require.Equal(t, 1.0, g.Get(7, 0).Float())
}

func TestMultiplyCmd(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.asc", grid4)
	b := writeFile(t, dir, "b.asc", ones4)
	out := filepath.Join(dir, "out.nc")
	png := filepath.Join(dir, "out.png")
	shp := filepath.Join(dir, "out.shp")
	Cfg.Set("output", out)
	Cfg.Set("png", png)
	Cfg.Set("shp", shp)
	_, err := execute("multiply", a, b)
	require.NoError(t, err)

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	g, err := gridio.ReadNetCDF(f, rastergrid.NewFactory(rastergrid.NewMemory(0, nil), 2, 2))
	require.NoError(t, err)
	requireValues(t, [][]float64{
		{13, 14, 15, 16},
		{9, 10, 11, 12},
		{5, 6, 7, 8},
		{1, 2, 3, 4},
	}, g)
	for _, p := range []string{png, shp} {
		_, err := os.Stat(p)
		require.NoError(t, err, p)
	}
}

func TestDivideCmdNotCoincident(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.asc", grid4)
	b := writeFile(t, dir, "b.asc", "ncols 1\nnrows 1\nxllcorner 0\nyllcorner 0\ncellsize 4\n2\n")
	Cfg.Set("output", filepath.Join(dir, "out.asc"))
	_, err := execute("divide", a, b)
	require.Error(t, err)
}

func TestTransferCmd(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	target := writeFile(t, dir, "target.asc", grid4)
	source := writeFile(t, dir, "source.asc", ones4)
	out := filepath.Join(dir, "out.asc")
	Cfg.Set("output", out)
	Cfg.Set("weight", "1/2")
	Cfg.Set("rows", "0,0")
	_, err := execute("transfer", target, source)
	require.NoError(t, err)
	requireValues(t, [][]float64{
		{13.5, 14.5, 15.5, 16.5},
		{9, 10, 11, 12},
		{5, 6, 7, 8},
		{1, 2, 3, 4},
	}, readASCII(t, out))
}

func TestSummaryCmd(t *testing.T) {
	setDefaults()
	in := writeFile(t, t.TempDir(), "in.asc", grid4)
	out, err := execute("summary", in)
	require.NoError(t, err)
	require.Contains(t, out, "count=16")
	require.Contains(t, out, "sum=136")
}

func TestUnsupportedExtension(t *testing.T) {
	setDefaults()
	dir := t.TempDir()
	in := writeFile(t, dir, "in.txt", grid4)
	Cfg.Set("output", filepath.Join(dir, "out.asc"))
	_, err := execute("rescale", in)
	require.Error(t, err)
}

func TestInputCache(t *testing.T) {
	setDefaults()
	in := writeFile(t, t.TempDir(), "in.asc", grid4)
	s, err := newSession(context.Background(), io.Discard)
	require.NoError(t, err)
	defer s.close()
	g1, err := s.input(context.Background(), in)
	require.NoError(t, err)
	g2, err := s.input(context.Background(), in)
	require.NoError(t, err)
	require.True(t, g1 == g2, "the second request should return the cached grid")
}

func TestSessionCloseDisposesGrids(t *testing.T) {
	setDefaults()
	Cfg.Set("CacheSize", 1)
	dir := t.TempDir()
	a := writeFile(t, dir, "a.asc", grid4)
	b := writeFile(t, dir, "b.asc", ones4)
	s, err := newSession(context.Background(), io.Discard)
	require.NoError(t, err)
	for _, in := range []string{a, b, a} {
		_, err := s.input(context.Background(), in)
		require.NoError(t, err)
	}
	// a was dropped from the cache and read again.
	require.Len(t, s.grids, 3)
	mem := s.engine.Factory.Memory()
	require.NotZero(t, mem.Stats().Resident)
	s.close()
	require.Zero(t, mem.Stats().Resident)
}

func TestParseTarget(t *testing.T) {
	d, err := parseTarget([]string{"0", " 1/2", "0.25", "3", "4"})
	require.NoError(t, err)
	require.Equal(t, int64(3), d.NRows())
	require.Equal(t, int64(4), d.NCols())
	require.Equal(t, "1/2", d.YMin().String())

	_, err = parseTarget([]string{"0", "0", "1", "3"})
	require.Error(t, err)
	_, err = parseTarget([]string{"0", "0", "1", "x", "4"})
	require.Error(t, err)
}

func TestParseRange(t *testing.T) {
	r, err := parseRange("rows", nil)
	require.NoError(t, err)
	require.Nil(t, r)
	r, err = parseRange("rows", []int{1, 3})
	require.NoError(t, err)
	require.Equal(t, rastergrid.Range{Min: 1, Max: 3}, *r)
	_, err = parseRange("rows", []int{3, 1})
	require.Error(t, err)
	_, err = parseRange("rows", []int{1})
	require.Error(t, err)
}

func TestIntSlice(t *testing.T) {
	Cfg.Set("rows", "[2,5]")
	v, err := intSlice("rows")
	require.NoError(t, err)
	require.Equal(t, []int{2, 5}, v)
	Cfg.Set("rows", "")
	v, err = intSlice("rows")
	require.NoError(t, err)
	require.Empty(t, v)
	Cfg.Set("rows", "a,b")
	_, err = intSlice("rows")
	require.Error(t, err)
	Cfg.Set("rows", "")
}
