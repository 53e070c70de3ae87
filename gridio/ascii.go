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

// Package gridio reads and writes grids in common raster and vector
// file formats.
package gridio

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/spatialmodel/rastergrid"
)

// ReadASCII reads an ESRI ASCII grid from r into a new grid of the given
// kind created by f. Header values are parsed exactly, so cell sizes such
// as 0.1 give exactly aligned grids.
func ReadASCII(r io.Reader, f *rastergrid.Factory, kind rastergrid.Kind) (*rastergrid.Grid, error) {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	s.Split(bufio.ScanWords)

	header := make(map[string]string)
	var first string
	for s.Scan() {
		tok := s.Text()
		if _, err := decimal.NewFromString(tok); err == nil {
			first = tok
			break
		}
		key := strings.ToLower(tok)
		if !s.Scan() {
			break
		}
		header[key] = s.Text()
	}
	if err := s.Err(); err != nil {
		return nil, fmt.Errorf("gridio: reading ASCII grid: %v", err)
	}
	d, noData, err := asciiHeader(header)
	if err != nil {
		return nil, err
	}
	opts := []rastergrid.GridOption{}
	if noData != nil {
		opts = append(opts, rastergrid.WithNoData(rastergrid.DecimalValue(*noData)))
	}
	g, err := f.Create(kind, d, opts...)
	if err != nil {
		return nil, err
	}
	mem := f.Memory()

	next := func() (string, bool) {
		if first != "" {
			tok := first
			first = ""
			return tok, true
		}
		if s.Scan() {
			return s.Text(), true
		}
		return "", false
	}
	// The first row in the file is the northernmost.
	for row := d.NRows() - 1; row >= 0; row-- {
		for col := int64(0); col < d.NCols(); col++ {
			tok, ok := next()
			if !ok {
				g.Dispose()
				if err := s.Err(); err != nil {
					return nil, fmt.Errorf("gridio: reading ASCII grid: %v", err)
				}
				return nil, fmt.Errorf("gridio: ASCII grid ends before row %d column %d", row, col)
			}
			v, err := decimal.NewFromString(tok)
			if err != nil {
				g.Dispose()
				return nil, fmt.Errorf("gridio: ASCII grid row %d column %d: %v", row, col, err)
			}
			if noData != nil && v.Equal(*noData) {
				continue
			}
			g.Set(row, col, rastergrid.DecimalValue(v))
		}
		if err := mem.CheckAndMaybeFreeMemory(); err != nil {
			g.Dispose()
			return nil, fmt.Errorf("gridio: reading ASCII grid: %v", err)
		}
	}
	return g, nil
}

func asciiHeader(h map[string]string) (rastergrid.Dimensions, *decimal.Decimal, error) {
	num := func(key string) (int64, error) {
		v, ok := h[key]
		if !ok {
			return 0, fmt.Errorf("gridio: ASCII grid header is missing %s", key)
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("gridio: ASCII grid header %s: %v", key, err)
		}
		return n, nil
	}
	rat := func(key string) (*big.Rat, bool, error) {
		v, ok := h[key]
		if !ok {
			return nil, false, nil
		}
		r, ok := new(big.Rat).SetString(v)
		if !ok {
			return nil, false, fmt.Errorf("gridio: ASCII grid header %s: invalid number %q", key, v)
		}
		return r, true, nil
	}
	nCols, err := num("ncols")
	if err != nil {
		return rastergrid.Dimensions{}, nil, err
	}
	nRows, err := num("nrows")
	if err != nil {
		return rastergrid.Dimensions{}, nil, err
	}
	cellSize, ok, err := rat("cellsize")
	if err != nil {
		return rastergrid.Dimensions{}, nil, err
	}
	if !ok {
		return rastergrid.Dimensions{}, nil, fmt.Errorf("gridio: ASCII grid header is missing cellsize")
	}
	half := new(big.Rat).Mul(cellSize, big.NewRat(1, 2))
	var origin [2]*big.Rat
	for i, axis := range []string{"x", "y"} {
		corner, ok, err := rat(axis + "llcorner")
		if err != nil {
			return rastergrid.Dimensions{}, nil, err
		}
		if ok {
			origin[i] = corner
			continue
		}
		center, ok, err := rat(axis + "llcenter")
		if err != nil {
			return rastergrid.Dimensions{}, nil, err
		}
		if !ok {
			return rastergrid.Dimensions{}, nil, fmt.Errorf("gridio: ASCII grid header is missing %sllcorner", axis)
		}
		origin[i] = center.Sub(center, half)
	}
	d, err := rastergrid.NewDimensions(origin[0], origin[1], cellSize, nRows, nCols)
	if err != nil {
		return rastergrid.Dimensions{}, nil, fmt.Errorf("gridio: ASCII grid header: %v", err)
	}
	nd, ok := h["nodata_value"]
	if !ok {
		return d, nil, nil
	}
	v, err := decimal.NewFromString(nd)
	if err != nil {
		return rastergrid.Dimensions{}, nil, fmt.Errorf("gridio: ASCII grid header nodata_value: %v", err)
	}
	return d, &v, nil
}

// WriteASCII writes g to w as an ESRI ASCII grid.
func WriteASCII(w io.Writer, g *rastergrid.Grid) error {
	d := g.Dimensions()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ncols %d\n", d.NCols())
	fmt.Fprintf(bw, "nrows %d\n", d.NRows())
	fmt.Fprintf(bw, "xllcorner %s\n", ratString(d.XMin()))
	fmt.Fprintf(bw, "yllcorner %s\n", ratString(d.YMin()))
	fmt.Fprintf(bw, "cellsize %s\n", ratString(d.CellSize()))
	noData := g.NoData().String()
	fmt.Fprintf(bw, "NODATA_value %s\n", noData)

	mem := g.Memory()
	for row := d.NRows() - 1; row >= 0; row-- {
		release := mem.Pin(g, g.ChunksCovering(row, row, 0, d.NCols()-1)...)
		for col := int64(0); col < d.NCols(); col++ {
			if col > 0 {
				bw.WriteByte(' ')
			}
			v := g.Get(row, col)
			if g.IsNoData(v) {
				bw.WriteString(noData)
			} else {
				bw.WriteString(v.String())
			}
		}
		release()
		if err := bw.WriteByte('\n'); err != nil {
			return fmt.Errorf("gridio: writing ASCII grid: %v", err)
		}
		if err := mem.CheckAndMaybeFreeMemory(); err != nil {
			return fmt.Errorf("gridio: writing ASCII grid: %v", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("gridio: writing ASCII grid: %v", err)
	}
	return nil
}

// ratString formats r exactly: in decimal if r has a finite decimal
// expansion and as a fraction such as "1/3" otherwise. Fractions are read
// back by ReadASCII but not by most other ASCII grid readers.
func ratString(r *big.Rat) string {
	if r.IsInt() {
		return r.Num().String()
	}
	places, ok := decimalPlaces(r.Denom())
	if !ok {
		return r.RatString()
	}
	return decimal.NewFromBigRat(r, places).String()
}

// decimalPlaces returns the number of decimal places needed to write
// 1/denom exactly, and whether that number is finite.
func decimalPlaces(denom *big.Int) (int32, bool) {
	d := new(big.Int).Set(denom)
	var twos, fives int32
	two, five, rem := big.NewInt(2), big.NewInt(5), new(big.Int)
	for {
		q, m := new(big.Int).QuoRem(d, two, rem)
		if m.Sign() != 0 {
			break
		}
		d, twos = q, twos+1
	}
	for {
		q, m := new(big.Int).QuoRem(d, five, rem)
		if m.Sign() != 0 {
			break
		}
		d, fives = q, fives+1
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	if twos > fives {
		return twos, true
	}
	return fives, true
}
