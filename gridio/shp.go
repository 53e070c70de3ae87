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
	"fmt"
	"os"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	goshp "github.com/jonas-p/go-shp"
	"github.com/spatialmodel/rastergrid"
)

// WriteShapefile writes one square polygon for each valid cell of g to
// the shapefile at path, with attributes row, col and value.
func WriteShapefile(path string, g *rastergrid.Grid) error {
	base := strings.TrimSuffix(path, ".shp")
	for _, ext := range []string{".shp", ".prj", ".dbf", ".shx"} {
		os.Remove(base + ext)
	}
	fields := make([]goshp.Field, 3)
	fields[0] = goshp.NumberField("row", 10)
	fields[1] = goshp.NumberField("col", 10)
	fields[2] = goshp.FloatField("value", 14, 8)
	e, err := shp.NewEncoderFromFields(base+".shp", goshp.POLYGON, fields...)
	if err != nil {
		return fmt.Errorf("gridio: creating shapefile: %v", err)
	}
	defer e.Close()

	d := g.Dimensions()
	mem := g.Memory()
	for _, id := range g.ChunkIDs() {
		release := mem.Pin(g, id)
		rowMin, rowMax, colMin, colMax := g.ChunkCells(id)
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				v := g.Get(row, col)
				if g.IsNoData(v) {
					continue
				}
				if err := e.EncodeFields(cellPolygon(d, row, col), int(row), int(col), v.Float()); err != nil {
					release()
					return fmt.Errorf("gridio: writing cell (%d, %d) to shapefile: %v", row, col, err)
				}
			}
		}
		release()
		if err := mem.CheckAndMaybeFreeMemory(); err != nil {
			return fmt.Errorf("gridio: writing shapefile: %v", err)
		}
	}
	return nil
}

func cellPolygon(d rastergrid.Dimensions, row, col int64) geom.Polygon {
	b := d.CellBounds(row, col)
	x0, _ := b.XLow.Float64()
	y0, _ := b.YLow.Float64()
	x1, _ := b.XHigh.Float64()
	y1, _ := b.YHigh.Float64()
	return geom.Polygon{{
		{X: x0, Y: y0},
		{X: x1, Y: y0},
		{X: x1, Y: y1},
		{X: x0, Y: y1},
		{X: x0, Y: y0},
	}}
}
