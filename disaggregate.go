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
	"math/big"

	"github.com/sirupsen/logrus"
)

// Disaggregate splits every cell of source into factor×factor cells.
// For Mean, Min and Max each new cell takes the value of its parent, so
// aggregating the result by the same factor and statistic gives back
// source. For Sum the value is divided among the new cells, which makes
// the result Float when source is Int.
func (e *Engine) Disaggregate(source *Grid, factor int64, stat Statistic) (*Grid, error) {
	if factor < 1 {
		return nil, fmt.Errorf("rastergrid: disaggregate: %w: factor %d", ErrInvalidFactor, factor)
	}
	if !stat.valid() {
		return nil, fmt.Errorf("rastergrid: disaggregate: invalid statistic %v", stat)
	}
	if !source.kind.Valid() {
		return nil, fmt.Errorf("rastergrid: disaggregate: %w %d", ErrUnknownKind, int(source.kind))
	}
	sd := source.dims
	cs := new(big.Rat).Quo(sd.cellSize, new(big.Rat).SetInt64(factor))
	target, err := NewDimensions(sd.xMin, sd.yMin, cs, sd.nRows*factor, sd.nCols*factor)
	if err != nil {
		return nil, fmt.Errorf("rastergrid: disaggregate: %v", err)
	}
	kind := source.kind
	if stat == Sum && kind == Int {
		kind = Float
	}
	e.Log.WithFields(logrus.Fields{
		"operation": "disaggregate",
		"grid":      source.name,
		"factor":    factor,
		"statistic": stat.String(),
	}).Debug("disaggregating")

	result, err := e.Factory.Create(kind, target, WithName(fmt.Sprintf("%s_x%d", source.name, factor)),
		WithNoData(resultNoData(kind, source, stat != Sum)))
	if err != nil {
		return nil, err
	}
	share := big.NewRat(1, factor*factor)
	err = e.eachChunk("disaggregate", result, func(_ ChunkID, rowMin, rowMax, colMin, colMax int64) error {
		release := pinCells(source, rowMin/factor, (rowMax-1)/factor, colMin/factor, (colMax-1)/factor)
		defer release()
		for row := rowMin; row < rowMax; row++ {
			for col := colMin; col < colMax; col++ {
				sv := source.Get(row/factor, col/factor)
				if source.IsNoData(sv) {
					continue
				}
				if stat != Sum {
					result.Set(row, col, sv)
					continue
				}
				v := sv.Rat()
				result.Set(row, col, FromRat(kind, v.Mul(v, share), e.Precision))
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
