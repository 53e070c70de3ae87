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

// Package rastergrid holds raster grids that are too large to keep in
// memory all at once, and resamples and combines them across
// resolutions with exact areal accounting.
//
// Grids are split into chunks that a Memory pages out to a Swap when
// more than its budget of chunks are resident. Coordinates and cell
// sizes are exact rationals, so grids that are aligned are always
// recognized as such and area fractions are computed without rounding.
package rastergrid

// Version is the version of this software.
const Version = "1.0.0"
