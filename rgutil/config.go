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
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/ctessum/requestcache"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rastergrid"
	"github.com/spatialmodel/rastergrid/gridio"
	"github.com/spatialmodel/rastergrid/internal/hash"
	"github.com/spf13/cast"
	"gonum.org/v1/plot/vg"
)

// session holds the memory manager, engine and input cache shared by the
// steps of one command.
type session struct {
	engine *rastergrid.Engine
	swap   *rastergrid.BucketSwap
	kind   rastergrid.Kind
	out    io.Writer

	// loader reads input files. It has a single worker because grids
	// sharing a Memory may not be used concurrently.
	loader *requestcache.Cache

	// named holds the results of pipeline steps by step name.
	named map[string]*rastergrid.Grid

	// grids holds every grid read or computed, including inputs the
	// loader has since dropped. They are disposed by close.
	grids []*rastergrid.Grid
}

// newSession sets up a session from the current configuration. Summaries
// are printed to out.
func newSession(ctx context.Context, out io.Writer) (*session, error) {
	kind, err := rastergrid.ParseKind(Cfg.GetString("kind"))
	if err != nil {
		return nil, err
	}
	swap, err := rastergrid.OpenSwap(ctx, os.ExpandEnv(Cfg.GetString("SwapURL")))
	if err != nil {
		return nil, err
	}
	mem := rastergrid.NewMemory(Cfg.GetInt("MaxChunks"), swap)
	mem.Log = logrus.WithField("component", "memory")
	e := rastergrid.NewEngine(rastergrid.NewFactory(mem, Cfg.GetInt("ChunkRows"), Cfg.GetInt("ChunkCols")))
	e.Precision = int32(Cfg.GetInt("Precision"))
	e.Log = logrus.WithField("component", "engine")
	s := &session{
		engine: e,
		swap:   swap,
		kind:   kind,
		out:    out,
		named:  make(map[string]*rastergrid.Grid),
	}
	cacheSize := Cfg.GetInt("CacheSize")
	if cacheSize < 1 {
		cacheSize = 1
	}
	s.loader = requestcache.NewCache(s.read, 1, requestcache.Deduplicate(), requestcache.Memory(cacheSize))
	return s, nil
}

func (s *session) close() {
	stats := s.engine.Factory.Memory().Stats()
	logrus.WithFields(logrus.Fields{
		"evictions": stats.Evictions,
		"reloads":   stats.Reloads,
	}).Debug("memory use")
	for _, g := range s.grids {
		g.Dispose()
	}
	s.grids = nil
	s.named = make(map[string]*rastergrid.Grid)
	if err := s.swap.Close(); err != nil {
		logrus.WithError(err).Warn("closing swap")
	}
}

// input returns the result of the pipeline step called name, or else
// the grid stored in the file at path name.
func (s *session) input(ctx context.Context, name string) (*rastergrid.Grid, error) {
	if g, ok := s.named[name]; ok {
		return g, nil
	}
	path := os.ExpandEnv(name)
	key, err := hash.File(path, s.kind.String())
	if err != nil {
		return nil, fmt.Errorf("rastergrid: reading input %s: %v", path, err)
	}
	r, err := s.loader.NewRequest(ctx, path, key).Result()
	if err != nil {
		return nil, err
	}
	return r.(*rastergrid.Grid), nil
}

// read reads the grid file whose path is request.
func (s *session) read(ctx context.Context, request interface{}) (interface{}, error) {
	path := request.(string)
	logrus.WithField("file", path).Info("reading grid")
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("rastergrid: reading input: %v", err)
	}
	defer f.Close()
	var g *rastergrid.Grid
	switch strings.ToLower(filepath.Ext(path)) {
	case ".asc":
		g, err = gridio.ReadASCII(f, s.engine.Factory, s.kind)
	case ".nc":
		g, err = gridio.ReadNetCDF(f, s.engine.Factory)
	default:
		return nil, fmt.Errorf("rastergrid: input file %s has unsupported extension; use .asc or .nc", path)
	}
	if err != nil {
		return nil, fmt.Errorf("rastergrid: reading %s: %v", path, err)
	}
	s.grids = append(s.grids, g)
	return g, nil
}

// save writes g to the output files requested by st.
func (s *session) save(g *rastergrid.Grid, st Step) error {
	if st.Output != "" {
		path, err := checkOutputFile(st.Output)
		if err != nil {
			return err
		}
		if err := writeGrid(path, g); err != nil {
			return err
		}
	}
	if st.PNG != "" {
		f, err := os.Create(os.ExpandEnv(st.PNG))
		if err != nil {
			return fmt.Errorf("rastergrid: writing png: %v", err)
		}
		if err := gridio.WritePNG(f, g, g.Name(), 12*vg.Centimeter, 10*vg.Centimeter); err != nil {
			f.Close()
			return fmt.Errorf("rastergrid: writing png: %v", err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("rastergrid: writing png: %v", err)
		}
	}
	if st.Shapefile != "" {
		if err := gridio.WriteShapefile(os.ExpandEnv(st.Shapefile), g); err != nil {
			return fmt.Errorf("rastergrid: writing shapefile: %v", err)
		}
	}
	return nil
}

// writeGrid writes g to path in the format indicated by the file extension.
func writeGrid(path string, g *rastergrid.Grid) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".asc" && ext != ".nc" {
		return fmt.Errorf("rastergrid: output file %s has unsupported extension; use .asc or .nc", path)
	}
	logrus.WithFields(logrus.Fields{"file": path, "grid": g.Name()}).Info("writing grid")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("rastergrid: writing output: %v", err)
	}
	if ext == ".asc" {
		err = gridio.WriteASCII(f, g)
	} else {
		err = gridio.WriteNetCDF(f, g)
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("rastergrid: writing %s: %v", path, err)
	}
	return f.Close()
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf("rastergrid: you need to specify an output file (for example: --output=result.nc)")
	}
	f = os.ExpandEnv(f)
	if _, err := os.Stat(filepath.Dir(f)); err != nil {
		return f, fmt.Errorf("rastergrid: the output directory doesn't exist: %v", err)
	}
	return f, nil
}

// parseTarget parses a frame written as xmin, ymin, cellsize, nrows, ncols.
func parseTarget(t []string) (rastergrid.Dimensions, error) {
	if len(t) != 5 {
		return rastergrid.Dimensions{}, fmt.Errorf("rastergrid: target must have 5 elements (xmin,ymin,cellsize,nrows,ncols) but has %d", len(t))
	}
	nRows, err := cast.ToInt64E(strings.TrimSpace(t[3]))
	if err != nil {
		return rastergrid.Dimensions{}, fmt.Errorf("rastergrid: target nrows: %v", err)
	}
	nCols, err := cast.ToInt64E(strings.TrimSpace(t[4]))
	if err != nil {
		return rastergrid.Dimensions{}, fmt.Errorf("rastergrid: target ncols: %v", err)
	}
	return rastergrid.ParseDimensions(strings.TrimSpace(t[0]), strings.TrimSpace(t[1]),
		strings.TrimSpace(t[2]), nRows, nCols)
}

// parseRange parses an inclusive index range written as min, max. An
// empty slice means no restriction.
func parseRange(name string, r []int) (*rastergrid.Range, error) {
	switch len(r) {
	case 0:
		return nil, nil
	case 2:
		if r[0] > r[1] {
			return nil, fmt.Errorf("rastergrid: %s range %d,%d is reversed", name, r[0], r[1])
		}
		return &rastergrid.Range{Min: int64(r[0]), Max: int64(r[1])}, nil
	default:
		return nil, fmt.Errorf("rastergrid: %s range must have 2 elements but has %d", name, len(r))
	}
}

// parseWeight parses a weight written as a decimal or fraction. An empty
// string means 1.
func parseWeight(w string) (*big.Rat, error) {
	if w == "" {
		return nil, nil
	}
	r, ok := new(big.Rat).SetString(strings.TrimSpace(w))
	if !ok {
		return nil, fmt.Errorf("rastergrid: invalid weight %q", w)
	}
	return r, nil
}
