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
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rastergrid"
	"github.com/spf13/cast"
)

// Pipeline is a sequence of operations read from a TOML file, for example:
//
//	[[Step]]
//	Name = "coarse"
//	Operation = "aggregate"
//	Inputs = ["emissions.asc"]
//	Statistic = "sum"
//	Factor = 4
//
//	[[Step]]
//	Name = "exposure"
//	Operation = "multiply"
//	Inputs = ["coarse", "population.nc"]
//	Output = "exposure.nc"
type Pipeline struct {
	Steps []Step `toml:"Step"`
}

// Step is one operation. Which fields are used depends on Operation.
type Step struct {
	// Name identifies the result so that later steps can use it as an input.
	Name string

	// Operation is one of aggregate, disaggregate, multiply, divide,
	// transfer, mask, rescale, focalmean or summary.
	Operation string

	// Inputs are step names or grid file paths.
	Inputs []string

	Statistic            string
	Factor               int64
	RowOffset, ColOffset int64
	Target               []string // xmin, ymin, cellsize, nrows, ncols

	ResultKind string
	Weight     string
	Rows, Cols []int

	Min, Max float64

	Radius    int
	Bandwidth float64

	Output    string
	PNG       string
	Shapefile string
}

// ReadPipeline reads a pipeline from the TOML file at path.
func ReadPipeline(path string) (*Pipeline, error) {
	p := new(Pipeline)
	md, err := toml.DecodeFile(path, p)
	if err != nil {
		return nil, fmt.Errorf("rastergrid: reading pipeline: %v", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("rastergrid: unknown pipeline fields %v", undecoded)
	}
	seen := make(map[string]bool)
	for i, st := range p.Steps {
		if st.Name == "" {
			return nil, fmt.Errorf("rastergrid: pipeline step %d has no name", i)
		}
		if seen[st.Name] {
			return nil, fmt.Errorf("rastergrid: pipeline step name %q is used more than once", st.Name)
		}
		seen[st.Name] = true
	}
	return p, nil
}

// stepFromConfig creates a step for operation op on the files in args
// from the command-line configuration.
func stepFromConfig(op string, args []string) (Step, error) {
	target, err := stringSlice("target")
	if err != nil {
		return Step{}, err
	}
	rows, err := intSlice("rows")
	if err != nil {
		return Step{}, err
	}
	cols, err := intSlice("cols")
	if err != nil {
		return Step{}, err
	}
	return Step{
		Name:       op,
		Operation:  op,
		Inputs:     args,
		Statistic:  Cfg.GetString("statistic"),
		Factor:     int64(Cfg.GetInt("factor")),
		RowOffset:  int64(Cfg.GetInt("rowOffset")),
		ColOffset:  int64(Cfg.GetInt("colOffset")),
		Target:     target,
		ResultKind: Cfg.GetString("resultKind"),
		Weight:     Cfg.GetString("weight"),
		Rows:       rows,
		Cols:       cols,
		Min:        Cfg.GetFloat64("min"),
		Max:        Cfg.GetFloat64("max"),
		Radius:     Cfg.GetInt("radius"),
		Bandwidth:  Cfg.GetFloat64("bandwidth"),
		Output:     Cfg.GetString("output"),
		PNG:        Cfg.GetString("png"),
		Shapefile:  Cfg.GetString("shp"),
	}, nil
}

// stringSlice returns the configuration variable name as a slice.
// Flag values arrive as a single comma-separated string.
func stringSlice(name string) ([]string, error) {
	v := Cfg.Get(name)
	if s, ok := v.(string); ok {
		s = strings.Trim(s, "[]")
		if s == "" {
			return nil, nil
		}
		v = strings.Split(s, ",")
	}
	o, err := cast.ToStringSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("rastergrid: configuration variable %s: %v", name, err)
	}
	return o, nil
}

// intSlice is the integer version of stringSlice.
func intSlice(name string) ([]int, error) {
	s, err := stringSlice(name)
	if err != nil {
		return nil, err
	}
	o := make([]int, len(s))
	for i, v := range s {
		if o[i], err = cast.ToIntE(strings.TrimSpace(v)); err != nil {
			return nil, fmt.Errorf("rastergrid: configuration variable %s: %v", name, err)
		}
	}
	return o, nil
}

// runPipeline runs the steps of p in order.
func (s *session) runPipeline(ctx context.Context, p *Pipeline) error {
	for _, st := range p.Steps {
		g, err := s.run(ctx, st)
		if err != nil {
			return fmt.Errorf("rastergrid: pipeline step %s: %v", st.Name, err)
		}
		if g != nil {
			s.named[st.Name] = g
			s.grids = append(s.grids, g)
		}
	}
	return nil
}

// run carries out st, writes its outputs and returns its result. Summary
// steps print to the session output and return no grid.
func (s *session) run(ctx context.Context, st Step) (*rastergrid.Grid, error) {
	op := strings.ToLower(st.Operation)
	n, ok := stepInputs[op]
	if !ok {
		return nil, fmt.Errorf("rastergrid: unknown operation %q", st.Operation)
	}
	if len(st.Inputs) != n {
		return nil, fmt.Errorf("rastergrid: %s needs %d inputs but has %d", op, n, len(st.Inputs))
	}
	in := make([]*rastergrid.Grid, n)
	for i, name := range st.Inputs {
		g, err := s.input(ctx, name)
		if err != nil {
			return nil, err
		}
		in[i] = g
	}
	logrus.WithFields(logrus.Fields{
		"operation": op,
		"step":      st.Name,
		"inputs":    st.Inputs,
	}).Info("running")

	e := s.engine
	var (
		result *rastergrid.Grid
		err    error
	)
	switch op {
	case "aggregate":
		var stat rastergrid.Statistic
		if stat, err = rastergrid.ParseStatistic(st.Statistic); err != nil {
			return nil, err
		}
		if len(st.Target) > 0 {
			var d rastergrid.Dimensions
			if d, err = parseTarget(st.Target); err != nil {
				return nil, err
			}
			result, err = e.Aggregate(in[0], d, stat)
		} else {
			result, err = e.AggregateFactor(in[0], st.Factor, stat, st.RowOffset, st.ColOffset)
		}
		if err == nil && result == nil {
			return nil, fmt.Errorf("rastergrid: aggregate: output frame does not overlap %s", st.Inputs[0])
		}
	case "disaggregate":
		var stat rastergrid.Statistic
		if stat, err = rastergrid.ParseStatistic(st.Statistic); err != nil {
			return nil, err
		}
		result, err = e.Disaggregate(in[0], st.Factor, stat)
	case "multiply":
		var kind rastergrid.Kind
		if kind, err = rastergrid.ParseKind(st.ResultKind); err != nil {
			return nil, err
		}
		result, err = e.Multiply(kind, in[0], in[1], rastergrid.WithName(st.Name))
	case "divide":
		result, err = e.Divide(in[0], in[1], rastergrid.WithName(st.Name))
	case "transfer":
		result, err = s.transfer(in[0], in[1], st)
	case "mask":
		result, err = e.Mask(in[0], in[1])
	case "rescale":
		result, err = e.Rescale(in[0], st.Min, st.Max)
	case "focalmean":
		var k *rastergrid.Kernel
		if k, err = rastergrid.DistanceWeightKernel(st.Radius, st.Bandwidth); err != nil {
			return nil, err
		}
		result, err = e.FocalMean(in[0], k)
	case "summary":
		var sum rastergrid.Summary
		if sum, err = rastergrid.Summarize(in[0]); err != nil {
			return nil, err
		}
		fmt.Fprintf(s.out, "%s: %s\n", st.Inputs[0], sum)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := s.save(result, st); err != nil {
		return nil, err
	}
	return result, nil
}

// stepInputs gives the number of inputs each operation takes.
var stepInputs = map[string]int{
	"aggregate":    1,
	"disaggregate": 1,
	"multiply":     2,
	"divide":       2,
	"transfer":     2,
	"mask":         2,
	"rescale":      1,
	"focalmean":    1,
	"summary":      1,
}

// transfer adds the weighted source to a copy of target, so that the
// loaded target grid stays unchanged for later steps.
func (s *session) transfer(target, source *rastergrid.Grid, st Step) (*rastergrid.Grid, error) {
	rows, err := parseRange("rows", st.Rows)
	if err != nil {
		return nil, err
	}
	cols, err := parseRange("cols", st.Cols)
	if err != nil {
		return nil, err
	}
	w, err := parseWeight(st.Weight)
	if err != nil {
		return nil, err
	}
	result, err := target.Copy(s.engine.Factory)
	if err != nil {
		return nil, err
	}
	if err := s.engine.AddToGrid(result, source, rows, cols, w); err != nil {
		result.Dispose()
		return nil, err
	}
	return result, nil
}
