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

// Package rgutil contains the command-line interface for rastergrid.
package rgutil

import (
	"context"
	"fmt"
	"time"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/rastergrid"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

// options are the configuration options available to rastergrid.
var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	Root.AddCommand(versionCmd)
	Root.AddCommand(aggregateCmd)
	Root.AddCommand(disaggregateCmd)
	Root.AddCommand(multiplyCmd)
	Root.AddCommand(divideCmd)
	Root.AddCommand(transferCmd)
	Root.AddCommand(maskCmd)
	Root.AddCommand(rescaleCmd)
	Root.AddCommand(focalCmd)
	Root.AddCommand(summaryCmd)
	Root.AddCommand(pipelineCmd)

	outputCmds := []*pflag.FlagSet{aggregateCmd.Flags(), disaggregateCmd.Flags(),
		multiplyCmd.Flags(), divideCmd.Flags(), transferCmd.Flags(), maskCmd.Flags(),
		rescaleCmd.Flags(), focalCmd.Flags()}

	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "LogLevel",
			usage: `
              LogLevel is the minimum severity of log messages that are
              printed: one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "MaxChunks",
			usage: `
              MaxChunks is the maximum number of grid chunks that are kept
              in memory at once. Chunks beyond this number are written to
              SwapURL and read back when they are needed. A value of 0 or
              less means no limit.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ChunkRows",
			usage: `
              ChunkRows is the number of grid rows in each chunk.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "ChunkCols",
			usage: `
              ChunkCols is the number of grid columns in each chunk.`,
			defaultVal: 256,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "SwapURL",
			usage: `
              SwapURL is the location where chunks evicted from memory are
              stored, in the format 'provider://location'. Examples are
              'file:///tmp/rastergrid' or 'gs://bucket/prefix'. 'mem://'
              keeps evicted chunks in an in-memory bucket.`,
			defaultVal: "mem://",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Precision",
			usage: `
              Precision is the number of decimal places kept in decimal
              results.`,
			defaultVal: 10,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "CacheSize",
			usage: `
              CacheSize is the number of input grids that are kept loaded
              so that inputs used more than once are only read once.`,
			defaultVal: 8,
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "kind",
			usage: `
              kind is the numeric kind of grids read from ESRI ASCII
              files: one of int, float or decimal. NetCDF files record
              their own kind.`,
			defaultVal: "float",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "output",
			usage: `
              output is the path of the result file. Files ending in '.asc'
              are written as ESRI ASCII grids and files ending in '.nc' as
              NetCDF.`,
			shorthand:  "o",
			defaultVal: "",
			flagsets:   outputCmds,
		},
		{
			name: "png",
			usage: `
              png, if set, is the path of a PNG heat map of the result.`,
			defaultVal: "",
			flagsets:   outputCmds,
		},
		{
			name: "shp",
			usage: `
              shp, if set, is the path of a shapefile with one polygon for
              each valid cell of the result.`,
			defaultVal: "",
			flagsets:   outputCmds,
		},
		{
			name: "statistic",
			usage: `
              statistic is the statistic used to combine or split cell
              values: one of sum, mean, min or max.`,
			shorthand:  "s",
			defaultVal: "sum",
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags(), disaggregateCmd.Flags()},
		},
		{
			name: "factor",
			usage: `
              factor is the integer ratio between the coarse and fine cell
              sizes.`,
			shorthand:  "f",
			defaultVal: 2,
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags(), disaggregateCmd.Flags()},
		},
		{
			name: "rowOffset",
			usage: `
              rowOffset is the number of input rows south of the first
              output row's southern edge.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "colOffset",
			usage: `
              colOffset is the number of input columns west of the first
              output column's western edge.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "target",
			usage: `
              target, if set, specifies the output frame as
              xmin,ymin,cellsize,nrows,ncols instead of using factor.
              Coordinates may be written as decimals or fractions.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{aggregateCmd.Flags()},
		},
		{
			name: "resultKind",
			usage: `
              resultKind is the numeric kind of the product: one of int,
              float or decimal.`,
			defaultVal: "float",
			flagsets:   []*pflag.FlagSet{multiplyCmd.Flags()},
		},
		{
			name: "weight",
			usage: `
              weight multiplies the source values before they are added.
              It may be written as a decimal or a fraction such as 1/3.
              Empty means 1.`,
			shorthand:  "w",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{transferCmd.Flags()},
		},
		{
			name: "rows",
			usage: `
              rows, if set, is the inclusive range min,max of target rows
              to update.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{transferCmd.Flags()},
		},
		{
			name: "cols",
			usage: `
              cols, if set, is the inclusive range min,max of target
              columns to update.`,
			defaultVal: []int{},
			flagsets:   []*pflag.FlagSet{transferCmd.Flags()},
		},
		{
			name: "min",
			usage: `
              min is the lower end of the rescaled range.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{rescaleCmd.Flags()},
		},
		{
			name: "max",
			usage: `
              max is the upper end of the rescaled range.`,
			defaultVal: 1.0,
			flagsets:   []*pflag.FlagSet{rescaleCmd.Flags()},
		},
		{
			name: "radius",
			usage: `
              radius is the kernel radius in cells.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{focalCmd.Flags()},
		},
		{
			name: "bandwidth",
			usage: `
              bandwidth is the distance in cells at which kernel weights
              reach zero.`,
			defaultVal: 2.0,
			flagsets:   []*pflag.FlagSet{focalCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("RASTERGRID")
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case []string:
				set.StringSlice(option.name, option.defaultVal.([]string), option.usage)
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case []int:
				set.IntSlice(option.name, option.defaultVal.([]int), option.usage)
			case float64:
				set.Float64(option.name, option.defaultVal.(float64), option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets up logging.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("rastergrid: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("rastergrid: %v", err)
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
		DisableSorting:  true,
	})
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "rastergrid",
	Short: "Algebra on raster grids of differing resolutions.",
	Long: `rastergrid resamples and combines raster grids whose resolutions and
origins differ, keeping only a bounded number of grid chunks in memory.
Use the subcommands specified below to access the functionality.

Input and output grids are ESRI ASCII ('.asc') or NetCDF ('.nc') files.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'RASTERGRID_var' where 'var'
is the name of the variable to be set.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
	SilenceUsage:      true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of rastergrid.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("rastergrid v%s\n", rastergrid.Version)
	},
	DisableAutoGenTag: true,
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate input",
	Short: "Combine fine cells into a coarser grid.",
	Long: `aggregate combines the cells of the input grid into coarser cells
using the chosen statistic. The output frame is either 'factor' times coarser
than the input, shifted by 'rowOffset' and 'colOffset' input cells, or the
frame given by 'target'. Sum weights each input cell by the fraction of it
inside the output cell; mean weights by overlapping area.`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "aggregate", args)
	},
}

var disaggregateCmd = &cobra.Command{
	Use:   "disaggregate input",
	Short: "Split cells into a finer grid.",
	Long: `disaggregate splits each cell of the input grid into factor×factor
smaller cells. Sum divides values evenly between the smaller cells; mean, min
and max copy them.`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "disaggregate", args)
	},
}

var multiplyCmd = &cobra.Command{
	Use:   "multiply input0 input1",
	Short: "Multiply two grids cell by cell.",
	Long: `multiply multiplies two grids cell by cell. If the grids are not
aligned, the second grid is first resampled onto the frame of the first.`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "multiply", args)
	},
}

var divideCmd = &cobra.Command{
	Use:   "divide dividend divisor",
	Short: "Divide two grids with the same frame cell by cell.",
	Long: `divide divides the first grid by the second cell by cell. Both grids
must have the same frame. Cells where the divisor is zero are set to no-data.`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "divide", args)
	},
}

var transferCmd = &cobra.Command{
	Use:   "transfer target source",
	Short: "Add a weighted source grid to a target grid.",
	Long: `transfer adds weight times the source grid to the target grid and
writes the sum to output. Where the grids are not aligned, each target cell
receives the area-weighted mean of the source cells it overlaps.`,
	Args:              cobra.ExactArgs(2),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "transfer", args)
	},
}

var maskCmd = &cobra.Command{
	Use:   "mask input mask",
	Short: "Set cells to no-data where a mask grid is no-data.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "mask", args)
	},
	DisableAutoGenTag: true,
}

var rescaleCmd = &cobra.Command{
	Use:   "rescale input",
	Short: "Linearly rescale cell values into [min, max].",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "rescale", args)
	},
	DisableAutoGenTag: true,
}

var focalCmd = &cobra.Command{
	Use:   "focalmean input",
	Short: "Smooth a grid with a distance-weighted moving window.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "focalmean", args)
	},
	DisableAutoGenTag: true,
}

var summaryCmd = &cobra.Command{
	Use:               "summary input",
	Short:             "Print descriptive statistics of a grid.",
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCommand(cmd, "summary", args)
	},
}

var pipelineCmd = &cobra.Command{
	Use:   "pipeline file.toml",
	Short: "Run a sequence of operations from a TOML file.",
	Long: `pipeline runs the steps listed in a TOML file in order. A step input
may be the name of an earlier step instead of a file, in which case the
earlier result is used without writing it to disk. Memory and swap
settings are shared by all steps.`,
	Args:              cobra.ExactArgs(1),
	DisableAutoGenTag: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		p, err := ReadPipeline(args[0])
		if err != nil {
			return err
		}
		s, err := newSession(context.TODO(), cmd.OutOrStdout())
		if err != nil {
			return err
		}
		defer s.close()
		return s.runPipeline(context.TODO(), p)
	},
}

// runCommand runs the single-step operation op on the files in args using
// the current configuration.
func runCommand(cmd *cobra.Command, op string, args []string) error {
	st, err := stepFromConfig(op, args)
	if err != nil {
		return err
	}
	if op != "summary" {
		if _, err := checkOutputFile(st.Output); err != nil {
			return err
		}
	}
	s, err := newSession(context.TODO(), cmd.OutOrStdout())
	if err != nil {
		return err
	}
	defer s.close()
	g, err := s.run(context.TODO(), st)
	if g != nil {
		s.grids = append(s.grids, g)
	}
	return err
}
