/*
Copyright © 2021 the fuelmap authors.
This file is part of fuelmap.

fuelmap is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

fuelmap is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with fuelmap.  If not, see <http://www.gnu.org/licenses/>.
*/

package fuelmaputil

import (
	"fmt"
	"strings"

	"github.com/lnashier/viper"
	"github.com/sirupsen/logrus"
	"github.com/spatialmodel/fuelmap"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to fuelmap.
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
              LogLevel is the minimum level of the log messages to print:
              one of debug, info, warning or error.`,
			defaultVal: "info",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "Namelist",
			usage: `
              Namelist is the path to the MesoNH namelist (EXSEG1.nam). When set,
              the grid, refinement ratios and propagation model are read from
              the namelist and from the MesoNH initialization file it names,
              which must be in the same directory, and the Grid options
              are ignored.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.Nx",
			usage: `
              Grid.Nx is the number of atmospheric cells in the x direction.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.Ny",
			usage: `
              Grid.Ny is the number of atmospheric cells in the y direction.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.GammaX",
			usage: `
              Grid.GammaX is the number of fire cells per atmospheric cell in
              the x direction (NREFINX).`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.GammaY",
			usage: `
              Grid.GammaY is the number of fire cells per atmospheric cell in
              the y direction (NREFINY).`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.Dx",
			usage: `
              Grid.Dx is the size of atmospheric cells in the x direction [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.Dy",
			usage: `
              Grid.Dy is the size of atmospheric cells in the y direction [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.Xo",
			usage: `
              Grid.Xo is the x coordinate of the lower-left corner of the grid [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Grid.Yo",
			usage: `
              Grid.Yo is the y coordinate of the lower-left corner of the grid [m].`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "PropagationModel",
			usage: `
              PropagationModel is the rate of spread model of the fire
              simulator, which determines the fuel class and the fuel
              properties that are written.`,
			defaultVal: "SANTONI2011",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags(), fuelsCmd.Flags()},
		},
		{
			name: "FuelDatabases",
			usage: `
              FuelDatabases are the paths of the fuel database files (.yml,
              .yaml or .toml) to load. Fuels are referred to as
              <file name>_<fuel name>. Paths can contain environment variables.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{buildCmd.Flags(), fuelsCmd.Flags()},
		},
		{
			name: "Scenario",
			usage: `
              Scenario is the path to the HCL file listing the patches to apply
              to the fuel map, in order.`,
			shorthand:  "s",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Ignition.LateralSpeed",
			usage: `
              Ignition.LateralSpeed is the lateral spread speed [m/s] of walking
              ignition patches that do not specify one. Zero means that
              every walking ignition patch has to specify its own.`,
			defaultVal: 0.0,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "OutputDir",
			usage: `
              OutputDir is the directory that fuel map files are written to.`,
			shorthand:  "o",
			defaultVal: ".",
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Write2D",
			usage: `
              Write2D specifies whether to also write FuelMap2d.nc, where fire
              fields are stored on the 2-D fire grid.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "MesoNHVersion",
			usage: `
              MesoNHVersion is the MesoNH version that fuel map files are
              written for, as major.minor.bugfix.`,
			defaultVal: fuelmap.DefaultMesoNHVersion,
			flagsets:   []*pflag.FlagSet{buildCmd.Flags()},
		},
		{
			name: "Rearrange.GammaX",
			usage: `
              Rearrange.GammaX is the refinement ratio in the x direction. When
              zero, it is read from the files.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{postCmd.Flags(), padCmd.Flags()},
		},
		{
			name: "Rearrange.GammaY",
			usage: `
              Rearrange.GammaY is the refinement ratio in the y direction. When
              zero, it is read from the files.`,
			defaultVal: 0,
			flagsets:   []*pflag.FlagSet{postCmd.Flags(), padCmd.Flags()},
		},
		{
			name: "Rearrange.FireFields",
			usage: `
              Rearrange.FireFields are the name patterns of the variables to
              rearrange. The fire fields of MesoNH and of fuel map files are
              used by default.`,
			defaultVal: []string{},
			flagsets:   []*pflag.FlagSet{postCmd.Flags(), padCmd.Flags()},
		},
		{
			name: "Rearrange.XFireDim",
			usage: `
              Rearrange.XFireDim is the name of the x fire grid dimension.`,
			defaultVal: "xfire",
			flagsets:   []*pflag.FlagSet{postCmd.Flags(), padCmd.Flags()},
		},
		{
			name: "Rearrange.YFireDim",
			usage: `
              Rearrange.YFireDim is the name of the y fire grid dimension.`,
			defaultVal: "yfire",
			flagsets:   []*pflag.FlagSet{postCmd.Flags(), padCmd.Flags()},
		},
		{
			name: "remove",
			usage: `
              remove specifies whether to delete each input file once its
              rearranged copy has been written.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{postCmd.Flags(), padCmd.Flags()},
		},
		{
			name: "classes",
			usage: `
              classes specifies whether to list the supported propagation
              models and the properties of their fuel classes instead of
              the fuels of the fuel databases.`,
			defaultVal: false,
			flagsets:   []*pflag.FlagSet{fuelsCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("FUELMAP")
	Cfg.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	Cfg.AutomaticEnv()

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch v := option.defaultVal.(type) {
			case string:
				set.StringP(option.name, option.shorthand, v, option.usage)
			case []string:
				set.StringSliceP(option.name, option.shorthand, v, option.usage)
			case bool:
				set.BoolP(option.name, option.shorthand, v, option.usage)
			case int:
				set.IntP(option.name, option.shorthand, v, option.usage)
			case float64:
				set.Float64P(option.name, option.shorthand, v, option.usage)
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(buildCmd)
	Root.AddCommand(postCmd)
	Root.AddCommand(padCmd)
	Root.AddCommand(fuelsCmd)
}

// setConfig finds and reads in the configuration file, if there is one,
// and sets the log level.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("fuelmap: problem reading configuration file: %v", err)
		}
	}
	level, err := logrus.ParseLevel(Cfg.GetString("LogLevel"))
	if err != nil {
		return fmt.Errorf("fuelmap: LogLevel: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "fuelmap",
	Short: "A fuel map builder for MesoNH/Blaze.",
	Long: `fuelmap builds the fuel, fuel property and ignition maps read by the
Blaze fire spread model coupled to MesoNH, and converts the fire fields of
MesoNH files between the padded 3-D layout and the 2-D fire grid.
Use the subcommands specified below to access this functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'FUELMAP_var' where 'var' is the
name of the variable to be set, with dots replaced by underscores. Paths are
additionally allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	SilenceUsage:      true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of fuelmap.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "fuelmap v%s\n", fuelmap.Version)
	},
	DisableAutoGenTag: true,
}

// buildCmd is a command that builds fuel map files.
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build fuel map files",
	Long: `build creates a fuel map on the fire grid, applies the patches of the
scenario file to it and writes the result to FuelMap.nc, in the padded
layout read by MesoNH, and optionally to FuelMap2d.nc. When a MesoNH
namelist is given, the description file of the initialization file is
copied to FuelMap.des.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := BuildConfigFromViper(Cfg)
		if err != nil {
			return err
		}
		return Build(c)
	},
	DisableAutoGenTag: true,
}

// postCmd is a command that converts fire fields to the 2-D layout.
var postCmd = &cobra.Command{
	Use:   "post FILE...",
	Short: "Convert fire fields to the 2-D fire grid",
	Long: `post converts the fire fields of MesoNH output files or fuel map files
from the padded 3-D layout to the 2-D fire grid. The result of FILE.nc is
written to FILE-post.nc.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RearrangeFiles(args, RearrangerFromViper(Cfg), true, Cfg.GetBool("remove"))
	},
	DisableAutoGenTag: true,
}

// padCmd is a command that converts fire fields to the padded layout.
var padCmd = &cobra.Command{
	Use:   "pad FILE...",
	Short: "Convert fire fields to the padded 3-D layout",
	Long: `pad converts the fire fields of files from the 2-D fire grid back to
the padded 3-D layout read by MesoNH. The result of FILE.nc is written to
FILE-padded.nc.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return RearrangeFiles(args, RearrangerFromViper(Cfg), false, Cfg.GetBool("remove"))
	},
	DisableAutoGenTag: true,
}

// fuelsCmd is a command that lists the fuels of fuel databases.
var fuelsCmd = &cobra.Command{
	Use:   "fuels",
	Short: "List available fuels",
	Long: `fuels lists the fuels of the configured fuel databases that belong to
the fuel class of the propagation model, along with their properties.
With --classes, it lists the supported propagation models and the
properties of their fuel classes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Cfg.GetBool("classes") {
			return ListClasses(cmd.OutOrStdout())
		}
		class, err := fuelmap.ClassForModel(Cfg.GetString("PropagationModel"))
		if err != nil {
			return err
		}
		db, err := LoadDatabases(class, expandStringSlice(Cfg.GetStringSlice("FuelDatabases")))
		if err != nil {
			return err
		}
		return ListFuels(cmd.OutOrStdout(), db)
	},
	DisableAutoGenTag: true,
}
