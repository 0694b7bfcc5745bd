/*
 * root.go, part of goConf.
 *
 * Copyright 2024 The goConf Authors
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 */

package main

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// app carries the configuration and logger from the root command to the subcommands.
type app struct {
	v   *viper.Viper
	cfg *Config
	log *zap.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: newViper()}
	var cfgFile string
	cmd := &cobra.Command{
		Use:   "confgen",
		Short: "Torsion-set conformer generation",
		Long: "confgen generates low-strain, collision-free conformers of small molecules\n" +
			"by combining rigid fragment conformers with tabulated torsion angles.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if a.cfg, err = loadConfig(a.v, cfgFile); err != nil {
				return err
			}
			a.log, err = newLogger(a.cfg.LogLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				a.log.Sync()
			}
		},
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&cfgFile, "config", "c", "", "YAML configuration file")
	pf.String("log-level", "info", "log level (debug, info, warn, error)")
	a.v.BindPFlag("log_level", pf.Lookup("log-level"))
	cmd.AddCommand(newGenerateCommand(a), newTableCommand(a))
	return cmd
}

// newLogger returns a console logger writing to stderr at the given level.
func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "log level")
	}
	cfg := zap.NewDevelopmentConfig()
	cfg.Level = lvl
	cfg.DisableStacktrace = true
	return cfg.Build()
}
