/*
 * table.go, part of goConf.
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
	"gopkg.in/yaml.v3"

	"github.com/rmera/goconf/torsion"
)

func newTableCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "table",
		Short: "Print the torsion table in use, in YAML, as a starting point for a custom one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t := torsion.DefaultTable()
			if a.cfg.Table != "" {
				var err error
				if t, err = torsion.ReadTableFile(a.cfg.Table); err != nil {
					return err
				}
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(t); err != nil {
				return errors.Wrap(err, "writing torsion table")
			}
			return errors.Wrap(enc.Close(), "writing torsion table")
		},
	}
}
