/*
 * xtb.go, part of goConf.
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

package relax

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

// XTB is a Minimizer that optimizes geometries with the xtb program, which must
// be obtained from Prof. Stefan Grimme's group. Energies are returned in kcal/mol.
type XTB struct {
	Command string
	NCPU    int
	Method  string //gfn2 (default), gfn1, gfn0 or gfnff
	OptLev  string //crude, normal, tight (default) or vtight
	WorkDir string
	Logger  *zap.Logger
	run     runner
}

// NewXTB returns an XTB minimizer with default values.
// Defaults might change, so they are not part of the API.
func NewXTB() *XTB {
	return &XTB{
		Command: "xtb",
		NCPU:    max(runtime.NumCPU()/2, 1),
		Method:  "gfn2",
		OptLev:  "tight",
		Logger:  zap.NewNop(),
		run:     execRunner,
	}
}

func (O *XTB) args(input string, charge int) []string {
	args := []string{input, "-c", strconv.Itoa(charge), "-u", "0"}
	if O.NCPU > 1 {
		args = append(args, "-P", strconv.Itoa(O.NCPU))
	}
	switch O.Method {
	case "gfnff":
		args = append(args, "--gfnff")
	case "gfn0", "gfn1":
		args = append(args, "--gfn", O.Method[3:])
	default:
		args = append(args, "--gfn", "2")
	}
	lev := O.OptLev
	switch lev {
	case "crude", "normal", "tight", "vtight":
	default:
		lev = "tight"
	}
	return append(args, "--opt", lev)
}

// Minimize optimizes coords for mol. It returns the optimized coordinates and the energies
// of the first and last optimization steps.
func (O *XTB) Minimize(ctx context.Context, mol *chem.Molecule, coords *v3.Matrix) (*v3.Matrix, float64, float64, error) {
	dir, err := os.MkdirTemp(O.WorkDir, "goconf-xtb")
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb")
	}
	defer os.RemoveAll(dir)
	f, err := os.Create(filepath.Join(dir, "input.xyz"))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb")
	}
	err = chem.XYZWrite(f, mol, coords, "")
	f.Close()
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb")
	}
	charge := 0
	for _, a := range mol.Atoms {
		charge += a.Charge
	}
	run := O.run
	if run == nil {
		run = execRunner
	}
	if err := run(ctx, dir, O.Command, O.args("input.xyz", charge)); err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb")
	}
	optimized, err := os.ReadFile(filepath.Join(dir, "xtbopt.xyz"))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb: no optimized geometry")
	}
	optmol, err := chem.XYZRead(bytes.NewReader(optimized))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb: reading optimized geometry")
	}
	if optmol.Len() != mol.Len() {
		return nil, 0, 0, errors.Newf("xtb: optimized geometry has %d atoms, expected %d", optmol.Len(), mol.Len())
	}
	trj, err := os.ReadFile(filepath.Join(dir, "xtbopt.log"))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb: no optimization log")
	}
	energies, err := frameEnergies(bytes.NewReader(trj))
	if err != nil {
		return nil, 0, 0, errors.Wrap(err, "xtb: reading energies")
	}
	if len(energies) == 0 {
		return nil, 0, 0, errors.Wrap(ErrNoConformers, "xtb: empty optimization log")
	}
	O.logger().Debug("xtb optimization", zap.Int("steps", len(energies)), zap.Float64("start", energies[0]), zap.Float64("end", energies[len(energies)-1]))
	return optmol.Coords[len(optmol.Coords)-1], energies[0], energies[len(energies)-1], nil
}

func (O *XTB) logger() *zap.Logger {
	if O.Logger == nil {
		return zap.NewNop()
	}
	return O.Logger
}
