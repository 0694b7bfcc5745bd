/*
 * crest.go, part of goConf.
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
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

const (
	h2kcal = 627.509   //Hartree to kcal/mol
	rgas   = 0.0019872 //kcal/(mol K)
)

// runner runs the program command with args in the directory dir.
type runner func(ctx context.Context, dir, command string, args []string) error

// execRunner runs the command, sending its output to a file named after the command in dir.
func execRunner(ctx context.Context, dir, command string, args []string) error {
	out, err := os.Create(filepath.Join(dir, filepath.Base(command)+".out"))
	if err != nil {
		return errors.Wrap(err, "creating output file")
	}
	defer out.Close()
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = dir
	cmd.Stdout = out
	cmd.Stderr = out
	return errors.Wrapf(cmd.Run(), "running %s", command)
}

// Crest is an Engine that obtains conformers from the CREST program, which must be
// obtained from Prof. Stefan Grimme's group. Goodness values are Boltzmann factors
// of the conformer energies, relative to the lowest one.
type Crest struct {
	Command     string
	NCPU        int
	Method      string //gfn2 (default), gfn1, gfn0 or gfnff
	WorkDir     string //where temporary directories are created. The system default if empty
	EThres      float64
	RMSDThres   float64
	Temperature float64
	Keep        bool //keep the working directory after the run
	Logger      *zap.Logger
	run         runner
}

// NewCrest returns a Crest engine with default values.
// Defaults might change, so they are not part of the API.
func NewCrest() *Crest {
	return &Crest{
		Command:     "crest",
		NCPU:        max(runtime.NumCPU()/2, 1),
		Method:      "gfn2",
		Temperature: 298.15,
		Logger:      zap.NewNop(),
		run:         execRunner,
	}
}

// args returns the command line arguments for a run on the file input.
func (C *Crest) args(input string, charge int) []string {
	args := []string{input, "--chrg", strconv.Itoa(charge), "--uhf", "0"}
	if C.NCPU > 1 {
		args = append(args, "-T", strconv.Itoa(C.NCPU))
	}
	switch C.Method {
	case "gfn1", "gfn2", "gfn0", "gfnff":
		args = append(args, "--"+C.Method)
	default:
		args = append(args, "--gfn2")
	}
	if C.EThres > 0 {
		args = append(args, "--ewin", fmt.Sprintf("%4.1f", C.EThres))
	}
	if C.RMSDThres > 0 {
		args = append(args, "--rthr", fmt.Sprintf("%4.2f", C.RMSDThres))
	}
	t := C.Temperature
	if t <= 0 {
		t = 298.15
	}
	return append(args, "--temp", fmt.Sprintf("%5.2f", t))
}

// Start runs CREST to completion on the first coordinate set of mol, and returns a
// run over the lowest-energy max conformers found.
func (C *Crest) Start(ctx context.Context, mol *chem.Molecule, seed uint64, max int) (Run, error) {
	if !mol.HasCoords() {
		return nil, errors.Wrap(ErrNoConformers, "crest: the molecule needs starting coordinates")
	}
	dir, err := os.MkdirTemp(C.WorkDir, "goconf-crest")
	if err != nil {
		return nil, errors.Wrap(err, "crest")
	}
	if !C.Keep {
		defer os.RemoveAll(dir)
	}
	if err := chem.XYZFileWrite(filepath.Join(dir, "input.xyz"), mol, 0); err != nil {
		return nil, errors.Wrap(err, "crest")
	}
	charge := 0
	for _, a := range mol.Atoms {
		charge += a.Charge
	}
	args := C.args("input.xyz", charge)
	C.logger().Debug("running crest", zap.String("dir", dir), zap.Strings("args", args))
	run := C.run
	if run == nil {
		run = execRunner
	}
	if err := run(ctx, dir, C.Command, args); err != nil {
		return nil, errors.Wrap(err, "crest")
	}
	data, err := os.ReadFile(filepath.Join(dir, "crest_conformers.xyz"))
	if err != nil {
		return nil, errors.Wrap(ErrNoConformers, "crest: run didn't finish normally")
	}
	coords, energies, err := readConformers(data, mol.Len())
	if err != nil {
		return nil, errors.Wrap(err, "crest")
	}
	if max > 0 && len(coords) > max {
		coords, energies = coords[:max], energies[:max]
	}
	t := C.Temperature
	if t <= 0 {
		t = 298.15
	}
	C.logger().Info("crest finished", zap.Int("conformers", len(coords)))
	return NewRun(coords, boltzmann(energies, t)), nil
}

func (C *Crest) logger() *zap.Logger {
	if C.Logger == nil {
		return zap.NewNop()
	}
	return C.Logger
}

// readConformers parses a multi-XYZ file where the comment line of each frame holds
// its energy in Hartree. It returns the coordinates and the energies in kcal/mol.
func readConformers(data []byte, natoms int) ([]*v3.Matrix, []float64, error) {
	mol, err := chem.XYZRead(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	if mol.Len() != natoms {
		return nil, nil, errors.Newf("conformers have %d atoms, expected %d", mol.Len(), natoms)
	}
	energies, err := frameEnergies(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	if len(energies) != len(mol.Coords) {
		return nil, nil, errors.Newf("%d energies for %d conformers", len(energies), len(mol.Coords))
	}
	if len(energies) == 0 {
		return nil, nil, ErrNoConformers
	}
	return mol.Coords, energies, nil
}

// frameEnergies returns, in kcal/mol, the first number in the comment line of each frame
// of a multi-XYZ stream.
func frameEnergies(r io.Reader) ([]float64, error) {
	const (
		wantCount = iota
		wantComment
		inAtoms
	)
	sc := bufio.NewScanner(r)
	energies := make([]float64, 0, 10)
	state, left := wantCount, 0
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		switch state {
		case wantCount:
			if line == "" {
				continue
			}
			n, err := strconv.Atoi(line)
			if err != nil {
				return nil, errors.Newf("expected the number of atoms, found %q", line)
			}
			state, left = wantComment, n
		case wantComment:
			e, err := firstFloat(line)
			if err != nil {
				return nil, errors.Wrapf(err, "energy %d", len(energies))
			}
			energies = append(energies, e*h2kcal)
			state = inAtoms
			if left == 0 {
				state = wantCount
			}
		case inAtoms:
			left--
			if left == 0 {
				state = wantCount
			}
		}
	}
	return energies, errors.Wrap(sc.Err(), "reading energies")
}

// firstFloat parses the first field of line that is a number.
func firstFloat(line string) (float64, error) {
	for _, f := range strings.Fields(line) {
		if v, err := strconv.ParseFloat(f, 64); err == nil {
			return v, nil
		}
	}
	return 0, errors.Newf("no number in %q", line)
}

// boltzmann returns the Boltzmann factors of the given energies (kcal/mol) at temperature t,
// relative to the lowest energy.
func boltzmann(energies []float64, t float64) []float64 {
	emin := math.Inf(1)
	for _, e := range energies {
		emin = math.Min(emin, e)
	}
	ret := make([]float64, len(energies))
	for i, e := range energies {
		ret[i] = math.Exp(-(e - emin) / (rgas * t))
	}
	return ret
}
