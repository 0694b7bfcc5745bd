package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r3"

	chem "github.com/rmera/goconf"
	"github.com/rmera/goconf/conformer"
	"github.com/rmera/goconf/relax"
	"github.com/rmera/goconf/torsion"
	v3 "github.com/rmera/goconf/v3"
)

// writeEthanol writes ethanol's heavy atoms, with coordinates, to a JSON file in dir.
func writeEthanol(Te *testing.T, dir string) string {
	mol := chem.NewMolecule()
	for _, s := range []string{"C", "C", "O"} {
		mol.AddAtom(s, 0)
	}
	_, err := mol.AddBond(0, 1, 1)
	require.NoError(Te, err)
	_, err = mol.AddBond(1, 2, 1)
	require.NoError(Te, err)
	mol.Coords = []*v3.Matrix{v3.FromVecs([]r3.Vec{{}, {X: 1.26, Y: 0.89}, {X: 2.43, Y: 0.1}})}
	name := filepath.Join(dir, "ethanol.json")
	f, err := os.Create(name)
	require.NoError(Te, err)
	defer f.Close()
	require.NoError(Te, chem.JSONWrite(f, mol, mol.Coords[0]))
	return name
}

func TestConfig(Te *testing.T) {
	dir := Te.TempDir()
	name := filepath.Join(dir, "confgen.yaml")
	yml := "conformers: 3\nsearch:\n  policy: adaptive\n  seed: 7\ncollisions:\n  heavy_tolerance: 0.9\nengine: crest\nminimizer: xtb\ncrest:\n  ncpu: 2\n"
	require.NoError(Te, os.WriteFile(name, []byte(yml), 0o644))
	cfg, err := loadConfig(newViper(), name)
	require.NoError(Te, err)
	assert.Equal(Te, 3, cfg.Conformers)
	assert.Equal(Te, "info", cfg.LogLevel)
	o, err := cfg.options(zap.NewNop())
	require.NoError(Te, err)
	assert.Equal(Te, "adaptive", o.Policy())
	assert.Equal(Te, uint64(7), o.Seed())
	assert.InDelta(Te, 0.9, o.HeavyTolerance(), 1e-12)
	assert.InDelta(Te, 0.6, o.HydrogenTolerance(), 1e-12)
	cr, ok := o.Engine().(*relax.Crest)
	require.True(Te, ok)
	assert.Equal(Te, 2, cr.NCPU)
	assert.Equal(Te, "crest", cr.Command)
	_, ok = o.Minimizer().(*relax.XTB)
	assert.True(Te, ok)

	cfg.Engine = "rdkit"
	_, err = cfg.options(zap.NewNop())
	assert.Error(Te, err)
	_, err = loadConfig(newViper(), filepath.Join(dir, "missing.yaml"))
	assert.Error(Te, err)
}

func TestGenerate(Te *testing.T) {
	dir := Te.TempDir()
	in := writeEthanol(Te, dir)
	out := filepath.Join(dir, "out")
	cmd := newRootCommand()
	cmd.SetArgs([]string{"generate", "--log-level", "error", "-n", "2", "-o", out, "--trace", in})
	require.NoError(Te, cmd.Execute())
	mol, err := chem.XYZFileRead(filepath.Join(out, "ethanol_conformers.xyz"))
	require.NoError(Te, err)
	assert.Equal(Te, 9, mol.Len())
	assert.Len(Te, mol.Coords, 2)
	_, err = os.Stat(filepath.Join(out, "ethanol_trace.png"))
	assert.NoError(Te, err)

	cmd = newRootCommand()
	cmd.SetArgs([]string{"generate", filepath.Join(dir, "ethanol.pdb")})
	assert.Error(Te, cmd.Execute())
}

func TestTableCommand(Te *testing.T) {
	var buf bytes.Buffer
	cmd := newRootCommand()
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"table"})
	require.NoError(Te, cmd.Execute())
	t, err := torsion.ReadTable(&buf)
	require.NoError(Te, err)
	assert.Equal(Te, torsion.DefaultTable().IDs(), t.IDs())
}

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteConformers(Te *testing.T) {
	mol := chem.NewMolecule()
	mol.AddAtom("C", 0)
	mol.AddAtom("O", 0)
	coords := v3.FromVecs([]r3.Vec{{}, {X: 1.43}})
	confs := []*conformer.Conformer{{Coords: coords, Contribution: 0.7}, {Coords: coords, Relaxed: true}}
	dir := Te.TempDir()
	name := filepath.Join(dir, "out.xyz")
	require.NoError(Te, writeConformers(name, mol, confs))
	back, err := chem.XYZFileRead(name)
	require.NoError(Te, err)
	assert.Len(Te, back.Coords, 2)

	assert.Error(Te, writeFrames(brokenWriter{}, mol, confs))
	assert.Error(Te, writeConformers(filepath.Join(dir, "missing", "out.xyz"), mol, confs))
}
