package relax

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chem "github.com/rmera/goconf"
	v3 "github.com/rmera/goconf/v3"
)

func water(Te *testing.T) *chem.Molecule {
	mol, err := chem.XYZRead(strings.NewReader("3\n\nO 0 0 0\nH 0.96 0 0\nH -0.24 0.93 0\n"))
	require.NoError(Te, err)
	return mol
}

// multiXYZ returns a multi-XYZ file with water frames shifted along z, and the given
// energies (Hartree) in the comment lines, in the given format.
func multiXYZ(energies []float64, format string) string {
	var sb strings.Builder
	for i, e := range energies {
		fmt.Fprintf(&sb, "3\n"+format+"\n", e)
		fmt.Fprintf(&sb, "O 0 0 %d\nH 0.96 0 %d\nH -0.24 0.93 %d\n", i, i, i)
	}
	return sb.String()
}

func TestTemplate(Te *testing.T) {
	mol := water(Te)
	mol.Coords = append(mol.Coords, mol.Coords[0].Clone())
	run, err := Template{}.Start(context.Background(), mol, 0, 1)
	require.NoError(Te, err)
	c, g, ok := run.Next(context.Background())
	require.True(Te, ok)
	assert.Equal(Te, 1.0, g)
	assert.Equal(Te, 3, c.NVecs())
	c.SetVec(0, c.Vec(1))
	assert.NotEqual(Te, c.Vec(0), mol.Coords[0].Vec(0), "runs must return copies")
	_, _, ok = run.Next(context.Background())
	assert.False(Te, ok)

	mol.Coords = nil
	_, err = Template{}.Start(context.Background(), mol, 0, 1)
	assert.True(Te, errors.Is(err, ErrNoConformers))
}

func TestRunCancel(Te *testing.T) {
	run := NewRun([]*v3.Matrix{v3.Zeros(2)}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, ok := run.Next(ctx)
	assert.False(Te, ok)
}

func TestCrest(Te *testing.T) {
	C := NewCrest()
	C.NCPU = 4
	C.WorkDir = Te.TempDir()
	var gotArgs []string
	C.run = func(ctx context.Context, dir, command string, args []string) error {
		gotArgs = args
		_, err := os.Stat(filepath.Join(dir, args[0]))
		require.NoError(Te, err)
		return os.WriteFile(filepath.Join(dir, "crest_conformers.xyz"), []byte(multiXYZ([]float64{-5.001, -5.000, -4.990}, "  %.4f")), 0o644)
	}
	run, err := C.Start(context.Background(), water(Te), 0, 2)
	require.NoError(Te, err)
	assert.Equal(Te, []string{"input.xyz", "--chrg", "0", "--uhf", "0", "-T", "4", "--gfn2", "--temp", "298.15"}, gotArgs)
	c, g, ok := run.Next(context.Background())
	require.True(Te, ok)
	assert.InDelta(Te, 1.0, g, 1e-12)
	assert.InDelta(Te, 0.0, c.Vec(0).Z, 1e-12)
	_, g2, ok := run.Next(context.Background())
	require.True(Te, ok)
	assert.Less(Te, g2, g)
	assert.Greater(Te, g2, 0.0)
	_, _, ok = run.Next(context.Background())
	assert.False(Te, ok, "only 2 conformers were requested")

	C.run = func(ctx context.Context, dir, command string, args []string) error { return nil }
	_, err = C.Start(context.Background(), water(Te), 0, 2)
	assert.True(Te, errors.Is(err, ErrNoConformers))
}

func TestXTB(Te *testing.T) {
	O := NewXTB()
	O.NCPU = 1
	O.Method = "gfn1"
	O.WorkDir = Te.TempDir()
	O.run = func(ctx context.Context, dir, command string, args []string) error {
		assert.Equal(Te, []string{"input.xyz", "-c", "0", "-u", "0", "--gfn", "1", "--opt", "tight"}, args)
		if err := os.WriteFile(filepath.Join(dir, "xtbopt.log"), []byte(multiXYZ([]float64{-5.0, -5.1, -5.2}, " energy: %.6f gnorm: 0.001 xtb: 6.6")), 0o644); err != nil {
			return err
		}
		return os.WriteFile(filepath.Join(dir, "xtbopt.xyz"), []byte(multiXYZ([]float64{-5.2}, " energy: %.6f")), 0o644)
	}
	mol := water(Te)
	opt, start, end, err := O.Minimize(context.Background(), mol, mol.Coords[0])
	require.NoError(Te, err)
	assert.InDelta(Te, -5.0*h2kcal, start, 1e-6)
	assert.InDelta(Te, -5.2*h2kcal, end, 1e-6)
	assert.Equal(Te, 3, opt.NVecs())
}

func TestFrameEnergies(Te *testing.T) {
	e, err := frameEnergies(strings.NewReader(multiXYZ([]float64{-1, -2}, "%.3f")))
	require.NoError(Te, err)
	assert.InDeltaSlice(Te, []float64{-h2kcal, -2 * h2kcal}, e, 1e-9)
	_, err = frameEnergies(strings.NewReader("3\nno energy here\n"))
	assert.Error(Te, err)
	b := boltzmann([]float64{0, rgas * 300}, 300)
	assert.InDeltaSlice(Te, []float64{1, 0.36787944117}, b, 1e-9)
}
