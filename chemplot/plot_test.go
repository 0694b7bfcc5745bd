package chemplot

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTorsionMap(Te *testing.T) {
	dir := Te.TempDir()
	data := [][2]float64{{60, 180}, {180, 180}, {300, 60}, {180, 300}, {60, 60}}
	name := filepath.Join(dir, "map")
	require.NoError(Te, TorsionMap(data, []int{1}, "Torsion map", name))
	st, err := os.Stat(name + ".png")
	require.NoError(Te, err)
	assert.Greater(Te, st.Size(), int64(0))
	err = TorsionMap(data, []int{0, 1, 2, 3, 4}, "Too many tags", filepath.Join(dir, "bad"))
	assert.Error(Te, err)
}

func TestTracePlot(Te *testing.T) {
	dir := Te.TempDir()
	name := filepath.Join(dir, "trace")
	require.NoError(Te, TracePlot([]float64{0, 0, 0.02, 0.3}, []float64{0.5, 0.3, 0.1, 0.05}, "Trace", name))
	_, err := os.Stat(name + ".png")
	require.NoError(Te, err)
	assert.Error(Te, TracePlot([]float64{0}, nil, "Bad", filepath.Join(dir, "bad")))
}

func TestColors(Te *testing.T) {
	r, g, b := colors(0, 10)
	assert.Equal(Te, uint8(255), r)
	assert.Zero(Te, g)
	assert.Zero(Te, b)
	r, g, b = iHVS2RGB(0, 0.5, 0)
	assert.Equal(Te, []uint8{127, 127, 127}, []uint8{r, g, b})
}
