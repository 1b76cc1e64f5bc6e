package signature

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDescriptorsAreSane(t *testing.T) {
	seen := map[string]bool{}
	for _, d := range All() {
		require.NotEmpty(t, d.ID)
		assert.False(t, seen[d.ID], "duplicate id %s", d.ID)
		seen[d.ID] = true
		assert.NotEmpty(t, d.Magic, d.ID)
		assert.NotEmpty(t, d.Ext, d.ID)
		assert.LessOrEqual(t, d.MinSize, d.MaxSize, d.ID)
		assert.NotEmpty(t, d.Dir(), d.ID)
	}
}

func TestSceneGraphFamilySharesMagic(t *testing.T) {
	nif, ok := Lookup("nif")
	require.True(t, ok)
	for _, id := range []string{"kf", "egm", "egt"} {
		d, ok := Lookup(id)
		require.True(t, ok)
		assert.True(t, bytes.Equal(nif.Magic, d.Magic), id)
	}
}

func TestSelectKeepsSearchOrder(t *testing.T) {
	got, err := Select([]string{"zlib_best", "dds", "script_scn"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "dds", got[0].ID)
	assert.Equal(t, "script_scn", got[1].ID)
	assert.Equal(t, "zlib_best", got[2].ID)

	all, err := Select(nil)
	require.NoError(t, err)
	assert.Len(t, all, len(IDs()))

	_, err = Select([]string{"nope"})
	assert.Error(t, err)
}

func TestProbeSize(t *testing.T) {
	dds, _ := Lookup("dds")
	assert.Equal(t, int64(2048), dds.ProbeSize())
	assert.Equal(t, "textures", dds.Dir())

	scn, _ := Lookup("script_scn")
	assert.Equal(t, scn.MaxSize, scn.ProbeSize())

	png, _ := Lookup("png")
	assert.Equal(t, int64(1<<20), png.ProbeSize())

	zlib, _ := Lookup("zlib_default")
	assert.Equal(t, int64(1<<20), zlib.ProbeSize())
	assert.Equal(t, "zlib_default", zlib.Dir())
}
