package searcherdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKnownEntitiesDefaults(t *testing.T) {
	known := NewKnownEntities()

	require.True(t, known.IsKnown("0x7a250d5630b4cf539739df2c5dacb4c659f2488d"))
	require.True(t, known.IsKnown("0x7A250D5630B4CF539739DF2C5DACB4C659F2488D"))
	require.False(t, known.IsKnown("0xdeadbeef"))

	label, ok := known.Label("0x1111111254eeb25477b68fb85ed929f73a960582")
	require.True(t, ok)
	require.Equal(t, "one_inch", label)
}

func TestLoadKnownEntities(t *testing.T) {
	file := filepath.Join(t.TempDir(), "entities.yaml")
	config := []byte("common_contracts:\n  - \"0xAAA\"\nlabels:\n  \"0xBBB\": some_router\n")
	require.NoError(t, os.WriteFile(file, config, 0o644))

	known, err := LoadKnownEntities(file)
	require.NoError(t, err)

	require.True(t, known.IsKnown("0xaaa"))
	require.True(t, known.IsKnown("0xbbb"))
	label, ok := known.Label("0xbbb")
	require.True(t, ok)
	require.Equal(t, "some_router", label)

	// compiled-in defaults survive
	require.True(t, known.IsKnown("0xdef1c0ded9bec7f1a1670819833240f027b25eff"))
}
