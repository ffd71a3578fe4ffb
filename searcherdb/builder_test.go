package searcherdb

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeExtraData(t *testing.T) {
	cases := []struct {
		name string
		hex  string
		want string
	}{
		{"ascii", "0x6265617665726275696c642e6f7267", "beaverbuild.org"},
		{"no prefix", "7273796e63", "rsync"},
		{"empty", "0x", ""},
		{"odd length gets padded", "0x0", "\x00"},
		{"invalid hex", "0xzz", ""},
		{"high bytes survive", "0xff", "ÿ"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, DecodeExtraData(c.hex))
		})
	}
}

func TestBuilderResolve(t *testing.T) {
	registry := NewBuilderRegistry()

	cases := []struct {
		name         string
		extraData    string
		feeRecipient string
		want         string
	}{
		{"known fragment", "beaverbuild.org", "0xFee", "beaverbuild"},
		{"fragment with noise", "@@titan!!builder", "0xFee", "titan"},
		{"more specific fragment wins", "bloxroute maxprofit", "0xFee", "bloxroute"},
		{"prefix fallback", "bloxr regulated", "0xFee", "bloxroute_regulated"},
		{"illuminate aliases flashbots", "Illuminate Dmocratize Dstribute", "0xFee", "flashbots"},
		{"vanilla signature", "geth(go1.20)", "0xFee", VanillaBuilder},
		{"empty falls back to fee recipient", "", "0xABCDEF", "0xabcdef"},
		{"only symbols falls back to fee recipient", "---...---", "0xABCDEF", "0xabcdef"},
		{"unknown keeps cleaned extradata", "SomeNewBuilder", "0xFee", "SomeNewBuilder"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.Equal(t, c.want, registry.Resolve(c.extraData, c.feeRecipient))
		})
	}
}

func TestLoadBuilderRegistry(t *testing.T) {
	file := filepath.Join(t.TempDir(), "builders.yaml")
	config := []byte("builders:\n  - match: beaver\n    name: custombeaver\n  - match: newkid\n    name: newkid\n")
	require.NoError(t, os.WriteFile(file, config, 0o644))

	registry, err := LoadBuilderRegistry(file)
	require.NoError(t, err)

	// file entries take precedence over the compiled-in table
	require.Equal(t, "custombeaver", registry.Resolve("beaverbuild.org", "0xFee"))
	require.Equal(t, "newkid", registry.Resolve("newkid on the block", "0xFee"))
	// defaults survive as a fallback tail
	require.Equal(t, "rsync", registry.Resolve("rsync-builder.xyz", "0xFee"))
}

func TestLoadBuilderRegistryMissingFile(t *testing.T) {
	_, err := LoadBuilderRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
