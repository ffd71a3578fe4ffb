package searcherdb

import (
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// VanillaBuilder is the sentinel identity for blocks whose extradata carries
// only a generic client signature and no known builder fragment.
const VanillaBuilder = "vanilla_builder"

var (
	nonWordRe = regexp.MustCompile(`\W+`)

	// generic client signatures that indicate a self-built block
	vanillaSignatures = []string{"geth", "nethermind", "linux"}
)

type builderFragment struct {
	Match string `yaml:"match"`
	Name  string `yaml:"name"`
}

// defaultFragments pattern-matches cleaned extradata against known builder
// name fragments. More specific fragments come before their prefixes
// (bloxroute before bloxr) so the first hit is the most specific one.
var defaultFragments = []builderFragment{
	{"beaverbuild", "beaverbuild"},
	{"builder0x69", "builder0x69"},
	{"rsync", "rsync"},
	{"blocknative", "blocknative"},
	{"titan", "titan"},
	{"bloxroute", "bloxroute"},
	{"bloxr", "bloxroute_regulated"},
	{"illuminate", "flashbots"},
	{"flashbots", "flashbots"},
	{"buildai", "buildai"},
	{"f1b", "f1b"},
	{"eden", "eden"},
	{"ethbuilder", "ethbuilder"},
	{"lightspeedbuilder", "lightspeedbuilder"},
	{"bobthebuilder", "bobthebuilder"},
	{"boba", "boba"},
	{"payload", "payload"},
	{"gambit", "gambitlabs"},
	{"nfactorial", "nfactorial"},
	{"uwu", "uwubuilder"},
	{"antbuilder", "antbuilder"},
}

// BuilderRegistry resolves a block's raw identifying data to a canonical
// builder name.
type BuilderRegistry struct {
	fragments []builderFragment
}

// NewBuilderRegistry returns a registry with the compiled-in fragment table.
func NewBuilderRegistry() *BuilderRegistry {
	return &BuilderRegistry{fragments: defaultFragments}
}

type builderRegistryConfig struct {
	Builders []builderFragment `yaml:"builders"`
}

// LoadBuilderRegistry parses a fragment table from a YAML file. Entries from
// the file take precedence over the compiled-in defaults, which are kept as a
// fallback tail.
func LoadBuilderRegistry(file string) (*BuilderRegistry, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var config builderRegistryConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	fragments := make([]builderFragment, 0, len(config.Builders)+len(defaultFragments))
	for _, f := range config.Builders {
		fragments = append(fragments, builderFragment{Match: strings.ToLower(f.Match), Name: f.Name})
	}
	fragments = append(fragments, defaultFragments...)
	return &BuilderRegistry{fragments: fragments}, nil
}

// Resolve maps decoded extradata and the block's fee recipient to a builder
// identity. Unresolved builders become their own bucket so no MEV event is
// ever dropped for lack of identity.
func (r *BuilderRegistry) Resolve(extraData, feeRecipient string) string {
	cleaned := nonWordRe.ReplaceAllString(extraData, "")
	if cleaned == "" {
		return strings.ToLower(feeRecipient)
	}

	lowered := strings.ToLower(cleaned)
	for _, f := range r.fragments {
		if strings.Contains(lowered, f.Match) {
			return f.Name
		}
	}
	for _, sig := range vanillaSignatures {
		if strings.Contains(lowered, sig) {
			return VanillaBuilder
		}
	}
	return cleaned
}

// DecodeExtraData turns the 0x-prefixed extradata field into a string,
// mapping each byte to the corresponding rune the way a Latin-1 decode does,
// so arbitrary bytes never produce replacement characters.
func DecodeExtraData(hexData string) string {
	s := strings.TrimPrefix(hexData, "0x")
	if len(s)%2 != 0 {
		s = "0" + s
	}
	runes := make([]rune, 0, len(s)/2)
	for i := 0; i+1 < len(s); i += 2 {
		hi, okHi := hexNibble(s[i])
		lo, okLo := hexNibble(s[i+1])
		if !okHi || !okLo {
			return ""
		}
		runes = append(runes, rune(hi<<4|lo))
	}
	return string(runes)
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
