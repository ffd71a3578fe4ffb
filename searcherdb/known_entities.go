package searcherdb

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// KnownEntities holds the static address tables the aggregation layer prunes:
// common contracts (routers, aggregators, proxies) that show up as event
// counterparties without being searchers, and labeled contracts whose
// identity is already known.
type KnownEntities struct {
	commonContracts  map[string]struct{}
	labeledContracts map[string]string
}

// defaultLabeledContracts maps lower-cased addresses to human labels.
var defaultLabeledContracts = map[string]string{
	"0xef1c6e67703c7bd7107eed8303fbe6ec2554bf6b": "uniswap_router",
	"0x7a250d5630b4cf539739df2c5dacb4c659f2488d": "uniswap_router_2",
	"0x68b3465833fb72a70ecdf485e0e4c7bd8665fc45": "uniswap_router_3",
	"0x881d40237659c251811cec9c364ef91dc08d300c": "metamask_router",
	"0xe66b31678d6c16e9ebf358268a790b763c133750": "coinbase_proxy",
	"0x1111111254eeb25477b68fb85ed929f73a960582": "one_inch",
	"0x6131b5fae19ea4f9d964eac0408e4408b66337b5": "kyberswap",
	"0xdef1c0ded9bec7f1a1670819833240f027b25eff": "zeroex_proxy",
	"0x3fc91a3afd70395cd496c647d5a6cc9d4b2b7fad": "uniswap_universal_router",
}

// NewKnownEntities returns the compiled-in tables.
func NewKnownEntities() *KnownEntities {
	common := make(map[string]struct{}, len(defaultLabeledContracts))
	for addr := range defaultLabeledContracts {
		common[addr] = struct{}{}
	}
	return &KnownEntities{
		commonContracts:  common,
		labeledContracts: defaultLabeledContracts,
	}
}

type knownEntitiesConfig struct {
	CommonContracts []string          `yaml:"common_contracts"`
	Labels          map[string]string `yaml:"labels"`
}

// LoadKnownEntities extends the compiled-in tables from a YAML file.
func LoadKnownEntities(file string) (*KnownEntities, error) {
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}

	var config knownEntitiesConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}

	k := NewKnownEntities()
	for _, addr := range config.CommonContracts {
		k.commonContracts[strings.ToLower(addr)] = struct{}{}
	}
	for addr, label := range config.Labels {
		addr = strings.ToLower(addr)
		k.labeledContracts[addr] = label
		k.commonContracts[addr] = struct{}{}
	}
	return k, nil
}

// IsKnown reports whether the address belongs to a common or labeled
// contract. Addresses are compared lower-cased.
func (k *KnownEntities) IsKnown(addr string) bool {
	addr = strings.ToLower(addr)
	if _, ok := k.commonContracts[addr]; ok {
		return true
	}
	_, ok := k.labeledContracts[addr]
	return ok
}

// Label resolves an address to its human label, if it has one.
func (k *KnownEntities) Label(addr string) (string, bool) {
	label, ok := k.labeledContracts[strings.ToLower(addr)]
	return label, ok
}
