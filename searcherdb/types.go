// Package searcherdb attributes block-builder revenue to the searchers that
// generate it. Given a historical range of blocks, the MEV events flagged by
// an external feed and the internal transfers paid to each block's fee
// recipient, it classifies every event into the MEV taxonomy, decides which
// address is the searcher of record and how much that searcher paid the
// builder, and folds the results into builder->searcher frequency and volume
// maps that the aggregation and reporting layers consume.
package searcherdb

import "errors"

var (
	ErrTxIndexOutOfRange = errors.New("event tx index out of block range")
	ErrEmptyBlock        = errors.New("block has no transactions")
)

// MevType is the classification tag carried by the external MEV feed.
type MevType string

const (
	MevTypeArb       MevType = "arb"
	MevTypeFrontrun  MevType = "frontrun"
	MevTypeBackrun   MevType = "backrun"
	MevTypeLiquid    MevType = "liquid"
	MevTypeUncertain MevType = "uncertain"
	MevTypeSwap      MevType = "swap"
	MevTypeSandwich  MevType = "sandwich"
)

// ProtocolMultiple marks multi-hop swaps, which are heuristically atomic
// arbitrage and get re-tagged as uncertain by the dispatcher.
const ProtocolMultiple = "multiple"

// Transaction is a simplified transaction inside a fetched Block.
// Monetary fields are float64: they only ever feed analytics aggregates,
// never settlement.
type Transaction struct {
	Index    int     `json:"transactionIndex"`
	Hash     string  `json:"hash"`
	From     string  `json:"from"`
	To       string  `json:"to"`
	Gas      uint64  `json:"gas"`
	GasPrice float64 `json:"gasPrice"`
	GasUsed  float64 `json:"gasUsed"`
	// Value is denominated in wei.
	Value float64 `json:"value"`
}

// Block is an already-fetched block, immutable once constructed.
type Block struct {
	Hash          string        `json:"hash"`
	ExtraData     string        `json:"extraData"`
	FeeRecipient  string        `json:"feeRecipient"`
	BaseFeePerGas float64       `json:"baseFeePerGas"`
	GasUsed       uint64        `json:"gasUsed"`
	Transactions  []Transaction `json:"transactions"`
}

// MevEvent is one flagged-transaction record from the MEV feed, correlated to
// a Transaction by its in-block index. AddressFrom/AddressTo are the
// economically relevant counterparties and may differ from the raw tx
// from/to. Optional USD fields are nullable in the feed.
type MevEvent struct {
	BlockNumber            uint64   `json:"block_number"`
	TxIndex                int      `json:"tx_index"`
	MevType                MevType  `json:"mev_type"`
	AddressFrom            string   `json:"address_from"`
	AddressTo              string   `json:"address_to"`
	Protocol               string   `json:"protocol,omitempty"`
	ExtractorProfitUSD     *float64 `json:"extractor_profit_usd,omitempty"`
	ExtractorSwapVolumeUSD *float64 `json:"extractor_swap_volume_usd,omitempty"`
	UserSwapVolumeUSD      *float64 `json:"user_swap_volume_usd,omitempty"`
}

// usdOrZero treats absent numeric feed fields as zero (missing-input rule).
func usdOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// InternalTransfer is a simplified internal transfer whose destination is the
// block's fee recipient. Value is denominated in ETH, as returned by the
// transfer feed.
type InternalTransfer struct {
	From  string  `json:"from"`
	To    string  `json:"to"`
	Value float64 `json:"value"`
}

// TransferMap indexes a block's fee-recipient transfers by transaction hash.
type TransferMap map[string]InternalTransfer

// Stats is the per-(builder, searcher) atomic record. Total tracks the
// contributions actually added for the pair: backrun legs count toward the
// total transaction count only, so sandwich economics land on the frontrun
// leg exactly once.
type Stats struct {
	Total     float64 `json:"total"`
	Arb       float64 `json:"arb"`
	Frontrun  float64 `json:"frontrun"`
	Backrun   float64 `json:"backrun"`
	Liquid    float64 `json:"liquid"`
	Uncertain float64 `json:"uncertain"`
}

func (s *Stats) add(t MevType, v float64) {
	switch t {
	case MevTypeArb:
		s.Arb += v
	case MevTypeFrontrun:
		s.Frontrun += v
	case MevTypeBackrun:
		s.Backrun += v
	case MevTypeLiquid:
		s.Liquid += v
	case MevTypeUncertain:
		s.Uncertain += v
	}
}

// addWithTotal records a contribution under the subtype key and under total.
func (s *Stats) addWithTotal(t MevType, v float64) {
	s.add(t, v)
	s.Total += v
}

// BribeEvidence is a raw audit record for the coinbase-transfer and
// trailing-transfer bribe tiers.
type BribeEvidence struct {
	Hash    string  `json:"hash"`
	Builder string  `json:"builder"`
	Bribe   float64 `json:"bribe"`
}

// TobEvidence is a raw audit record for the top-of-block bribe tier.
type TobEvidence struct {
	Hash     string  `json:"hash"`
	Builder  string  `json:"builder"`
	Index    int     `json:"index"`
	GasPrice float64 `json:"gas_price"`
	Gas      uint64  `json:"gas"`
}
