package blockfetch

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

const blockJSON = `{
  "hash": "0xblockhash",
  "extraData": "0x6265617665726275696c642e6f7267",
  "miner": "0xfeeRecipient",
  "baseFeePerGas": "0x3b9aca00",
  "gasUsed": "0xe4e1c0",
  "transactions": [
    {"transactionIndex": "0x0", "hash": "0xaaa", "from": "0x1", "to": "0x2",
     "gas": "0x30d40", "gasPrice": "0x77359400", "value": "0xde0b6b3a7640000"},
    {"transactionIndex": "0x1", "hash": "0xbbb", "from": "0x3", "to": null,
     "gas": "0x5208", "gasPrice": "0x3b9aca00", "value": "0x0"}
  ]
}`

func TestSimplifyBlock(t *testing.T) {
	var raw rpcBlock
	require.NoError(t, json.Unmarshal([]byte(blockJSON), &raw))

	block := simplifyBlock(&raw)
	require.Equal(t, "0xblockhash", block.Hash)
	require.Equal(t, "0xfeeRecipient", block.FeeRecipient)
	require.Equal(t, 1e9, block.BaseFeePerGas)
	require.Equal(t, uint64(15_000_000), block.GasUsed)
	require.Len(t, block.Transactions, 2)

	tx := block.Transactions[0]
	require.Equal(t, 0, tx.Index)
	require.Equal(t, uint64(200_000), tx.Gas)
	require.Equal(t, 2e9, tx.GasPrice)
	require.Equal(t, 1e18, tx.Value)
	// gasUsed comes from receipts, not the block
	require.Equal(t, 0.0, tx.GasUsed)

	// contract creation has no recipient
	require.Equal(t, "0x0", block.Transactions[1].To)
}

func TestSimplifyBlockPreLondon(t *testing.T) {
	var raw rpcBlock
	require.NoError(t, json.Unmarshal([]byte(`{"hash": "0xh", "transactions": []}`), &raw))

	block := simplifyBlock(&raw)
	require.Equal(t, 0.0, block.BaseFeePerGas)
	require.Empty(t, block.Transactions)
}
