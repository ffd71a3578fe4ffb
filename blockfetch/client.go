// Package blockfetch retrieves blocks, receipts and fee-recipient internal
// transfers over JSON-RPC and simplifies them into the in-memory structures
// the attribution core consumes.
package blockfetch

import (
	"context"
	"fmt"
	"math/big"
	"strconv"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ybbus/jsonrpc/v3"
	"go.uber.org/zap"

	"github.com/searcherdash/searcherdb-node/metrics"
	"github.com/searcherdash/searcherdb-node/searcherdb"
)

const (
	// DefaultBatchSize is the number of blocks requested per JSON-RPC batch.
	DefaultBatchSize = 1000

	maxRetries       = 5
	receiptBatchSize = 100
)

type Client struct {
	log       *zap.Logger
	rpc       jsonrpc.RPCClient
	batchSize int
}

func NewClient(log *zap.Logger, endpoint string) *Client {
	return &Client{
		log:       log,
		rpc:       jsonrpc.NewClient(endpoint),
		batchSize: DefaultBatchSize,
	}
}

type rpcTransaction struct {
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	Hash             string         `json:"hash"`
	From             string         `json:"from"`
	To               string         `json:"to"`
	Gas              hexutil.Uint64 `json:"gas"`
	GasPrice         *hexutil.Big   `json:"gasPrice"`
	Value            *hexutil.Big   `json:"value"`
}

type rpcBlock struct {
	Hash          string           `json:"hash"`
	ExtraData     string           `json:"extraData"`
	Miner         string           `json:"miner"`
	BaseFeePerGas *hexutil.Big     `json:"baseFeePerGas"`
	GasUsed       hexutil.Uint64   `json:"gasUsed"`
	Transactions  []rpcTransaction `json:"transactions"`
}

type rpcReceipt struct {
	TransactionIndex hexutil.Uint64 `json:"transactionIndex"`
	GasUsed          hexutil.Uint64 `json:"gasUsed"`
}

// GetBlocks fetches the closed range [startBlock, endBlock] in batches,
// backfills per-transaction gasUsed from receipts, and returns blocks keyed
// by decimal block number.
func (c *Client) GetBlocks(ctx context.Context, startBlock, endBlock uint64) (map[string]*searcherdb.Block, error) {
	blocks := make(map[string]*searcherdb.Block)

	for batchStart := startBlock; batchStart <= endBlock; batchStart += uint64(c.batchSize) {
		batchEnd := batchStart + uint64(c.batchSize) - 1
		if batchEnd > endBlock {
			batchEnd = endBlock
		}
		if err := c.fetchBlockBatch(ctx, batchStart, batchEnd, blocks); err != nil {
			return nil, err
		}
		metrics.IncRPCBatchesFetched()
	}

	if err := c.backfillGasUsed(ctx, startBlock, endBlock, blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (c *Client) fetchBlockBatch(ctx context.Context, batchStart, batchEnd uint64, blocks map[string]*searcherdb.Block) error {
	requests := make(jsonrpc.RPCRequests, 0, batchEnd-batchStart+1)
	for n := batchStart; n <= batchEnd; n++ {
		requests = append(requests, jsonrpc.NewRequest("eth_getBlockByNumber", hexutil.EncodeUint64(n), true))
	}

	responses, err := c.callBatchWithRetry(ctx, requests)
	if err != nil {
		return err
	}

	// batch ids are assigned in request order starting at 0
	byID := responses.AsMap()
	for i := range requests {
		blockNumber := batchStart + uint64(i)
		res, ok := byID[i]
		if !ok {
			return fmt.Errorf("block %d missing from batch response", blockNumber)
		}
		if res.Error != nil {
			return fmt.Errorf("block %d cannot be fetched: %s", blockNumber, res.Error.Message)
		}
		var raw rpcBlock
		if err := res.GetObject(&raw); err != nil {
			return fmt.Errorf("block %d: %w", blockNumber, err)
		}
		blocks[strconv.FormatUint(blockNumber, 10)] = simplifyBlock(&raw)
	}
	return nil
}

// backfillGasUsed fills Transaction.GasUsed from eth_getBlockReceipts, which
// blocks themselves do not carry.
func (c *Client) backfillGasUsed(ctx context.Context, startBlock, endBlock uint64, blocks map[string]*searcherdb.Block) error {
	for batchStart := startBlock; batchStart <= endBlock; batchStart += receiptBatchSize {
		batchEnd := batchStart + receiptBatchSize - 1
		if batchEnd > endBlock {
			batchEnd = endBlock
		}

		requests := make(jsonrpc.RPCRequests, 0, batchEnd-batchStart+1)
		for n := batchStart; n <= batchEnd; n++ {
			requests = append(requests, jsonrpc.NewRequest("eth_getBlockReceipts", hexutil.EncodeUint64(n)))
		}
		responses, err := c.callBatchWithRetry(ctx, requests)
		if err != nil {
			return err
		}

		byID := responses.AsMap()
		for i := range requests {
			blockNumber := strconv.FormatUint(batchStart+uint64(i), 10)
			res, ok := byID[i]
			if !ok || res.Error != nil {
				continue
			}
			block, ok := blocks[blockNumber]
			if !ok {
				continue
			}
			var receipts []rpcReceipt
			if err := res.GetObject(&receipts); err != nil {
				return fmt.Errorf("receipts for block %s: %w", blockNumber, err)
			}
			for _, receipt := range receipts {
				idx := int(receipt.TransactionIndex)
				if idx < len(block.Transactions) {
					block.Transactions[idx].GasUsed = float64(receipt.GasUsed)
				}
			}
		}
	}
	return nil
}

func (c *Client) callBatchWithRetry(ctx context.Context, requests jsonrpc.RPCRequests) (jsonrpc.RPCResponses, error) {
	var responses jsonrpc.RPCResponses
	operation := func() error {
		var err error
		responses, err = c.rpc.CallBatch(ctx, requests)
		if err != nil {
			c.log.Warn("Batch RPC call failed, retrying", zap.Error(err))
		}
		return err
	}
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return responses, nil
}

// simplifyBlock keeps only the fields attribution needs, converting wire hex
// quantities to native numbers the way the core's data model expects.
func simplifyBlock(raw *rpcBlock) *searcherdb.Block {
	block := &searcherdb.Block{
		Hash:          raw.Hash,
		ExtraData:     raw.ExtraData,
		FeeRecipient:  raw.Miner,
		BaseFeePerGas: bigToFloat(raw.BaseFeePerGas),
		GasUsed:       uint64(raw.GasUsed),
		Transactions:  make([]searcherdb.Transaction, 0, len(raw.Transactions)),
	}
	for _, tx := range raw.Transactions {
		to := tx.To
		if to == "" {
			// contract creation
			to = "0x0"
		}
		block.Transactions = append(block.Transactions, searcherdb.Transaction{
			Index:    int(tx.TransactionIndex),
			Hash:     tx.Hash,
			From:     tx.From,
			To:       to,
			Gas:      uint64(tx.Gas),
			GasPrice: bigToFloat(tx.GasPrice),
			Value:    bigToFloat(tx.Value),
		})
	}
	return block
}

func bigToFloat(v *hexutil.Big) float64 {
	if v == nil {
		return 0
	}
	f, _ := new(big.Float).SetInt(v.ToInt()).Float64()
	return f
}
