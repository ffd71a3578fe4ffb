package blockfetch

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/cenkalti/backoff/v4"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/searcherdash/searcherdb-node/searcherdb"
)

const transferWorkers = 16

type assetTransfersParams struct {
	FromBlock string   `json:"fromBlock"`
	ToBlock   string   `json:"toBlock"`
	ToAddress string   `json:"toAddress"`
	Category  []string `json:"category"`
}

type assetTransfer struct {
	Hash  string   `json:"hash"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Value *float64 `json:"value"`
}

type assetTransfersResult struct {
	Transfers []assetTransfer `json:"transfers"`
}

// GetInternalTransfers collects internal transfers paid to each block's fee
// recipient, keyed by decimal block number and then transaction hash. The
// endpoint must support alchemy_getAssetTransfers.
func (c *Client) GetInternalTransfers(ctx context.Context, blocks map[string]*searcherdb.Block) (map[string]searcherdb.TransferMap, error) {
	transfersByBlock := make(map[string]searcherdb.TransferMap, len(blocks))
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(transferWorkers)

	for blockNumber, block := range blocks {
		blockNumber, block := blockNumber, block
		g.Go(func() error {
			transfers, err := c.fetchBlockTransfers(ctx, blockNumber, block.FeeRecipient)
			if err != nil {
				return fmt.Errorf("transfers for block %s: %w", blockNumber, err)
			}
			mu.Lock()
			transfersByBlock[blockNumber] = transfers
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return transfersByBlock, nil
}

func (c *Client) fetchBlockTransfers(ctx context.Context, blockNumber, feeRecipient string) (searcherdb.TransferMap, error) {
	n, err := strconv.ParseUint(blockNumber, 10, 64)
	if err != nil {
		return nil, err
	}
	params := assetTransfersParams{
		FromBlock: hexutil.EncodeUint64(n),
		ToBlock:   hexutil.EncodeUint64(n),
		ToAddress: feeRecipient,
		Category:  []string{"internal"},
	}

	var result assetTransfersResult
	operation := func() error {
		res, err := c.rpc.Call(ctx, "alchemy_getAssetTransfers", params)
		if err != nil {
			c.log.Warn("Asset transfer call failed, retrying", zap.String("block", blockNumber), zap.Error(err))
			return err
		}
		if res.Error != nil {
			return backoff.Permanent(fmt.Errorf("rpc error %d: %s", res.Error.Code, res.Error.Message))
		}
		return res.GetObject(&result)
	}
	err = backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), maxRetries), ctx))
	if err != nil {
		return nil, err
	}

	transfers := make(searcherdb.TransferMap, len(result.Transfers))
	for _, t := range result.Transfers {
		value := 0.0
		if t.Value != nil {
			value = *t.Value
		}
		transfers[strings.ToLower(t.Hash)] = searcherdb.InternalTransfer{
			From:  strings.ToLower(t.From),
			To:    strings.ToLower(t.To),
			Value: value,
		}
	}
	return transfers, nil
}
