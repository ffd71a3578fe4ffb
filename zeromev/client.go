// Package zeromev is a client for the zeromev MEV-classification feed. It
// returns the flagged-transaction records for one block at a time, with
// bounded retries, client-side rate limiting and a pluggable response cache.
package zeromev

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/searcherdash/searcherdb-node/metrics"
	"github.com/searcherdash/searcherdb-node/searcherdb"
)

const (
	DefaultBaseURL = "https://data.zeromev.org"

	mevBlockPath = "/v1/mevBlock"

	maxRetries     = 5
	initialBackoff = time.Second
	requestTimeout = 30 * time.Second
)

var ErrFeedUnavailable = errors.New("mev feed unavailable")

type Client struct {
	log        *zap.Logger
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	cache      Cache
}

// NewClient builds a feed client. cache may be nil to disable caching;
// requestsPerSecond bounds outbound request rate across all block workers.
func NewClient(log *zap.Logger, baseURL string, requestsPerSecond float64, cache Cache) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if requestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(requestsPerSecond), 1)
	}
	return &Client{
		log:        log,
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
		limiter:    limiter,
		cache:      cache,
	}
}

// MevBlock returns all MEV-flagged transactions in the block. A non-2xx
// response after the retry budget is an error; the attribution layer treats
// it as feed unavailability, not as fatal to the batch.
func (c *Client) MevBlock(ctx context.Context, blockNumber string) ([]searcherdb.MevEvent, error) {
	if c.cache != nil {
		if events, ok := c.cache.Get(ctx, blockNumber); ok {
			metrics.IncFeedCacheHits()
			return events, nil
		}
		metrics.IncFeedCacheMisses()
	}

	var events []searcherdb.MevEvent
	operation := func() error {
		// every outbound attempt counts against the rate limit, retries
		// included
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}
		var err error
		events, err = c.fetchMevBlock(ctx, blockNumber)
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = initialBackoff
	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(bo, maxRetries), ctx))
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.Set(ctx, blockNumber, events)
	}
	return events, nil
}

func (c *Client) fetchMevBlock(ctx context.Context, blockNumber string) ([]searcherdb.MevEvent, error) {
	u, err := url.Parse(c.baseURL + mevBlockPath)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	q := u.Query()
	q.Set("block_number", blockNumber)
	q.Set("count", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, backoff.Permanent(err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode != http.StatusOK {
		c.log.Warn("MEV feed returned non-200",
			zap.Int("status", res.StatusCode), zap.String("block", blockNumber))
		err := fmt.Errorf("%w: status %d for block %s", ErrFeedUnavailable, res.StatusCode, blockNumber)
		if res.StatusCode >= 400 && res.StatusCode < 500 && res.StatusCode != http.StatusTooManyRequests {
			return nil, backoff.Permanent(err)
		}
		return nil, err
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, err
	}
	var events []searcherdb.MevEvent
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, backoff.Permanent(fmt.Errorf("%w: %s", ErrFeedUnavailable, err))
	}
	return events, nil
}
