// Package marketdata implements the aggregator client contract: chunked,
// deduplicated, bisect-on-failure batch fetching of pair data, plus the
// trending-universe discovery used by the selection stage.
package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/bitly/go-simplejson"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/trendrunner/tokentrader/config"
	"github.com/trendrunner/tokentrader/internal/logx"
	"github.com/trendrunner/tokentrader/internal/types"
)

var log = logx.New("marketdata")

// Client is the market data client contract: trending universe fetch,
// pair enrichment, and live price lookups.
type Client struct {
	cfg  *config.Settings
	http *http.Client
	sf   singleflight.Group
}

func NewClient(cfg *config.Settings) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSec) * time.Second,
		},
	}
}

// dedupeAddresses removes duplicates, preserving first-seen order, and caps
// the total at cfg.AggregatorMaxAddrs.
func (c *Client) dedupeAddresses(addresses []string) []string {
	seen := make(map[string]bool, len(addresses))
	out := make([]string, 0, len(addresses))
	for _, a := range addresses {
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		out = append(out, a)
		if len(out) >= c.cfg.AggregatorMaxAddrs {
			break
		}
	}
	return out
}

func chunk(addresses []string, size int) [][]string {
	if size <= 0 {
		size = 30
	}
	var chunks [][]string
	for i := 0; i < len(addresses); i += size {
		end := i + size
		if end > len(addresses) {
			end = len(addresses)
		}
		chunks = append(chunks, addresses[i:end])
	}
	return chunks
}

// FetchPairsByAddresses returns, for every requested address, the pairs the
// aggregator reports. Failures and empty responses for a sub-batch trigger
// a recursive bisect so a single bad address never blanks a whole chunk.
func (c *Client) FetchPairsByAddresses(ctx context.Context, addresses []string) (map[string][]Pair, error) {
	addresses = c.dedupeAddresses(addresses)
	result := make(map[string][]Pair)
	if len(addresses) == 0 {
		return result, nil
	}

	chunks := chunk(addresses, c.cfg.AggregatorChunkSize)
	g, gctx := errgroup.WithContext(ctx)
	resultsCh := make(chan map[string][]Pair, len(chunks))

	for _, batch := range chunks {
		batch := batch
		g.Go(func() error {
			r, err := c.fetchBatchBisecting(gctx, batch)
			if err != nil {
				// Transient-external: log-and-skip, the rest of the
				// universe proceeds.
				log.Printf("chunk of %d addresses failed after bisect: %v", len(batch), err)
				return nil
			}
			resultsCh <- r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(resultsCh)
	for r := range resultsCh {
		for k, v := range r {
			result[k] = v
		}
	}
	return result, nil
}

// fetchBatchBisecting fetches one batch; on HTTP 400/413/414 or a null
// "pairs" payload for a multi-address batch, it bisects and merges.
func (c *Client) fetchBatchBisecting(ctx context.Context, addresses []string) (map[string][]Pair, error) {
	if len(addresses) == 0 {
		return map[string][]Pair{}, nil
	}

	pairs, nullPayload, statusErr, err := c.fetchRaw(ctx, addresses)
	if err != nil {
		if len(addresses) == 1 {
			return nil, err
		}
		return c.bisect(ctx, addresses)
	}
	if statusErr == 400 || statusErr == 413 || statusErr == 414 {
		if len(addresses) == 1 {
			return map[string][]Pair{addresses[0]: nil}, nil
		}
		return c.bisect(ctx, addresses)
	}
	if nullPayload {
		if len(addresses) == 1 {
			return map[string][]Pair{addresses[0]: nil}, nil
		}
		return c.bisect(ctx, addresses)
	}

	grouped := make(map[string][]Pair, len(addresses))
	for _, a := range addresses {
		grouped[a] = nil
	}
	for _, p := range pairs {
		grouped[p.BaseAddress] = append(grouped[p.BaseAddress], p)
	}
	return grouped, nil
}

func (c *Client) bisect(ctx context.Context, addresses []string) (map[string][]Pair, error) {
	if len(addresses) <= 1 {
		return c.fetchBatchBisecting(ctx, addresses)
	}
	mid := len(addresses) / 2
	left, err := c.fetchBatchBisecting(ctx, addresses[:mid])
	if err != nil {
		return nil, err
	}
	right, err := c.fetchBatchBisecting(ctx, addresses[mid:])
	if err != nil {
		return nil, err
	}
	for k, v := range right {
		left[k] = v
	}
	return left, nil
}

// fetchRaw issues one HTTP call with a small backoff-guarded retry (two
// attempts) for network errors, 5xx responses and body-read failures.
// 400/413/414 are returned as a status without retry, for the caller to
// decide whether to bisect.
func (c *Client) fetchRaw(ctx context.Context, addresses []string) (pairs []Pair, nullPayload bool, httpStatus int, err error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.cfg.AggregatorBaseURL, joinAddresses(addresses))

	b := &backoff.Backoff{Min: 200 * time.Millisecond, Max: 1500 * time.Millisecond, Factor: 2, Jitter: true}
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if reqErr != nil {
			return nil, false, 0, reqErr
		}
		resp, doErr := c.http.Do(req)
		if doErr != nil {
			lastErr = doErr
			time.Sleep(b.Duration())
			continue
		}
		defer resp.Body.Close()

		if resp.StatusCode == 400 || resp.StatusCode == 413 || resp.StatusCode == 414 {
			return nil, false, resp.StatusCode, nil
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("aggregator 5xx: %d", resp.StatusCode)
			time.Sleep(b.Duration())
			continue
		}
		if resp.StatusCode != 200 {
			return nil, false, resp.StatusCode, fmt.Errorf("aggregator status %d", resp.StatusCode)
		}

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			lastErr = readErr
			time.Sleep(b.Duration())
			continue
		}

		j, parseErr := simplejson.NewJson(body)
		if parseErr != nil {
			return nil, false, 0, parseErr
		}
		pairsNode, ok := j.CheckGet("pairs")
		if !ok || pairsNode.Interface() == nil {
			return nil, true, 200, nil
		}
		arr, arrErr := pairsNode.Array()
		if arrErr != nil {
			return nil, true, 200, nil
		}
		out := make([]Pair, 0, len(arr))
		for i := range arr {
			p, ok := parsePair(pairsNode.GetIndex(i))
			if ok {
				out = append(out, p)
			}
		}
		return out, false, 200, nil
	}
	return nil, false, 0, lastErr
}

func parsePair(j *simplejson.Json) (Pair, bool) {
	chain, _ := tolerantString(j, "chainId")
	pairAddr, _ := tolerantString(j, "pairAddress")
	baseAddr, _ := tolerantString(j, "baseToken", "address")
	baseSym, _ := tolerantString(j, "baseToken", "symbol")
	if baseAddr == "" {
		return Pair{}, false
	}

	priceUSD, _ := tolerantFloat(j, "priceUsd")
	priceNative, _ := tolerantFloat(j, "priceNative")
	liq, _ := tolerantFloat(j, "liquidity", "usd")
	createdAt, _ := tolerantInt(j, "pairCreatedAt")

	vol := map[types.Window]float64{}
	pct := map[types.Window]float64{}
	txns := map[types.Window]types.TxnBucket{}
	for key, w := range map[string]types.Window{"m5": types.Window5m, "h1": types.Window1h, "h6": types.Window6h, "h24": types.Window24h} {
		if v, ok := tolerantFloat(j, "volume", key); ok {
			vol[w] = v
		}
		if v, ok := tolerantFloat(j, "priceChange", key); ok {
			pct[w] = v
		}
		buys, _ := tolerantInt(j, "txns", key, "buys")
		sells, _ := tolerantInt(j, "txns", key, "sells")
		txns[w] = types.TxnBucket{Buys: int(buys), Sells: int(sells)}
	}

	var fdv, mcap *float64
	if v, ok := tolerantFloat(j, "fdv"); ok {
		fdv = &v
	}
	if v, ok := tolerantFloat(j, "marketCap"); ok {
		mcap = &v
	}

	return Pair{
		Chain:          chain,
		PairAddress:    pairAddr,
		BaseAddress:    baseAddr,
		BaseSymbol:     baseSym,
		PriceUSD:       priceUSD,
		PriceNative:    priceNative,
		LiquidityUSD:   liq,
		VolumeUSD:      vol,
		PriceChangePct: pct,
		Txns:           txns,
		PairCreatedAt:  createdAt,
		FDV:            fdv,
		MarketCap:      mcap,
	}, true
}

func joinAddresses(addresses []string) string {
	out := ""
	for i, a := range addresses {
		if i > 0 {
			out += ","
		}
		out += a
	}
	return out
}

// FetchPricesByAddresses resolves, for every address, the best pair's USD
// price. Only strictly positive prices are emitted.
func (c *Client) FetchPricesByAddresses(ctx context.Context, addresses []string) (map[string]float64, error) {
	key := joinAddresses(c.dedupeAddresses(addresses))
	v, err, _ := c.sf.Do("prices:"+key, func() (interface{}, error) {
		byAddr, err := c.FetchPairsByAddresses(ctx, addresses)
		if err != nil {
			return nil, err
		}
		out := make(map[string]float64, len(byAddr))
		for addr, pairs := range byAddr {
			best, ok := bestPair(pairs)
			if !ok || best.PriceUSD <= 0 {
				continue
			}
			out[addr] = best.PriceUSD
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(map[string]float64), nil
}

// FetchTrendingCandidates discovers addresses across the three trending
// endpoints, resolves their best pair, normalizes, and truncates.
func (c *Client) FetchTrendingCandidates(ctx context.Context, pageSize int) ([]types.NormalizedRow, error) {
	endpoints := []string{
		"/token-profiles/latest/v1",
		"/token-boosts/latest/v1",
		"/token-boosts/top/v1",
	}

	g, gctx := errgroup.WithContext(ctx)
	addrCh := make(chan string, pageSize*4)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			addrs, err := c.fetchTrendingAddresses(gctx, ep)
			if err != nil {
				log.Printf("trending endpoint %s failed: %v", ep, err)
				return nil
			}
			for _, a := range addrs {
				addrCh <- a
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	close(addrCh)

	var addrs []string
	for a := range addrCh {
		addrs = append(addrs, a)
	}
	addrs = c.dedupeAddresses(addrs)

	byAddr, err := c.FetchPairsByAddresses(ctx, addrs)
	if err != nil {
		return nil, err
	}

	rows := make([]types.NormalizedRow, 0, len(byAddr))
	for _, pairs := range byAddr {
		best, ok := bestPair(pairs)
		if !ok {
			continue
		}
		rows = append(rows, toNormalizedRow(best))
	}

	sort.SliceStable(rows, func(i, j int) bool {
		vi, vj := rows[i].VolumeUSD[types.Window24h], rows[j].VolumeUSD[types.Window24h]
		if vi != vj {
			return vi > vj
		}
		return rows[i].LiquidityUSD > rows[j].LiquidityUSD
	})
	if pageSize > 0 && len(rows) > pageSize {
		rows = rows[:pageSize]
	}
	return rows, nil
}

func (c *Client) fetchTrendingAddresses(ctx context.Context, path string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.AggregatorBaseURL+path, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("trending endpoint status %d", resp.StatusCode)
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		j, err := simplejson.NewJson(r)
		if err != nil {
			continue
		}
		if addr, ok := tolerantString(j, "tokenAddress"); ok && addr != "" {
			out = append(out, addr)
		}
	}
	return out, nil
}
