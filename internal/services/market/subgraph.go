package market

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

var ErrSubgraph = errors.New("subgraph query failed")

const (
	balancerPairQuery = `query fetchPools($tokens: [Bytes!]) {
  pools(first: 1000, where: {tokensList_contains: $tokens, publicSwap: true}) {
    id publicSwap swapFee totalWeight tokensList
    tokens { id address balance decimals symbol denormWeight }
  }
}`
	balancerTopPoolsQuery = `query fetchTopPools($topPoolsFetched: Int!) {
  pools(first: $topPoolsFetched, where: {publicSwap: true, liquidity_gt: 0}, orderBy: swapsCount, orderDirection: desc) {
    id publicSwap swapFee totalWeight tokensList
    tokens { id address balance decimals symbol denormWeight }
  }
}`
	balancerV2PairQuery = `query fetchPools($tokens: [Bytes!]) {
  pools(first: 1000, where: {tokensList_contains: $tokens, totalLiquidity_gt: 0}) {
    id swapFee totalWeight amp tokensList
    tokens { address balance decimals weight }
  }
}`
	balancerV2TopPoolsQuery = `query fetchTopPools($topPoolsFetched: Int!) {
  pools(first: $topPoolsFetched, where: {totalLiquidity_gt: 0}, orderBy: swapsCount, orderDirection: desc) {
    id swapFee totalWeight amp totalShares tokensList
    tokens { id address balance decimals symbol weight }
  }
}`
)

// HTTPDoer abstracts http.Client for tests.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SubgraphClient posts GraphQL queries to a hosted subgraph.
type SubgraphClient struct {
	url    string
	client HTTPDoer
}

func NewSubgraphClient(url string, client HTTPDoer) *SubgraphClient {
	if client == nil {
		client = http.DefaultClient
	}
	return &SubgraphClient{url: strings.TrimSpace(url), client: client}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse[T any] struct {
	Data   T              `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Query decodes the data member of the response into out.
func Query[T any](ctx context.Context, c *SubgraphClient, query string, variables map[string]interface{}) (T, error) {
	var zero T
	body, err := sonic.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return zero, fmt.Errorf("%w: encode: %v", ErrSubgraph, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return zero, fmt.Errorf("%w: %v", ErrSubgraph, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return zero, fmt.Errorf("%w: %w", ErrSubgraph, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("%w: read: %v", ErrSubgraph, err)
	}
	if resp.StatusCode != http.StatusOK {
		if len(raw) > 512 {
			raw = raw[:512]
		}
		return zero, fmt.Errorf("%w: status %d: %s", ErrSubgraph, resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var out graphQLResponse[T]
	if err := sonic.Unmarshal(raw, &out); err != nil {
		return zero, fmt.Errorf("%w: decode: %v", ErrSubgraph, err)
	}
	if len(out.Errors) > 0 {
		return zero, fmt.Errorf("%w: %s", ErrSubgraph, out.Errors[0].Message)
	}
	return out.Data, nil
}

type rawPoolToken struct {
	Address      string `json:"address"`
	Balance      string `json:"balance"`
	Decimals     int32  `json:"decimals"`
	DenormWeight string `json:"denormWeight"`
	Weight       string `json:"weight"`
}

type rawPool struct {
	ID          string         `json:"id"`
	SwapFee     string         `json:"swapFee"`
	TotalWeight string         `json:"totalWeight"`
	Amp         string         `json:"amp"`
	TokensList  []string       `json:"tokensList"`
	Tokens      []rawPoolToken `json:"tokens"`
}

type rawPools struct {
	Pools []rawPool `json:"pools"`
}

type balancerVersion uint8

const (
	balancerV1 balancerVersion = iota
	balancerV2
)

// BalancerSubgraphFetcher serves Balancer style venues (Balancer, Cream,
// Balancer V2) from their subgraphs.
type BalancerSubgraphFetcher struct {
	client   *SubgraphClient
	version  balancerVersion
	topPools int
}

// NewBalancerFetcher builds a fetcher for the v1 pool schema shared by
// Balancer and Cream. topPools == 0 disables warmup.
func NewBalancerFetcher(client *SubgraphClient, topPools int) *BalancerSubgraphFetcher {
	return &BalancerSubgraphFetcher{client: client, version: balancerV1, topPools: topPools}
}

func NewBalancerV2Fetcher(client *SubgraphClient, topPools int) *BalancerSubgraphFetcher {
	return &BalancerSubgraphFetcher{client: client, version: balancerV2, topPools: topPools}
}

func (f *BalancerSubgraphFetcher) FetchPoolsForPair(ctx context.Context, takerToken, makerToken common.Address) ([]domain.Pool, error) {
	query := balancerPairQuery
	if f.version == balancerV2 {
		query = balancerV2PairQuery
	}
	data, err := Query[rawPools](ctx, f.client, query, map[string]interface{}{
		"tokens": []string{lowerHex(takerToken), lowerHex(makerToken)},
	})
	if err != nil {
		return nil, err
	}

	pools := make([]domain.Pool, 0, len(data.Pools))
	for i := range data.Pools {
		if pool, ok := f.parsePool(&data.Pools[i], takerToken, makerToken); ok {
			pools = append(pools, pool)
		}
	}
	return pools, nil
}

func (f *BalancerSubgraphFetcher) FetchTopPools(ctx context.Context) ([]domain.Pool, error) {
	if f.topPools <= 0 {
		return nil, nil
	}
	query := balancerTopPoolsQuery
	if f.version == balancerV2 {
		query = balancerV2TopPoolsQuery
	}
	data, err := Query[rawPools](ctx, f.client, query, map[string]interface{}{
		"topPoolsFetched": f.topPools,
	})
	if err != nil {
		return nil, err
	}

	var pools []domain.Pool
	for i := range data.Pools {
		raw := &data.Pools[i]
		for _, from := range raw.TokensList {
			for _, to := range raw.TokensList {
				if strings.EqualFold(from, to) {
					continue
				}
				if pool, ok := f.parsePool(raw, common.HexToAddress(from), common.HexToAddress(to)); ok {
					pools = append(pools, pool)
				}
			}
		}
	}
	return pools, nil
}

// parsePool projects a subgraph pool onto one ordered pair. Balances are
// scaled to base units and weights and fees to 18 decimals.
func (f *BalancerSubgraphFetcher) parsePool(raw *rawPool, takerToken, makerToken common.Address) (domain.Pool, bool) {
	in, okIn := findToken(raw.Tokens, takerToken)
	out, okOut := findToken(raw.Tokens, makerToken)
	if !okIn || !okOut {
		return domain.Pool{}, false
	}

	pool := domain.Pool{
		ID:         raw.ID,
		TokenIn:    takerToken,
		TokenOut:   makerToken,
		BalanceIn:  parseDecimal(in.Balance).Shift(in.Decimals),
		BalanceOut: parseDecimal(out.Balance).Shift(out.Decimals),
		SwapFee:    parseDecimal(raw.SwapFee).Shift(18),
	}

	switch f.version {
	case balancerV1:
		pool.Address = common.HexToAddress(raw.ID)
		total := parseDecimal(raw.TotalWeight)
		if total.IsPositive() {
			pool.WeightIn = parseDecimal(in.DenormWeight).Div(total).Shift(18)
			pool.WeightOut = parseDecimal(out.DenormWeight).Div(total).Shift(18)
		}
		pool.Flags = domain.FlagWeighted
	case balancerV2:
		// the first 20 bytes of a v2 pool id are the pool address
		pool.Address = common.BytesToAddress(common.HexToHash(raw.ID).Bytes()[:20])
		pool.WeightIn = parseDecimal(in.Weight).Shift(18)
		pool.WeightOut = parseDecimal(out.Weight).Shift(18)
		if pool.WeightIn.IsPositive() && pool.WeightOut.IsPositive() {
			pool.Flags = domain.FlagWeighted
		} else if raw.Amp != "" {
			pool.Flags = domain.FlagStable
		}
	}

	if !pool.IsTradable() {
		return domain.Pool{}, false
	}
	return pool, true
}

func findToken(tokens []rawPoolToken, token common.Address) (rawPoolToken, bool) {
	for _, t := range tokens {
		if common.HexToAddress(t.Address) == token {
			return t, true
		}
	}
	return rawPoolToken{}, false
}

func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func lowerHex(a common.Address) string {
	return strings.ToLower(a.Hex())
}
