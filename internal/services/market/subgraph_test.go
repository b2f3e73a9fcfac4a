package market

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/itsib/hyper-dex-swap-node/internal/domain"
)

const balancerPoolsResponse = `{"data":{"pools":[
  {"id":"0x1eff8af5d577060ba4ac8a29a13525bb0ee2a3d5","swapFee":"0.0025","totalWeight":"50",
   "tokensList":["0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","0x6b175474e89094c44da98b954eedeac495271d0f"],
   "tokens":[
     {"address":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","balance":"12.5","decimals":18,"denormWeight":"40"},
     {"address":"0x6b175474e89094c44da98b954eedeac495271d0f","balance":"30000","decimals":18,"denormWeight":"10"}
   ]},
  {"id":"0x9b208194acc0a8ccb2a8dcafeacfbb7dcc093f81","swapFee":"0.001","totalWeight":"2",
   "tokensList":["0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","0x6b175474e89094c44da98b954eedeac495271d0f"],
   "tokens":[
     {"address":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","balance":"0","decimals":18,"denormWeight":"1"},
     {"address":"0x6b175474e89094c44da98b954eedeac495271d0f","balance":"10","decimals":18,"denormWeight":"1"}
   ]}
]}}`

const balancerV2PoolsResponse = `{"data":{"pools":[
  {"id":"0x0b09dea16768f0799065c475be02919503cb2a3500020000000000000000001a","swapFee":"0.003","amp":null,
   "tokensList":["0x6b175474e89094c44da98b954eedeac495271d0f","0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"],
   "tokens":[
     {"address":"0x6b175474e89094c44da98b954eedeac495271d0f","balance":"1000","decimals":18,"weight":"0.4"},
     {"address":"0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2","balance":"2","decimals":18,"weight":"0.6"}
   ]}
]}}`

func subgraphServer(t *testing.T, body string, check func(req map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]interface{}
		require.NoError(t, sonic.Unmarshal(raw, &req))
		if check != nil {
			check(req)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestBalancerFetchPoolsForPair(t *testing.T) {
	srv := subgraphServer(t, balancerPoolsResponse, func(req map[string]interface{}) {
		require.Contains(t, req["query"], "tokensList_contains")
		vars := req["variables"].(map[string]interface{})
		require.Equal(t, []interface{}{strings.ToLower(weth.Hex()), strings.ToLower(dai.Hex())}, vars["tokens"])
	})
	f := NewBalancerFetcher(NewSubgraphClient(srv.URL, srv.Client()), 0)

	pools, err := f.FetchPoolsForPair(context.Background(), weth, dai)
	require.NoError(t, err)
	require.Len(t, pools, 1)

	p := pools[0]
	require.Equal(t, "0x1eff8af5d577060ba4ac8a29a13525bb0ee2a3d5", p.ID)
	require.Equal(t, common.HexToAddress(p.ID), p.Address)
	require.Equal(t, "12500000000000000000", p.BalanceIn.String())
	require.Equal(t, "30000000000000000000000", p.BalanceOut.String())
	require.Equal(t, "800000000000000000", p.WeightIn.String())
	require.Equal(t, "200000000000000000", p.WeightOut.String())
	require.Equal(t, "2500000000000000", p.SwapFee.String())
	require.True(t, p.HasFlags(domain.FlagWeighted))

	top, err := f.FetchTopPools(context.Background())
	require.NoError(t, err)
	require.Nil(t, top)
}

func TestBalancerV2FetchTopPools(t *testing.T) {
	srv := subgraphServer(t, balancerV2PoolsResponse, func(req map[string]interface{}) {
		vars := req["variables"].(map[string]interface{})
		require.EqualValues(t, 250, vars["topPoolsFetched"])
	})
	f := NewBalancerV2Fetcher(NewSubgraphClient(srv.URL, srv.Client()), 250)

	pools, err := f.FetchTopPools(context.Background())
	require.NoError(t, err)
	require.Len(t, pools, 2)

	require.Equal(t, dai, pools[0].TokenIn)
	require.Equal(t, weth, pools[0].TokenOut)
	require.Equal(t, common.HexToAddress("0x0b09dea16768f0799065c475be02919503cb2a35"), pools[0].Address)
	require.Equal(t, "400000000000000000", pools[0].WeightIn.String())
	require.Equal(t, weth, pools[1].TokenIn)
}

func TestSubgraphErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "graphql error", status: http.StatusOK, body: `{"errors":[{"message":"indexing error"}]}`},
		{name: "bad status", status: http.StatusBadGateway, body: `upstream`},
		{name: "garbage", status: http.StatusOK, body: `{"data":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewBalancerFetcher(NewSubgraphClient(srv.URL, srv.Client()), 0)
			_, err := f.FetchPoolsForPair(context.Background(), weth, dai)
			require.ErrorIs(t, err, ErrSubgraph)
		})
	}
}
