package client

import (
	"context"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farm_poller/internal/domain/entity"
)

var (
	masterChefAddr = common.HexToAddress("0x0000000000000000000000000000000000000001")
	lpAddr         = common.HexToAddress("0x0000000000000000000000000000000000000010")
	cakeAddr       = common.HexToAddress("0x0000000000000000000000000000000000000020")
	wbnbAddr       = common.HexToAddress("0x0000000000000000000000000000000000000030")
	userAddr       = common.HexToAddress("0x00000000000000000000000000000000000000aa")
)

var cakeBnbFarm = entity.FarmConfig{
	Pid:        2,
	LpSymbol:   "CAKE-BNB LP",
	LpAddress:  lpAddr.Hex(),
	Token:      entity.Token{Symbol: "CAKE", Address: cakeAddr.Hex(), Decimals: 18},
	QuoteToken: entity.Token{Symbol: "WBNB", Address: wbnbAddr.Hex(), Decimals: 18},
}

func e18(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1_000_000_000_000_000_000))
}

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeChain answers eth_call from a table of (to, calldata) → return data.
type fakeChain struct {
	mu      sync.Mutex
	results map[string]string
	batches atomic.Int32
}

func newFakeChain(t *testing.T) (*fakeChain, *httptest.Server) {
	t.Helper()
	initParsedABIs()
	f := &fakeChain{results: make(map[string]string)}
	srv := httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(srv.Close)
	return f, srv
}

func (f *fakeChain) expect(t *testing.T, to common.Address, a abi.ABI, method string, args []any, outputs ...any) {
	t.Helper()
	data, err := a.Pack(method, args...)
	require.NoError(t, err)
	out, err := a.Methods[method].Outputs.Pack(outputs...)
	require.NoError(t, err)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[strings.ToLower(to.Hex())+":"+hexutil.Encode(data)] = hexutil.Encode(out)
}

func (f *fakeChain) answer(req rpcRequest) rpcResponse {
	resp := rpcResponse{JSONRPC: "2.0", ID: req.ID}
	if req.Method != "eth_call" || len(req.Params) == 0 {
		resp.Error = &rpcError{Code: -32601, Message: "method not found"}
		return resp
	}
	var call struct {
		To   string `json:"to"`
		Data string `json:"data"`
	}
	if err := json.Unmarshal(req.Params[0], &call); err != nil {
		resp.Error = &rpcError{Code: -32602, Message: err.Error()}
		return resp
	}

	f.mu.Lock()
	result, ok := f.results[strings.ToLower(call.To)+":"+strings.ToLower(call.Data)]
	f.mu.Unlock()
	if !ok {
		resp.Error = &rpcError{Code: -32000, Message: "execution reverted"}
		return resp
	}
	resp.Result = result
	return resp
}

func (f *fakeChain) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")

	trimmed := strings.TrimSpace(string(body))
	if strings.HasPrefix(trimmed, "[") {
		f.batches.Add(1)
		var reqs []rpcRequest
		_ = json.Unmarshal(body, &reqs)
		resps := make([]rpcResponse, len(reqs))
		for i, req := range reqs {
			resps[i] = f.answer(req)
		}
		_ = json.NewEncoder(w).Encode(resps)
		return
	}

	var req rpcRequest
	_ = json.Unmarshal(body, &req)
	_ = json.NewEncoder(w).Encode(f.answer(req))
}

func (f *fakeChain) seedPublic(t *testing.T) {
	f.expect(t, masterChefAddr, parsedMasterChefABI, "totalAllocPoint", nil, big.NewInt(1000))
	f.expect(t, masterChefAddr, parsedMasterChefABI, "cakePerBlock", nil, e18(40))
	f.expect(t, cakeAddr, parsedERC20ABI, "balanceOf", []any{lpAddr}, e18(1000))
	f.expect(t, wbnbAddr, parsedERC20ABI, "balanceOf", []any{lpAddr}, e18(10))
	f.expect(t, lpAddr, parsedERC20ABI, "balanceOf", []any{masterChefAddr}, e18(50))
	f.expect(t, lpAddr, parsedERC20ABI, "totalSupply", nil, e18(100))
	f.expect(t, masterChefAddr, parsedMasterChefABI, "poolInfo", []any{big.NewInt(2)},
		lpAddr, big.NewInt(400), big.NewInt(0), big.NewInt(0))
}

func newTestEVMClient(t *testing.T, srv *httptest.Server, batchSize int) *EVMClient {
	t.Helper()
	rc, err := rpc.DialContext(context.Background(), srv.URL)
	require.NoError(t, err)
	t.Cleanup(rc.Close)

	c, err := NewEVMClient(rc, entity.NetworkDefinition{
		ChainID:           56,
		Name:              "test",
		MasterChefAddress: masterChefAddr.Hex(),
	}, BatchConfig{CallTimeout: time.Second, MaxBatchSize: batchSize, MaxConcurrent: 2})
	require.NoError(t, err)
	return c
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestEVMClient_FetchPoolLength(t *testing.T) {
	chain, srv := newFakeChain(t)
	chain.expect(t, masterChefAddr, parsedMasterChefABI, "poolLength", nil, big.NewInt(42))

	n, err := newTestEVMClient(t, srv, 10).FetchPoolLength(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestEVMClient_FetchPublicFarmData(t *testing.T) {
	chain, srv := newFakeChain(t)
	chain.seedPublic(t)

	got, err := newTestEVMClient(t, srv, 2).FetchPublicFarmData(context.Background(), []entity.FarmConfig{cakeBnbFarm})
	require.NoError(t, err)
	require.Contains(t, got, 2)

	snap := got[2]
	assert.True(t, dec("400").Equal(snap.AllocPoint))
	assert.True(t, dec("0.4").Equal(snap.PoolWeight), snap.PoolWeight.String())
	assert.Equal(t, "4X", snap.Multiplier)
	assert.True(t, dec("16").Equal(snap.RewardPerBlock), snap.RewardPerBlock.String())
	assert.True(t, dec("0.01").Equal(snap.TokenPriceVsQuote), snap.TokenPriceVsQuote.String())
	assert.True(t, dec("1000").Equal(snap.TokenAmountTotal))
	assert.True(t, dec("10").Equal(snap.QuoteTokenAmountTotal))
	assert.True(t, dec("100").Equal(snap.LpTotalSupply))
	assert.True(t, dec("50").Equal(snap.LpTokenBalanceMC))
	assert.True(t, dec("10").Equal(snap.LpTotalInQuoteToken), snap.LpTotalInQuoteToken.String())
	assert.False(t, snap.FetchedAt.IsZero())

	// 7 calls in chunks of 2.
	assert.Equal(t, int32(4), chain.batches.Load())
}

func TestEVMClient_FetchUserFarmData(t *testing.T) {
	chain, srv := newFakeChain(t)
	chain.expect(t, lpAddr, parsedERC20ABI, "allowance", []any{userAddr, masterChefAddr}, e18(5))
	chain.expect(t, lpAddr, parsedERC20ABI, "balanceOf", []any{userAddr}, e18(2))
	chain.expect(t, masterChefAddr, parsedMasterChefABI, "userInfo", []any{big.NewInt(2), userAddr}, e18(3), big.NewInt(0))
	chain.expect(t, masterChefAddr, parsedMasterChefABI, "pendingCake", []any{big.NewInt(2), userAddr}, big.NewInt(700_000_000_000_000_000))

	got, err := newTestEVMClient(t, srv, 100).FetchUserFarmData(context.Background(), userAddr.Hex(), []entity.FarmConfig{cakeBnbFarm})
	require.NoError(t, err)

	u := got[2]
	assert.Equal(t, 2, u.Pid)
	assert.True(t, dec("5").Equal(u.Allowance))
	assert.True(t, dec("2").Equal(u.TokenBalance))
	assert.True(t, dec("3").Equal(u.StakedBalance))
	assert.True(t, dec("0.7").Equal(u.Earnings))
}

func TestEVMClient_FailedCallFailsFetch(t *testing.T) {
	_, srv := newFakeChain(t)

	_, err := newTestEVMClient(t, srv, 10).FetchPublicFarmData(context.Background(), []entity.FarmConfig{cakeBnbFarm})
	assert.ErrorContains(t, err, "execution reverted")
}

func TestEVMClient_InvalidAccount(t *testing.T) {
	_, srv := newFakeChain(t)

	_, err := newTestEVMClient(t, srv, 10).FetchUserFarmData(context.Background(), "0xABC", []entity.FarmConfig{cakeBnbFarm})
	assert.ErrorIs(t, err, entity.ErrInvalidAccount)
}

func TestNewEVMClient_RequiresMasterChef(t *testing.T) {
	_, err := NewEVMClient(nil, entity.NetworkDefinition{ChainID: 1, Name: "eth"}, BatchConfig{})
	assert.Error(t, err)
}
