package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"farm_poller/internal/domain/entity"
	"farm_poller/internal/pkg/metrics"
	"farm_poller/internal/pkg/utils"
)

const lpDecimals = 18

var errEmptyResult = errors.New("empty eth_call result")

// BatchConfig bounds how JSON-RPC batches are issued against one chain.
type BatchConfig struct {
	CallTimeout   time.Duration
	MaxBatchSize  int
	MaxConcurrent int
	Limiter       *rate.Limiter
}

// EVMClient reads MasterChef and ERC20 state from one EVM chain.
type EVMClient struct {
	rpcClient  *rpc.Client
	netDef     entity.NetworkDefinition
	masterChef common.Address
	batch      BatchConfig
	now        func() time.Time
}

// contractCall is one eth_call in a batch. out holds the unpacked outputs.
type contractCall struct {
	to     common.Address
	abi    *abi.ABI
	method string
	args   []any
	out    []any
	err    error
}

// NewEVMClient creates a client over an already dialled RPC connection.
func NewEVMClient(rpcClient *rpc.Client, netDef entity.NetworkDefinition, batch BatchConfig) (*EVMClient, error) {
	initParsedABIs()
	if !common.IsHexAddress(netDef.MasterChefAddress) {
		return nil, fmt.Errorf("network %s (chain %d) has no valid MasterChef address", netDef.Name, netDef.ChainID)
	}
	if batch.CallTimeout <= 0 {
		batch.CallTimeout = 10 * time.Second
	}
	if batch.MaxBatchSize <= 0 {
		batch.MaxBatchSize = 100
	}
	if batch.MaxConcurrent <= 0 {
		batch.MaxConcurrent = 1
	}
	if batch.Limiter == nil {
		batch.Limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &EVMClient{
		rpcClient:  rpcClient,
		netDef:     netDef,
		masterChef: common.HexToAddress(netDef.MasterChefAddress),
		batch:      batch,
		now:        time.Now,
	}, nil
}

// Definition returns the network definition for this client.
func (c *EVMClient) Definition() entity.NetworkDefinition {
	return c.netDef
}

// Close releases the RPC connection.
func (c *EVMClient) Close() {
	c.rpcClient.Close()
}

func (c *EVMClient) chefCall(method string, args ...any) *contractCall {
	return &contractCall{to: c.masterChef, abi: &parsedMasterChefABI, method: method, args: args}
}

func erc20Call(token string, method string, args ...any) *contractCall {
	return &contractCall{to: common.HexToAddress(token), abi: &parsedERC20ABI, method: method, args: args}
}

// FetchPoolLength returns MasterChef.poolLength().
func (c *EVMClient) FetchPoolLength(ctx context.Context) (int, error) {
	call := c.chefCall("poolLength")
	if err := c.batchCall(ctx, []*contractCall{call}); err != nil {
		return 0, err
	}
	n, err := uintOut(call, 0)
	if err != nil {
		return 0, err
	}
	return int(n.Int64()), nil
}

type publicCalls struct {
	tokenBalanceLP *contractCall
	quoteBalanceLP *contractCall
	lpBalanceMC    *contractCall
	lpTotalSupply  *contractCall
	poolInfo       *contractCall
}

// FetchPublicFarmData reads pair reserves, staked supply and pool weights for
// farms in one set of batches.
func (c *EVMClient) FetchPublicFarmData(ctx context.Context, farms []entity.FarmConfig) (map[int]entity.PublicFarmSnapshot, error) {
	totalAlloc := c.chefCall("totalAllocPoint")
	perBlock := c.chefCall("cakePerBlock")
	calls := []*contractCall{totalAlloc, perBlock}

	perFarm := make([]publicCalls, len(farms))
	for i, f := range farms {
		stakeToken := f.LpAddress
		if f.IsTokenOnly {
			stakeToken = f.Token.Address
		}
		pc := publicCalls{
			tokenBalanceLP: erc20Call(f.Token.Address, "balanceOf", common.HexToAddress(f.LpAddress)),
			quoteBalanceLP: erc20Call(f.QuoteToken.Address, "balanceOf", common.HexToAddress(f.LpAddress)),
			lpBalanceMC:    erc20Call(stakeToken, "balanceOf", c.masterChef),
			lpTotalSupply:  erc20Call(f.LpAddress, "totalSupply"),
			poolInfo:       c.chefCall("poolInfo", big.NewInt(int64(f.Pid))),
		}
		perFarm[i] = pc
		calls = append(calls, pc.tokenBalanceLP, pc.quoteBalanceLP, pc.lpBalanceMC, pc.lpTotalSupply, pc.poolInfo)
	}

	if err := c.batchCall(ctx, calls); err != nil {
		return nil, err
	}

	totalAllocPoint, err := uintOut(totalAlloc, 0)
	if err != nil {
		return nil, err
	}
	rewardPerBlock, err := uintOut(perBlock, 0)
	if err != nil {
		return nil, err
	}
	totalAllocDec := decimal.NewFromBigInt(totalAllocPoint, 0)
	emission := utils.ToDecimal(rewardPerBlock, lpDecimals)

	fetchedAt := c.now()
	out := make(map[int]entity.PublicFarmSnapshot, len(farms))
	for i, f := range farms {
		snap, err := buildPublicSnapshot(f, perFarm[i], totalAllocDec, emission)
		if err != nil {
			return nil, fmt.Errorf("farm pid %d: %w", f.Pid, err)
		}
		snap.FetchedAt = fetchedAt
		out[f.Pid] = snap
	}
	return out, nil
}

func buildPublicSnapshot(f entity.FarmConfig, pc publicCalls, totalAlloc, emission decimal.Decimal) (entity.PublicFarmSnapshot, error) {
	tokenBal, err := uintOut(pc.tokenBalanceLP, 0)
	if err != nil {
		return entity.PublicFarmSnapshot{}, err
	}
	quoteBal, err := uintOut(pc.quoteBalanceLP, 0)
	if err != nil {
		return entity.PublicFarmSnapshot{}, err
	}
	stakedBal, err := uintOut(pc.lpBalanceMC, 0)
	if err != nil {
		return entity.PublicFarmSnapshot{}, err
	}
	supply, err := uintOut(pc.lpTotalSupply, 0)
	if err != nil {
		return entity.PublicFarmSnapshot{}, err
	}
	alloc, err := uintOut(pc.poolInfo, 1)
	if err != nil {
		return entity.PublicFarmSnapshot{}, err
	}

	tokenAmount := utils.ToDecimal(tokenBal, f.Token.Decimals)
	quoteAmount := utils.ToDecimal(quoteBal, f.QuoteToken.Decimals)
	lpSupply := utils.ToDecimal(supply, lpDecimals)
	priceVsQuote := utils.SafeDiv(quoteAmount, tokenAmount)

	allocPoint := decimal.NewFromBigInt(alloc, 0)
	poolWeight := utils.SafeDiv(allocPoint, totalAlloc)

	snap := entity.PublicFarmSnapshot{
		Pid:               f.Pid,
		AllocPoint:        allocPoint,
		PoolWeight:        poolWeight,
		Multiplier:        allocPoint.Div(decimal.NewFromInt(100)).String() + "X",
		RewardPerBlock:    emission.Mul(poolWeight),
		LpTotalSupply:     lpSupply,
		TokenPriceVsQuote: priceVsQuote,
	}

	if f.IsTokenOnly {
		staked := utils.ToDecimal(stakedBal, f.Token.Decimals)
		snap.LpTokenBalanceMC = staked
		snap.TokenAmountTotal = staked
		snap.LpTotalInQuoteToken = staked.Mul(priceVsQuote)
		snap.QuoteTokenAmountTotal = snap.LpTotalInQuoteToken
		return snap, nil
	}

	staked := utils.ToDecimal(stakedBal, lpDecimals)
	ratio := utils.SafeDiv(staked, lpSupply)
	snap.LpTokenBalanceMC = staked
	snap.TokenAmountTotal = tokenAmount
	snap.QuoteTokenAmountTotal = quoteAmount
	snap.LpTotalInQuoteToken = quoteAmount.Mul(decimal.NewFromInt(2)).Mul(ratio)
	return snap, nil
}

type userCalls struct {
	allowance *contractCall
	balance   *contractCall
	userInfo  *contractCall
	pending   *contractCall
}

// FetchUserFarmData reads the account's allowance, wallet balance, stake and
// pending reward for each farm.
func (c *EVMClient) FetchUserFarmData(ctx context.Context, account string, farms []entity.FarmConfig) (map[int]entity.UserFarmSnapshot, error) {
	if !common.IsHexAddress(account) {
		return nil, fmt.Errorf("account %q: %w", account, entity.ErrInvalidAccount)
	}
	user := common.HexToAddress(account)

	perFarm := make([]userCalls, len(farms))
	calls := make([]*contractCall, 0, 4*len(farms))
	for i, f := range farms {
		stakeToken := f.LpAddress
		if f.IsTokenOnly {
			stakeToken = f.Token.Address
		}
		pid := big.NewInt(int64(f.Pid))
		uc := userCalls{
			allowance: erc20Call(stakeToken, "allowance", user, c.masterChef),
			balance:   erc20Call(stakeToken, "balanceOf", user),
			userInfo:  c.chefCall("userInfo", pid, user),
			pending:   c.chefCall("pendingCake", pid, user),
		}
		perFarm[i] = uc
		calls = append(calls, uc.allowance, uc.balance, uc.userInfo, uc.pending)
	}

	if err := c.batchCall(ctx, calls); err != nil {
		return nil, err
	}

	out := make(map[int]entity.UserFarmSnapshot, len(farms))
	for i, f := range farms {
		decimals := uint8(lpDecimals)
		if f.IsTokenOnly {
			decimals = f.Token.Decimals
		}
		uc := perFarm[i]
		values := make([]*big.Int, 4)
		for j, call := range []*contractCall{uc.allowance, uc.balance, uc.userInfo, uc.pending} {
			v, err := uintOut(call, 0)
			if err != nil {
				return nil, fmt.Errorf("farm pid %d: %w", f.Pid, err)
			}
			values[j] = v
		}
		out[f.Pid] = entity.UserFarmSnapshot{
			Pid:           f.Pid,
			Allowance:     utils.ToDecimal(values[0], decimals),
			TokenBalance:  utils.ToDecimal(values[1], decimals),
			StakedBalance: utils.ToDecimal(values[2], decimals),
			Earnings:      utils.ToDecimal(values[3], lpDecimals),
		}
	}
	return out, nil
}

// batchCall packs calls into eth_call batch requests, runs the chunks
// concurrently under the chain's rate limiter and unpacks every result. Any
// failed call fails the whole batch.
func (c *EVMClient) batchCall(ctx context.Context, calls []*contractCall) error {
	chainLabel := strconv.FormatUint(c.netDef.ChainID, 10)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.batch.MaxConcurrent)

	for _, chunk := range utils.Batch(calls, c.batch.MaxBatchSize) {
		g.Go(func() error {
			if err := c.batch.Limiter.Wait(gctx); err != nil {
				return err
			}

			elems := make([]rpc.BatchElem, len(chunk))
			for i, call := range chunk {
				data, err := call.abi.Pack(call.method, call.args...)
				if err != nil {
					return fmt.Errorf("failed to pack %s: %w", call.method, err)
				}
				elems[i] = rpc.BatchElem{
					Method: "eth_call",
					Args: []interface{}{map[string]interface{}{
						"to":   call.to,
						"data": hexutil.Bytes(data),
					}, "latest"},
					Result: new(hexutil.Bytes),
				}
			}

			callCtx, cancel := context.WithTimeout(gctx, c.batch.CallTimeout)
			defer cancel()
			if err := c.rpcClient.BatchCallContext(callCtx, elems); err != nil {
				metrics.RPCBatchTotal.WithLabelValues(chainLabel, "error").Inc()
				return fmt.Errorf("RPC batch call failed on chain %d: %w", c.netDef.ChainID, err)
			}
			metrics.RPCBatchTotal.WithLabelValues(chainLabel, "ok").Inc()

			for i, elem := range elems {
				chunk[i].err = unpackElem(chunk[i], elem)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, call := range calls {
		if call.err != nil {
			return fmt.Errorf("%s on %s: %w", call.method, call.to.Hex(), call.err)
		}
	}
	return nil
}

func unpackElem(call *contractCall, elem rpc.BatchElem) error {
	if elem.Error != nil {
		return elem.Error
	}
	raw, ok := elem.Result.(*hexutil.Bytes)
	if !ok || raw == nil || len(*raw) == 0 {
		return errEmptyResult
	}
	out, err := call.abi.Unpack(call.method, *raw)
	if err != nil {
		return fmt.Errorf("failed to unpack result. Raw: %s: %w", hexutil.Encode(*raw), err)
	}
	call.out = out
	return nil
}

func uintOut(call *contractCall, idx int) (*big.Int, error) {
	if idx >= len(call.out) {
		return nil, fmt.Errorf("%s returned %d values, want index %d", call.method, len(call.out), idx)
	}
	v, ok := call.out[idx].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("%s output %d is %T, not *big.Int", call.method, idx, call.out[idx])
	}
	return v, nil
}
