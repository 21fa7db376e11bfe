// Package router binds the V2 router and ERC-20 contracts over JSON-RPC.
package router

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	blockchainApp "github.com/fd1az/dex-arbitrage-bot/business/blockchain/app"
	"github.com/fd1az/dex-arbitrage-bot/business/execution/app"
	"github.com/fd1az/dex-arbitrage-bot/internal/apperror"
)

const tracerName = "github.com/fd1az/dex-arbitrage-bot/business/execution/infra/router"

var _ app.Contracts = (*Contracts)(nil)

// Contracts implements app.Contracts with go-ethereum ABI encoding.
type Contracts struct {
	chain     blockchainApp.ChainClient
	routerABI abi.ABI
	erc20ABI  abi.ABI
	tracer    trace.Tracer
}

// New parses both ABIs.
func New(chain blockchainApp.ChainClient) (*Contracts, error) {
	routerABI, err := abi.JSON(strings.NewReader(RouterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse router abi: %w", err)
	}
	erc20ABI, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("parse erc20 abi: %w", err)
	}

	return &Contracts{
		chain:     chain,
		routerABI: routerABI,
		erc20ABI:  erc20ABI,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// AmountsOut quotes a swap along path through router.
func (c *Contracts) AmountsOut(ctx context.Context, router common.Address, amountIn *big.Int, path []common.Address) ([]*big.Int, error) {
	ctx, span := c.tracer.Start(ctx, "router.get_amounts_out",
		trace.WithAttributes(
			attribute.String("router", router.Hex()),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	var amounts []*big.Int
	if err := c.call(ctx, c.routerABI, router, "getAmountsOut", &amounts, amountIn, path); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		return nil, err
	}
	if len(amounts) != len(path) {
		return nil, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithContext(fmt.Sprintf("getAmountsOut returned %d amounts for %d hops", len(amounts), len(path))))
	}

	span.SetStatus(codes.Ok, "quoted")
	return amounts, nil
}

// Allowance returns how much spender may move of owner's token.
func (c *Contracts) Allowance(ctx context.Context, token, owner, spender common.Address) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, c.erc20ABI, token, "allowance", &out, owner, spender); err != nil {
		return nil, err
	}
	return out, nil
}

// BalanceOf returns owner's token balance.
func (c *Contracts) BalanceOf(ctx context.Context, token, owner common.Address) (*big.Int, error) {
	var out *big.Int
	if err := c.call(ctx, c.erc20ABI, token, "balanceOf", &out, owner); err != nil {
		return nil, err
	}
	return out, nil
}

// TokenInfo reads symbol and decimals.
func (c *Contracts) TokenInfo(ctx context.Context, token common.Address) (string, uint8, error) {
	var symbol string
	if err := c.call(ctx, c.erc20ABI, token, "symbol", &symbol); err != nil {
		return "", 0, err
	}
	var decimals uint8
	if err := c.call(ctx, c.erc20ABI, token, "decimals", &decimals); err != nil {
		return "", 0, err
	}
	return symbol, decimals, nil
}

// PackSwap encodes swapExactTokensForTokens.
func (c *Contracts) PackSwap(amountIn, minOut *big.Int, path []common.Address, to common.Address, deadline *big.Int) ([]byte, error) {
	return c.routerABI.Pack("swapExactTokensForTokens", amountIn, minOut, path, to, deadline)
}

// PackApprove encodes approve.
func (c *Contracts) PackApprove(spender common.Address, amount *big.Int) ([]byte, error) {
	return c.erc20ABI.Pack("approve", spender, amount)
}

func (c *Contracts) call(ctx context.Context, parsed abi.ABI, to common.Address, method string, out any, args ...any) error {
	data, err := parsed.Pack(method, args...)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("pack "+method))
	}

	result, err := c.chain.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("%s on %s", method, to.Hex())))
	}

	if err := parsed.UnpackIntoInterface(out, method, result); err != nil {
		return apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(err),
			apperror.WithContext("unpack "+method))
	}
	return nil
}
