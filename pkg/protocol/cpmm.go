package protocol

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"swaprouting/pkg"
	"swaprouting/pkg/pool/cpmm"
	"swaprouting/pkg/sol"
)

// SPL token-swap account offsets for mint memcmp filters:
// version(1) + initialized(1) + nonce(1) + token program(32) +
// token account A(32) + token account B(32) + pool mint(32).
const (
	mintAOffset = 131
	mintBOffset = 163
)

// CpmmProtocol discovers SPL token-swap pools on chain. Pools it returns
// quote only; they have no local settlement bank.
type CpmmProtocol struct {
	SolClient *sol.Client
}

func NewCpmm(solClient *sol.Client) *CpmmProtocol {
	return &CpmmProtocol{
		SolClient: solClient,
	}
}

func (p *CpmmProtocol) ProtocolName() pkg.ProtocolName {
	return pkg.ProtocolName("cpmm")
}

func (p *CpmmProtocol) FetchPoolsByPair(ctx context.Context, baseMint string, quoteMint string) ([]pkg.Pool, error) {
	baseMintPubkey, err := solana.PublicKeyFromBase58(baseMint)
	if err != nil {
		return nil, fmt.Errorf("invalid base mint address: %w", err)
	}
	quoteMintPubkey, err := solana.PublicKeyFromBase58(quoteMint)
	if err != nil {
		return nil, fmt.Errorf("invalid quote mint address: %w", err)
	}

	accounts, err := p.fetchByMints(ctx, baseMintPubkey, quoteMintPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch token-swap pools: %w", err)
	}

	// Also try the reverse orientation
	reverseAccounts, err := p.fetchByMints(ctx, quoteMintPubkey, baseMintPubkey)
	if err == nil {
		accounts = append(accounts, reverseAccounts...)
	}

	res := make([]pkg.Pool, 0)
	for _, v := range accounts {
		pool := &cpmm.Pool{}
		if err := pool.Decode(v.Account.Data.GetBinary()); err != nil {
			continue
		}
		if pool.CurveType != cpmm.CurveConstantProduct || !pool.IsInitialized {
			continue
		}
		pool.PoolId = v.Pubkey
		res = append(res, pool)
	}
	return res, nil
}

func (p *CpmmProtocol) fetchByMints(ctx context.Context, mintA, mintB solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	filters := []rpc.RPCFilter{
		{
			DataSize: cpmm.PoolAccountSize,
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: mintAOffset,
				Bytes:  mintA.Bytes(),
			},
		},
		{
			Memcmp: &rpc.RPCFilterMemcmp{
				Offset: mintBOffset,
				Bytes:  mintB.Bytes(),
			},
		},
	}

	return p.SolClient.GetProgramAccountsWithOpts(ctx, cpmm.SplTokenSwapProgramID, &rpc.GetProgramAccountsOpts{
		Filters: filters,
	})
}

func (p *CpmmProtocol) FetchPoolByID(ctx context.Context, poolId string) (pkg.Pool, error) {
	poolPubkey, err := solana.PublicKeyFromBase58(poolId)
	if err != nil {
		return nil, fmt.Errorf("invalid pool ID: %w", err)
	}

	account, err := p.SolClient.GetAccountInfoWithOpts(ctx, poolPubkey)
	if err != nil {
		return nil, fmt.Errorf("failed to get pool account %s: %w", poolId, err)
	}

	pool := &cpmm.Pool{}
	if err := pool.Decode(account.Value.Data.GetBinary()); err != nil {
		return nil, fmt.Errorf("failed to parse pool data for pool %s: %w", poolId, err)
	}
	pool.PoolId = poolPubkey
	return pool, nil
}
