package sol

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	jitorpc "github.com/jito-labs/jito-go-rpc"
	"golang.org/x/time/rate"
)

// Client wraps a Solana RPC client with request rate limiting and an
// optional Jito block-engine client for bundle submission.
type Client struct {
	endpoint string
	rpc      *rpc.Client
	limiter  *rate.Limiter
	jito     *jitorpc.JitoJsonRpcClient
}

// NewClient creates a rate-limited RPC client for the endpoint. jitoRpc may
// be empty when bundle submission is not needed.
func NewClient(ctx context.Context, endpoint string, jitoRpc string, reqLimitPerSecond int) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("rpc endpoint is required")
	}
	if reqLimitPerSecond <= 0 {
		reqLimitPerSecond = 10
	}

	client := &Client{
		endpoint: endpoint,
		rpc:      rpc.New(endpoint),
		limiter:  rate.NewLimiter(rate.Limit(reqLimitPerSecond), reqLimitPerSecond),
	}
	if jitoRpc != "" {
		client.jito = jitorpc.NewJitoJsonRpcClient(jitoRpc, "")
	}

	// Verify the endpoint responds before handing the client out
	if _, err := client.rpc.GetHealth(ctx); err != nil {
		return nil, fmt.Errorf("rpc endpoint %s health check failed: %w", endpoint, err)
	}

	return client, nil
}

// Endpoint returns the RPC endpoint URL this client talks to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// GetAccountInfoWithOpts fetches one account with base64 encoding.
func (c *Client) GetAccountInfoWithOpts(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetAccountInfoWithOpts(ctx, account, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
}

// GetMultipleAccountsWithOpts fetches a batch of accounts in one request.
func (c *Client) GetMultipleAccountsWithOpts(ctx context.Context, accounts []solana.PublicKey) (*rpc.GetMultipleAccountsResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetMultipleAccountsWithOpts(ctx, accounts, &rpc.GetMultipleAccountsOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
}

// GetProgramAccountsWithOpts fetches program accounts matching opts.
func (c *Client) GetProgramAccountsWithOpts(ctx context.Context, program solana.PublicKey, opts *rpc.GetProgramAccountsOpts) (rpc.GetProgramAccountsResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return c.rpc.GetProgramAccountsWithOpts(ctx, program, opts)
}

// SendJitoBundle submits a transaction bundle through the Jito block
// engine. It fails when the client was built without a Jito endpoint.
func (c *Client) SendJitoBundle(transactions [][]string) (json.RawMessage, error) {
	if c.jito == nil {
		return nil, errors.New("jito rpc endpoint not configured")
	}
	return c.jito.SendBundle(transactions)
}
