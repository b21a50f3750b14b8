package sol

import (
	"context"
	"errors"
	"sync/atomic"
)

// RPCPool distributes requests across multiple RPC endpoints round-robin.
type RPCPool struct {
	clients []*Client
	next    atomic.Uint64
}

// NewRPCPool builds a client per endpoint. All clients share the same Jito
// endpoint and per-endpoint rate limit.
func NewRPCPool(ctx context.Context, endpoints []string, jitoRpc string, reqLimitPerSecond int) (*RPCPool, error) {
	if len(endpoints) == 0 {
		return nil, errors.New("at least one rpc endpoint is required")
	}

	clients := make([]*Client, 0, len(endpoints))
	for _, endpoint := range endpoints {
		client, err := NewClient(ctx, endpoint, jitoRpc, reqLimitPerSecond)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return &RPCPool{clients: clients}, nil
}

// GetClient returns the next client in round-robin order.
func (p *RPCPool) GetClient() *Client {
	if len(p.clients) == 1 {
		return p.clients[0]
	}
	idx := p.next.Add(1) % uint64(len(p.clients))
	return p.clients[idx]
}

// GetAllClients returns every client in the pool.
func (p *RPCPool) GetAllClients() []*Client {
	return p.clients
}

// Size returns the number of clients in the pool.
func (p *RPCPool) Size() int {
	return len(p.clients)
}
