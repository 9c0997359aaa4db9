package bitcoin

import (
	"context"
	"fmt"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/pkg/safe"
)

// Source fetches headers from a node.
type Source struct {
	rpc     RPCClient
	network model.Network
}

// NewSource creates a Source reading from rpc.
func NewSource(rpc RPCClient, network model.Network) *Source {
	return &Source{
		rpc:     rpc,
		network: network,
	}
}

// LatestHeight returns the node's best block height.
func (s *Source) LatestHeight(_ context.Context) (uint64, error) {
	count, err := s.rpc.GetBlockCount()
	if err != nil {
		return 0, err
	}
	height, err := safe.Uint64(count)
	if err != nil {
		return 0, fmt.Errorf("block count overflow: %w", err)
	}
	return height, nil
}

// FetchHeader retrieves the header at height on the node's best chain.
func (s *Source) FetchHeader(ctx context.Context, height uint64) (model.Header, error) {
	h, err := safe.Int64(height)
	if err != nil {
		return model.Header{}, fmt.Errorf("block height %d exceeds rpc limit: %w", height, err)
	}
	if err := ctx.Err(); err != nil {
		return model.Header{}, err
	}
	hash, err := s.rpc.GetBlockHash(h)
	if err != nil {
		return model.Header{}, fmt.Errorf("get block hash at height %d: %w", height, err)
	}
	src, err := s.rpc.GetBlockHeaderVerbose(hash)
	if err != nil {
		return model.Header{}, fmt.Errorf("get block header %s: %w", hash, err)
	}
	header, err := BuildHeaderFromVerbose(*src, s.network)
	if err != nil {
		return model.Header{}, err
	}
	if header.Height != height {
		return model.Header{}, fmt.Errorf("block %s: node returned height %d, want %d", hash, header.Height, height)
	}
	return header, nil
}
