package headercache

import (
	"context"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	// HeaderSource is the upstream the cache decorates.
	HeaderSource interface {
		LatestHeight(ctx context.Context) (uint64, error)
		FetchHeader(ctx context.Context, height uint64) (model.Header, error)
	}

	// HeaderStore persists headers by network and height.
	HeaderStore interface {
		Get(network model.Network, height uint64) (model.Header, error)
		Put(header model.Header) error
		DeleteFrom(network model.Network, height uint64) (int, error)
	}
)
