package audit

import (
	"context"
	"time"

	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	HeaderSource interface {
		LatestHeight(ctx context.Context) (uint64, error)
		FetchHeader(ctx context.Context, height uint64) (model.Header, error)
	}

	// Invalidator drops cached headers from height upwards. Sources without a
	// cache do not implement it.
	Invalidator interface {
		Invalidate(ctx context.Context, height uint64) error
	}

	Repository interface {
		InsertAuditResults(ctx context.Context, results []model.AuditResult) error
		MaxAuditedHeight(ctx context.Context, network model.Network) (uint64, bool, error)
	}

	ResultWriter interface {
		Start(ctx context.Context)
		Stop()
		Write(ctx context.Context, result model.AuditResult) error
		// Unstored reports the lowest height dropped since a flush failed.
		// It is final once Stop returns.
		Unstored() (uint64, bool)
	}

	Metrics interface {
		ObserveFetchBatch(err error, headers int, started time.Time)
		ObserveHeader(algo, outcome string, height uint64)
		ObserveReorg()
	}
)
