package transport

import (
	"context"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/audit"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
)

//go:generate mockgen -source=$GOFILE -destination=mocks_test.go -package=$GOPACKAGE

type (
	Predictor interface {
		NextTarget(id algo.ID) (audit.Prediction, error)
	}

	AnomalyReader interface {
		Anomalies(ctx context.Context, network model.Network, limit uint32) ([]model.AuditResult, error)
	}
)
