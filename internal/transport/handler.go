// Package transport exposes the auditor over HTTP and gRPC health checks.
package transport

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	gwruntime "github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"

	"github.com/goodnatureofminers/multialgo-retarget/internal/algo"
	"github.com/goodnatureofminers/multialgo-retarget/internal/audit"
	"github.com/goodnatureofminers/multialgo-retarget/internal/model"
	"github.com/goodnatureofminers/multialgo-retarget/internal/target"
)

const (
	defaultAnomalyLimit = 100
	maxAnomalyLimit     = 1000
)

type nextTargetResponse struct {
	Network string `json:"network"`
	Algo    string `json:"algo"`
	Height  uint64 `json:"height"`
	Bits    string `json:"bits"`
	Target  string `json:"target"`
}

type weightResponse struct {
	Algo   string `json:"algo"`
	Weight uint32 `json:"weight"`
}

type anomalyResponse struct {
	Height       uint64 `json:"height"`
	Hash         string `json:"hash"`
	Algo         string `json:"algo"`
	Timestamp    string `json:"timestamp"`
	Bits         string `json:"bits"`
	ExpectedBits string `json:"expected_bits"`
	Outcome      string `json:"outcome"`
}

type route struct {
	path    string
	handler gwruntime.HandlerFunc
}

type errorResponse struct {
	Error string `json:"error"`
}

// Handler serves the auditor's REST endpoints.
type Handler struct {
	network   model.Network
	predictor Predictor
	anomalies AnomalyReader
	weights   algo.WeightTable
	logger    *zap.Logger
}

// NewHandler returns a Handler. anomalies may be nil, which disables /v1/anomalies.
func NewHandler(network model.Network, predictor Predictor, anomalies AnomalyReader, logger *zap.Logger) *Handler {
	return &Handler{
		network:   network,
		predictor: predictor,
		anomalies: anomalies,
		weights:   algo.NewWeightTable(logger),
		logger:    logger,
	}
}

// Register binds the endpoints on mux.
func (h *Handler) Register(mux *gwruntime.ServeMux) error {
	routes := []route{
		{"/v1/next-target", h.NextTarget},
		{"/v1/weights", h.Weights},
	}
	if h.anomalies != nil {
		routes = append(routes, route{"/v1/anomalies", h.Anomalies})
	}
	for _, r := range routes {
		if err := mux.HandlePath(http.MethodGet, r.path, r.handler); err != nil {
			return fmt.Errorf("register %s: %w", r.path, err)
		}
	}
	return nil
}

// NextTarget answers GET /v1/next-target?algo=<name>.
func (h *Handler) NextTarget(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	id, err := algo.Parse(r.URL.Query().Get("algo"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	p, err := h.predictor.NextTarget(id)
	switch {
	case errors.Is(err, audit.ErrNotReady):
		h.writeError(w, http.StatusServiceUnavailable, err)
		return
	case err != nil:
		h.logger.Error("next target failed", zap.Stringer("algo", id), zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	t, _, _ := target.DecodeCompact(p.Bits)
	raw := t.Bytes32()
	h.writeJSON(w, http.StatusOK, nextTargetResponse{
		Network: string(p.Network),
		Algo:    p.Algo.String(),
		Height:  p.Height,
		Bits:    bitsHex(p.Bits),
		Target:  hex.EncodeToString(raw[:]),
	})
}

// Weights answers GET /v1/weights.
func (h *Handler) Weights(w http.ResponseWriter, _ *http.Request, _ map[string]string) {
	ids := algo.All()
	resp := make([]weightResponse, 0, len(ids))
	for _, id := range ids {
		resp = append(resp, weightResponse{Algo: id.String(), Weight: h.weights.Weight(id)})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Anomalies answers GET /v1/anomalies?limit=<n> with the most recent flagged blocks.
func (h *Handler) Anomalies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	limit := uint64(defaultAnomalyLimit)
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || n == 0 || n > maxAnomalyLimit {
			h.writeError(w, http.StatusBadRequest, fmt.Errorf("limit must be between 1 and %d", maxAnomalyLimit))
			return
		}
		limit = n
	}

	results, err := h.anomalies.Anomalies(r.Context(), h.network, uint32(limit))
	if err != nil {
		h.logger.Error("anomalies query failed", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := make([]anomalyResponse, 0, len(results))
	for _, res := range results {
		resp = append(resp, anomalyResponse{
			Height:       res.Height,
			Hash:         res.Hash,
			Algo:         res.Algo,
			Timestamp:    res.Timestamp.UTC().Format(time.RFC3339),
			Bits:         bitsHex(res.Bits),
			ExpectedBits: bitsHex(res.ExpectedBits),
			Outcome:      res.Outcome(),
		})
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	h.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("write response failed", zap.Error(err))
	}
}

func bitsHex(bits uint32) string {
	return fmt.Sprintf("%08x", bits)
}
