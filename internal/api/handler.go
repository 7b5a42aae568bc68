package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/mtlprog/positions/internal/domain"
	"github.com/mtlprog/positions/internal/snapshot"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Handler provides HTTP endpoints for stored portfolio snapshots.
type Handler struct {
	snapshots *snapshot.Service
	currency  string
}

// NewHandler creates a new snapshot handler. currency is used when a request omits ?currency.
func NewHandler(snapshots *snapshot.Service, currency string) *Handler {
	return &Handler{snapshots: snapshots, currency: domain.NormalizeCurrency(currency)}
}

// GetLatestSnapshot handles GET /api/v1/positions/{address}/snapshots/latest.
func (h *Handler) GetLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	address, ok := walletAddress(w, r)
	if !ok {
		return
	}

	s, err := h.snapshots.GetLatest(r.Context(), address, requestCurrency(r, h.currency))
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no snapshots found")
			return
		}
		slog.Error("failed to get latest snapshot", "request_id", RequestID(r.Context()), "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// GetSnapshotByDate handles GET /api/v1/positions/{address}/snapshots/{date}.
func (h *Handler) GetSnapshotByDate(w http.ResponseWriter, r *http.Request) {
	address, ok := walletAddress(w, r)
	if !ok {
		return
	}

	dateStr := r.PathValue("date")
	date, err := time.Parse(time.DateOnly, dateStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date format, expected YYYY-MM-DD")
		return
	}

	s, err := h.snapshots.GetByDate(r.Context(), address, requestCurrency(r, h.currency), date)
	if err != nil {
		if errors.Is(err, snapshot.ErrNotFound) {
			writeError(w, http.StatusNotFound, "snapshot not found for date")
			return
		}
		slog.Error("failed to get snapshot by date", "request_id", RequestID(r.Context()), "address", address, "date", dateStr, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// ListSnapshots handles GET /api/v1/positions/{address}/snapshots.
func (h *Handler) ListSnapshots(w http.ResponseWriter, r *http.Request) {
	address, ok := walletAddress(w, r)
	if !ok {
		return
	}

	limit := 30
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, snapshot.MaxListLimit)
		}
	}

	snapshots, err := h.snapshots.List(r.Context(), address, requestCurrency(r, h.currency), limit)
	if err != nil {
		slog.Error("failed to list snapshots", "request_id", RequestID(r.Context()), "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if snapshots == nil {
		snapshots = []snapshot.Snapshot{}
	}
	writeJSON(w, http.StatusOK, snapshots)
}

// GenerateSnapshot handles POST /api/v1/positions/{address}/snapshots/generate.
func (h *Handler) GenerateSnapshot(w http.ResponseWriter, r *http.Request) {
	address, ok := walletAddress(w, r)
	if !ok {
		return
	}

	data, err := h.snapshots.Generate(r.Context(), snapshot.NewRunID(), address, requestCurrency(r, h.currency), time.Now())
	if err != nil {
		slog.Error("failed to generate snapshot", "request_id", RequestID(r.Context()), "address", address, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate snapshot")
		return
	}
	writeJSON(w, http.StatusOK, data)
}

// walletAddress validates the {address} path value and writes 400 when it is malformed.
func walletAddress(w http.ResponseWriter, r *http.Request) (string, bool) {
	address := r.PathValue("address")
	if !domain.IsWalletAddress(address) {
		writeError(w, http.StatusBadRequest, "invalid wallet address")
		return "", false
	}
	return address, true
}

func requestCurrency(r *http.Request, fallback string) string {
	if c := r.URL.Query().Get("currency"); c != "" {
		return domain.NormalizeCurrency(c)
	}
	return fallback
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
